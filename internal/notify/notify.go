// Package notify creates notification records. Delivery (websocket, email)
// belongs to the platform's request layer, not this subsystem.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"skillpulse/internal/domain"
	"skillpulse/internal/store"
)

type Service struct {
	store store.NotificationStore
}

func NewService(s store.NotificationStore) *Service { return &Service{store: s} }

// Create writes one unread notification and returns its id.
func (s *Service) Create(ctx context.Context, userID, ntype, refType, refID string, data map[string]any) (string, error) {
	if userID == "" || ntype == "" {
		return "", fmt.Errorf("user id and notification type are required")
	}
	var payload []byte
	if data != nil {
		var err error
		if payload, err = json.Marshal(data); err != nil {
			return "", fmt.Errorf("marshal notification data: %w", err)
		}
	}
	return s.store.Create(ctx, domain.Notification{
		UserID:        userID,
		Type:          ntype,
		ReferenceType: refType,
		ReferenceID:   refID,
		Data:          payload,
	})
}
