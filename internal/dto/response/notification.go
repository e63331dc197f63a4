package response

import (
	"time"

	"cleaning-booking/internal/data/entity"
)

type NotificationResponse struct {
	ID        string                    `json:"id"`
	Channel   string                    `json:"channel"`
	Recipient string                    `json:"recipient"`
	Subject   string                    `json:"subject,omitempty"`
	Body      string                    `json:"body"`
	EventType string                    `json:"event_type,omitempty"`
	Status    entity.NotificationStatus `json:"status"`
	CreatedAt time.Time                 `json:"created_at"`
}

func NotificationToResponse(n *entity.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID.String(),
		Channel:   n.Channel,
		Recipient: n.Recipient,
		Subject:   n.Subject,
		Body:      n.Body,
		EventType: n.EventType,
		Status:    n.Status,
		CreatedAt: n.CreatedAt,
	}
}
