package fanout

import (
	"github.com/medeiros-dev/notification-gateway/internal/domain"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/push"
)

const (
	eventCreatedType   = "event_created"
	androidChannelID   = "event_notifications"
	androidClickAction = "FLUTTER_NOTIFICATION_CLICK"
)

// BuildMessage renders the event announcement for every token.
func BuildMessage(record domain.NotificationRecord, tokens []string) push.MulticastMessage {
	return push.MulticastMessage{
		Tokens: tokens,
		Title:  "New Event: " + record.EventTitle,
		Body:   "Event Date: " + record.EventDate + " - Register now!",
		Data: map[string]string{
			"eventId":    record.EventID,
			"eventTitle": record.EventTitle,
			"eventDate":  record.EventDate,
			"type":       eventCreatedType,
		},
		Android: push.AndroidHints{
			Priority:    "high",
			Sound:       "default",
			ChannelID:   androidChannelID,
			ClickAction: androidClickAction,
		},
		APNS: push.APNSHints{
			Sound: "default",
			Badge: 1,
		},
	}
}
