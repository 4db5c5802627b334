package domain

import "time"

// NotificationRecord is one event-notification job. It is created by an external
// writer and processed at most once per activation; Sent guards reprocessing.
type NotificationRecord struct {
	ID           string     `json:"id" bson:"_id" gorm:"column:id;primaryKey"`
	EventID      string     `json:"eventId" bson:"eventId" gorm:"column:event_id"`
	EventTitle   string     `json:"eventTitle" bson:"eventTitle" gorm:"column:event_title"`
	EventDate    string     `json:"eventDate" bson:"eventDate" gorm:"column:event_date"`
	Sent         bool       `json:"sent" bson:"sent" gorm:"column:sent;not null;default:false"`
	SentAt       *time.Time `json:"sentAt,omitempty" bson:"sentAt,omitempty" gorm:"column:sent_at"`
	SuccessCount int        `json:"successCount,omitempty" bson:"successCount,omitempty" gorm:"column:success_count"`
	FailureCount int        `json:"failureCount,omitempty" bson:"failureCount,omitempty" gorm:"column:failure_count"`
	Error        string     `json:"error,omitempty" bson:"error,omitempty" gorm:"column:error"`
}

// DeviceToken is one push-capable endpoint. Owned by the registration subsystem.
type DeviceToken struct {
	ID    string `json:"id" bson:"_id" gorm:"column:id;primaryKey"`
	Token string `json:"token" bson:"token" gorm:"column:token"`
}

// ValidTokens drops entries without a token and returns the bare token strings.
func ValidTokens(tokens []DeviceToken) []string {
	valid := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.Token != "" {
			valid = append(valid, t.Token)
		}
	}
	return valid
}

type OutcomeStatus string

const (
	OutcomeSkippedSent     OutcomeStatus = "skipped_sent"
	OutcomeSkippedClaimed  OutcomeStatus = "skipped_claimed"
	OutcomeSkippedNoTokens OutcomeStatus = "skipped_no_tokens"
	OutcomeSent            OutcomeStatus = "sent"
	OutcomeFailed          OutcomeStatus = "failed"
)

// DeliveryOutcome describes what one fan-out activation did to its record.
type DeliveryOutcome struct {
	NotificationID string        `json:"notificationId"`
	Status         OutcomeStatus `json:"status"`
	SuccessCount   int           `json:"successCount"`
	FailureCount   int           `json:"failureCount"`
	Error          string        `json:"error,omitempty"`
}
