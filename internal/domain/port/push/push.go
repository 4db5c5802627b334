package push

import "context"

// AndroidHints and APNSHints are passed to the gateway verbatim.
type AndroidHints struct {
	Priority    string
	Sound       string
	ChannelID   string
	ClickAction string
}

type APNSHints struct {
	Sound string
	Badge int
}

// MulticastMessage is one push payload fanned out to many device tokens.
type MulticastMessage struct {
	Tokens  []string
	Title   string
	Body    string
	Data    map[string]string
	Android AndroidHints
	APNS    APNSHints
}

// BatchResult carries per-recipient outcome counts. Individual token failures
// do not fail the call.
type BatchResult struct {
	SuccessCount int
	FailureCount int
}

type Gateway interface {
	// SendMulticast delivers msg to every token. On error the result still
	// holds the counts of the requests that completed before the failure.
	SendMulticast(ctx context.Context, msg MulticastMessage) (BatchResult, error)
}
