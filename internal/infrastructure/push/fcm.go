package push

import (
	"context"
	"fmt"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/medeiros-dev/notification-gateway/configs"
	"github.com/medeiros-dev/notification-gateway/internal/domain/port/push"
	"github.com/medeiros-dev/notification-gateway/pkg/logger"
)

// maxTokensPerCall is the FCM limit for one SendEachForMulticast request.
const maxTokensPerCall = 500

type multicaster interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMGateway sends multicast pushes through Firebase Cloud Messaging.
// The messaging client is created on first use and shared afterwards.
type FCMGateway struct {
	client func() (multicaster, error)
}

var _ push.Gateway = (*FCMGateway)(nil)

func NewFCMGateway(cfg configs.PushConf) *FCMGateway {
	return &FCMGateway{
		client: sync.OnceValues(func() (multicaster, error) {
			return newMessagingClient(context.Background(), cfg)
		}),
	}
}

func newMessagingClient(ctx context.Context, cfg configs.PushConf) (multicaster, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	var fbConf *firebase.Config
	if cfg.ProjectID != "" {
		fbConf = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConf, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase messaging: %w", err)
	}
	logger.L().Info("Firebase messaging client initialized", zap.String("projectID", cfg.ProjectID))
	return client, nil
}

// SendMulticast delivers msg to every token. Token lists above the FCM
// per-request limit are split into consecutive requests and the counts summed.
// A failing request stops the loop; the returned result keeps the earlier counts.
func (g *FCMGateway) SendMulticast(ctx context.Context, msg push.MulticastMessage) (push.BatchResult, error) {
	client, err := g.client()
	if err != nil {
		return push.BatchResult{}, err
	}

	var result push.BatchResult
	for start := 0; start < len(msg.Tokens); start += maxTokensPerCall {
		end := min(start+maxTokensPerCall, len(msg.Tokens))
		resp, err := client.SendEachForMulticast(ctx, toFCMMessage(msg, msg.Tokens[start:end]))
		if err != nil {
			if start == 0 {
				return result, fmt.Errorf("sending multicast: %w", err)
			}
			return result, fmt.Errorf("sending multicast tokens %d-%d after %d delivered and %d failed: %w",
				start, end-1, result.SuccessCount, result.FailureCount, err)
		}
		result.SuccessCount += resp.SuccessCount
		result.FailureCount += resp.FailureCount
	}
	return result, nil
}

func toFCMMessage(msg push.MulticastMessage, tokens []string) *messaging.MulticastMessage {
	badge := msg.APNS.Badge
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: msg.Android.Priority,
			Notification: &messaging.AndroidNotification{
				Sound:       msg.Android.Sound,
				ChannelID:   msg.Android.ChannelID,
				ClickAction: msg.Android.ClickAction,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: msg.APNS.Sound,
					Badge: &badge,
				},
			},
		},
	}
}
