package fcm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/go-mentoring-notifier/internal/config"
	"github.com/go-mentoring-notifier/internal/domain"
	"google.golang.org/api/option"
)

// MaxMulticastTokens is the FCM limit on tokens per multicast request.
const MaxMulticastTokens = 500

// TopicPrefix namespaces per-user topics; the full topic is TopicPrefix + userID.
const TopicPrefix = "user-"

// messenger is the subset of *messaging.Client the adapter uses.
type messenger interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)
	UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)
}

// Client sends push notifications through Firebase Cloud Messaging.
type Client struct {
	msg messenger
}

// NewClient initialises the Firebase app from a service-account file. With no
// file configured it falls back to Application Default Credentials.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}
	var fbCfg *firebase.Config
	if cfg.FirebaseProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase: %w", err)
	}
	msg, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging: %w", err)
	}
	return &Client{msg: msg}, nil
}

// Multicast sends m to every token in one request and reports a result per token,
// in input order. The returned error is set only when the request itself failed.
func (c *Client) Multicast(ctx context.Context, m domain.PushMessage, tokens []string) ([]domain.PushResult, error) {
	if len(tokens) > MaxMulticastTokens {
		return nil, fmt.Errorf("multicast of %d tokens exceeds %d", len(tokens), MaxMulticastTokens)
	}
	resp, err := c.msg.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   m.Data,
		Notification: &messaging.Notification{
			Title: m.Title,
			Body:  m.Body,
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{Aps: &messaging.Aps{Sound: "default"}},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Responses) != len(tokens) {
		return nil, fmt.Errorf("fcm returned %d responses for %d tokens", len(resp.Responses), len(tokens))
	}

	results := make([]domain.PushResult, len(tokens))
	for i, r := range resp.Responses {
		results[i] = domain.PushResult{DeviceID: tokens[i]}
		if r.Success {
			continue
		}
		results[i].Err = r.Error
		results[i].Invalid = isPermanent(r.Error)
	}
	return results, nil
}

// isPermanent reports whether a per-token error means the token will never work again.
func isPermanent(err error) bool {
	if err == nil {
		return false
	}
	return messaging.IsUnregistered(err) || messaging.IsSenderIDMismatch(err)
}

// Subscribe adds a token to the user's topic.
func (c *Client) Subscribe(ctx context.Context, userID, token string) error {
	resp, err := c.msg.SubscribeToTopic(ctx, []string{token}, TopicPrefix+userID)
	return topicResult(resp, err)
}

// Unsubscribe removes a token from the user's topic.
func (c *Client) Unsubscribe(ctx context.Context, userID, token string) error {
	resp, err := c.msg.UnsubscribeFromTopic(ctx, []string{token}, TopicPrefix+userID)
	return topicResult(resp, err)
}

func topicResult(resp *messaging.TopicManagementResponse, err error) error {
	if err != nil {
		return err
	}
	if resp != nil && resp.FailureCount > 0 && len(resp.Errors) > 0 {
		reason := resp.Errors[0].Reason
		slog.Warn("fcm topic management failed", "reason", reason)
		return errors.New("topic management: " + reason)
	}
	return nil
}
