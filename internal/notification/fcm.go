package notification

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

const fcmBatchLimit = 500

// FCMClient implements Messenger using Firebase Cloud Messaging
type FCMClient struct {
	msgClient *messaging.Client
	tokens    DeviceTokenRepository
	logger    *slog.Logger
}

// NewFCMClient initializes a Firebase app and returns an FCM messenger.
// Invalid or unregistered tokens reported by FCM are deactivated in place.
func NewFCMClient(ctx context.Context, logger *slog.Logger, credentialsFile string, tokens DeviceTokenRepository) (*FCMClient, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging client: %w", err)
	}

	return &FCMClient{
		msgClient: msgClient,
		tokens:    tokens,
		logger:    logger,
	}, nil
}

// Send delivers a push notification to a single device token
func (c *FCMClient) Send(ctx context.Context, token string, title, body string, data map[string]string) error {
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	_, err := c.msgClient.Send(ctx, msg)
	if err != nil {
		if messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err) {
			c.logger.Info("Deactivating invalid FCM token")
			c.deactivateToken(ctx, token)
			return fmt.Errorf("invalid token: %w", err)
		}
		return fmt.Errorf("failed to send FCM message: %w", err)
	}

	return nil
}

// SendMulticast delivers a push notification to multiple device tokens,
// batching into chunks of 500 (Firebase API limit).
func (c *FCMClient) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}

	var totalSuccess, totalFailure int
	for _, batch := range chunkTokens(tokens, fcmBatchLimit) {
		msg := &messaging.MulticastMessage{
			Tokens: batch,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
		}

		resp, err := c.msgClient.SendEachForMulticast(ctx, msg)
		if err != nil {
			return fmt.Errorf("failed to send FCM multicast: %w", err)
		}

		totalSuccess += resp.SuccessCount
		totalFailure += resp.FailureCount
		if resp.FailureCount > 0 {
			c.handleMulticastFailures(ctx, batch, resp)
		}
	}

	c.logger.Debug("FCM multicast delivered", "success", totalSuccess, "failure", totalFailure)
	return nil
}

func (c *FCMClient) handleMulticastFailures(ctx context.Context, tokens []string, resp *messaging.BatchResponse) {
	for i, sendResp := range resp.Responses {
		if sendResp.Error == nil {
			continue
		}
		if messaging.IsUnregistered(sendResp.Error) || messaging.IsInvalidArgument(sendResp.Error) {
			c.logger.Info("Deactivating invalid FCM token from multicast", "index", i)
			c.deactivateToken(ctx, tokens[i])
		} else {
			c.logger.Warn("FCM send error", "index", i, "error", sendResp.Error)
		}
	}
}

func (c *FCMClient) deactivateToken(ctx context.Context, token string) {
	if c.tokens == nil {
		return
	}
	if err := c.tokens.Deactivate(ctx, token); err != nil {
		c.logger.Error("Failed to deactivate FCM token", "error", err)
	}
}

func chunkTokens(tokens []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(tokens); i += size {
		end := i + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tokens[i:end])
	}
	return chunks
}
