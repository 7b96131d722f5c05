package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strconv"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"ropacal-telemetry/internal/models"
)

const sendTimeout = 10 * time.Second

// FCMService handles Firebase Cloud Messaging
type FCMService struct {
	client *messaging.Client
}

// NewFCMService creates a new FCM service instance from a credentials file
func NewFCMService(credentialsFile string) (*FCMService, error) {
	return newFCMService(option.WithCredentialsFile(credentialsFile))
}

// NewFCMServiceFromBase64 creates a new FCM service instance from base64-encoded credentials
// This is useful for cloud deployments where you can't upload files easily
func NewFCMServiceFromBase64(credentialsBase64 string) (*FCMService, error) {
	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}
	return newFCMService(option.WithCredentialsJSON(credentialsJSON))
}

func newFCMService(opt option.ClientOption) (*FCMService, error) {
	ctx := context.Background()

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// SendOverflowAlert notifies every token that a bin has overflowed
func (s *FCMService) SendOverflowAlert(tokens []string, record models.BinTelemetryRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	response, err := s.client.SendEachForMulticast(ctx, BuildOverflowMessage(tokens, record))
	if err != nil {
		return fmt.Errorf("error sending multicast message: %w", err)
	}

	log.Printf("✅ Overflow alert for %s sent: %d success, %d failures", record.BinID, response.SuccessCount, response.FailureCount)
	return nil
}

// BuildOverflowMessage builds the multicast payload for an overflowing bin
func BuildOverflowMessage(tokens []string, record models.BinTelemetryRecord) *messaging.MulticastMessage {
	body := fmt.Sprintf("Bin %s is %d%% full and needs collection.", record.BinID, record.FillLevel)
	if record.Location != "" {
		body = fmt.Sprintf("Bin %s at %s is %d%% full and needs collection.", record.BinID, record.Location, record.FillLevel)
	}

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: "Bin Overflowing!",
			Body:  body,
		},
		Data: map[string]string{
			"type":       models.AlertOverflow,
			"bin_id":     record.BinID,
			"owner_id":   record.OwnerID,
			"fill_level": strconv.Itoa(record.FillLevel),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}
}
