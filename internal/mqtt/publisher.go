package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"ropacal-telemetry/internal/models"
)

const (
	TopicStats = "bins/stats"
	QoS        = 0

	publishTimeout = 2 * time.Second
)

// TopicForBin returns "bins/{id}/telemetry"
func TopicForBin(binID string) string {
	return "bins/" + binID + "/telemetry"
}

// BinIDFromTopic extracts the bin id from "bins/{id}/telemetry".
func BinIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "bins" || parts[2] != "telemetry" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Client is the subset of the paho client the publisher uses
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher mirrors each telemetry snapshot onto the broker. It
// implements broadcast.Subscriber.
type Publisher struct {
	client Client
	stats  func() models.TelemetryStats
}

// NewPublisher creates a publisher. stats may be nil, in which case
// nothing is published to TopicStats.
func NewPublisher(client Client, stats func() models.TelemetryStats) *Publisher {
	return &Publisher{client: client, stats: stats}
}

// Notify publishes every record to its bin topic, then the stats.
// Bag records have no sensor and are not published.
func (p *Publisher) Notify(snapshot []models.BinTelemetryRecord) error {
	var errs []error
	for _, r := range snapshot {
		if r.IsBagCollection {
			continue
		}
		if err := p.publishJSON(TopicForBin(r.BinID), r); err != nil {
			errs = append(errs, err)
		}
	}

	if p.stats != nil {
		if err := p.publishJSON(TopicStats, p.stats()); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("mqtt: %d publishes failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

func (p *Publisher) publishJSON(topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	token := p.client.Publish(topic, QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		log.Printf("⚠️ mqtt: publish to %s still pending after %v", topic, publishTimeout)
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
