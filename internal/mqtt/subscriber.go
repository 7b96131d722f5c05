package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"ropacal-telemetry/internal/models"
)

// TopicCollections carries collection events reported by truck devices
const TopicCollections = "collections/+"

// BinIDFromCollectionTopic extracts the bin id from "collections/{id}".
func BinIDFromCollectionTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 2 || parts[0] != "collections" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type collectionPayload struct {
	Weight float64 `json:"weight"`
	Status string  `json:"status"`
	Time   string  `json:"time"` // RFC3339 or Unix seconds
}

// DecodeCollection turns one broker message into a collection event.
// A missing status means Collected; a missing time is left zero.
func DecodeCollection(topic string, payload []byte) (models.CollectedBinEvent, error) {
	binID, ok := BinIDFromCollectionTopic(topic)
	if !ok {
		return models.CollectedBinEvent{}, fmt.Errorf("invalid topic %q", topic)
	}

	var p collectionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return models.CollectedBinEvent{}, fmt.Errorf("invalid json: %w", err)
	}

	event := models.CollectedBinEvent{
		BinID:  binID,
		Weight: p.Weight,
		Status: models.CollectionStatus(p.Status),
	}
	if event.Status == "" {
		event.Status = models.CollectionStatusCollected
	}
	if p.Time != "" {
		t, err := parseTime(p.Time)
		if err != nil {
			return models.CollectedBinEvent{}, fmt.Errorf("invalid time %q: %w", p.Time, err)
		}
		event.Timestamp = t
	}
	return event, nil
}

// SubscribeCollections subscribes to collections/+ and calls onEvent
// for each decoded message.
func SubscribeCollections(client mqtt.Client, onEvent func(models.CollectedBinEvent) error) error {
	token := client.Subscribe(TopicCollections, QoS, func(c mqtt.Client, msg mqtt.Message) {
		event, err := DecodeCollection(msg.Topic(), msg.Payload())
		if err != nil {
			log.Printf("mqtt: %v topic=%s", err, msg.Topic())
			return
		}
		if err := onEvent(event); err != nil {
			log.Printf("mqtt: onEvent err=%v topic=%s", err, msg.Topic())
		}
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", TopicCollections, token.Error())
	}
	log.Printf("mqtt: subscribed to %s QoS=%d", TopicCollections, QoS)
	return nil
}

// parseTime supports RFC3339 string or Unix timestamp (seconds).
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	sec, perr := strconv.ParseInt(s, 10, 64)
	if perr == nil {
		return time.Unix(sec, 0), nil
	}
	return time.Time{}, err
}
