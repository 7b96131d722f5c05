package services

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"ropacal-telemetry/internal/models"
)

// OverflowSender delivers one overflow notification. FCMService
// implements it.
type OverflowSender interface {
	SendOverflowAlert(tokens []string, record models.BinTelemetryRecord) error
}

// AlertNotifier pushes a notification when a bin enters the overflow
// state. A bin that stays overflowing is not notified again until it
// has dropped back below the threshold. It implements
// broadcast.Subscriber.
type AlertNotifier struct {
	sender OverflowSender
	tokens []string

	mu          sync.Mutex
	overflowing map[string]bool
}

func NewAlertNotifier(sender OverflowSender, tokens []string) *AlertNotifier {
	return &AlertNotifier{
		sender:      sender,
		tokens:      tokens,
		overflowing: make(map[string]bool),
	}
}

func (n *AlertNotifier) Notify(snapshot []models.BinTelemetryRecord) error {
	n.mu.Lock()
	seen := make(map[string]bool, len(snapshot))
	var entered []models.BinTelemetryRecord
	for _, r := range snapshot {
		if r.IsBagCollection {
			continue
		}
		seen[r.BinID] = true
		now := r.HasAlert(models.AlertOverflow)
		if now && !n.overflowing[r.BinID] {
			entered = append(entered, r)
		}
		n.overflowing[r.BinID] = now
	}
	for id := range n.overflowing {
		if !seen[id] {
			delete(n.overflowing, id)
		}
	}
	n.mu.Unlock()

	if len(entered) == 0 || len(n.tokens) == 0 {
		return nil
	}

	var errs []error
	for _, r := range entered {
		if err := n.sender.SendOverflowAlert(n.tokens, r); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.BinID, err))
			continue
		}
		log.Printf("📤 Overflow alert queued for %s", r.BinID)
	}
	return errors.Join(errs...)
}
