package broadcast

import (
	"log"
	"sync"
	"sync/atomic"

	"ropacal-telemetry/internal/models"
)

// DefaultQueueSize is the number of snapshots an Async subscriber
// buffers before it starts dropping.
const DefaultQueueSize = 16

// Async hands snapshots to a worker goroutine so a subscriber doing
// network I/O never holds up Publish. When the queue is full the
// snapshot is dropped; the next one supersedes it anyway.
type Async struct {
	name  string
	sub   Subscriber
	queue chan []models.BinTelemetryRecord

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	dropped   atomic.Uint64
	delivered atomic.Uint64
}

// NewAsync starts a worker delivering to sub. A queueSize <= 0 uses
// DefaultQueueSize. Call Close to stop the worker.
func NewAsync(name string, sub Subscriber, queueSize int) *Async {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	a := &Async{
		name:  name,
		sub:   sub,
		queue: make(chan []models.BinTelemetryRecord, queueSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

// Notify queues snapshot and returns immediately. The bus already hands
// each subscriber its own copy, so the snapshot is kept as is.
func (a *Async) Notify(snapshot []models.BinTelemetryRecord) error {
	select {
	case <-a.stop:
		return nil
	default:
	}

	select {
	case a.queue <- snapshot:
	default:
		n := a.dropped.Add(1)
		log.Printf("⚠️  [BROADCAST] %s is behind, dropped snapshot (%d dropped so far)", a.name, n)
	}
	return nil
}

func (a *Async) run() {
	defer close(a.done)
	for {
		select {
		case <-a.stop:
			return
		case snapshot := <-a.queue:
			if err := deliver(entry{name: a.name, subscriber: a.sub}, snapshot); err != nil {
				log.Printf("❌ [BROADCAST] Subscriber %s failed: %v", a.name, err)
			}
			a.delivered.Add(1)
		}
	}
}

// Close stops the worker and waits for an in-flight delivery to finish.
// Queued snapshots are discarded. Safe to call more than once.
func (a *Async) Close() {
	a.closeOnce.Do(func() {
		close(a.stop)
	})
	<-a.done
}

// Dropped returns how many snapshots were discarded because the queue was full
func (a *Async) Dropped() uint64 { return a.dropped.Load() }

// Delivered returns how many snapshots the worker has handed to the subscriber
func (a *Async) Delivered() uint64 { return a.delivered.Load() }
