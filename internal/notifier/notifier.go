package notifier

import (
	"sync"
	"time"

	"smart_irrigation/internal/metrics"
)

// Event kinds published by the core. The transport layer (WebSocket, MQTT)
// forwards these verbatim.
const (
	KindPumpStatus        = "pump_status_update"
	KindPresetActivated   = "preset_activated"
	KindPresetDeactivated = "preset_deactivated"
	KindPresetUpdated     = "preset_updated"
	KindScheduleUpdated   = "schedule_updated"
	KindSensorUpdate      = "sensor_update"
	KindSafetyStop        = "safety_stop"
	KindAlarm             = "alarm"
)

// Event is one state-change notification.
type Event struct {
	Kind string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}

// Subscription is a bounded receive queue for one consumer. When the queue is
// full the oldest event is discarded so a slow subscriber never blocks the
// publisher.
type Subscription struct {
	name string
	ch   chan Event
}

// Events returns the subscriber's event channel. It is closed on Unsubscribe
// and on Notifier.Close.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Name reports the subscriber name given to Subscribe.
func (s *Subscription) Name() string { return s.name }

// Notifier fans state changes out to subscribers. Publish never blocks.
type Notifier struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func New() *Notifier {
	return &Notifier{subs: make(map[*Subscription]struct{})}
}

const defaultBuffer = 32

// Subscribe registers a consumer with the given queue size (a non-positive
// buffer gets the default).
func (n *Notifier) Subscribe(name string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	sub := &Subscription{name: name, ch: make(chan Event, buffer)}
	n.mu.Lock()
	if n.closed {
		close(sub.ch)
	} else {
		n.subs[sub] = struct{}{}
	}
	n.mu.Unlock()
	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (n *Notifier) Unsubscribe(sub *Subscription) {
	n.mu.Lock()
	if _, ok := n.subs[sub]; ok {
		delete(n.subs, sub)
		close(sub.ch)
	}
	n.mu.Unlock()
}

// Publish delivers e to every subscriber without blocking. On a full queue
// the oldest queued event is dropped to make room.
func (n *Notifier) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for sub := range n.subs {
		select {
		case sub.ch <- e:
			continue
		default:
		}
		// queue full: evict the oldest, then retry once
		select {
		case <-sub.ch:
			metrics.EventsDropped.WithLabelValues(sub.name).Inc()
		default:
		}
		select {
		case sub.ch <- e:
		default:
			metrics.EventsDropped.WithLabelValues(sub.name).Inc()
		}
	}
}

// Close shuts the notifier down and closes all subscriber channels.
func (n *Notifier) Close() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		for sub := range n.subs {
			delete(n.subs, sub)
			close(sub.ch)
		}
	}
	n.mu.Unlock()
}
