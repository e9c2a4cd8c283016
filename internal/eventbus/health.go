package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

// ProbeFunc makes one throwaway connectivity attempt against the broker.
// A nil return means reachable.
type ProbeFunc func(ctx context.Context) error

// HealthMonitor caches broker reachability for a TTL and re-probes on a
// background ticker. State flips are fanned out to subscriber channels so
// reacting components (the bus, the selector monitor) stay decoupled from
// the probing itself.
type HealthMonitor struct {
	probe    ProbeFunc
	ttl      time.Duration
	interval time.Duration
	log      *slog.Logger

	mu          sync.Mutex
	healthy     bool
	lastChecked time.Time
	checking    bool
	subscribers []chan bool

	done     chan struct{}
	stopOnce sync.Once
}

// NewHealthMonitor builds a monitor around probe. ttl bounds how long a
// cached result is served; interval drives the proactive background checks.
func NewHealthMonitor(probe ProbeFunc, ttl, interval time.Duration, log *slog.Logger) *HealthMonitor {
	return &HealthMonitor{
		probe:    probe,
		ttl:      ttl,
		interval: interval,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Healthy returns broker reachability. Within the TTL window, or while
// another probe is in flight, the cached value is returned without any
// network activity; overlapping callers are never queued behind a probe.
func (m *HealthMonitor) Healthy(ctx context.Context) bool {
	m.mu.Lock()
	if m.checking || time.Since(m.lastChecked) < m.ttl {
		v := m.healthy
		m.mu.Unlock()
		return v
	}
	m.checking = true
	m.mu.Unlock()

	return m.check(ctx)
}

// Subscribe returns a channel that receives the new value on every state
// flip. The channel is buffered; a slow subscriber misses intermediate
// flips but always observes the most recent one.
func (m *HealthMonitor) Subscribe() <-chan bool {
	ch := make(chan bool, 1)
	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()
	return ch
}

// Run drives the proactive probe ticker until ctx is done or Stop is
// called. Each tick forces a probe regardless of TTL so flips surface
// within one interval.
func (m *HealthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			if m.checking {
				m.mu.Unlock()
				continue
			}
			m.checking = true
			m.mu.Unlock()
			m.check(ctx)
		}
	}
}

// Stop terminates the background ticker.
func (m *HealthMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

// check runs the probe and updates the cached state. Callers must have set
// m.checking under the lock beforehand.
func (m *HealthMonitor) check(ctx context.Context) bool {
	err := m.probe(ctx)
	healthy := err == nil
	if err != nil {
		if isConnectivityError(err) {
			m.log.Debug("broker health probe failed", "error", err)
		} else {
			// Fail closed on anything unexpected.
			m.log.Error("unexpected broker health probe failure", "error", err)
		}
	}

	m.mu.Lock()
	flipped := m.healthy != healthy
	m.healthy = healthy
	m.lastChecked = time.Now()
	m.checking = false
	subs := make([]chan bool, len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	if flipped {
		m.log.Info("broker health changed", "healthy", healthy)
		for _, ch := range subs {
			select {
			case ch <- healthy:
			default:
				// Subscriber still holds the previous flip; drain and
				// replace so it sees the latest value.
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- healthy:
				default:
				}
			}
		}
	}
	return healthy
}

func isConnectivityError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
