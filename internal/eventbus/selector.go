package eventbus

import (
	"context"
	"log/slog"
	"time"
)

// Select picks the bus implementation at startup from one bounded health
// check. When the broker is down it returns the fallback and leaves a
// monitor running that logs once the broker becomes reachable; consumers
// already injected with the fallback stay on it until a restart. Consumers
// registered through a ResilientBus self-heal on their own (see Start).
func Select(ctx context.Context, health *HealthMonitor, real *ResilientBus, timeout time.Duration, log *slog.Logger) Bus {
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if health.Healthy(checkCtx) {
		real.Start(ctx)
		return real
	}

	log.Warn("broker unreachable at startup, selecting fallback bus")
	changes := health.Subscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case healthy := <-changes:
				if healthy {
					log.Warn("broker reachable again, restart required to promote fallback bus consumers")
					return
				}
			}
		}
	}()
	return NewFallbackBus(log)
}
