package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect_HealthyBrokerReturnsResilientBus(t *testing.T) {
	fb := &fakeBroker{ok: true}
	m := testMonitor(fb)
	real := newTestBus(fb, m)
	defer real.Close()

	bus := Select(context.Background(), m, real, time.Second, discardLogger())
	assert.Same(t, real, bus)
	assert.True(t, real.connected(), "selection starts the resilient bus")
}

func TestSelect_UnreachableBrokerReturnsFallback(t *testing.T) {
	probe := func(context.Context) error { return errors.New("down") }
	m := NewHealthMonitor(probe, 0, time.Hour, discardLogger())
	fb := &fakeBroker{ok: false}
	real := newTestBus(fb, m)
	defer real.Close()

	bus := Select(context.Background(), m, real, time.Second, discardLogger())
	_, isFallback := bus.(*FallbackBus)
	require.True(t, isFallback)
	assert.Equal(t, 0, fb.dials, "fallback selection must not dial the broker")
}

func TestFallbackBus_DiscardsWithoutError(t *testing.T) {
	bus := NewFallbackBus(discardLogger())

	assert.NoError(t, bus.Publish(context.Background(), KeyTest, map[string]int{"n": 1}))

	fired := false
	bus.Subscribe(KeyTest, func(context.Context, []byte) error {
		fired = true
		return nil
	})
	// Subscriptions are recorded but never invoked.
	assert.NoError(t, bus.Publish(context.Background(), KeyTest, map[string]int{"n": 2}))
	assert.False(t, fired)
	assert.Len(t, bus.reg.get(KeyTest), 1)
}
