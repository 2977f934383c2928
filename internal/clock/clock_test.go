package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManual_SleepAdvances(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewManual(start)

	require.NoError(t, c.Sleep(context.Background(), 250*time.Millisecond))
	assert.Equal(t, start.Add(250*time.Millisecond), c.Now())

	c.Advance(time.Second)
	assert.Equal(t, start.Add(1250*time.Millisecond), c.Now())
}

func TestManual_SleepHonoursCancellation(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Sleep(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, time.Unix(0, 0), c.Now())
}

func TestReal_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Real{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFake_SleepersDoNotMoveTime(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewFake(start)
	woke := make(chan time.Duration, 2)
	for _, d := range []time.Duration{time.Second, 3 * time.Second} {
		go func() {
			if c.Sleep(context.Background(), d) == nil {
				woke <- d
			}
		}()
	}
	require.Eventually(t, func() bool { return c.Sleepers() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, start, c.Now())

	c.Advance(time.Second)
	assert.Equal(t, time.Second, <-woke)
	assert.Equal(t, 1, c.Sleepers())
	assert.Equal(t, start.Add(time.Second), c.Now())

	c.Advance(2 * time.Second)
	assert.Equal(t, 3*time.Second, <-woke)
	assert.Zero(t, c.Sleepers())
}

func TestFake_SleepCancelled(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Sleep(ctx, time.Hour) }()
	require.Eventually(t, func() bool { return c.Sleepers() == 1 }, time.Second, time.Millisecond)

	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Zero(t, c.Sleepers())
}
