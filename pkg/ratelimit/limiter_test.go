package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tb := NewTokenBucketWithClock(5, time.Minute, clock)

	for i := 0; i < 5; i++ {
		assert.True(t, tb.Allow(), "token %d should be available", i+1)
	}
	assert.False(t, tb.Allow(), "bucket should be exhausted")
	assert.Equal(t, 0, tb.Remaining())

	clock.Advance(59 * time.Second)
	assert.False(t, tb.Allow(), "bucket should not refill before the period ends")

	clock.Advance(time.Second)
	assert.True(t, tb.Allow(), "bucket should refill after the period")
	assert.Equal(t, 4, tb.Remaining())

	tb.Reset()
	assert.Equal(t, 5, tb.Remaining())
}

func TestTokenBucketWaitBlocksUntilRefill(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tb := NewTokenBucketWithClock(1, time.Minute, clock)
	require.True(t, tb.Allow())

	done := make(chan error, 1)
	go func() {
		done <- tb.Wait(context.Background())
	}()

	clock.BlockUntil(1)
	select {
	case <-done:
		t.Fatal("Wait returned before the bucket refilled")
	default:
	}

	clock.Advance(time.Minute)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after refill")
	}
}

func TestTokenBucketWaitHonoursContext(t *testing.T) {
	tb := NewTokenBucketWithClock(1, time.Hour, clockwork.NewFakeClock())
	require.True(t, tb.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
