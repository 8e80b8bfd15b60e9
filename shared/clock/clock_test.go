package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReal_SleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := New().Sleep(ctx, time.Minute)

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestReal_SleepElapses(t *testing.T) {
	err := New().Sleep(context.Background(), 5*time.Millisecond)
	assert.NoError(t, err)
}

func TestFake_SleepAdvancesTime(t *testing.T) {
	start := time.Date(2025, 2, 15, 10, 0, 0, 0, time.UTC)
	fake := NewFake(start)

	require.NoError(t, fake.Sleep(context.Background(), 5*time.Second))
	require.NoError(t, fake.Sleep(context.Background(), time.Second))
	fake.Advance(time.Minute)

	assert.Equal(t, start.Add(66*time.Second), fake.Now())
	assert.Equal(t, []time.Duration{5 * time.Second, time.Second}, fake.Sleeps())
}

func TestFake_OnSleepCanCancel(t *testing.T) {
	fake := NewFake(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	fake.OnSleep(func(time.Duration) {
		calls++
		if calls == 2 {
			cancel()
		}
	})

	assert.NoError(t, fake.Sleep(ctx, time.Second))
	assert.ErrorIs(t, fake.Sleep(ctx, time.Second), context.Canceled)
	assert.Equal(t, 2, calls)
}
