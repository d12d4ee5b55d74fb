package recovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker("search-api", 3, time.Minute, time.Minute)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Allow())
		b.RecordFailure()
	}
	require.Equal(t, StateOpen, b.State())
	require.ErrorIs(t, b.Allow(), ErrBreakerOpen)
}

func TestBreakerHalfOpenProbeSuccessCloses(t *testing.T) {
	b := NewBreaker("search-api", 1, time.Minute, 10*time.Millisecond)

	require.NoError(t, b.Allow())
	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Allow())
	require.Equal(t, StateHalfOpen, b.State())

	b.RecordSuccess()
	require.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	b := NewBreaker("search-api", 1, time.Minute, 10*time.Millisecond)

	require.NoError(t, b.Allow())
	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, b.Allow())
	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())
}

func TestBreakerManualReset(t *testing.T) {
	b := NewBreaker("search-api", 1, time.Minute, time.Minute)
	require.NoError(t, b.Allow())
	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	require.Equal(t, StateClosed, b.State())
	require.NoError(t, b.Allow())
}

func TestBreakerSlidingWindowDropsOldFailures(t *testing.T) {
	b := NewBreaker("search-api", 2, 20*time.Millisecond, time.Minute)

	require.NoError(t, b.Allow())
	b.RecordFailure()
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, b.Allow())
	b.RecordFailure()

	require.Equal(t, StateClosed, b.State())
}
