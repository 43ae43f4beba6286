package playback

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testFeedbackController(t *testing.T) feedbackController {
	t.Helper()
	f, err := FormatFor(48000, 2)
	require.NoError(t, err)
	c := newFeedbackController(f)
	c.reset()
	return c
}

func TestFeedbackStaysOffInsideTolerance(t *testing.T) {
	c := testFeedbackController(t)
	nominal := c.value()

	// Oscillate narrowly around target, always inside the tolerance band.
	for i := 0; i < 10*feedbackDebounce; i++ {
		fill := c.target + (i%2)*c.tolerance - c.tolerance/2
		c.observe(fill)
		require.Equal(t, FeedbackOff, c.state, "sample %d", i)
	}
	require.Equal(t, nominal, c.value())
}

func TestFeedbackIncreaseOnSustainedUnderfill(t *testing.T) {
	c := testFeedbackController(t)
	nominal := c.value()
	low := c.target - c.tolerance - 1

	// One sample short of the debounce window must not trigger.
	for i := 0; i < feedbackDebounce-1; i++ {
		c.observe(low)
		require.Equal(t, FeedbackOff, c.state)
	}

	c.observe(low)
	require.Equal(t, FeedbackIncrease, c.state)

	// Sustained underfill keeps requesting a faster source, one bounded
	// quantum per sample.
	c.observe(low)
	c.observe(low)
	require.Equal(t, FeedbackIncrease, c.state)
	require.Equal(t, nominal+2*feedbackStep, c.value())

	// Re-entering the band only returns to off after the debounce window.
	for i := 0; i < feedbackDebounce-1; i++ {
		c.observe(c.target)
		require.Equal(t, FeedbackIncrease, c.state)
	}
	c.observe(c.target)
	require.Equal(t, FeedbackOff, c.state)
	require.Equal(t, nominal, c.value())
}

func TestFeedbackDecreaseOnSustainedOverfill(t *testing.T) {
	c := testFeedbackController(t)
	nominal := c.value()
	high := c.target + c.tolerance + 1

	for i := 0; i < feedbackDebounce; i++ {
		c.observe(high)
	}
	require.Equal(t, FeedbackDecrease, c.state)

	c.observe(high)
	require.Less(t, c.value(), nominal)
}

func TestFeedbackDebounceIgnoresTransients(t *testing.T) {
	c := testFeedbackController(t)
	low := c.target - c.tolerance - 1

	// A burst of low readings broken up by in-band samples never reaches the
	// debounce threshold.
	for i := 0; i < 20; i++ {
		for j := 0; j < feedbackDebounce-1; j++ {
			c.observe(low)
		}
		c.observe(c.target)
	}
	require.Equal(t, FeedbackOff, c.state)
}

func TestFeedbackCorrectionIsBounded(t *testing.T) {
	c := testFeedbackController(t)
	low := c.target - c.tolerance - 1

	for i := 0; i < 10000; i++ {
		c.observe(low)
	}
	require.Equal(t, FeedbackIncrease, c.state)
	require.Equal(t, c.nominal+feedbackMaxCorrection, c.value())
}

func TestFeedbackResetReturnsToNominal(t *testing.T) {
	c := testFeedbackController(t)
	low := c.target - c.tolerance - 1

	for i := 0; i < 2*feedbackDebounce; i++ {
		c.observe(low)
	}
	require.Equal(t, FeedbackIncrease, c.state)

	c.reset()
	require.Equal(t, FeedbackOff, c.state)
	require.Equal(t, c.nominal, c.value())
}
