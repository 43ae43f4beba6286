package playback

// FeedbackState is the state of the rate correction reported to the source.
type FeedbackState uint8

const (
	// FeedbackOff reports the nominal rate; the fill level is inside the
	// tolerance band, or playback is not running.
	FeedbackOff FeedbackState = iota
	// FeedbackDecrease asks the source to slow down; the buffer is
	// over-filled.
	FeedbackDecrease
	// FeedbackIncrease asks the source to speed up; the buffer is
	// under-filled.
	FeedbackIncrease
)

func (s FeedbackState) String() string {
	switch s {
	case FeedbackOff:
		return "off"
	case FeedbackDecrease:
		return "decrease"
	case FeedbackIncrease:
		return "increase"
	}
	return "unknown"
}

// The feedback value is samples per delivery period in 10.14 fixed point,
// the format an asynchronous audio source consumes directly. Correction is
// applied in fixed quanta, not proportional to the deviation, so the loop
// cannot overshoot on a single bad fill reading.
const (
	feedbackShift = 14

	// feedbackDebounce is the number of consecutive packet arrivals the fill
	// level must stay in a region before the controller changes state.
	feedbackDebounce = 8

	// feedbackStep is the correction quantum per evaluation, about 0.1% of a
	// sample per period.
	feedbackStep = 16

	// feedbackMaxCorrection bounds the total correction to one sample per
	// period in either direction.
	feedbackMaxCorrection = 1 << feedbackShift
)

type fillBand int8

const (
	bandLow  fillBand = -1
	bandIn   fillBand = 0
	bandHigh fillBand = 1
)

// feedbackController nudges the reported rate when the fill level deviates
// from target for long enough. It is evaluated once per inbound packet,
// only while playback is running, and is reset whenever playback stops or
// streaming restarts.
type feedbackController struct {
	target    int
	tolerance int
	nominal   uint32 // samples per period, 10.14

	state      FeedbackState
	pending    fillBand
	streak     int
	correction int32
}

func newFeedbackController(f Format) feedbackController {
	return feedbackController{
		target:    f.TargetFillSize,
		tolerance: f.PacketSize / 2,
		nominal:   uint32(f.SampleRate/packetPeriodMs) << feedbackShift,
	}
}

func (c *feedbackController) reset() {
	c.state = FeedbackOff
	c.pending = bandIn
	c.streak = 0
	c.correction = 0
}

// value is the rate currently reported to the source.
func (c *feedbackController) value() uint32 {
	return uint32(int32(c.nominal) + c.correction)
}

// observe samples the fill level once and runs the state machine.
func (c *feedbackController) observe(fill int) {
	band := bandIn
	switch {
	case fill < c.target-c.tolerance:
		band = bandLow
	case fill > c.target+c.tolerance:
		band = bandHigh
	}

	switch c.state {
	case FeedbackOff:
		if band != c.pending {
			c.pending = band
			c.streak = 0
		}
		if band == bandIn {
			return
		}
		c.streak++
		if c.streak < feedbackDebounce {
			return
		}
		c.streak = 0
		if band == bandLow {
			c.state = FeedbackIncrease
		} else {
			c.state = FeedbackDecrease
		}

	case FeedbackIncrease:
		if band == bandLow {
			c.bump(feedbackStep)
			c.streak = 0
			return
		}
		c.leave()

	case FeedbackDecrease:
		if band == bandHigh {
			c.bump(-feedbackStep)
			c.streak = 0
			return
		}
		c.leave()
	}
}

// leave counts samples outside the correction's own region; after the
// debounce window the controller returns to off and the reported rate is
// nominal again.
func (c *feedbackController) leave() {
	c.streak++
	if c.streak < feedbackDebounce {
		return
	}
	c.state = FeedbackOff
	c.pending = bandIn
	c.streak = 0
	c.correction = 0
}

func (c *feedbackController) bump(delta int32) {
	c.correction += delta
	if c.correction > feedbackMaxCorrection {
		c.correction = feedbackMaxCorrection
	}
	if c.correction < -feedbackMaxCorrection {
		c.correction = -feedbackMaxCorrection
	}
}
