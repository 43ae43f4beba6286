package source

// feedbackFracOne is one sample in the 10.14 fixed point feedback value.
const feedbackFracOne = 1 << 14

// packetClock converts the 10.14 samples-per-period feedback value into
// whole per-period sample counts. The fractional part is carried between
// periods and yields an extra sample once it accumulates to a whole one,
// which is how a source honors a rate report without resampling.
type packetClock struct {
	frac uint32
}

func (c *packetClock) frames(feedback uint32) int {
	n := int(feedback >> 14)
	c.frac += feedback & (feedbackFracOne - 1)
	if c.frac >= feedbackFracOne {
		n++
		c.frac -= feedbackFracOne
	}
	return n
}
