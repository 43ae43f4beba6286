package playback

// ring is the sample arena: a fixed allocation with a nominal circular
// window of size bytes and a reserved tail margin of MaxPacketSize bytes.
// The producer writes packets starting at the current write offset; a packet
// may run past the nominal end into the margin, and the excess is then
// copied back to the start of the window. The consumer reads the nominal
// window only.
type ring struct {
	storage []byte
	size    int // nominal window size
}

func newRing(size int) *ring {
	return &ring{
		storage: make([]byte, StorageSize),
		size:    size,
	}
}

// window returns the nominal circular window, the region the output
// transfer cycles over.
func (r *ring) window() []byte {
	return r.storage[:r.size]
}

// writeRegion returns the region the next packet lands in. It is always
// MaxPacketSize long regardless of the nominal packet size, so the transport
// can deliver long packets without a bounds decision of its own.
func (r *ring) writeRegion(off int) []byte {
	return r.storage[off : off+MaxPacketSize]
}

// advance moves the write offset past n freshly written bytes. Bytes that
// landed beyond the nominal window are copied back to its start. The caller
// guarantees n <= MaxPacketSize, so the excess never exceeds the margin.
func (r *ring) advance(off, n int) int {
	next := off + n
	if next > r.size {
		copy(r.storage, r.storage[r.size:next])
	}
	return next % r.size
}

// fillDistance is the circular forward distance from the read offset to the
// write offset inside a window of the given size.
func fillDistance(writeOff, readOff, size int) int {
	d := writeOff - readOff
	if d < 0 {
		d += size
	}
	return d
}

// swapHalfWords exchanges the upper and lower 16 bit halves of every 32 bit
// word in b. The output transfer moves words as two separate 16 bit
// transfers, which would otherwise put the halves on the wire in the wrong
// order.
func swapHalfWords(b []byte) {
	for i := 0; i+4 <= len(b); i += 4 {
		b[i], b[i+1], b[i+2], b[i+3] = b[i+2], b[i+3], b[i], b[i+1]
	}
}
