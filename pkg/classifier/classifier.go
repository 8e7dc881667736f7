package classifier

// HealthyThreshold is the signal a response must exceed to count as a live
// service.
const HealthyThreshold = 2

// Counter accumulates the character signal of one response body. It
// implements io.Writer so a body can be streamed into it in any number of
// chunks. The zero value is ready to use.
type Counter struct {
	signal int
	total  int64
}

// Write counts every byte of p that is not space, tab, line feed, carriage
// return or NUL. It never fails.
func (c *Counter) Write(p []byte) (int, error) {
	c.signal += Count(p)
	c.total += int64(len(p))
	return len(p), nil
}

// Signal returns the accumulated non-whitespace byte count
func (c *Counter) Signal() int {
	return c.signal
}

// Total returns the number of bytes seen including whitespace
func (c *Counter) Total() int64 {
	return c.total
}

// Count returns the number of significant bytes in p
func Count(p []byte) int {
	n := 0
	for _, b := range p {
		switch b {
		case ' ', '\n', '\r', '\t', 0:
		default:
			n++
		}
	}
	return n
}

// IsHealthySignal reports whether a signal indicates a responding service
func IsHealthySignal(signal int) bool {
	return signal > HealthyThreshold
}
