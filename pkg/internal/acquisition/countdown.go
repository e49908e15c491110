package acquisition

import "sync/atomic"

// Countdown bounds the number of samples accepted in one window.
type Countdown struct {
	remaining atomic.Int64
}

// Reset sets the remaining budget to n.
func (c *Countdown) Reset(n int64) {
	c.remaining.Store(n)
}

// Take consumes one unit. It reports false once the budget is spent.
func (c *Countdown) Take() bool {
	for {
		cur := c.remaining.Load()
		if cur <= 0 {
			return false
		}
		if c.remaining.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

// Remaining returns the unspent budget.
func (c *Countdown) Remaining() int64 {
	return c.remaining.Load()
}
