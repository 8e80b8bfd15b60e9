package domain

import "time"

// Cursor is the photo feed watermark. The zero value fetches everything.
type Cursor struct {
	raw string
	at  time.Time
}

// NewCursor builds a cursor from a service timestamp
func NewCursor(raw string) Cursor {
	var c Cursor
	c.Advance(raw)
	return c
}

// IsZero reports whether no watermark has been recorded yet
func (c Cursor) IsZero() bool {
	return c.raw == ""
}

// String returns the timestamp exactly as the service produced it
func (c Cursor) String() string {
	return c.raw
}

// Time returns the parsed watermark, zero when unknown or unparseable
func (c Cursor) Time() time.Time {
	return c.at
}

// Advance moves the cursor to candidate if it is not older than the current
// watermark. Empty candidates are ignored. An unparseable candidate is only
// taken when nothing comparable is recorded. Reports whether the cursor moved.
func (c *Cursor) Advance(candidate string) bool {
	if candidate == "" || candidate == c.raw {
		return false
	}

	at, err := time.Parse(time.RFC3339Nano, candidate)
	if err != nil {
		if !c.at.IsZero() {
			return false
		}
		c.raw = candidate
		return true
	}

	if !c.at.IsZero() && at.Before(c.at) {
		return false
	}

	c.raw = candidate
	c.at = at
	return true
}
