package store

import (
	"fmt"
	"strconv"
	"time"
)

// Index values are compared as strings. These helpers encode numbers and
// timestamps so that string order matches numeric order.

// IndexInt encodes a non-negative integer as a fixed-width decimal string.
// Negative values are clamped to zero.
func IndexInt(v int64) string {
	if v < 0 {
		v = 0
	}
	return fmt.Sprintf("%020d", v)
}

// IndexTime encodes a timestamp as zero-padded Unix nanoseconds.
func IndexTime(t time.Time) string {
	return IndexInt(t.UnixNano())
}

// ParseIndexInt decodes a value produced by IndexInt.
func ParseIndexInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// ParseIndexTime decodes a value produced by IndexTime.
func ParseIndexTime(s string) (time.Time, error) {
	n, err := ParseIndexInt(s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n), nil
}
