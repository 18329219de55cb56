package utils

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrZeroID is returned for the identifier 0, which the identifier space never contains.
var ErrZeroID = errors.New("identifier must be positive")

// ParseID parses a decimal identifier that must fit in 32 unsigned bits.
// Signs, whitespace and non-digit characters are rejected.
func ParseID(b []byte) (uint32, error) {
	v, err := strconv.ParseUint(string(b), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid identifier %q: %w", b, err)
	}
	if v == 0 {
		return 0, ErrZeroID
	}
	return uint32(v), nil
}

// AppendID appends the decimal form of id followed by a newline.
func AppendID(dst []byte, id uint32) []byte {
	dst = strconv.AppendUint(dst, uint64(id), 10)
	return append(dst, '\n')
}

// Percent returns part/total as a percentage, or 0 when total is 0.
func Percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
