package utils

import (
	"strconv"
)

// ParseID converts a numeric path parameter, returns false if it is not one
func ParseID(s string) (uint, bool) {
	i, err := strconv.ParseUint(s, 10, 64)
	if err != nil || i == 0 {
		return 0, false
	}
	return uint(i), true
}
