//go:build !linux && !darwin

package fsmeta

import "time"

// Created is unsupported here; callers fall back to the modification
// time.
func Created(string) (time.Time, bool) {
	return time.Time{}, false
}
