package fsmeta

import (
	"time"

	"golang.org/x/sys/unix"
)

// Created returns the birth time of path.
func Created(path string) (time.Time, bool) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return time.Time{}, false
	}

	return time.Unix(st.Birthtimespec.Unix()), true
}
