package entity

import (
	"testing"
	"time"
)

// SetClock replaces the timestamp source for the duration of the test.
func SetClock(t testing.TB, fn func() time.Time) {
	prev := now
	now = fn
	t.Cleanup(func() { now = prev })
}
