// Package cycle derives the time-boxed review cycle identifier.
//
// The same formula runs on the server and on the reviewer device, so a
// token bound to a cycle stays valid for the whole window it was issued
// in. Cycles are never persisted as entities, only referenced by id.
package cycle

import (
	"fmt"
	"regexp"
	"time"
)

// A cycle spans two calendar months and is labeled by its year and
// starting month, e.g. "2025_01_A" for January+February 2025. The "A"
// suffix versions the label format.
const formatTag = "A"

var idPattern = regexp.MustCompile(`^\d{4}_(01|03|05|07|09|11)_A$`)

// Current returns the cycle id for the given instant.
func Current(now time.Time) string {
	now = now.UTC()
	startMonth := ((int(now.Month())-1)/2)*2 + 1
	return fmt.Sprintf("%d_%02d_%s", now.Year(), startMonth, formatTag)
}

// Valid reports whether id is a well-formed cycle identifier.
func Valid(id string) bool {
	return idPattern.MatchString(id)
}

// Start returns the first instant of the cycle containing now.
func Start(now time.Time) time.Time {
	now = now.UTC()
	startMonth := ((int(now.Month())-1)/2)*2 + 1
	return time.Date(now.Year(), time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant after the cycle containing now.
func End(now time.Time) time.Time {
	return Start(now).AddDate(0, 2, 0)
}
