//go:build testing
// +build testing

package records

import (
	"time"

	"github.com/pocketbase/pocketbase/core"
)

// TestDeleteOldStats exposes deleteOldStats for testing
func TestDeleteOldStats(app core.App, collection string, now time.Time) error {
	return deleteOldStats(app, collection, now)
}

// TestTwoDecimals exposes twoDecimals for testing
func TestTwoDecimals(value float64) float64 {
	return twoDecimals(value)
}
