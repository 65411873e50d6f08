package safety

import (
	"math"
	"time"
)

// msPerMonth is an average month of 30.44 days, in milliseconds.
const msPerMonth = 1000 * 60 * 60 * 24 * 30.44

// AgeInMonths returns the whole months elapsed between dob and now. A dob after
// now yields a negative age, which no rule with a non-negative minimum accepts.
func AgeInMonths(dob, now time.Time) int {
	elapsed := float64(now.Sub(dob).Milliseconds())
	return int(math.Floor(elapsed / msPerMonth))
}
