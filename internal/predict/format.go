package predict

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is ISO-8601 with microseconds and zone offset.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// RoundSalary rounds half away from zero to two decimal places.
func RoundSalary(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatYears renders x in shortest round-trip form, keeping a fractional part on
// integral values so 2 is written as "2.0".
func FormatYears(x float64) string {
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return s
	}
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// SuccessLine formats the record written after a successful prediction.
func SuccessLine(at time.Time, years, salary float64) string {
	return fmt.Sprintf("%s - Years of Experience: %s - Salary Prediction: %.2f",
		at.Format(TimestampLayout), FormatYears(years), salary)
}

// FailureLine formats the record written when inference fails.
func FailureLine(at time.Time, years float64, err error) string {
	return fmt.Sprintf("%s - ERROR in prediction: %v - Input: %s",
		at.Format(TimestampLayout), err, FormatYears(years))
}
