package sheets

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SpreadsheetEpochOffset is the number of days between the spreadsheet
// date epoch and the Unix epoch.
const SpreadsheetEpochOffset = 25569

// Serials outside [MinSerial, MaxSerial] (1900-01-01 to 9999-12-31) are
// not dates.
const (
	MinSerial = 1
	MaxSerial = 2958465
)

var plainNumber = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?$`)

const (
	MinMarks = 0
	MaxMarks = 100
)

// IsBlank reports whether a cell means "intentionally absent": empty, "-"
// or N/A in any case.
func IsBlank(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == "-" || strings.EqualFold(v, "N/A")
}

// ParseMark returns the cell as an integer mark in [0,100]. Whole-number
// decimals such as "85.0" are accepted; fractions and exponent forms are
// not.
func ParseMark(v string) (int, bool) {
	v = strings.TrimSpace(v)
	n, err := strconv.Atoi(v)
	if err != nil {
		if !plainNumber.MatchString(v) {
			return 0, false
		}
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, false
		}
		if f < math.MinInt32 || f > math.MaxInt32 {
			return 0, false
		}
		n = int(f)
	}
	if n < MinMarks || n > MaxMarks {
		return 0, false
	}
	return n, true
}

// ParseAmount strips thousands separators and currency markers and
// returns a positive decimal amount.
func ParseAmount(v string) (decimal.Decimal, bool) {
	clean := strings.TrimSpace(v)
	for _, sym := range []string{",", "$", "₹", "€", "£", "KES", "KSh", "Ksh", " "} {
		clean = strings.ReplaceAll(clean, sym, "")
	}
	if clean == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(clean)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// CoerceDate normalises a payment date cell. A blank cell becomes now, a
// numeric spreadsheet serial in range becomes an RFC 3339 UTC timestamp,
// and any other text is passed through unchanged.
func CoerceDate(v string, now time.Time) string {
	v = strings.TrimSpace(v)
	if IsBlank(v) {
		return now.UTC().Format(time.RFC3339)
	}
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(serial) || serial < MinSerial || serial > MaxSerial {
		return v
	}
	return SerialToTime(serial).Format(time.RFC3339)
}

// SerialToTime converts a spreadsheet day serial to UTC, keeping the
// fractional day as time of day. Whole days go through AddDate so large
// serials cannot overflow a time.Duration.
func SerialToTime(serial float64) time.Time {
	whole := math.Floor(serial)
	secs := math.Round((serial - whole) * 24 * 60 * 60)
	return time.Unix(0, 0).UTC().
		AddDate(0, 0, int(whole)-SpreadsheetEpochOffset).
		Add(time.Duration(secs) * time.Second)
}
