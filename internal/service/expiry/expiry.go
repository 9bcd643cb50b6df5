// Package expiry infers manufacture and expiry dates from partial product
// metadata: period-after-opening (PAO) text, batch codes and open dates.
//
// Everything here is pure: no I/O, no clock. Results depend only on inputs.
package expiry

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultShelfLifeMonths is the unopened shelf life assumed from a
// manufacture date when nothing better is known.
const DefaultShelfLifeMonths = 36

// maxPeriodMonths bounds PAO values; larger numbers are lot numbers, not months.
const maxPeriodMonths = 120

// Method names the rule that produced an estimate.
type Method string

const (
	MethodNone           Method = ""
	MethodPeriodOpened   Method = "PAO"
	MethodBatchJulian    Method = "BATCH_JULIAN"
	MethodBatchMonthYear Method = "BATCH_MMYY"
)

// Estimate is the result of inference. Nil dates mean "unknown"; callers must
// not substitute a guess of their own.
type Estimate struct {
	ManufactureDate *time.Time
	ExpiryDate      *time.Time
	Method          Method
}

// IsZero reports whether inference produced nothing.
func (e Estimate) IsZero() bool {
	return e.ManufactureDate == nil && e.ExpiryDate == nil
}

// BatchMatcher extracts a manufacture date from a batch code.
type BatchMatcher struct {
	Method Method
	Match  func(code string) (time.Time, bool)
}

// DefaultBatchMatchers are tried in order; the first match wins.
var DefaultBatchMatchers = []BatchMatcher{
	{Method: MethodBatchJulian, Match: MatchJulian},
	{Method: MethodBatchMonthYear, Match: MatchMonthYear},
}

// Inferrer applies the inference rules with a configurable shelf life.
type Inferrer struct {
	shelfLifeMonths int
	matchers        []BatchMatcher
}

// New creates an Inferrer. A non-positive shelf life falls back to
// DefaultShelfLifeMonths.
func New(shelfLifeMonths int, matchers ...BatchMatcher) *Inferrer {
	if shelfLifeMonths <= 0 {
		shelfLifeMonths = DefaultShelfLifeMonths
	}
	if len(matchers) == 0 {
		matchers = DefaultBatchMatchers
	}
	return &Inferrer{shelfLifeMonths: shelfLifeMonths, matchers: matchers}
}

// Infer derives estimates from the default rules and shelf life.
func Infer(periodText, batchCode string, openDate *time.Time) Estimate {
	return New(DefaultShelfLifeMonths).Infer(periodText, batchCode, openDate)
}

// Infer derives estimates in priority order:
//
//  1. PAO text with a known open date: expiry = open date + PAO months.
//  2. No PAO text but a batch code: manufacture date from the first matching
//     batch pattern, expiry = manufacture date + shelf life.
//  3. Otherwise nothing.
func (i *Inferrer) Infer(periodText, batchCode string, openDate *time.Time) Estimate {
	periodText = strings.TrimSpace(periodText)
	batchCode = strings.TrimSpace(batchCode)

	if periodText != "" {
		months, ok := ParsePeriodMonths(periodText)
		if !ok || openDate == nil {
			return Estimate{}
		}
		expiry := AddMonths(dateOnly(*openDate), months)
		return Estimate{ExpiryDate: &expiry, Method: MethodPeriodOpened}
	}

	if batchCode == "" {
		return Estimate{}
	}

	for _, m := range i.matchers {
		made, ok := m.Match(batchCode)
		if !ok {
			continue
		}
		expiry := i.ShelfLifeExpiry(made)
		return Estimate{ManufactureDate: &made, ExpiryDate: &expiry, Method: m.Method}
	}

	return Estimate{}
}

// ShelfLifeExpiry returns the unopened expiry for a manufacture date.
func (i *Inferrer) ShelfLifeExpiry(manufactured time.Time) time.Time {
	return AddMonths(dateOnly(manufactured), i.shelfLifeMonths)
}

// ManufactureDate runs only the batch matchers. Used by catalog ingestion,
// where a declared PAO does not make the batch date less true.
func (i *Inferrer) ManufactureDate(batchCode string) (time.Time, bool) {
	batchCode = strings.TrimSpace(batchCode)
	if batchCode == "" {
		return time.Time{}, false
	}
	for _, m := range i.matchers {
		if made, ok := m.Match(batchCode); ok {
			return made, true
		}
	}
	return time.Time{}, false
}

// ShelfLifeMonths returns the configured unopened shelf life.
func (i *Inferrer) ShelfLifeMonths() int { return i.shelfLifeMonths }

// ---------------------------------------------------------------------------
// Period after opening
// ---------------------------------------------------------------------------

var periodRe = regexp.MustCompile(`(?i)(\d{1,3})\s*-?\s*(?:months?|mths?|mos?|m)\b`)

// ParsePeriodMonths extracts a month count from PAO text such as "12M",
// "12 months" or "6-month". Returns false when no count is present.
func ParsePeriodMonths(text string) (int, bool) {
	m := periodRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 || n > maxPeriodMonths {
		return 0, false
	}
	return n, true
}

// ---------------------------------------------------------------------------
// Batch codes
// ---------------------------------------------------------------------------

var digitRunRe = regexp.MustCompile(`\d+`)

// MatchJulian recognizes a standalone 7-digit run YYYYDDD (year 2000-2099,
// valid day of year).
func MatchJulian(code string) (time.Time, bool) {
	for _, run := range digitRunRe.FindAllString(code, -1) {
		if len(run) != 7 {
			continue
		}
		year, _ := strconv.Atoi(run[:4])
		day, _ := strconv.Atoi(run[4:])
		if year < 2000 || year > 2099 || day < 1 || day > daysIn(year) {
			continue
		}
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day-1), true
	}
	return time.Time{}, false
}

// MatchMonthYear recognizes a standalone 4-digit run MMYY, read as the first
// day of that month in 20YY.
func MatchMonthYear(code string) (time.Time, bool) {
	for _, run := range digitRunRe.FindAllString(code, -1) {
		if len(run) != 4 {
			continue
		}
		month, _ := strconv.Atoi(run[:2])
		yy, _ := strconv.Atoi(run[2:])
		if month < 1 || month > 12 {
			continue
		}
		return time.Date(2000+yy, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// ---------------------------------------------------------------------------
// Date helpers
// ---------------------------------------------------------------------------

// AddMonths adds n calendar months, clamping the day to the end of the
// target month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, t.Location()).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int) int {
	if time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay() == 366 {
		return 366
	}
	return 365
}
