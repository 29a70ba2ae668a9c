// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/SNH48Live/KVM48/internal/koudai"
)

// dateRange is an inclusive [From, To] pair of civil dates in CST.
type dateRange struct {
	From time.Time
	To   time.Time
}

var dateRe = regexp.MustCompile(`^(?:(\d{4})-)?(\d{2})-(\d{2})$`)

// parseDate accepts YYYY-MM-DD or MM-DD, in CST. A month-day without a
// year resolves to its most recent past occurrence, so "01-15" asked in
// March means this year and asked in January (before the 15th) means
// last year.
func parseDate(s string, today time.Time) (time.Time, error) {
	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("%s is not a valid date; please use YYYY-MM-DD or MM-DD format", s)
	}
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if m[1] != "" {
		year, _ := strconv.Atoi(m[1])
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, koudai.CST), nil
	}
	d := time.Date(today.Year(), time.Month(month), day, 0, 0, 0, 0, koudai.CST)
	if d.After(today) {
		d = time.Date(today.Year()-1, time.Month(month), day, 0, 0, 0, 0, koudai.CST)
	}
	return d, nil
}

// cstToday returns midnight of the current CST civil day.
func cstToday() time.Time {
	now := time.Now().In(koudai.CST)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, koudai.CST)
}

// resolveDateRange derives the inclusive date range from the flags:
// both bounds given, use them; only --to, span days ending there; only
// --from, span days from there when --span was explicit, otherwise
// through today; neither, span days ending today.
func resolveDateRange(fromStr, toStr string, span int, spanSet bool) (dateRange, error) {
	today := cstToday()

	var from, to time.Time
	var err error
	if fromStr != "" {
		from, err = parseDate(fromStr, today)
		if err != nil {
			return dateRange{}, err
		}
	}
	if toStr != "" {
		to, err = parseDate(toStr, today)
		if err != nil {
			return dateRange{}, err
		}
	}

	switch {
	case fromStr != "" && toStr != "":
	case toStr != "":
		from = to.AddDate(0, 0, -(span - 1))
	case fromStr != "":
		if spanSet {
			to = from.AddDate(0, 0, span-1)
		} else {
			to = today
		}
	default:
		to = today
		from = to.AddDate(0, 0, -(span - 1))
	}
	if from.After(to) {
		return dateRange{}, fmt.Errorf("from date %s is later than to date %s",
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return dateRange{From: from, To: to}, nil
}
