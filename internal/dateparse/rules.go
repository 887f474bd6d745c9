// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dateparse

import (
	"strings"
	"time"
)

// relativeRule pairs a phrase predicate with its resolver. Rules are
// evaluated in table order and the first match wins, so broad predicates
// ("next ") sit below the narrow ones they would otherwise shadow
// ("next week", "end of next month").
type relativeRule struct {
	name    string
	match   func(text string) bool
	resolve func(text string, ref time.Time) (time.Time, bool)
}

var relativeRules = []relativeRule{
	{
		name:    "next-week",
		match:   containsWord("next week"),
		resolve: resolveNextWeek,
	},
	{
		name:    "end-of-this-month",
		match:   containsWord("end of this month"),
		resolve: resolveEndOfThisMonth,
	},
	{
		name:    "end-of-next-month",
		match:   containsWord("end of next month"),
		resolve: resolveEndOfNextMonth,
	},
	{
		name:    "end-of-weekend",
		match:   containsWord("end of weekend"),
		resolve: resolveEndOfWeekend,
	},
	{
		name:    "weekend",
		match:   containsWord("weekend"),
		resolve: resolveWeekend,
	},
	{
		name:    "next",
		match:   containsWord("next "),
		resolve: resolveNext,
	},
}

func containsWord(phrase string) func(string) bool {
	return func(text string) bool {
		return strings.Contains(text, phrase)
	}
}

// resolveNextWeek handles "next week saturday" and friends: the remainder
// parses as a plain weekday or date, then shifts one week out.
func resolveNextWeek(text string, ref time.Time) (time.Time, bool) {
	remainder := strings.TrimSpace(strings.ReplaceAll(text, "next week", ""))
	base, ok := parseGeneral(remainder, ref)
	if !ok {
		return time.Time{}, false
	}
	return base.AddDate(0, 0, 7), true
}

// resolveEndOfThisMonth is the last calendar day of ref's month, keeping
// ref's clock time.
func resolveEndOfThisMonth(_ string, ref time.Time) (time.Time, bool) {
	return lastDayOfMonth(ref.Year(), ref.Month(), ref), true
}

// resolveEndOfNextMonth is the last calendar day of the month after ref's,
// December rolling into January of the next year.
func resolveEndOfNextMonth(_ string, ref time.Time) (time.Time, bool) {
	year, month := ref.Year(), ref.Month()
	if month == time.December {
		year++
		month = time.January
	} else {
		month++
	}
	return lastDayOfMonth(year, month, ref), true
}

// resolveEndOfWeekend is the next Sunday. A Sunday reference rolls to the
// Sunday seven days later.
func resolveEndOfWeekend(_ string, ref time.Time) (time.Time, bool) {
	days := (7 - int(ref.Weekday())) % 7
	if days == 0 {
		days = 7
	}
	return ref.AddDate(0, 0, days), true
}

// resolveWeekend treats a bare "weekend" as Friday end-of-day. From Friday
// through Sunday it targets the following week's Friday.
func resolveWeekend(_ string, ref time.Time) (time.Time, bool) {
	// Saturday and Sunday already advance past the current week's Friday;
	// only a Friday reference needs the explicit bump.
	days := (int(time.Friday) - int(ref.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	friday := ref.AddDate(0, 0, days)
	return time.Date(friday.Year(), friday.Month(), friday.Day(), 23, 59, 59, 0, ref.Location()), true
}

// resolveNext handles an explicit "next <weekday>" once every earlier rule
// has declined: the literal next occurrence plus seven days.
func resolveNext(text string, ref time.Time) (time.Time, bool) {
	remainder := strings.TrimSpace(strings.ReplaceAll(text, "next ", ""))
	base, ok := parseGeneral(remainder, ref)
	if !ok {
		return time.Time{}, false
	}
	return base.AddDate(0, 0, 7), true
}

func lastDayOfMonth(year int, month time.Month, ref time.Time) time.Time {
	firstOfNext := time.Date(year, month, 1, ref.Hour(), ref.Minute(), ref.Second(), 0, ref.Location()).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}
