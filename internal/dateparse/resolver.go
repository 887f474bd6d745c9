// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dateparse resolves natural-language date phrases against a fixed
// reference instant. Resolution is deterministic: the same phrase and
// reference always produce the same instant, regardless of the wall clock.
//
// The resolver tries a cascade of prefix-stripped candidates; each candidate
// goes through a general free-text parse first and an ordered table of
// relative-phrase rules second. See docs/ARCHITECTURE § Temporal Resolution.
package dateparse

import (
	"regexp"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// prefixes are the lead-in words stripped from a date phrase before each
// parse attempt, tried in order. The empty prefix tries the phrase as-is.
// A candidate that fails to parse ("due " turns "due date friday" into
// "date friday") just advances the cascade to the next prefix.
var prefixes = []string{"", "before ", "by ", "on ", "due ", "due date ", "until "}

// Resolve turns a date phrase into an absolute instant relative to ref.
// The second return value is false when no candidate resolves.
func Resolve(dateText string, ref time.Time) (time.Time, bool) {
	text := strings.ToLower(strings.TrimSpace(dateText))
	if text == "" {
		return time.Time{}, false
	}

	for _, prefix := range prefixes {
		cleaned := text
		if prefix != "" {
			if !strings.Contains(text, prefix) {
				continue
			}
			cleaned = strings.TrimSpace(strings.ReplaceAll(text, prefix, ""))
		}
		if cleaned == "" {
			continue
		}

		if t, ok := parseGeneral(cleaned, ref); ok {
			return t, true
		}
		for _, r := range relativeRules {
			if !r.match(cleaned) {
				continue
			}
			if t, ok := r.resolve(cleaned, ref); ok {
				return t, true
			}
			break
		}
	}

	return time.Time{}, false
}

// ordinalRe matches ordinal day suffixes ("12th", "1st", "3rd").
var ordinalRe = regexp.MustCompile(`(\d+)(st|nd|rd|th)\b`)

// dateLayouts are explicit formats tried before the free-text parser.
// Layouts without a year resolve in ref's year with a future bias.
var dateLayouts = []struct {
	layout  string
	hasYear bool
}{
	{"2006-01-02 15:04:05", true},
	{"2006-01-02 15:04", true},
	{"2006-01-02", true},
	{"January 2, 2006", true},
	{"January 2 2006", true},
	{"Jan 2, 2006", true},
	{"Jan 2 2006", true},
	{"2 January 2006", true},
	{"2 Jan 2006", true},
	{"January 2", false},
	{"Jan 2", false},
	{"2 January", false},
	{"2 Jan", false},
}

// freeParser is the shared natural-language parser, configured once with
// the English and common rule sets.
var freeParser = newFreeParser()

func newFreeParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// parseGeneral attempts a free-text date parse biased toward future dates.
// Phrases carrying an explicit "next " qualifier are declined here so the
// relative rule table applies the conservative +7 day interpretation; free
// parsers disagree on whether "next saturday" means the coming Saturday or
// the one after.
func parseGeneral(text string, ref time.Time) (time.Time, bool) {
	if strings.Contains(text, "next ") {
		return time.Time{}, false
	}

	normalized := ordinalRe.ReplaceAllString(text, "$1")

	if t, ok := parseLayouts(normalized, ref); ok {
		return t, true
	}

	r, err := freeParser.Parse(normalized, ref)
	if err != nil || r == nil {
		return time.Time{}, false
	}
	return r.Time, true
}

// parseLayouts tries the explicit date formats. Month names are
// capitalized for time.Parse; yearless matches land in ref's year and roll
// forward one year once the whole day has passed.
func parseLayouts(text string, ref time.Time) (time.Time, bool) {
	capitalized := capitalizeWords(text)
	for _, dl := range dateLayouts {
		t, err := time.Parse(dl.layout, capitalized)
		if err != nil {
			continue
		}
		if dl.hasYear {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, ref.Location()), true
		}
		resolved := time.Date(ref.Year(), t.Month(), t.Day(), 0, 0, 0, 0, ref.Location())
		if resolved.AddDate(0, 0, 1).Before(ref) {
			resolved = resolved.AddDate(1, 0, 0)
		}
		return resolved, true
	}
	return time.Time{}, false
}

func capitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
