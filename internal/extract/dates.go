package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

const (
	KindAbsolute DateKind = iota
	KindRelative
	// KindWeekday and KindMonthDay name a date without fixing its week or
	// year; they resolve backwards by default.
	KindWeekday
	KindMonthDay
)

type DateKind int

// DateMatch is a date expression found in free text.
type DateMatch struct {
	Date   core.Date
	Kind   DateKind
	Phrase string
	Start  int
	End    int
}

// Forward moves a weekday or month-day match that fell before ref into the
// future. Other kinds are returned unchanged.
func (m DateMatch) Forward(ref core.Date) core.Date {
	if !m.Date.Before(ref) {
		return m.Date
	}
	switch m.Kind {
	case KindWeekday:
		return m.Date.AddDays(7)
	case KindMonthDay:
		return m.Date.AddMonths(12)
	}
	return m.Date
}

type dateRule struct {
	re      *regexp.Regexp
	kind    DateKind
	resolve func(m []string, ref core.Date) (core.Date, bool)
}

const monthNames = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

const countWords = `\d+|an?|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve`

const weekdayNames = `monday|tuesday|wednesday|thursday|friday|saturday|sunday`

var dateRules = []dateRule{
	{
		re: regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`),
		resolve: func(m []string, _ core.Date) (core.Date, bool) {
			return calendarDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
		},
	},
	{
		re:   regexp.MustCompile(`(?i)\b(?:the\s+)?day\s+before\s+yesterday\b`),
		kind: KindRelative,
		resolve: func(_ []string, ref core.Date) (core.Date, bool) {
			return ref.AddDays(-2), true
		},
	},
	{
		re:   regexp.MustCompile(`(?i)\b(?:the\s+)?day\s+after\s+tomorrow\b`),
		kind: KindRelative,
		resolve: func(_ []string, ref core.Date) (core.Date, bool) {
			return ref.AddDays(2), true
		},
	},
	{
		re:   regexp.MustCompile(`(?i)\b(today|tonight|this\s+morning|this\s+evening|yesterday|tomorrow)\b`),
		kind: KindRelative,
		resolve: func(m []string, ref core.Date) (core.Date, bool) {
			switch strings.ToLower(m[1]) {
			case "yesterday":
				return ref.AddDays(-1), true
			case "tomorrow":
				return ref.AddDays(1), true
			}
			return ref, true
		},
	},
	{
		re:   regexp.MustCompile(`(?i)\b(` + countWords + `)\s+(day|week|month|year)s?\s+ago\b`),
		kind: KindRelative,
		resolve: func(m []string, ref core.Date) (core.Date, bool) {
			return shift(ref, m[2], -count(m[1]))
		},
	},
	{
		re:   regexp.MustCompile(`(?i)\b(last|past|next|in)\s+(` + countWords + `)\s+(day|week|month|year)s?\b`),
		kind: KindRelative,
		resolve: func(m []string, ref core.Date) (core.Date, bool) {
			n := count(m[2])
			if strings.EqualFold(m[1], "last") || strings.EqualFold(m[1], "past") {
				n = -n
			}
			return shift(ref, m[3], n)
		},
	},
	{
		re:   regexp.MustCompile(`(?i)\b(next|last)\s+(week|month|year)\b`),
		kind: KindRelative,
		resolve: func(m []string, ref core.Date) (core.Date, bool) {
			n := 1
			if strings.EqualFold(m[1], "last") {
				n = -1
			}
			return shift(ref, m[2], n)
		},
	},
	{
		re:   regexp.MustCompile(`(?i)\b(?:(next|last|this|on)\s+)?(` + weekdayNames + `)\b`),
		kind: KindWeekday,
		resolve: func(m []string, ref core.Date) (core.Date, bool) {
			wd, ok := weekday(m[2])
			if !ok {
				return core.Date{}, false
			}
			diff := int(wd) - int(ref.Weekday())
			switch strings.ToLower(m[1]) {
			case "next":
				if diff <= 0 {
					diff += 7
				}
			case "this":
				if diff < 0 {
					diff += 7
				}
			default:
				// "last friday", "on friday" and a bare weekday look back
				if diff > 0 || (diff == 0 && strings.EqualFold(m[1], "last")) {
					diff -= 7
				}
			}
			return ref.AddDays(diff), true
		},
	},
	{
		re:   regexp.MustCompile(`(?i)\b(` + monthNames + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`),
		kind: KindMonthDay,
		resolve: func(m []string, ref core.Date) (core.Date, bool) {
			return monthDay(m[1], m[2], m[3], ref)
		},
	},
	{
		re:   regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthNames + `)\b\.?(?:,?\s+(\d{4}))?`),
		kind: KindMonthDay,
		resolve: func(m []string, ref core.Date) (core.Date, bool) {
			return monthDay(m[2], m[1], m[3], ref)
		},
	},
}

// ResolveDate finds the first date expression in text and resolves it
// against ref. Relative phrases never consult the wall clock, so the same
// text and ref always give the same date.
func ResolveDate(text string, ref core.Date) (DateMatch, bool) {
	matches := findDates(text, ref)
	if len(matches) == 0 {
		return DateMatch{}, false
	}
	return matches[0], true
}

// findDates returns every non-overlapping date expression ordered by
// position. At the same position the longer phrase wins.
func findDates(text string, ref core.Date) []DateMatch {
	var all []DateMatch
	for _, rule := range dateRules {
		for _, idx := range rule.re.FindAllStringSubmatchIndex(text, -1) {
			groups := make([]string, len(idx)/2)
			for g := range groups {
				if idx[2*g] >= 0 {
					groups[g] = text[idx[2*g]:idx[2*g+1]]
				}
			}
			d, ok := rule.resolve(groups, ref)
			if !ok {
				continue
			}
			kind := rule.kind
			if kind == KindMonthDay && groups[3] != "" {
				kind = KindAbsolute
			}
			all = append(all, DateMatch{Date: d, Kind: kind, Phrase: groups[0], Start: idx[0], End: idx[1]})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].End-all[i].Start > all[j].End-all[j].Start
	})

	out := all[:0]
	end := -1
	for _, m := range all {
		if m.Start < end {
			continue
		}
		out = append(out, m)
		end = m.End
	}
	return out
}

var dueVerb = regexp.MustCompile(`(?i)\b(due|by|deadline|before|until|no\s+later\s+than)\b(?:\s+\S+){0,2}\s*$`)

// IsDueDate reports whether the date phrase at m is introduced by a due-date
// verb ("due next week", "by Friday", "deadline on Dec 1").
func IsDueDate(text string, m DateMatch) bool {
	if m.Start <= 0 || m.Start > len(text) {
		return false
	}
	return dueVerb.MatchString(text[:m.Start])
}

func shift(ref core.Date, unit string, n int) (core.Date, bool) {
	switch strings.ToLower(unit) {
	case "day":
		return ref.AddDays(n), true
	case "week":
		return ref.AddDays(7 * n), true
	case "month":
		return ref.AddMonths(n), true
	case "year":
		return ref.AddMonths(12 * n), true
	}
	return core.Date{}, false
}

func monthDay(month, day, year string, ref core.Date) (core.Date, bool) {
	m, ok := monthIndex(month)
	if !ok {
		return core.Date{}, false
	}
	y := ref.Year()
	if year != "" {
		y = atoi(year)
	}
	return calendarDate(y, m, atoi(day))
}

func calendarDate(y, m, d int) (core.Date, bool) {
	if m < 1 || m > 12 || d < 1 || d > core.DaysIn(y, m) {
		return core.Date{}, false
	}
	return core.NewDate(y, m, d), true
}

func monthIndex(s string) (int, bool) {
	s = strings.ToLower(s)
	if len(s) < 3 {
		return 0, false
	}
	for i, name := range []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"} {
		if s[:3] == name {
			return i + 1, true
		}
	}
	return 0, false
}

func weekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(s)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.HasPrefix(strings.ToLower(d.String()), s[:3]) {
			return d, true
		}
	}
	return 0, false
}

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

func count(s string) int {
	if n, ok := numberWords[strings.ToLower(s)]; ok {
		return n
	}
	return atoi(s)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
