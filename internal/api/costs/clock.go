package costs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var clockPattern = regexp.MustCompile(`(\d{1,2})(?:[:.](\d{2}))?\s*(a\.m\.|p\.m\.|am\b|pm\b)?`)

var namedTimes = []struct {
	word    string
	minutes int
}{
	{"afternoon", 14 * 60},
	{"midnight", 0},
	{"noon", 12 * 60},
	{"early morning", 7 * 60},
	{"morning", 9 * 60},
	{"evening", 18 * 60},
	{"night", 20 * 60},
}

// ParseClock reads the first time of day in a free-form string such as
// "9:00 AM - 11:00 AM", "13:30" or "Evening" and returns minutes after midnight.
func ParseClock(text string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return 0, false
	}

	for _, m := range clockPattern.FindAllStringSubmatch(s, -1) {
		// a bare number without minutes or meridiem is more likely a count than a time
		if m[2] == "" && m[3] == "" {
			continue
		}
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		meridiem := strings.ReplaceAll(m[3], ".", "")
		switch meridiem {
		case "pm":
			if hour < 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		}
		if hour > 23 || minute > 59 {
			return 0, false
		}
		return hour*60 + minute, true
	}

	for _, nt := range namedTimes {
		if strings.Contains(s, nt.word) {
			return nt.minutes, true
		}
	}
	return 0, false
}

// FormatClock renders minutes after midnight as "8:05 AM".
func FormatClock(minutes int) string {
	minutes = ((minutes % (24 * 60)) + 24*60) % (24 * 60)
	h, m := minutes/60, minutes%60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m, suffix)
}
