package survey

import (
	"regexp"
	"strconv"
)

var (
	fivePointPattern = regexp.MustCompile(`^[1-5]$`)
	tenPointPattern  = regexp.MustCompile(`^([1-9]|10)$`)
)

// sentimentEmojis maps a 1-5 bucket to its sentiment label.
var sentimentEmojis = map[int]string{
	1: "😠",
	2: "😕",
	3: "😐",
	4: "😊",
	5: "🤩",
}

// Scale is the ordinal rating scale a survey runs on. Two variants exist:
// the 1-5 inline-keyboard scale and the 1-10 text-entry scale.
type Scale struct {
	Max          int
	LowThreshold int
	TextEntry    bool
}

func NewScale(max, lowThreshold int, textEntry bool) Scale {
	if max != 10 {
		max = 5
	}
	if lowThreshold < 1 || lowThreshold >= max {
		lowThreshold = max / 2
		if max == 5 {
			lowThreshold = 3
		}
	}
	return Scale{Max: max, LowThreshold: lowThreshold, TextEntry: textEntry}
}

// Parse validates a free-text rating entry against the scale's pattern.
func (s Scale) Parse(input string) (int, bool) {
	pattern := fivePointPattern
	if s.Max == 10 {
		pattern = tenPointPattern
	}
	if !pattern.MatchString(input) {
		return 0, false
	}
	n, err := strconv.Atoi(input)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Contains reports whether a button-carried value is legal for the scale.
func (s Scale) Contains(n int) bool {
	return n >= 1 && n <= s.Max
}

// IsLow reports whether a rating triggers follow-up comment collection.
func (s Scale) IsLow(n int) bool {
	return n <= s.LowThreshold
}

// Emoji returns the sentiment label for a rating, collapsing the 1-10
// variant onto the five sentiment buckets.
func (s Scale) Emoji(n int) string {
	if n < 1 || n > s.Max {
		return ""
	}
	bucket := n
	if s.Max == 10 {
		bucket = (n + 1) / 2
	}
	return sentimentEmojis[bucket]
}
