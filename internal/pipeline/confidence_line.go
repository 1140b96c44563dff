package pipeline

import (
	"regexp"
	"strconv"
)

// "CONFIDENCE: 85", optionally bolded or with a percent sign, on the first line.
var reConfidenceLine = regexp.MustCompile(`(?i)^\s*\**\s*confidence\s*:\s*(-?\d+(?:\.\d+)?)\s*%?\s*\**[ \t]*(?:\r?\n|$)`)

// SplitConfidenceLine strips a leading CONFIDENCE line from text and returns
// the score. found is false when text does not start with one.
func SplitConfidenceLine(text string) (rest string, score float64, found bool) {
	m := reConfidenceLine.FindStringSubmatchIndex(text)
	if m == nil {
		return text, 0, false
	}
	score, err := strconv.ParseFloat(text[m[2]:m[3]], 64)
	if err != nil {
		return text, 0, false
	}
	return text[m[1]:], score, true
}
