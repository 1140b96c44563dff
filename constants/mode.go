package constants

import "strings"

// Mode selects what the model is asked to produce.
type Mode string

const (
	ModeGeneral  Mode = "general"  // multi-part analysis
	ModeVerbatim Mode = "verbatim" // full text extraction
	ModeCustom   Mode = "custom"   // caller-defined fields
)

var allModes = []Mode{ModeGeneral, ModeVerbatim, ModeCustom}

// ParseMode resolves a mode name. The names used by the first web client
// ("analyze", "extract") are still accepted.
func ParseMode(input string) (Mode, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	switch normalized {
	case "analyze", "analysis":
		return ModeGeneral, true
	case "extract", "text":
		return ModeVerbatim, true
	}
	for _, m := range allModes {
		if normalized == string(m) {
			return m, true
		}
	}
	return "", false
}

// ModesAsStrings lists every accepted canonical mode.
func ModesAsStrings() []string {
	out := make([]string, len(allModes))
	for i, m := range allModes {
		out[i] = string(m)
	}
	return out
}
