package constants

// ExtractState is a step of the extraction state machine.
type ExtractState string

const (
	StateReceived    ExtractState = "received"
	StatePrompted    ExtractState = "prompted"
	StateInvoking    ExtractState = "invoking"
	StateNormalizing ExtractState = "normalizing"
	StateParsing     ExtractState = "parsing"
	StateValidating  ExtractState = "validating"
	StateDone        ExtractState = "done"   // terminal success
	StateFailed      ExtractState = "failed" // terminal failure
)

// Terminal reports whether no further transitions are allowed.
func (s ExtractState) Terminal() bool {
	return s == StateDone || s == StateFailed
}
