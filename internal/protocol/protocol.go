// Package protocol decodes the nurse-call panel's line format.
//
// Each line is "<code>:<rest>" where code is three ASCII digits. Codes
// starting with "90" acknowledge the station with the same last digit
// ("905:" clears "105"). Any chunk containing "99:" is a standby pulse.
package protocol

import (
	"strconv"
	"strings"
)

// Kind identifies a decoded event.
type Kind int

const (
	StandbyPulse Kind = iota + 1
	Acknowledgment
	Trigger
)

func (k Kind) String() string {
	switch k {
	case StandbyPulse:
		return "standby"
	case Acknowledgment:
		return "ack"
	case Trigger:
		return "trigger"
	default:
		return "unknown"
	}
}

const (
	standbyMarker = "99:"
	ackPrefix     = "90"
	standbyPrefix = "99"
	stationPrefix = "10"
	codeLen       = 3
)

// Event is one decoded token. Code is set for Acknowledgment and Trigger,
// ADC only for Trigger.
type Event struct {
	Kind Kind
	Code string
	ADC  int
}

// IsReset reports whether the event clears a station call: an
// acknowledgment, or a trigger from a "90X" code carrying a value.
func (e Event) IsReset() bool {
	switch e.Kind {
	case Acknowledgment:
		return true
	case Trigger:
		return strings.HasPrefix(e.Code, ackPrefix)
	}
	return false
}

// TargetLastDigit is the station digit a reset refers to.
func (e Event) TargetLastDigit() byte {
	if len(e.Code) != codeLen {
		return 0
	}
	return e.Code[codeLen-1]
}

// ResetTarget maps "90X" to the station code "10X".
func (e Event) ResetTarget() string {
	if !e.IsReset() {
		return ""
	}
	return stationPrefix + string(e.TargetLastDigit())
}

// Decode parses one chunk on its own. Lines split across chunks are lost.
func Decode(chunk []byte) []Event {
	text := string(chunk)
	var out []Event
	if strings.Contains(text, standbyMarker) {
		out = append(out, Event{Kind: StandbyPulse})
	}
	return decodeLines(text, out)
}

func decodeLines(text string, out []Event) []Event {
	for _, tok := range strings.FieldsFunc(text, isLineBreak) {
		if ev, ok := decodeToken(tok); ok {
			out = append(out, ev)
		}
	}
	return out
}

func decodeToken(tok string) (Event, bool) {
	left, right, found := strings.Cut(tok, ":")
	if !found {
		return Event{}, false
	}
	code := strings.TrimSpace(left)
	rest := strings.TrimSpace(right)
	if !isCode(code) || strings.HasPrefix(code, standbyPrefix) {
		return Event{}, false
	}

	if rest == "" && strings.HasPrefix(code, ackPrefix) {
		return Event{Kind: Acknowledgment, Code: code}, true
	}

	var value string
	if fields := strings.Fields(rest); len(fields) > 0 {
		value = fields[0]
	}
	if !allDigits(value) {
		return Event{}, false
	}
	adc, err := strconv.Atoi(value)
	if err != nil {
		adc = 0
	}
	return Event{Kind: Trigger, Code: code, ADC: adc}, true
}

func isLineBreak(r rune) bool { return r == '\r' || r == '\n' }

func isCode(s string) bool {
	return len(s) == codeLen && allDigits(s)
}

// allDigits is true for the empty string; an empty value decodes as 0.
func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
