package service

// standbyPulsesToClear is the number of standby pulses after a call, with no
// acknowledgment in between, that clears the call implicitly.
const standbyPulsesToClear = 5

// CallTracker follows the last station call on one connection. It is reset
// every time the port is (re)opened.
type CallTracker struct {
	LastActiveCode string
	AwaitingReset  bool
	StandbyCount   int
}

func (t *CallTracker) Reset() {
	*t = CallTracker{}
}

// CallCreated records that a new active call was stored for code.
func (t *CallTracker) CallCreated(code string) {
	t.LastActiveCode = code
	t.AwaitingReset = true
	t.StandbyCount = 0
}

// Acknowledged records an explicit reset from the panel.
func (t *CallTracker) Acknowledged() {
	t.AwaitingReset = false
}

// Standby counts a pulse. It returns the code to complete once the pulse
// threshold is reached; ok is false otherwise.
func (t *CallTracker) Standby() (code string, ok bool) {
	if !t.AwaitingReset {
		return "", false
	}
	t.StandbyCount++
	if t.StandbyCount < standbyPulsesToClear {
		return "", false
	}
	t.AwaitingReset = false
	return t.LastActiveCode, t.LastActiveCode != ""
}
