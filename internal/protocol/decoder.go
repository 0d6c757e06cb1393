package protocol

import "strings"

// maxPending bounds the carried-over partial line in buffered mode.
const maxPending = 256

// Decoder turns read chunks into events. Without line buffering it is
// equivalent to calling Decode per chunk. With line buffering, an
// unterminated trailing fragment is held and joined with the next chunk.
type Decoder struct {
	buffered bool
	pending  string
}

func NewDecoder(lineBuffering bool) *Decoder {
	return &Decoder{buffered: lineBuffering}
}

// Feed decodes one chunk.
func (d *Decoder) Feed(chunk []byte) []Event {
	if !d.buffered {
		return Decode(chunk)
	}

	text := d.pending + string(chunk)
	cut := strings.LastIndexAny(text, "\r\n")
	if cut < 0 {
		d.hold(text)
		return nil
	}
	complete := text[:cut+1]
	d.hold(text[cut+1:])

	var out []Event
	if strings.Contains(complete, standbyMarker) {
		out = append(out, Event{Kind: StandbyPulse})
	}
	return decodeLines(complete, out)
}

// Reset drops any held fragment. Called when a new connection starts.
func (d *Decoder) Reset() {
	d.pending = ""
}

func (d *Decoder) hold(s string) {
	if len(s) > maxPending {
		s = ""
	}
	d.pending = s
}
