package models

// Call statuses. Anything other than StatusCompleted counts as pending.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// CallRecord is one nurse call in the persisted history.
type CallRecord struct {
	ID           int64  `json:"id"`
	Code         string `json:"code"`
	Room         string `json:"room"`
	Bed          string `json:"bed"`
	Display      string `json:"display"`
	Time         string `json:"time"`      // local compact, e.g. 14:03:09.10-17-2026
	Timestamp    string `json:"timestamp"` // RFC3339 UTC
	Status       string `json:"status"`    // active | completed
	ResetTime    string `json:"resetTime,omitempty"`
	ResetTimeStr string `json:"resetTimeStr,omitempty"`
	DateAdded    string `json:"dateAdded"`
	DateModified string `json:"dateModified"`
}

// IsCompleted reports whether the record has been resolved.
func (r *CallRecord) IsCompleted() bool {
	return r.Status == StatusCompleted
}

// DisplayName builds "{room} - {bed}", falling back to code when the room is unknown.
func DisplayName(code, room, bed string) string {
	if room == "" {
		return code
	}
	return room + " - " + bed
}
