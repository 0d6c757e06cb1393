package models

import "strings"

// Master types with a dedicated ADC threshold.
const (
	MasterTypeCommax  = "Commax"
	MasterTypeAiphone = "AIPHONE"

	DefaultMasterType = MasterTypeCommax

	aiphoneADCThreshold = 150
	defaultADCThreshold = 70
)

// MaxNotificationFiles is the number of sound slots (v1..v6) per station.
const MaxNotificationFiles = 6

// MasterEntry maps a station code to its location and notification files.
type MasterEntry struct {
	CharCode string `json:"charCode"`
	RoomName string `json:"roomName"`
	BedName  string `json:"bedName"`
	V1       string `json:"v1,omitempty"`
	V2       string `json:"v2,omitempty"`
	V3       string `json:"v3,omitempty"`
	V4       string `json:"v4,omitempty"`
	V5       string `json:"v5,omitempty"`
	V6       string `json:"v6,omitempty"`
}

// Files returns the configured notification files in slot order,
// skipping empty slots and the "-" placeholder.
func (e MasterEntry) Files() []string {
	files := make([]string, 0, MaxNotificationFiles)
	for _, f := range []string{e.V1, e.V2, e.V3, e.V4, e.V5, e.V6} {
		if f == "" || f == "-" {
			continue
		}
		files = append(files, f)
	}
	return files
}

// ADCThreshold returns the minimum analog value accepted as a call for the
// given master type. AIPHONE panels report higher idle levels.
func ADCThreshold(masterType string) int {
	if strings.EqualFold(strings.TrimSpace(masterType), MasterTypeAiphone) {
		return aiphoneADCThreshold
	}
	return defaultADCThreshold
}
