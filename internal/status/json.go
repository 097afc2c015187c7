package status

import "time"

// ConnectivityJSON is the JSON representation of Connectivity.
type ConnectivityJSON struct {
	Connected bool   `json:"connected"`
	MockMode  bool   `json:"mock_mode"`
	Label     string `json:"label"`
	Since     string `json:"since"`
}

// JSON converts c into its wire form.
func (c Connectivity) JSON() ConnectivityJSON {
	return ConnectivityJSON{
		Connected: c.Reachable,
		MockMode:  c.MockMode,
		Label:     c.Label(),
		Since:     c.Since.UTC().Format(time.RFC3339),
	}
}
