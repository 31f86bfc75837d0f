package engine

import (
	"encoding/json"

	"github.com/dgallion1/bionic/internal/settings"
)

// Action names accepted on the command channel.
const (
	ActionToggle      = "toggle"
	ActionApply       = "apply"
	ActionCheckStatus = "checkStatus"

	// ActionToggleBionic is the legacy spelling of toggle.
	ActionToggleBionic = "toggleBionic"
)

// Message is a command delivered to a page's engine.
type Message struct {
	Action    string `json:"action"`
	Enabled   *bool  `json:"enabled,omitempty"`
	BoldRatio *int   `json:"boldRatio,omitempty"`
}

// UnmarshalJSON decodes enabled and boldRatio the way stored settings are
// decoded: "70" and 70.5 are accepted, and a value of the wrong type is
// treated as absent rather than failing the whole message.
func (m *Message) UnmarshalJSON(b []byte) error {
	var raw struct {
		Action    string `json:"action"`
		Enabled   any    `json:"enabled"`
		BoldRatio any    `json:"boldRatio"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = Message{Action: raw.Action}
	if v, ok := settings.LooseBool(raw.Enabled); ok {
		m.Enabled = &v
	}
	if n, ok := settings.LooseInt(raw.BoldRatio); ok {
		m.BoldRatio = &n
	}
	return nil
}

// Response answers a Message once the controller is stable.
type Response struct {
	Success bool   `json:"success,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
	Loaded  bool   `json:"loaded,omitempty"`
	Applied *bool  `json:"applied,omitempty"`
	Error   string `json:"error,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

// CheckStatus builds a status probe.
func CheckStatus() Message {
	return Message{Action: ActionCheckStatus}
}

// Toggle builds a toggle command carrying a settings snapshot.
func Toggle(enabled bool, ratio int) Message {
	return Message{Action: ActionToggle, Enabled: &enabled, BoldRatio: &ratio}
}
