package config

import "encoding/json"

const redacted = "[REDACTED]"

// SensitiveString holds a secret that must never reach logs or JSON output.
type SensitiveString string

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// Value returns the raw secret.
func (s SensitiveString) Value() string {
	return string(s)
}

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s SensitiveString) MarshalYAML() (any, error) {
	return s.String(), nil
}
