package config

import "encoding/json"

const redacted = "[REDACTED]"

// Secret is an API key or password loaded from config or the environment.
// Every printed or serialized form is masked; call Value to read it.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

func (s Secret) GoString() string { return "Secret(" + redacted + ")" }

// Value returns the raw key.
func (s Secret) Value() string { return string(s) }

// IsSet reports whether a key was provided.
func (s Secret) IsSet() bool { return s != "" }

func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// UnmarshalJSON treats the mask as unset so dumping a config and loading it
// back never yields "[REDACTED]" as a key.
func (s *Secret) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == redacted {
		raw = ""
	}
	*s = Secret(raw)
	return nil
}

func (s Secret) MarshalYAML() (any, error) { return s.String(), nil }
