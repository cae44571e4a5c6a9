package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Duration is a time.Duration that decodes from strings like "90s" in
// YAML files and environment variables.
type Duration time.Duration

func D(d time.Duration) Duration { return Duration(d) }

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("negative duration %q", text)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration().String())
}

const redacted = "[REDACTED]"

var errRedactedSecret = errors.New("secret holds the redaction placeholder, not a value")

// Secret is a credential. Every formatting and encoding path prints a
// placeholder; only Value returns the real string.
type Secret string

func (s Secret) Value() string { return string(s) }

func (s Secret) IsSet() bool { return s != "" }

func (s Secret) masked() string {
	if s == "" {
		return ""
	}
	return redacted
}

func (s Secret) String() string { return s.masked() }

func (s Secret) GoString() string { return "Secret(" + redacted + ")" }

func (s Secret) MarshalText() ([]byte, error) { return []byte(s.masked()), nil }

func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(s.masked()) }

func (s *Secret) UnmarshalText(text []byte) error {
	if string(text) == redacted {
		return errRedactedSecret
	}
	*s = Secret(text)
	return nil
}

// UnmarshalJSON refuses the placeholder so a dumped config cannot be
// loaded back as if it carried a key.
func (s *Secret) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return s.UnmarshalText([]byte(raw))
}
