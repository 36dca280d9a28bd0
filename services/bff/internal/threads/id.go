package threads

import "encoding/json"

// ID identifies a comment or reply. A provisional ID is generated locally
// before the backend has confirmed the record; a confirmed ID is the one
// assigned by the backend.
type ID struct {
	value       string
	provisional bool
}

// ProvisionalID wraps a locally generated identifier.
func ProvisionalID(local string) ID { return ID{value: local, provisional: true} }

// ConfirmedID wraps an identifier assigned by the backend.
func ConfirmedID(remote string) ID { return ID{value: remote} }

func (id ID) IsProvisional() bool { return id.provisional }

func (id ID) IsZero() bool { return id.value == "" }

func (id ID) String() string { return id.value }

// Remote returns the backend identifier, or false for provisional ids.
func (id ID) Remote() (string, bool) {
	if id.provisional || id.value == "" {
		return "", false
	}
	return id.value, true
}

// Matches reports whether id refers to the raw identifier s as seen by callers.
func (id ID) Matches(s string) bool { return s != "" && id.value == s }

func (id ID) MarshalJSON() ([]byte, error) { return json.Marshal(id.value) }

// UnmarshalJSON decodes a backend identifier. Anything read off the wire is confirmed.
func (id *ID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*id = ConfirmedID(s)
	return nil
}
