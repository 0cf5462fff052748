// Package identifier defines the opaque 128-bit identifier used for every
// named entity in the engine: pins, nodes, instances, graphs, libraries.
package identifier

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ID is an opaque 128-bit value. It is globally unique, stable across
// process restarts (callers persist the same value on disk and reuse it),
// and serializes to its canonical string form.
type ID uuid.UUID

// Nil is the zero-value ID, used to mean "no library" (a GraphRef whose
// library is Nil resolves against the enclosing context, per §6).
var Nil = ID(uuid.Nil)

// New returns a freshly generated, globally unique ID.
func New() ID {
	return ID(uuid.New())
}

// Parse parses the canonical string form of an ID.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, err
	}
	return ID(u), nil
}

// MustParse is like Parse but panics on error. It exists for built-in node
// registrations where the ID is a compile-time constant.
func MustParse(s string) ID {
	return ID(uuid.MustParse(s))
}

// String returns the canonical string form.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id is the Nil identifier.
func (id ID) IsZero() bool {
	return id == Nil
}

// MarshalJSON implements json.Marshaler, serializing as a JSON string.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*id = Nil
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
