package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// ID identifies users, playlists, videos and sessions. It can only be built
// from a valid UUID, so a value that reached a service is always well formed.
type ID uuid.UUID

// NilID is the zero identifier.
var NilID = ID(uuid.Nil)

// NewID returns a random identifier.
func NewID() ID {
	return ID(uuid.New())
}

// ParseID parses the canonical textual form of an identifier.
func ParseID(raw string) (ID, error) {
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return NilID, fmt.Errorf("invalid identifier %q: %w", raw, err)
	}
	if parsed == uuid.Nil {
		return NilID, fmt.Errorf("invalid identifier %q: nil uuid", raw)
	}
	return ID(parsed), nil
}

// MustParseID panics on invalid input; for tests and constants only.
func MustParseID(raw string) ID {
	id, err := ParseID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id is the nil identifier.
func (id ID) IsZero() bool {
	return id == NilID
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Value implements driver.Valuer.
func (id ID) Value() (driver.Value, error) {
	return id.String(), nil
}

// Scan implements sql.Scanner.
func (id *ID) Scan(src interface{}) error {
	var u uuid.UUID
	if err := u.Scan(src); err != nil {
		return err
	}
	*id = ID(u)
	return nil
}
