package council

import "github.com/google/uuid"

// NewID generates a globally unique, time-sortable UUIDv7 (RFC 9562)
// session identifier.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
