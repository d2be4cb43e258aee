package httpx

import "github.com/google/uuid"

// NewID returns a fresh correlation id, used to tag a Request for
// logging/metrics correlation across the server and client state
// machines.
func NewID() string {
	return uuid.NewString()
}
