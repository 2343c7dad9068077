package instance

import (
	"os"

	"github.com/google/uuid"
)

var fallbackID = "api-" + uuid.NewString()[:8]

// GetID returns the process instance identifier used to tag cross-instance
// messages. DYNO and HOSTNAME are honoured before a random fallback.
func GetID() string {
	for _, key := range []string{"INSTANCE_ID", "DYNO", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return fallbackID
}
