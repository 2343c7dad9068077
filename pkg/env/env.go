package env

import (
	"os"
	"strings"
)

const prefix = "CAFEFLOW_"

// Get returns CAFEFLOW_<key> when set, then the bare key, then fallback.
// Platform variables such as PORT are read through the bare form.
func Get(key, fallback string) string {
	key = strings.TrimPrefix(key, prefix)
	for _, name := range []string{prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
