package instance

import "os"

// GetID returns an identifier for this process, preferring an explicit
// STORETRACK_INSTANCE_ID over platform-provided names.
func GetID() string {
	for _, key := range []string{"STORETRACK_INSTANCE_ID", "DYNO", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
