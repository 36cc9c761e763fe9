package instance

import "os"

// GetID returns the process instance identifier used in log fields.
// DYNO covers Heroku-style platforms that assign one per process.
func GetID() string {
	if id := os.Getenv("FLUJOS_INSTANCE_ID"); id != "" {
		return id
	}
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	return "local"
}
