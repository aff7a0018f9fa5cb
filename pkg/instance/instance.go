package instance

import (
	"os"
	"strings"
)

const defaultID = "returns-0"

// GetID returns the process identity used in log lines and lock ownership.
// RETURNS_INSTANCE_ID wins, then the hostname.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv("RETURNS_INSTANCE_ID")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return defaultID
}
