package env

import (
	"os"
	"strings"
)

const prefix = "REGPAY_"

// Get reads REGPAY_<key>, then the bare key, and falls back when both are blank.
// Used for settings needed before config.Load, such as the log format.
func Get(key, fallback string) string {
	for _, name := range []string{prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
