package instance

import (
	"os"
	"strings"
)

// GetID identifies the running process in logs; the first non-empty of
// REGPAY_INSTANCE_ID, DYNO and HOSTNAME wins.
func GetID() string {
	for _, key := range []string{"REGPAY_INSTANCE_ID", "DYNO", "HOSTNAME"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	return "local"
}
