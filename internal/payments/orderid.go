package payments

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	orderIDPrefix    = "ORDER_"
	orderSuffixChars = 9
)

// NewOrderID builds ORDER_<epoch-millis>_<suffix>, the suffix taken from a random UUID.
func NewOrderID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:orderSuffixChars]
	return orderIDPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix
}
