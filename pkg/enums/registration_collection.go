package enums

import (
	"fmt"
	"strings"
)

// RegistrationCollection names the store collection holding a registration document.
type RegistrationCollection string

const (
	CollectionRegistrations       RegistrationCollection = "registrations"
	CollectionReRegistrations     RegistrationCollection = "reregistrations"
	CollectionUpdateCertificates  RegistrationCollection = "updatecertificates"
	CollectionPrintCertificates   RegistrationCollection = "printcertificates"
	CollectionCancelRegistrations RegistrationCollection = "cancelregistrations"
)

// DefaultRegistrationCollection is used when a caller omits the collection.
const DefaultRegistrationCollection = CollectionRegistrations

var validRegistrationCollections = []RegistrationCollection{
	CollectionRegistrations,
	CollectionReRegistrations,
	CollectionUpdateCertificates,
	CollectionPrintCertificates,
	CollectionCancelRegistrations,
}

// String implements fmt.Stringer.
func (c RegistrationCollection) String() string {
	return string(c)
}

// IsValid reports whether the collection is one of the registration collections.
func (c RegistrationCollection) IsValid() bool {
	for _, candidate := range validRegistrationCollections {
		if candidate == c {
			return true
		}
	}
	return false
}

// RegistrationCollections returns every registration collection.
func RegistrationCollections() []RegistrationCollection {
	out := make([]RegistrationCollection, len(validRegistrationCollections))
	copy(out, validRegistrationCollections)
	return out
}

// ParseRegistrationCollection converts raw input, applying the default when empty.
func ParseRegistrationCollection(value string) (RegistrationCollection, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return DefaultRegistrationCollection, nil
	}
	for _, candidate := range validRegistrationCollections {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid registration collection %q", value)
}
