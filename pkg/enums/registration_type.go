package enums

import "strings"

// RegistrationType identifies the form a payment is collected for.
type RegistrationType string

const (
	RegistrationTypeRegistration       RegistrationType = "registration"
	RegistrationTypeReRegistration     RegistrationType = "re-registration"
	RegistrationTypeUpdateCertificate  RegistrationType = "update-certificate"
	RegistrationTypePrintCertificate   RegistrationType = "print-certificate"
	RegistrationTypeCancelRegistration RegistrationType = "cancel-registration"
)

var validRegistrationTypes = []RegistrationType{
	RegistrationTypeRegistration,
	RegistrationTypeReRegistration,
	RegistrationTypeUpdateCertificate,
	RegistrationTypePrintCertificate,
	RegistrationTypeCancelRegistration,
}

// String implements fmt.Stringer.
func (r RegistrationType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RegistrationType.
func (r RegistrationType) IsValid() bool {
	for _, candidate := range validRegistrationTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// RegistrationTypes returns the known registration types.
func RegistrationTypes() []RegistrationType {
	out := make([]RegistrationType, len(validRegistrationTypes))
	copy(out, validRegistrationTypes)
	return out
}

// NormalizeRegistrationType lower-cases and trims raw input.
func NormalizeRegistrationType(value string) RegistrationType {
	return RegistrationType(strings.ToLower(strings.TrimSpace(value)))
}
