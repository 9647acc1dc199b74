package phone

import (
	"regexp"
	"strings"

	"mychangex/internal/domain" // Error kinds
)

// CountryCode is the international prefix every stored phone is normalized to.
const CountryCode = "251"

var nonDigits = regexp.MustCompile(`\D`) // Anything that is not a digit

// Normalize strips a raw phone input down to digits and maps the accepted
// local forms to a single international format ("+251912345678").
//
// Accepted forms: 9xxxxxxxx / 7xxxxxxxx (9 digits), 09xxxxxxxx / 07xxxxxxxx
// (10 digits), 2519xxxxxxxx / 2517xxxxxxxx (12 digits). Anything with fewer
// than 9 or more than 12 digits is rejected outright.
func Normalize(raw string) (string, error) {
	digits := nonDigits.ReplaceAllString(raw, "") // Keep digits only
	// Reject inputs outside the accepted digit window
	if len(digits) < 9 || len(digits) > 12 {
		return "", domain.ErrInvalidPhone
	}
	switch {
	case len(digits) == 9 && (digits[0] == '9' || digits[0] == '7'):
		return "+" + CountryCode + digits, nil // Bare local mobile number
	case len(digits) == 10 && strings.HasPrefix(digits, "0") && (digits[1] == '9' || digits[1] == '7'):
		return "+" + CountryCode + digits[1:], nil // Local number with trunk zero
	case len(digits) == 12 && strings.HasPrefix(digits, CountryCode) && (digits[3] == '9' || digits[3] == '7'):
		return "+" + digits, nil // Already international
	}
	return "", domain.ErrInvalidPhone
}
