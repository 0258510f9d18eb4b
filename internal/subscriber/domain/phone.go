package domain

import "strings"

// NormalizePhone canonicalizes a raw phone number into international digits
// without the leading plus. A leading zero is replaced with the default
// country code, so "03001234567" becomes "923001234567" for country "92".
func NormalizePhone(raw, defaultCountry string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	phone := digits.String()
	if len(phone) < 7 {
		return "", ErrInvalidPhone
	}

	if strings.HasPrefix(phone, "0") {
		phone = strings.TrimSpace(defaultCountry) + strings.TrimPrefix(phone, "0")
	}

	return phone, nil
}
