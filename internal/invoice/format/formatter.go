package format

import (
	"fmt"
	"strings"
)

// FormatInvoiceID builds the persisted invoice identifier
// "{year:4}{month+1:02}{TOKEN:4}{sequence:04}", e.g. year 2025, month index 5,
// sequence 1 with token "ZTFY" yields "202506ZTFY0001".
//
// This function is PURE:
// - No side effects
// - No DB access
// - Fully deterministic
//
// The month input is 0-indexed and the rendered month is 1-indexed; that
// asymmetry is part of the persisted contract. A sequence past 9999 widens
// the field instead of truncating.
func FormatInvoiceID(token string, year, month int, seq int64) (string, error) {
	token = strings.ToUpper(strings.TrimSpace(token))
	if len(token) != 4 {
		return "", fmt.Errorf("invoice token must be 4 characters, got %q", token)
	}
	if year < 1000 || year > 9999 {
		return "", fmt.Errorf("invalid invoice year: %d", year)
	}
	if month < 0 || month > 11 {
		return "", fmt.Errorf("invalid invoice month index: %d", month)
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}

	return fmt.Sprintf("%04d%02d%s%04d", year, month+1, token, seq), nil
}
