package utils

import (
	"strings"
	"unicode"
)

// NormalizeVehicleNumber canonicalizes a vehicle registration number for
// storage and history lookups: uppercased, with spaces, dashes and other
// separators removed. "ka-01 ab 1234" and "KA01AB1234" count against the
// same vehicle.
func NormalizeVehicleNumber(number string) string {
	var b strings.Builder
	for _, r := range number {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}
