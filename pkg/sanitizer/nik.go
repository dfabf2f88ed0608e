package sanitizer

import "strings"

// NormalizeNIK strips everything but digits from a national identity number.
// Validity (16 digits) is checked by the request validator, not here.
func NormalizeNIK(nik string) string {
	var b strings.Builder
	for _, r := range nik {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
