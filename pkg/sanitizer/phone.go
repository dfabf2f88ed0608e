package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Participants are overwhelmingly domestic; ID is tried first so local
// formats (08xx...) parse correctly, with SG/MY as fallbacks for visitors.
var supportedRegions = []string{
	"ID",
	"SG",
	"MY",
}

// NormalizePhone parses the input against the supported regions and returns
// the E.164 form, or "" when the number is unparseable in all of them.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	for _, region := range supportedRegions {
		parsed, err := phonenumbers.Parse(phone, region)
		if err == nil && phonenumbers.IsValidNumber(parsed) {
			return phonenumbers.Format(parsed, phonenumbers.E164)
		}
	}
	return ""
}
