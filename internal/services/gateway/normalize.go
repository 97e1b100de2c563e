package gateway

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizeNumber returns the number as international digits without the
// leading '+', which is what the gateway expects. Stored numbers usually
// already carry their country code, so that reading is tried before the
// default region. Input that parses neither way is sent as its digit run.
func NormalizeNumber(num, defaultRegion string) string {
	num = strings.TrimSpace(num)
	digits := digitsOnly(num)
	if digits == "" {
		return num
	}

	type attempt struct{ text, region string }
	attempts := []attempt{{"+" + digits, ""}}
	if !strings.HasPrefix(num, "+") && defaultRegion != "" {
		attempts = append(attempts, attempt{digits, defaultRegion})
	}

	for _, a := range attempts {
		parsed, err := phonenumbers.Parse(a.text, a.region)
		if err != nil || !phonenumbers.IsValidNumber(parsed) {
			continue
		}
		return strings.TrimPrefix(phonenumbers.Format(parsed, phonenumbers.E164), "+")
	}
	return digits
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
