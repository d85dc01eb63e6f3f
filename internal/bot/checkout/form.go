package checkout

import (
	"net/mail"
	"strings"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
)

// ValidateField applies the required check and a light format check for
// email and phone fields. It returns the trimmed value; "-" skips an
// optional field.
func ValidateField(f model.FormField, raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "-" && !f.Required {
		v = ""
	}
	if v == "" {
		if f.Required {
			return "", errx.Validation(f.Key, "required")
		}
		return "", nil
	}
	switch f.Type {
	case model.FieldEmail:
		addr, err := mail.ParseAddress(v)
		if err != nil || addr.Address != v || !strings.Contains(v[strings.LastIndex(v, "@"):], ".") {
			return "", errx.Validation(f.Key, "not an email address")
		}
	case model.FieldPhone:
		digits := 0
		for _, r := range v {
			switch {
			case r >= '0' && r <= '9':
				digits++
			case strings.ContainsRune("+-() .", r):
			default:
				return "", errx.Validation(f.Key, "not a phone number")
			}
		}
		if digits < 6 || digits > 15 {
			return "", errx.Validation(f.Key, "not a phone number")
		}
	}
	return v, nil
}

// fieldHint is the retry prompt for a rejected value.
func fieldHint(f model.FormField) string {
	switch f.Type {
	case model.FieldEmail:
		return "That doesn't look like an email address. Please try again."
	case model.FieldPhone:
		return "That doesn't look like a phone number. Please try again."
	default:
		return "This field is required."
	}
}

var (
	nameKeys    = []string{"name", "full_name", "customer_name"}
	contactKeys = []string{"phone", "phone_number", "email", "contact"}
)

func firstOf(data map[string]string, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(data[k]); v != "" {
			return v
		}
	}
	return ""
}

// customerIdentity picks name and contact out of the collected form.
func customerIdentity(data map[string]string, psid string) (name, contact string) {
	name = firstOf(data, nameKeys)
	if name == "" {
		name = "Messenger customer"
	}
	contact = firstOf(data, contactKeys)
	if contact == "" {
		contact = "messenger:" + psid
	}
	return name, contact
}
