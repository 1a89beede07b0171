// Package customer carries the buyer's shipping/contact details through
// checkout and into the denormalized customer profile row.
package customer

import (
	"regexp"
	"strings"
)

// Server-side contracts for the checkout form. Phone is 10-15 digits,
// pincode exactly 6 digits.
var (
	phonePattern   = regexp.MustCompile(`^\d{10,15}$`)
	pincodePattern = regexp.MustCompile(`^\d{6}$`)
)

// Info is the validated shipping form staged before the payment redirect.
// FullName, Email and Phone are required for shipping; the address fields
// are optional.
type Info struct {
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	State         string `json:"state"`
	Pincode       string `json:"pincode"`
}

// InvalidFields returns the names of fields that are missing or malformed,
// in a stable order. An empty slice means the info is acceptable.
func (i Info) InvalidFields() []string {
	var fields []string
	if strings.TrimSpace(i.FullName) == "" {
		fields = append(fields, "full_name")
	}
	if strings.TrimSpace(i.Email) == "" {
		fields = append(fields, "email")
	}
	if !phonePattern.MatchString(i.Phone) {
		fields = append(fields, "phone")
	}
	if i.Pincode != "" && !pincodePattern.MatchString(i.Pincode) {
		fields = append(fields, "pincode")
	}
	return fields
}

// Address joins the optional address fields into the single snapshot column
// stored on audit rows.
func (i Info) Address() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{i.StreetAddress, i.City, i.State, i.Pincode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
