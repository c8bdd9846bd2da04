package lead

import "strings"

// Canonical field names.
const (
	FieldFirstName       = "first_name"
	FieldLastName        = "last_name"
	FieldPhoneNumber     = "phone_number"
	FieldPhoneNormalized = "phone_number_normalized"
	FieldAddress1        = "address1"
	FieldCity            = "city"
	FieldState           = "state"
	FieldPostalCode      = "postal_code"
)

// headerAliases rewrites common vendor column names onto canonical fields.
// No alias is itself a canonical name, which keeps NormalizeHeader idempotent.
var headerAliases = map[string]string{
	"firstname": FieldFirstName,
	"fname":     FieldFirstName,
	"first":     FieldFirstName,
	"lastname":  FieldLastName,
	"lname":     FieldLastName,
	"last":      FieldLastName,
	"phone":     FieldPhoneNumber,
	"telephone": FieldPhoneNumber,
	"mobile":    FieldPhoneNumber,
	"address":   FieldAddress1,
	"street":    FieldAddress1,
	"addr1":     FieldAddress1,
	"zip":       FieldPostalCode,
	"zipcode":   FieldPostalCode,
	"zip_code":  FieldPostalCode,
}

// NormalizeHeader lower-cases and trims a column name and maps known aliases
// to their canonical field. Unknown names pass through.
func NormalizeHeader(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := headerAliases[key]; ok {
		return canonical
	}
	return key
}

// NormalizeHeaders applies NormalizeHeader to every name. The result may
// contain duplicates when two inputs alias to the same field.
func NormalizeHeaders(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = NormalizeHeader(name)
	}
	return out
}
