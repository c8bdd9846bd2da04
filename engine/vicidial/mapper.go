package vicidial

import (
	"strings"

	"github.com/refacekit/leadops/engine/lead"
)

// DefaultListID is the dialer list leads are loaded into when none is configured.
const DefaultListID = "999"

// Columns is the header row of every export file, in order.
var Columns = []string{
	"list_id",
	"phone_number",
	"first_name",
	"last_name",
	"address1",
	"city",
	"state",
	"postal_code",
}

// phoneColumns is the fallback chain for the exported phone number. The first
// column the table carries is used for every record.
var phoneColumns = []string{
	lead.FieldPhoneNormalized,
	lead.FieldPhoneNumber,
	"phone",
	"telephone",
	"mobile",
	"cell",
}

// Record is one row of a dialer list.
type Record struct {
	ListID      string
	PhoneNumber string
	FirstName   string
	LastName    string
	Address1    string
	City        string
	State       string
	PostalCode  string
}

// Row returns the record's cells in Columns order.
func (r Record) Row() []string {
	return []string{
		r.ListID,
		r.PhoneNumber,
		r.FirstName,
		r.LastName,
		r.Address1,
		r.City,
		r.State,
		r.PostalCode,
	}
}

// MapStats describes one Map call.
type MapStats struct {
	InputRows   int
	OutputRows  int
	EmptyPhone  int
	PhoneColumn string
}

// Mapper converts cleaned lead tables into dialer list records.
type Mapper struct {
	ListID string
}

// NewMapper returns a mapper for listID, falling back to DefaultListID.
func NewMapper(listID string) *Mapper {
	if strings.TrimSpace(listID) == "" {
		listID = DefaultListID
	}
	return &Mapper{ListID: listID}
}

// Map converts every record of t and drops those left without a phone
// number. Output order follows t.
func (m *Mapper) Map(t *lead.Table) ([]Record, MapStats) {
	stats := MapStats{InputRows: t.Len(), PhoneColumn: phoneColumn(t)}
	out := make([]Record, 0, t.Len())
	for _, rec := range t.Records() {
		r := Record{
			ListID:      m.ListID,
			PhoneNumber: value(rec, stats.PhoneColumn),
			FirstName:   value(rec, lead.FieldFirstName),
			LastName:    value(rec, lead.FieldLastName),
			Address1:    value(rec, lead.FieldAddress1),
			City:        value(rec, lead.FieldCity),
			State:       value(rec, lead.FieldState),
			PostalCode:  value(rec, lead.FieldPostalCode),
		}
		if r.PhoneNumber == "" {
			stats.EmptyPhone++
			continue
		}
		out = append(out, r)
	}
	stats.OutputRows = len(out)
	return out, stats
}

func phoneColumn(t *lead.Table) string {
	for _, col := range phoneColumns {
		if t.HasColumn(col) {
			return col
		}
	}
	return ""
}

func value(rec lead.Record, field string) string {
	if field == "" {
		return ""
	}
	v, ok := rec.Get(field)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
