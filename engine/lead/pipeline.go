package lead

import "slices"

// Stats counts what the ingestion pipeline kept and dropped.
type Stats struct {
	InputRows    int `json:"input_rows"`
	InvalidPhone int `json:"invalid_phone"`
	Duplicates   int `json:"duplicates"`
	OutputRows   int `json:"output_rows"`
}

// Result is a cleaned table plus the diagnostics gathered while cleaning it.
type Result struct {
	Table *Table
	Stats Stats
	// CollapsedColumns lists canonical names that more than one input column
	// mapped onto. Only the first of those columns was kept.
	CollapsedColumns []string
}

// Clean normalizes headers, validates and normalizes phone numbers, and
// drops duplicate phones, keeping the first occurrence of each. A supplied
// phone_number_normalized column is re-validated when phone_number is
// missing. Tables with neither column pass through unfiltered.
func Clean(raw *RawTable) (*Result, error) {
	if raw.Len() == 0 {
		return nil, ErrEmptyInput
	}

	header := NormalizeHeaders(raw.Header)
	table := NewTable(header, raw.Rows)
	result := &Result{
		Table:            table,
		Stats:            Stats{InputRows: table.Len()},
		CollapsedColumns: collapsedColumns(header),
	}

	switch {
	case table.HasColumn(FieldPhoneNumber):
		result.Stats.InvalidPhone = normalizePhones(table, FieldPhoneNumber)
	case table.HasColumn(FieldPhoneNormalized):
		result.Stats.InvalidPhone = normalizePhones(table, FieldPhoneNormalized)
	}
	if table.HasColumn(FieldPhoneNormalized) {
		result.Stats.Duplicates = dropDuplicatePhones(table)
	}

	result.Stats.OutputRows = table.Len()
	if table.Len() == 0 {
		return nil, ErrNoValidRecords
	}
	return result, nil
}

// normalizePhones derives phone_number_normalized from the source field for
// every record and drops records whose phone is missing or invalid. It
// returns the number dropped.
func normalizePhones(table *Table, source string) int {
	table.addColumn(FieldPhoneNormalized)
	kept := table.records[:0]
	for i := range table.records {
		rec := table.records[i]
		raw, ok := rec.Get(source)
		if !ok {
			continue
		}
		normalized, ok := NormalizePhone(raw)
		if !ok {
			continue
		}
		rec.set(FieldPhoneNormalized, normalized)
		kept = append(kept, rec)
	}
	dropped := len(table.records) - len(kept)
	table.records = kept
	return dropped
}

// dropDuplicatePhones keeps the first record for each normalized phone.
// Records without a value are never treated as duplicates of each other.
func dropDuplicatePhones(table *Table) int {
	seen := make(map[string]struct{}, len(table.records))
	kept := table.records[:0]
	for _, rec := range table.records {
		phone, ok := rec.Get(FieldPhoneNormalized)
		if ok {
			if _, dup := seen[phone]; dup {
				continue
			}
			seen[phone] = struct{}{}
		}
		kept = append(kept, rec)
	}
	dropped := len(table.records) - len(kept)
	table.records = kept
	return dropped
}

func collapsedColumns(header []string) []string {
	counts := make(map[string]int, len(header))
	var out []string
	for _, name := range header {
		counts[name]++
		if counts[name] == 2 {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}
