package crud

// Localize rewrites base fields with their "_en" siblings when lang is "en"
// and the English value is present. Indonesian stays the fallback.
func Localize(rec Record, lang string, fields []string) Record {
	if lang != "en" || len(fields) == 0 {
		return rec
	}
	for _, field := range fields {
		switch en := rec[field+"_en"].(type) {
		case string:
			if en != "" {
				rec[field] = en
			}
		case nil:
		default:
			rec[field] = en
		}
	}
	return rec
}

// LocalizeAll applies Localize to every record.
func LocalizeAll(records []Record, lang string, fields []string) []Record {
	for _, rec := range records {
		Localize(rec, lang, fields)
	}
	return records
}
