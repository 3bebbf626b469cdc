package models

// CardRecord is the structured summary extracted from the most recently
// scanned label. Exactly one record is persisted at a time; a new successful
// extraction replaces the previous record in full.
type CardRecord struct {
	Medication  string `json:"medication"`
	Treats      string `json:"treats"`
	Frequency   string `json:"frequency"`
	Method      string `json:"method"`
	SideEffects string `json:"side_effects"`
}

// CardRow is one label/value pair rendered for the card list endpoint.
type CardRow struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}
