package domain

// ValidateFields checks every service in context order; the first failing service wins.
func ValidateFields(services []Service, fields map[string]FieldState) error {
	for _, s := range services {
		f, ok := fields[s.ServiceID]
		if !ok || !f.Amount.IsNumber() || f.Amount.Value < 0 {
			return NewInvalidAmountError(s)
		}
		if !f.Touched() {
			return NewUntouchedFieldError(s)
		}
	}
	return nil
}

// BuildItems turns validated fields into submission lines, in context order.
// Call ValidateFields first: untouched fields are reported with filledAt 0.
func BuildItems(services []Service, fields map[string]FieldState) []SubmitItem {
	items := make([]SubmitItem, 0, len(services))
	for _, s := range services {
		f := fields[s.ServiceID]
		item := SubmitItem{ServiceID: s.ServiceID, RawID: s.RawID, Montant: f.Amount.Value}
		if f.FilledAt != nil {
			item.FilledAt = *f.FilledAt
		}
		items = append(items, item)
	}
	return items
}
