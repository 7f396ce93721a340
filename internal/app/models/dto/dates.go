package dto

import "time"

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// parseDate is only called on values already checked by the datetime binding
func parseDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}
