package mailer

import (
	"strings"
	"time"

	"slotbook/internal/domain"
)

// Render substitutes the fixed placeholder set into a template string.
// Missing optional fields become empty strings; placeholders outside the
// set are left verbatim.
func Render(content string, r *domain.Reservation, loc *time.Location) string {
	if content == "" {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	dt := r.Datetime.In(loc)

	replacer := strings.NewReplacer(
		"{{name}}", r.CustomerInfo.Name,
		"{{email}}", r.CustomerInfo.Email,
		"{{company}}", r.CustomerInfo.Company,
		"{{phone}}", r.CustomerInfo.Phone,
		"{{message}}", r.CustomerInfo.Message,
		"{{date}}", dt.Format("2006-01-02"),
		"{{time}}", dt.Format("15:04"),
	)
	return replacer.Replace(content)
}
