package mailer

import (
	"testing"
	"time"

	"slotbook/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestRender_SubstitutesAllPlaceholders(t *testing.T) {
	r := &domain.Reservation{
		Datetime: time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC),
		CustomerInfo: domain.CustomerInfo{
			Name:    "Jane Doe",
			Email:   "jane@example.com",
			Company: "Acme Inc.",
			Phone:   "555-0101",
			Message: "Window seat please",
		},
	}

	content := "{{name}} <{{email}}> from {{company}}, {{phone}}: {{message}} on {{date}} at {{time}}"
	got := Render(content, r, time.UTC)

	assert.Equal(t, "Jane Doe <jane@example.com> from Acme Inc., 555-0101: Window seat please on 2025-03-10 at 14:30", got)
}

func TestRender_MissingOptionalsBecomeEmpty(t *testing.T) {
	r := &domain.Reservation{
		Datetime:     time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		CustomerInfo: domain.CustomerInfo{Name: "Jane", Email: "jane@example.com"},
	}

	got := Render("company=[{{company}}] phone=[{{phone}}]", r, time.UTC)
	assert.Equal(t, "company=[] phone=[]", got)
}

func TestRender_UnknownPlaceholdersLeftVerbatim(t *testing.T) {
	r := &domain.Reservation{
		CustomerInfo: domain.CustomerInfo{Name: "Jane"},
	}

	got := Render("hi {{name}}, {{unknown}} stays", r, time.UTC)
	assert.Equal(t, "hi Jane, {{unknown}} stays", got)
}

func TestRender_FormatsInConfiguredZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	assert.NoError(t, err)

	r := &domain.Reservation{
		// 23:30 UTC on the 10th is 08:30 on the 11th in Tokyo.
		Datetime:     time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC),
		CustomerInfo: domain.CustomerInfo{Name: "Jane"},
	}

	got := Render("{{date}} {{time}}", r, tokyo)
	assert.Equal(t, "2025-03-11 08:30", got)
}

func TestRender_EmptyContent(t *testing.T) {
	assert.Equal(t, "", Render("", &domain.Reservation{}, time.UTC))
}
