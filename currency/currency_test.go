package currency_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/kelola/course-engine/currency"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		name   string
		amount string
		want   string
	}{
		{"zero", "0", "Rp 0"},
		{"under a thousand", "500", "Rp 500"},
		{"exactly a thousand", "1000", "Rp 1.000"},
		{"typical fee", "1500000", "Rp 1.500.000"},
		{"commission amount", "45000", "Rp 45.000"},
		{"millions", "12345678", "Rp 12.345.678"},
		{"fraction rounds to nearest rupiah", "15000.4", "Rp 15.000"},
		{"fraction rounds up", "15000.5", "Rp 15.001"},
		{"negative keeps the sign in front", "-250000", "-Rp 250.000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, currency.Format(decimal.RequireFromString(tc.amount)))
		})
	}
}

func TestStudents(t *testing.T) {
	assert.Equal(t, "0 students", currency.Students(0))
	assert.Equal(t, "1 student", currency.Students(1))
	assert.Equal(t, "3 students", currency.Students(3))
}

func TestMeetings(t *testing.T) {
	assert.Equal(t, "1 meeting", currency.Meetings(1))
	assert.Equal(t, "2 meetings", currency.Meetings(2))
}
