package attendance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelola/course-engine/attendance"
)

func TestParse_ExternalVocabulary(t *testing.T) {
	cases := map[string]attendance.Status{
		"HADIR":       attendance.Present,
		"TIDAK_HADIR": attendance.Absent,
		"TERLAMBAT":   attendance.Late,
		"IZIN":        attendance.Excused,
	}
	for in, want := range cases {
		got, err := attendance.Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
}

func TestParse_CanonicalNamesRoundTrip(t *testing.T) {
	// Stored rows hold canonical names; they must survive a second Parse.
	for _, s := range []attendance.Status{attendance.Present, attendance.Absent, attendance.Late, attendance.Excused} {
		got, err := attendance.Parse(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestParse_TrimsWhitespace(t *testing.T) {
	got, err := attendance.Parse("  HADIR ")
	require.NoError(t, err)
	assert.Equal(t, attendance.Present, got)
}

func TestParse_UnknownIsAnError(t *testing.T) {
	for _, in := range []string{"", "BOLOS", "hadir ya", "PRESENT"} {
		_, err := attendance.Parse(in)
		assert.Error(t, err, "%q must not parse", in)
	}
}

func TestCountsForCommission(t *testing.T) {
	assert.True(t, attendance.Present.CountsForCommission())
	assert.True(t, attendance.Late.CountsForCommission())
	assert.False(t, attendance.Absent.CountsForCommission())
	assert.False(t, attendance.Excused.CountsForCommission())
}

func TestCountEligible(t *testing.T) {
	records := []attendance.Record{
		{ID: "a", Status: attendance.Present},
		{ID: "b", Status: attendance.Late},
		{ID: "c", Status: attendance.Absent},
		{ID: "d", Status: attendance.Excused},
		{ID: "e", Status: attendance.Present},
	}

	n, err := attendance.CountEligible(records)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCountEligible_EmptyRoster(t *testing.T) {
	n, err := attendance.CountEligible(nil)

	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCountEligible_InvalidStatusSurfaces(t *testing.T) {
	// Malformed stored data must fail loudly, not skew the count.
	records := []attendance.Record{
		{ID: "a", Status: attendance.Present},
		{ID: "b", Status: attendance.Status("BOLOS")},
	}

	_, err := attendance.CountEligible(records)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOLOS")
}
