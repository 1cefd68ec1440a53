package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025-10-20", "2025-10-20"},
		{"2025/10/20", "2025-10-20"},
		{"20-10-2025", "2025-10-20"},
		{"20/10/2025", "2025-10-20"},
		{"20 October 2025", "2025-10-20"},
		{"20 Oct 2025", "2025-10-20"},
		{"October 20, 2025", "2025-10-20"},
		{"Oct 20, 2025", "2025-10-20"},
		{"october 20 2025", "2025-10-20"},
		{"Monday, October 20, 2025", "2025-10-20"},
		{"2025-10-20T10:30:00Z", "2025-10-20"},
		{"  2025-10-20  ", "2025-10-20"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizeDate(tt.in)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestNormalizeDateNeverGuesses(t *testing.T) {
	for _, in := range []string{"", "Unknown", "tomorrow", "next Monday", "2025-13-40", "31/02/2025", "soon"} {
		assert.Nil(t, NormalizeDate(in), in)
	}
}

func TestNormalizeClock(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"14:30", "14:30"},
		{"09:05", "09:05"},
		{"9:05", "09:05"},
		{"14:30:00", "14:30"},
		{"2:30 PM", "14:30"},
		{"2:30pm", "14:30"},
		{"2 pm", "14:00"},
		{"10 a.m.", "10:00"},
		{"12 AM", "00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizeClock(tt.in)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}

	for _, in := range []string{"", "Unknown", "evening", "25:00"} {
		assert.Nil(t, NormalizeClock(in), in)
	}
}

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{float64(12.5), 12.5, true},
		{"42", 42, true},
		{"₹1,250.50", 1250.5, true},
		{"$12", 12, true},
		{"250 kcal", 250, true},
		{"about 30 minutes", 30, true},
		{"-3", -3, true},
		{"many", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := coerceNumber(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "%v", tt.in)
	}
}

func TestEnumNormalization(t *testing.T) {
	assert.Equal(t, DietNonVegetarian, NormalizeDietPreference("Non-Veg"))
	assert.Equal(t, DietNonVegetarian, NormalizeDietPreference("non vegetarian"))
	assert.Equal(t, DietVegan, NormalizeDietPreference("VEGAN"))
	assert.Equal(t, DietOther, NormalizeDietPreference("fruitarian"))

	assert.Equal(t, ActivityVeryActive, NormalizeActivityLevel("very active"))
	assert.Equal(t, ActivityModerate, NormalizeActivityLevel("Intermediate"))
	assert.Equal(t, ActivityUnknown, NormalizeActivityLevel("Unknown"))
	assert.Equal(t, ActivityUnknown, NormalizeActivityLevel("couch potato"))

	assert.Equal(t, SeveritySevere, severities.normalize("High"))
	assert.Equal(t, SeverityUnknown, severities.normalize(3.0))
	assert.Equal(t, MedicineTablet, medicineTypes.normalize("Tab"))
	assert.Equal(t, MedicineOther, medicineTypes.normalize("patch"))
}

func TestFieldReader(t *testing.T) {
	f := fields{
		"title":  "  Plan  ",
		"blank":  "   ",
		"num":    float64(7),
		"sets":   "4 sets",
		"big":    float64(5000),
		"tags":   []any{"a", " ", "Unknown", float64(3), true},
		"single": "only",
		"obj":    map[string]any{"name": "x"},
		"urgent": "yes",
	}

	assert.Equal(t, "Plan", f.text("title", Unknown))
	assert.Equal(t, Unknown, f.text("blank", Unknown))
	assert.Equal(t, "7", f.text("num", Unknown))
	assert.Equal(t, Unknown, f.text("missing", Unknown))

	assert.Equal(t, 4, f.integer("sets", 0, 20, 0))
	assert.Equal(t, 3, f.integer("big", 0, 300, 3))

	assert.Equal(t, []string{"a", "3"}, f.list("tags"))
	assert.Equal(t, []string{"only"}, f.list("single"))
	assert.NotNil(t, f.list("missing"))
	assert.Empty(t, f.list("missing"))

	require.Len(t, f.objects("obj"), 1)
	assert.Empty(t, f.objects("tags"))
	assert.True(t, f.flag("urgent"))
	assert.False(t, f.flag("missing"))

	_, err := f.required(TaskDiet, "blank")
	assert.True(t, IsKind(err, KindSchemaViolation))
}
