package pipeline

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

/* =================================================================================
							COERCION & NORMALIZATION
=================================================================================*/

// Canonical output layouts. Dates and times are always written back in these.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// dateLayouts is the ordered list of accepted input formats; the first that parses wins.
// Slash and dash numeric forms are read day-first.
var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	time.RFC3339,
	"2006-01-02 15:04",
	"02-01-2006",
	"02/01/2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"Monday, 2 January 2006",
	"Monday, January 2, 2006",
}

var clockLayouts = []string{
	ClockLayout,
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3 PM",
	"3PM",
	"1504",
}

var numberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ParseDate parses s under the accepted date formats.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, Unknown) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeDate returns the canonical form of s, or nil when no accepted format parses.
// Dates are never guessed.
func NormalizeDate(s string) *string {
	t, ok := ParseDate(s)
	if !ok {
		return nil
	}
	out := t.Format(DateLayout)
	return &out
}

// NormalizeClock returns s as HH:MM, or nil when it cannot be read as a time of day.
func NormalizeClock(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, Unknown) {
		return nil
	}
	s = strings.ToUpper(strings.ReplaceAll(s, ".", ""))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			out := t.Format(ClockLayout)
			return &out
		}
	}
	return nil
}

// coerceNumber accepts JSON numbers and numeric-looking strings such as "₹1,250.50",
// "$12" or "250 kcal".
func coerceNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		m := numberRe.FindString(strings.ReplaceAll(t, ",", ""))
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// enumTable maps loosely written model output onto a closed set of values.
type enumTable[T ~string] struct {
	values   map[string]T
	fallback T
}

func newEnum[T ~string](fallback T, canonical []T, aliases map[string]T) enumTable[T] {
	values := make(map[string]T, len(canonical)+len(aliases))
	for _, v := range canonical {
		values[enumKey(string(v))] = v
	}
	for k, v := range aliases {
		values[enumKey(k)] = v
	}
	values[enumKey(string(fallback))] = fallback
	return enumTable[T]{values: values, fallback: fallback}
}

func enumKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

func (e enumTable[T]) normalize(v any) T {
	s, ok := v.(string)
	if !ok {
		return e.fallback
	}
	if out, ok := e.values[enumKey(s)]; ok {
		return out
	}
	return e.fallback
}

var (
	dietPreferences = newEnum(DietOther,
		[]DietPreference{DietVegetarian, DietVegan, DietNonVegetarian, DietEggetarian, DietPescatarian, DietKeto},
		map[string]DietPreference{
			"veg":            DietVegetarian,
			"non veg":        DietNonVegetarian,
			"nonveg":         DietNonVegetarian,
			"non vegetarian": DietNonVegetarian,
			"omnivore":       DietNonVegetarian,
			"eggitarian":     DietEggetarian,
			"ovo vegetarian": DietEggetarian,
			"ketogenic":      DietKeto,
			"plant based":    DietVegan,
		})

	activityLevels = newEnum(ActivityUnknown,
		[]ActivityLevel{ActivitySedentary, ActivityLight, ActivityModerate, ActivityActive, ActivityVeryActive},
		map[string]ActivityLevel{
			"beginner":          ActivityLight,
			"lightly active":    ActivityLight,
			"low":               ActivityLight,
			"intermediate":      ActivityModerate,
			"moderately active": ActivityModerate,
			"medium":            ActivityModerate,
			"advanced":          ActivityActive,
			"high":              ActivityActive,
			"extremely active":  ActivityVeryActive,
			"athlete":           ActivityVeryActive,
		})

	severities = newEnum(SeverityUnknown,
		[]Severity{SeverityMild, SeverityModerate, SeveritySevere, SeverityCritical},
		map[string]Severity{
			"low":       SeverityMild,
			"minor":     SeverityMild,
			"medium":    SeverityModerate,
			"high":      SeveritySevere,
			"serious":   SeveritySevere,
			"emergency": SeverityCritical,
		})

	medicineTypes = newEnum(MedicineOther,
		[]MedicineType{MedicineTablet, MedicineCapsule, MedicineSyrup, MedicineInjection, MedicineOintment, MedicineDrops, MedicineInhaler},
		map[string]MedicineType{
			"tab":        MedicineTablet,
			"tabs":       MedicineTablet,
			"tablets":    MedicineTablet,
			"cap":        MedicineCapsule,
			"caps":       MedicineCapsule,
			"capsules":   MedicineCapsule,
			"suspension": MedicineSyrup,
			"liquid":     MedicineSyrup,
			"inj":        MedicineInjection,
			"cream":      MedicineOintment,
			"gel":        MedicineOintment,
			"eye drops":  MedicineDrops,
			"ear drops":  MedicineDrops,
			"puffer":     MedicineInhaler,
			"spray":      MedicineInhaler,
		})
)

// NormalizeDietPreference maps free text onto DietPreference, falling back to DietOther.
func NormalizeDietPreference(s string) DietPreference { return dietPreferences.normalize(s) }

// NormalizeActivityLevel maps free text onto ActivityLevel, falling back to ActivityUnknown.
func NormalizeActivityLevel(s string) ActivityLevel { return activityLevels.normalize(s) }

/* =================================================================================
								FIELD READER
=================================================================================*/

// fields reads typed values out of a ParsedPayload, substituting defaults instead of failing.
type fields ParsedPayload

func (f fields) text(key, def string) string {
	switch t := f[key].(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return s
		}
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return def
}

// required reads a text field that carries the result's identity.
func (f fields) required(kind TaskKind, key string) (string, error) {
	s := f.text(key, "")
	if s == "" || strings.EqualFold(s, Unknown) {
		return "", schemaViolation("%s result is missing required field %q", kind, key)
	}
	return s, nil
}

// amount reads a non-negative number; missing, unreadable or negative values become 0.
func (f fields) amount(key string) float64 {
	n, ok := coerceNumber(f[key])
	if !ok || n < 0 {
		return 0
	}
	return n
}

// integer reads a whole number within [lo, hi]; anything else becomes def.
func (f fields) integer(key string, lo, hi, def int) int {
	n, ok := coerceNumber(f[key])
	if !ok {
		return def
	}
	i := int(math.Round(n))
	if i < lo || i > hi {
		return def
	}
	return i
}

func (f fields) flag(key string) bool {
	switch t := f[key].(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			return true
		}
	}
	return false
}

func (f fields) date(key string) *string {
	s, ok := f[key].(string)
	if !ok {
		return nil
	}
	return NormalizeDate(s)
}

func (f fields) clock(key string) *string {
	s, ok := f[key].(string)
	if !ok {
		return nil
	}
	return NormalizeClock(s)
}

// list reads a string array. A bare string is treated as a one-element list.
// The result is never nil.
func (f fields) list(key string) []string {
	out := []string{}
	switch t := f[key].(type) {
	case []any:
		for _, item := range t {
			switch v := item.(type) {
			case string:
				if s := strings.TrimSpace(v); s != "" && !strings.EqualFold(s, Unknown) {
					out = append(out, s)
				}
			case float64:
				out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" && !strings.EqualFold(s, Unknown) {
			out = append(out, s)
		}
	}
	return out
}

// objects reads an array of objects. A bare object is treated as a one-element array.
func (f fields) objects(key string) []fields {
	out := []fields{}
	switch t := f[key].(type) {
	case []any:
		for _, item := range t {
			if obj, ok := item.(map[string]any); ok {
				out = append(out, fields(obj))
			}
		}
	case map[string]any:
		out = append(out, fields(t))
	}
	return out
}
