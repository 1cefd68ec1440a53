package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDietDefaults(t *testing.T) {
	r, err := Validate(TaskDiet, ParsedPayload{"title": "Lean week"})
	require.NoError(t, err)

	plan := r.(DietPlan)
	assert.Equal(t, "Lean week", plan.Title)
	assert.Equal(t, Unknown, plan.Summary)
	assert.Equal(t, DietOther, plan.DietPreference)
	assert.NotNil(t, plan.Meals)
	assert.Empty(t, plan.Meals)
	assert.NotNil(t, plan.Tips)
	assert.NotNil(t, plan.Avoid)
	assert.Zero(t, plan.DailyCalories)
}

func TestValidateDietCoercion(t *testing.T) {
	p := ParsedPayload{
		"title":           "Plan",
		"diet_preference": "Non-Veg",
		"estimated_cost":  "₹1,250.50",
		"meals": []any{
			map[string]any{"name": "Breakfast", "time": "8:30 am", "items": []any{"oats"}, "calories": "350 kcal"},
			map[string]any{"name": "Dinner", "time": "later", "calories": float64(500)},
		},
	}

	r, err := Validate(TaskDiet, p)
	require.NoError(t, err)

	plan := r.(DietPlan)
	assert.Equal(t, DietNonVegetarian, plan.DietPreference)
	assert.InDelta(t, 1250.50, plan.EstimatedCost, 1e-9)
	require.Len(t, plan.Meals, 2)
	require.NotNil(t, plan.Meals[0].Time)
	assert.Equal(t, "08:30", *plan.Meals[0].Time)
	assert.InDelta(t, 350, plan.Meals[0].Calories, 1e-9)
	assert.Nil(t, plan.Meals[1].Time)
	assert.NotNil(t, plan.Meals[1].Items)
	assert.InDelta(t, 850, plan.DailyCalories, 1e-9)
}

func TestValidateRequiredIdentityFields(t *testing.T) {
	tests := []struct {
		kind TaskKind
		p    ParsedPayload
	}{
		{TaskDiet, ParsedPayload{"meals": []any{}}},
		{TaskExercise, ParsedPayload{"title": "  "}},
		{TaskYoga, ParsedPayload{"poses": []any{}}},
		{TaskDisease, ParsedPayload{"severity": "mild"}},
		{TaskGoal, ParsedPayload{"milestones": []any{}}},
		{TaskChat, ParsedPayload{"suggestions": []any{"x"}}},
		{TaskChat, ParsedPayload{"reply": "Unknown"}},
		{TaskDisease, ParsedPayload{"disease": "unknown", "severity": "mild"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			r, err := Validate(tt.kind, tt.p)
			assert.Nil(t, r)
			assert.True(t, IsKind(err, KindSchemaViolation), "got %v", err)
		})
	}
}

func TestValidateAppointmentWithoutIdentityNeverFails(t *testing.T) {
	r, err := Validate(TaskAppointment, ParsedPayload{})
	require.NoError(t, err)

	intent := r.(AppointmentIntent)
	assert.Equal(t, Unknown, intent.Doctor)
	assert.Equal(t, Unknown, intent.Specialization)
	assert.Nil(t, intent.Date)
	assert.Nil(t, intent.Time)
}

func TestValidateAppointmentNormalizesDateAndTime(t *testing.T) {
	r, err := Validate(TaskAppointment, ParsedPayload{
		"doctor": "Dr. Lee",
		"date":   "21/10/2025",
		"time":   "4:15 PM",
		"reason": "follow-up",
	})
	require.NoError(t, err)

	intent := r.(AppointmentIntent)
	require.NotNil(t, intent.Date)
	require.NotNil(t, intent.Time)
	assert.Equal(t, "2025-10-21", *intent.Date)
	assert.Equal(t, "16:15", *intent.Time)
}

func TestValidateAppointmentUnparseableDateIsNil(t *testing.T) {
	r, err := Validate(TaskAppointment, ParsedPayload{"date": "next Tuesday-ish"})
	require.NoError(t, err)
	assert.Nil(t, r.(AppointmentIntent).Date)
}

func TestValidateExerciseOutOfRangeIntegers(t *testing.T) {
	r, err := Validate(TaskExercise, ParsedPayload{
		"title":         "Strength",
		"level":         "Beginner",
		"days_per_week": float64(9),
		"exercises": []any{
			map[string]any{"name": "Squat", "sets": float64(-2), "reps": "12 reps", "rest_seconds": "60s"},
		},
	})
	require.NoError(t, err)

	plan := r.(ExercisePlan)
	assert.Equal(t, ActivityLight, plan.Level)
	assert.Equal(t, 0, plan.DaysPerWeek)
	require.Len(t, plan.Exercises, 1)
	assert.Equal(t, 0, plan.Exercises[0].Sets)
	assert.Equal(t, 12, plan.Exercises[0].Reps)
	assert.Equal(t, 60, plan.Exercises[0].RestSeconds)
}

func TestValidatePrescription(t *testing.T) {
	r, err := Validate(TaskPrescription, ParsedPayload{
		"patient_name": "A. Kumar",
		"date":         "12 Oct 2025",
		"medicines": []any{
			map[string]any{"name": "Paracetamol", "type": "Tab", "dosage": "500 mg", "price": "₹25.50"},
			map[string]any{"name": "Cough syrup", "type": "suspension", "price": "Rs. 80"},
			map[string]any{"name": "", "type": "tablet"},
		},
	})
	require.NoError(t, err)

	rx := r.(PrescriptionExtract)
	assert.Equal(t, "A. Kumar", rx.PatientName)
	assert.Equal(t, Unknown, rx.DoctorName)
	require.NotNil(t, rx.Date)
	assert.Equal(t, "2025-10-12", *rx.Date)
	assert.Nil(t, rx.FollowUpDate)
	require.Len(t, rx.Medicines, 2)
	assert.Equal(t, MedicineTablet, rx.Medicines[0].Type)
	assert.Equal(t, MedicineSyrup, rx.Medicines[1].Type)
	assert.Equal(t, Unknown, rx.Medicines[1].Dosage)
	assert.InDelta(t, 105.50, rx.EstimatedTotal, 1e-9)
}

func TestValidateGoalMilestones(t *testing.T) {
	r, err := Validate(TaskGoal, ParsedPayload{
		"goal": "Lose 5 kg",
		"milestones": []any{
			map[string]any{"target": "Lose 1 kg"},
			map[string]any{"week": "week 8", "target": "Lose 3 kg"},
			map[string]any{"week": float64(3)},
		},
	})
	require.NoError(t, err)

	plan := r.(GoalPlan)
	require.Len(t, plan.Milestones, 2)
	assert.Equal(t, Milestone{Week: 1, Target: "Lose 1 kg"}, plan.Milestones[0])
	assert.Equal(t, Milestone{Week: 8, Target: "Lose 3 kg"}, plan.Milestones[1])
}

func TestValidateChatDefaults(t *testing.T) {
	r, err := Validate(TaskChat, ParsedPayload{"reply": "Drink water.", "urgent": "no"})
	require.NoError(t, err)

	turn := r.(ChatTurn)
	assert.Equal(t, "Drink water.", turn.Reply)
	assert.Equal(t, "general", turn.Topic)
	assert.False(t, turn.Urgent)
	assert.NotNil(t, turn.Suggestions)
}

func TestValidateUnknownKind(t *testing.T) {
	_, err := Validate(TaskKind("horoscope"), ParsedPayload{})
	assert.True(t, IsKind(err, KindInvalidInput))
}

// TestValidateIsAFixedPoint re-validates every result's own encoding.
func TestValidateIsAFixedPoint(t *testing.T) {
	payloads := map[TaskKind]ParsedPayload{
		TaskDiet: {
			"title": "Plan", "diet_preference": "veg", "estimated_cost": "$12",
			"meals": []any{
				map[string]any{"name": "Lunch", "time": "1 PM", "items": []any{"rice", float64(2)}, "calories": "400 kcal"},
				map[string]any{"time": "dinner time"},
			},
		},
		TaskExercise: {
			"title": "Cardio", "level": "advanced", "duration_minutes": "45 min",
			"exercises": []any{map[string]any{"name": "Run", "duration_minutes": float64(20)}},
		},
		TaskYoga: {
			"title": "Morning flow", "level": "low",
			"poses": []any{map[string]any{"name": "Tree", "steps": "Stand tall"}},
		},
		TaskDisease: {
			"disease": "Migraine", "severity": "Medium", "instructions": []any{"Rest in a dark room", "Unknown"},
		},
		TaskGoal: {
			"goal": "Run 5k", "timeline_weeks": "8 weeks", "activity_level": "medium",
			"milestones": []any{map[string]any{}, map[string]any{"target": "Run 2k"}},
		},
		TaskPrescription: {
			"date": "October 1, 2025", "follow_up_date": "someday",
			"medicines": []any{map[string]any{"name": "Ibuprofen", "type": "caps", "price": "₹40"}},
		},
		TaskAppointment: {
			"doctor": "Dr. Rao", "date": "2025/11/03", "time": "10 a.m.",
		},
		TaskChat: {
			"reply": "Try stretching.", "suggestions": "What stretches?", "urgent": "yes", "topic": float64(5),
		},
	}

	for kind, p := range payloads {
		t.Run(string(kind), func(t *testing.T) {
			first, err := Validate(kind, p)
			require.NoError(t, err)

			encoded, err := PayloadOf(first)
			require.NoError(t, err)

			second, err := Validate(kind, encoded)
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}
