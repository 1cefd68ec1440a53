package pipeline

import "math"

// Bounds for integer fields. Values outside them fall back to the listed default.
const (
	maxSets        = 20
	maxReps        = 200
	maxMinutes     = 300
	maxRestSeconds = 900
	maxDaysPerWeek = 7
	maxWeeks       = 104
)

// validator turns an untyped payload into its typed result.
type validator func(fields) (DomainResult, error)

var validators = map[TaskKind]validator{
	TaskDiet:         validateDiet,
	TaskExercise:     validateExercise,
	TaskYoga:         validateYoga,
	TaskDisease:      validateDisease,
	TaskGoal:         validateGoal,
	TaskPrescription: validatePrescription,
	TaskAppointment:  validateAppointment,
	TaskChat:         validateChat,
}

// Validate checks p against the shape of kind and returns a fully populated result.
//
// Missing optional fields receive documented defaults ("Unknown", 0, empty slices,
// nil dates). A missing or blank identity field fails with SchemaViolation. Validate
// is pure and idempotent: validating PayloadOf(result) yields the same result.
func Validate(kind TaskKind, p ParsedPayload) (DomainResult, error) {
	v, ok := validators[kind]
	if !ok {
		return nil, InvalidInput("unknown task kind %q", kind)
	}
	if p == nil {
		return nil, schemaViolation("%s result is empty", kind)
	}
	return v(fields(p))
}

func validateDiet(f fields) (DomainResult, error) {
	title, err := f.required(TaskDiet, "title")
	if err != nil {
		return nil, err
	}

	meals := []Meal{}
	for _, m := range f.objects("meals") {
		meals = append(meals, Meal{
			Name:     m.text("name", Unknown),
			Time:     m.clock("time"),
			Items:    m.list("items"),
			Calories: m.amount("calories"),
			Notes:    m.text("notes", ""),
		})
	}

	daily := f.amount("daily_calories")
	if daily == 0 {
		for _, m := range meals {
			daily += m.Calories
		}
	}

	return DietPlan{
		Title:          title,
		Summary:        f.text("summary", Unknown),
		DietPreference: dietPreferences.normalize(f["diet_preference"]),
		DailyCalories:  daily,
		Meals:          meals,
		Hydration:      f.text("hydration", Unknown),
		Tips:           f.list("tips"),
		Avoid:          f.list("avoid"),
		EstimatedCost:  f.amount("estimated_cost"),
	}, nil
}

func validateExercise(f fields) (DomainResult, error) {
	title, err := f.required(TaskExercise, "title")
	if err != nil {
		return nil, err
	}

	exercises := []Exercise{}
	for _, e := range f.objects("exercises") {
		exercises = append(exercises, Exercise{
			Name:            e.text("name", Unknown),
			Sets:            e.integer("sets", 0, maxSets, 0),
			Reps:            e.integer("reps", 0, maxReps, 0),
			DurationMinutes: e.integer("duration_minutes", 0, maxMinutes, 0),
			RestSeconds:     e.integer("rest_seconds", 0, maxRestSeconds, 0),
			Instructions:    e.text("instructions", ""),
		})
	}

	return ExercisePlan{
		Title:           title,
		Goal:            f.text("goal", Unknown),
		Level:           activityLevels.normalize(f["level"]),
		DurationMinutes: f.integer("duration_minutes", 0, maxMinutes, 0),
		DaysPerWeek:     f.integer("days_per_week", 0, maxDaysPerWeek, 0),
		WarmUp:          f.list("warm_up"),
		Exercises:       exercises,
		CoolDown:        f.list("cool_down"),
		Precautions:     f.list("precautions"),
	}, nil
}

func validateYoga(f fields) (DomainResult, error) {
	title, err := f.required(TaskYoga, "title")
	if err != nil {
		return nil, err
	}

	poses := []YogaPose{}
	for _, p := range f.objects("poses") {
		poses = append(poses, YogaPose{
			Name:            p.text("name", Unknown),
			SanskritName:    p.text("sanskrit_name", Unknown),
			DurationMinutes: p.integer("duration_minutes", 0, maxMinutes, 0),
			Benefits:        p.text("benefits", ""),
			Steps:           p.list("steps"),
		})
	}

	return YogaPlan{
		Title:           title,
		Focus:           f.text("focus", Unknown),
		Level:           activityLevels.normalize(f["level"]),
		DurationMinutes: f.integer("duration_minutes", 0, maxMinutes, 0),
		Poses:           poses,
		Breathing:       f.list("breathing"),
		Precautions:     f.list("precautions"),
	}, nil
}

func validateDisease(f fields) (DomainResult, error) {
	disease, err := f.required(TaskDisease, "disease")
	if err != nil {
		return nil, err
	}

	return DiseaseGuidance{
		Disease:        disease,
		Severity:       severities.normalize(f["severity"]),
		Overview:       f.text("overview", Unknown),
		Instructions:   f.list("instructions"),
		DietAdvice:     f.list("diet_advice"),
		WarningSigns:   f.list("warning_signs"),
		SeeDoctorWhen:  f.text("see_doctor_when", Unknown),
		Specialization: f.text("specialization", Unknown),
	}, nil
}

func validateGoal(f fields) (DomainResult, error) {
	goal, err := f.required(TaskGoal, "goal")
	if err != nil {
		return nil, err
	}

	milestones := []Milestone{}
	for i, m := range f.objects("milestones") {
		target := m.text("target", "")
		if target == "" {
			continue
		}
		milestones = append(milestones, Milestone{
			Week:   m.integer("week", 1, maxWeeks, min(i+1, maxWeeks)),
			Target: target,
		})
	}

	return GoalPlan{
		Goal:          goal,
		TimelineWeeks: f.integer("timeline_weeks", 0, maxWeeks, 0),
		ActivityLevel: activityLevels.normalize(f["activity_level"]),
		Milestones:    milestones,
		DailyHabits:   f.list("daily_habits"),
		Metrics:       f.list("metrics"),
	}, nil
}

func validatePrescription(f fields) (DomainResult, error) {
	medicines := []Medicine{}
	for _, m := range f.objects("medicines") {
		name := m.text("name", "")
		if name == "" {
			continue
		}
		medicines = append(medicines, Medicine{
			Name:         name,
			Type:         medicineTypes.normalize(m["type"]),
			Dosage:       m.text("dosage", Unknown),
			Frequency:    m.text("frequency", Unknown),
			Duration:     m.text("duration", Unknown),
			Instructions: m.text("instructions", ""),
			Price:        m.amount("price"),
		})
	}

	total := f.amount("estimated_total")
	if total == 0 {
		for _, m := range medicines {
			total += m.Price
		}
		total = math.Round(total*100) / 100
	}

	return PrescriptionExtract{
		PatientName:    f.text("patient_name", Unknown),
		DoctorName:     f.text("doctor_name", Unknown),
		Date:           f.date("date"),
		Medicines:      medicines,
		Diagnosis:      f.text("diagnosis", Unknown),
		Notes:          f.text("notes", ""),
		FollowUpDate:   f.date("follow_up_date"),
		EstimatedTotal: total,
	}, nil
}

func validateAppointment(f fields) (DomainResult, error) {
	return AppointmentIntent{
		Doctor:         f.text("doctor", Unknown),
		Specialization: f.text("specialization", Unknown),
		Date:           f.date("date"),
		Time:           f.clock("time"),
		Reason:         f.text("reason", Unknown),
	}, nil
}

func validateChat(f fields) (DomainResult, error) {
	reply, err := f.required(TaskChat, "reply")
	if err != nil {
		return nil, err
	}

	return ChatTurn{
		Reply:       reply,
		Suggestions: f.list("suggestions"),
		Topic:       f.text("topic", "general"),
		Urgent:      f.flag("urgent"),
	}, nil
}
