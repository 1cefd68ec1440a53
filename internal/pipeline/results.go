package pipeline

import (
	"encoding/json"
	"fmt"
)

/* =================================================================================
								DOMAIN RESULTS
	Fully validated, typed outputs. Every field is populated; slices are never nil.
=================================================================================*/

// DomainResult is implemented by every validated task output.
type DomainResult interface {
	TaskKind() TaskKind
}

// Unknown is the sentinel the model is told to use for undeterminable fields,
// and the default substituted for missing optional text.
const Unknown = "Unknown"

// --- Enumerations ---

type DietPreference string

const (
	DietVegetarian    DietPreference = "vegetarian"
	DietVegan         DietPreference = "vegan"
	DietNonVegetarian DietPreference = "non_vegetarian"
	DietEggetarian    DietPreference = "eggetarian"
	DietPescatarian   DietPreference = "pescatarian"
	DietKeto          DietPreference = "keto"
	DietOther         DietPreference = "other"
)

type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
	ActivityUnknown    ActivityLevel = "unknown"
)

type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityCritical Severity = "critical"
	SeverityUnknown  Severity = "unknown"
)

type MedicineType string

const (
	MedicineTablet    MedicineType = "tablet"
	MedicineCapsule   MedicineType = "capsule"
	MedicineSyrup     MedicineType = "syrup"
	MedicineInjection MedicineType = "injection"
	MedicineOintment  MedicineType = "ointment"
	MedicineDrops     MedicineType = "drops"
	MedicineInhaler   MedicineType = "inhaler"
	MedicineOther     MedicineType = "other"
)

// --- Diet ---

type Meal struct {
	Name     string   `json:"name"`
	Time     *string  `json:"time"`
	Items    []string `json:"items"`
	Calories float64  `json:"calories"`
	Notes    string   `json:"notes"`
}

type DietPlan struct {
	Title          string         `json:"title"`
	Summary        string         `json:"summary"`
	DietPreference DietPreference `json:"diet_preference"`
	DailyCalories  float64        `json:"daily_calories"`
	Meals          []Meal         `json:"meals"`
	Hydration      string         `json:"hydration"`
	Tips           []string       `json:"tips"`
	Avoid          []string       `json:"avoid"`
	EstimatedCost  float64        `json:"estimated_cost"`
}

// --- Exercise ---

type Exercise struct {
	Name            string `json:"name"`
	Sets            int    `json:"sets"`
	Reps            int    `json:"reps"`
	DurationMinutes int    `json:"duration_minutes"`
	RestSeconds     int    `json:"rest_seconds"`
	Instructions    string `json:"instructions"`
}

type ExercisePlan struct {
	Title           string        `json:"title"`
	Goal            string        `json:"goal"`
	Level           ActivityLevel `json:"level"`
	DurationMinutes int           `json:"duration_minutes"`
	DaysPerWeek     int           `json:"days_per_week"`
	WarmUp          []string      `json:"warm_up"`
	Exercises       []Exercise    `json:"exercises"`
	CoolDown        []string      `json:"cool_down"`
	Precautions     []string      `json:"precautions"`
}

// --- Yoga ---

type YogaPose struct {
	Name            string   `json:"name"`
	SanskritName    string   `json:"sanskrit_name"`
	DurationMinutes int      `json:"duration_minutes"`
	Benefits        string   `json:"benefits"`
	Steps           []string `json:"steps"`
}

type YogaPlan struct {
	Title           string        `json:"title"`
	Focus           string        `json:"focus"`
	Level           ActivityLevel `json:"level"`
	DurationMinutes int           `json:"duration_minutes"`
	Poses           []YogaPose    `json:"poses"`
	Breathing       []string      `json:"breathing"`
	Precautions     []string      `json:"precautions"`
}

// --- Disease guidance ---

type DiseaseGuidance struct {
	Disease        string   `json:"disease"`
	Severity       Severity `json:"severity"`
	Overview       string   `json:"overview"`
	Instructions   []string `json:"instructions"`
	DietAdvice     []string `json:"diet_advice"`
	WarningSigns   []string `json:"warning_signs"`
	SeeDoctorWhen  string   `json:"see_doctor_when"`
	Specialization string   `json:"specialization"`
}

// --- Goal plan ---

type Milestone struct {
	Week   int    `json:"week"`
	Target string `json:"target"`
}

type GoalPlan struct {
	Goal          string        `json:"goal"`
	TimelineWeeks int           `json:"timeline_weeks"`
	ActivityLevel ActivityLevel `json:"activity_level"`
	Milestones    []Milestone   `json:"milestones"`
	DailyHabits   []string      `json:"daily_habits"`
	Metrics       []string      `json:"metrics"`
}

// --- Prescription OCR ---

type Medicine struct {
	Name         string       `json:"name"`
	Type         MedicineType `json:"type"`
	Dosage       string       `json:"dosage"`
	Frequency    string       `json:"frequency"`
	Duration     string       `json:"duration"`
	Instructions string       `json:"instructions"`
	Price        float64      `json:"price"`
}

type PrescriptionExtract struct {
	PatientName    string     `json:"patient_name"`
	DoctorName     string     `json:"doctor_name"`
	Date           *string    `json:"date"`
	Medicines      []Medicine `json:"medicines"`
	Diagnosis      string     `json:"diagnosis"`
	Notes          string     `json:"notes"`
	FollowUpDate   *string    `json:"follow_up_date"`
	EstimatedTotal float64    `json:"estimated_total"`
}

// --- Appointment intent ---

type AppointmentIntent struct {
	Doctor         string  `json:"doctor"`
	Specialization string  `json:"specialization"`
	Date           *string `json:"date"`
	Time           *string `json:"time"`
	Reason         string  `json:"reason"`
}

// --- Chat ---

type ChatTurn struct {
	Reply       string   `json:"reply"`
	Suggestions []string `json:"suggestions"`
	Topic       string   `json:"topic"`
	Urgent      bool     `json:"urgent"`
}

func (DietPlan) TaskKind() TaskKind            { return TaskDiet }
func (ExercisePlan) TaskKind() TaskKind        { return TaskExercise }
func (YogaPlan) TaskKind() TaskKind            { return TaskYoga }
func (DiseaseGuidance) TaskKind() TaskKind     { return TaskDisease }
func (GoalPlan) TaskKind() TaskKind            { return TaskGoal }
func (PrescriptionExtract) TaskKind() TaskKind { return TaskPrescription }
func (AppointmentIntent) TaskKind() TaskKind   { return TaskAppointment }
func (ChatTurn) TaskKind() TaskKind            { return TaskChat }

// PayloadOf converts a validated result back into its untyped form. Validate is a
// fixed point over this conversion.
func PayloadOf(r DomainResult) (ParsedPayload, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s result: %w", r.TaskKind(), err)
	}
	var p ParsedPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("failed to decode %s result: %w", r.TaskKind(), err)
	}
	return p, nil
}
