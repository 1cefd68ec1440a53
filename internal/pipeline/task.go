/*
Package pipeline turns loosely specified health requests into validated, typed
results by driving a generative model provider.

Every task follows the same skeleton: BuildPrompt -> provider call -> Extract ->
Validate -> business rule. The per-task differences live in a dispatch table
keyed by TaskKind (see dispatch.go).
*/
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"HealthMate_V0.1/internal/chat"
)

// TaskKind names one of the supported generation domains.
type TaskKind string

const (
	TaskDiet         TaskKind = "diet"
	TaskExercise     TaskKind = "exercise"
	TaskYoga         TaskKind = "yoga"
	TaskDisease      TaskKind = "disease"
	TaskGoal         TaskKind = "goal"
	TaskPrescription TaskKind = "prescription"
	TaskAppointment  TaskKind = "appointment"
	TaskChat         TaskKind = "chat"
)

// TaskKinds lists every supported kind in a stable order.
var TaskKinds = []TaskKind{
	TaskDiet, TaskExercise, TaskYoga, TaskDisease, TaskGoal,
	TaskPrescription, TaskAppointment, TaskChat,
}

// ParseTaskKind maps a caller-supplied name onto a TaskKind.
func ParseTaskKind(s string) (TaskKind, error) {
	k := TaskKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range TaskKinds {
		if k == known {
			return k, nil
		}
	}
	return "", InvalidInput("unknown task kind %q", s)
}

// HealthProfile is the optional user context rendered into prompts.
// Every field may be absent; an absent profile yields the generic prompt variant.
type HealthProfile struct {
	Age            *int     `json:"age,omitempty"`
	Gender         *string  `json:"gender,omitempty"`
	WeightKg       *float64 `json:"weight_kg,omitempty"`
	HeightCm       *float64 `json:"height_cm,omitempty"`
	DietPreference *string  `json:"diet_preference,omitempty"`
	ActivityLevel  *string  `json:"activity_level,omitempty"`
	Goals          []string `json:"goals,omitempty"`
	Conditions     []string `json:"conditions,omitempty"`
	Allergies      []string `json:"allergies,omitempty"`
}

// TaskRequest is the immutable input of a dispatch. The dispatcher only ever works
// on its own copy when it needs to fill Today or History.
type TaskRequest struct {
	Kind        TaskKind
	Profile     *HealthProfile
	Instruction string

	// Attachment carries the image bytes for prescription OCR.
	Attachment []byte
	MediaType  string

	// SessionID identifies the conversation for chat turns.
	SessionID string

	// Today is the reference day rendered into prompts. Zero means "use the dispatcher clock".
	Today time.Time

	// History is filled by the chat dispatcher: prior turns, oldest first.
	History []chat.Turn
}

// PromptSpec is a provider-ready prompt. Built fresh per call.
type PromptSpec struct {
	Kind       TaskKind
	System     string
	Text       string
	Image      []byte
	MediaType  string
	ExpectJSON bool
}

// ParsedPayload is the untyped decode of a model response. It never leaves the
// pipeline: Validate turns it into a DomainResult.
type ParsedPayload map[string]any

func (k TaskKind) String() string { return string(k) }

func (p PromptSpec) String() string {
	return fmt.Sprintf("PromptSpec{kind=%s, text=%d bytes, image=%d bytes}", p.Kind, len(p.Text), len(p.Image))
}
