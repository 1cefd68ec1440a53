package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"HealthMate_V0.1/internal/chat"
)

// taskPrompt is the per-kind part of a prompt.
type taskPrompt struct {
	task  string // what the model must do
	shape string // literal JSON structure
	// fallback replaces the request section when the caller sent no instruction.
	fallback string
}

var taskPrompts = map[TaskKind]taskPrompt{
	TaskDiet: {
		task:     "Create a one-day diet plan for the user.",
		shape:    dietShape,
		fallback: "No specific request. Create a balanced plan that fits the profile.",
	},
	TaskExercise: {
		task:     "Create a weekly exercise plan for the user.",
		shape:    exerciseShape,
		fallback: "No specific request. Create a safe general fitness plan that fits the profile.",
	},
	TaskYoga: {
		task:     "Create a yoga routine for the user.",
		shape:    yogaShape,
		fallback: "No specific request. Create a gentle routine for general wellbeing.",
	},
	TaskDisease: {
		task:  "The user describes a condition or symptoms. Give self-care guidance and say when to see a doctor.",
		shape: diseaseShape,
	},
	TaskGoal: {
		task:     "Turn the user's health goal into a week-by-week plan with measurable milestones.",
		shape:    goalShape,
		fallback: "Use the goals listed in the profile.",
	},
	TaskPrescription: {
		task: "The attached image is a medical prescription. Read it and extract its contents. " +
			"Copy names exactly as written. Use \"Unknown\" for anything that is not legible. " +
			"Estimate typical retail prices only when you are confident, otherwise use 0.",
		shape: prescriptionShape,
	},
	TaskAppointment: {
		task: "The user asks for a doctor's appointment in their own words. Extract the booking request. " +
			"Resolve relative days such as \"tomorrow\" or \"next Monday\" against today's date.",
		shape: appointmentShape,
	},
	TaskChat: {
		task:  "Continue the conversation. Answer the latest message using the conversation so far.",
		shape: chatShape,
	},
}

/*
BuildPrompt renders the provider-ready prompt for kind. It is pure: the same
request always yields the same PromptSpec, and nothing outside the request is read.

A nil or empty profile selects the generic variant; it never fails.
*/
func BuildPrompt(kind TaskKind, req TaskRequest) (PromptSpec, error) {
	tp, ok := taskPrompts[kind]
	if !ok {
		return PromptSpec{}, InvalidInput("unknown task kind %q", kind)
	}

	var b strings.Builder

	// 1. Task
	b.WriteString("=== TASK ===\n")
	b.WriteString(tp.task)
	b.WriteString("\n\n")

	// 2. Reference day
	if !req.Today.IsZero() {
		fmt.Fprintf(&b, "=== CONTEXT ===\nToday is %s (%s).\n\n", req.Today.Format(DateLayout), req.Today.Weekday())
	}

	// 3. Profile
	b.WriteString(renderProfile(req.Profile))
	b.WriteString("\n")

	// 4. Conversation (chat only)
	if kind == TaskChat {
		b.WriteString(renderHistory(req.History))
		b.WriteString("\n=== LATEST MESSAGE ===\n")
		b.WriteString(strings.TrimSpace(req.Instruction))
		b.WriteString("\n\n")
	} else {
		// 5. Request
		b.WriteString("=== USER REQUEST ===\n")
		if instr := strings.TrimSpace(req.Instruction); instr != "" {
			b.WriteString(instr)
		} else if tp.fallback != "" {
			b.WriteString(tp.fallback)
		} else {
			b.WriteString("No additional details were given.")
		}
		b.WriteString("\n\n")
	}

	// 6. Shape and rules
	b.WriteString("=== REQUIRED JSON STRUCTURE ===\n")
	b.WriteString(tp.shape)
	b.WriteString("\n")
	b.WriteString(outputRules)

	spec := PromptSpec{
		Kind:       kind,
		System:     SystemPrompt,
		Text:       b.String(),
		ExpectJSON: true,
	}
	if kind == TaskPrescription && len(req.Attachment) > 0 {
		spec.Image = req.Attachment
		spec.MediaType = req.MediaType
	}
	return spec, nil
}

// renderProfile lists only the fields that are set.
func renderProfile(p *HealthProfile) string {
	var lines []string
	if p != nil {
		if p.Age != nil {
			lines = append(lines, "- Age: "+strconv.Itoa(*p.Age))
		}
		if p.Gender != nil && *p.Gender != "" {
			lines = append(lines, "- Gender: "+*p.Gender)
		}
		if p.WeightKg != nil {
			lines = append(lines, "- Weight: "+strconv.FormatFloat(*p.WeightKg, 'f', -1, 64)+" kg")
		}
		if p.HeightCm != nil {
			lines = append(lines, "- Height: "+strconv.FormatFloat(*p.HeightCm, 'f', -1, 64)+" cm")
		}
		if p.DietPreference != nil && *p.DietPreference != "" {
			lines = append(lines, "- Diet preference: "+*p.DietPreference)
		}
		if p.ActivityLevel != nil && *p.ActivityLevel != "" {
			lines = append(lines, "- Activity level: "+*p.ActivityLevel)
		}
		if len(p.Goals) > 0 {
			lines = append(lines, "- Goals: "+strings.Join(p.Goals, ", "))
		}
		if len(p.Conditions) > 0 {
			lines = append(lines, "- Conditions: "+strings.Join(p.Conditions, ", "))
		}
		if len(p.Allergies) > 0 {
			lines = append(lines, "- Allergies: "+strings.Join(p.Allergies, ", "))
		}
	}

	if len(lines) == 0 {
		return "=== USER HEALTH PROFILE ===\nNo profile is available. Give general guidance suitable for a healthy adult.\n"
	}
	return "=== USER HEALTH PROFILE ===\n" + strings.Join(lines, "\n") + "\n"
}

func renderHistory(turns []chat.Turn) string {
	if len(turns) == 0 {
		return "=== CONVERSATION SO FAR ===\nThis is the first message.\n"
	}
	var b strings.Builder
	b.WriteString("=== CONVERSATION SO FAR ===\n")
	for _, t := range turns {
		speaker := "User"
		if t.Role == chat.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, t.Text)
	}
	return b.String()
}
