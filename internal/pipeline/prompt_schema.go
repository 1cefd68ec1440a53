package pipeline

/* =================================================================================
						PROMPT ENGINEERING & GUARDRAILS
=================================================================================*/

/*
SystemPrompt defines the persona and the output contract shared by every task.
Task prompts append their own literal JSON shape below it.
*/
const SystemPrompt = `You are HealthMate, a careful personal health assistant.
You give safe, practical, personalized guidance on nutrition, exercise, yoga,
common conditions and healthy habits. You are not a replacement for a doctor.

DOMAIN RESTRICTION:
You only answer questions about health, nutrition, fitness and wellbeing.
For anything else, politely say that you can only help with health topics.

SAFETY RULES:
1. Never diagnose with certainty. Use cautious language.
2. When symptoms sound serious, advise seeing a doctor and name the specialization.
3. Respect every allergy and condition listed in the user profile.
4. Never invent medicines, dosages or prices that are not visible in the input.

RESPONSE FORMAT (CRITICAL):
- Respond with ONE valid JSON object and nothing else.
- Do NOT use markdown code fences. Do NOT add explanations or preamble.
- Include EVERY key of the requested structure. Never omit a key.
- If a value cannot be determined, use the string "Unknown" for text fields,
  0 for numbers and [] for lists.
- Dates are written as YYYY-MM-DD and times as HH:MM (24 hour clock).`

// outputRules is repeated at the end of every task prompt.
const outputRules = `
=== OUTPUT RULES ===
Return ONLY valid JSON matching the structure above.
No markdown, no code fences, no text before or after the JSON object.
Use "Unknown" for any field you cannot determine. Never omit a key.`

// --- Task shapes. Each is rendered literally into the prompt. ---

const dietShape = `{
  "title": "short plan title",
  "summary": "2-sentence overview of the plan",
  "diet_preference": "vegetarian | vegan | non_vegetarian | eggetarian | pescatarian | keto | other",
  "daily_calories": 1800,
  "meals": [
    {
      "name": "Breakfast",
      "time": "08:00",
      "items": ["food item with portion"],
      "calories": 400,
      "notes": "optional preparation note"
    }
  ],
  "hydration": "daily water guidance",
  "tips": ["practical tip"],
  "avoid": ["food or habit to avoid"],
  "estimated_cost": 250
}`

const exerciseShape = `{
  "title": "short plan title",
  "goal": "what the plan works towards",
  "level": "sedentary | light | moderate | active | very_active",
  "duration_minutes": 45,
  "days_per_week": 4,
  "warm_up": ["warm-up movement"],
  "exercises": [
    {
      "name": "exercise name",
      "sets": 3,
      "reps": 12,
      "duration_minutes": 0,
      "rest_seconds": 60,
      "instructions": "how to perform it safely"
    }
  ],
  "cool_down": ["cool-down movement"],
  "precautions": ["safety precaution"]
}`

const yogaShape = `{
  "title": "short routine title",
  "focus": "what the routine targets",
  "level": "sedentary | light | moderate | active | very_active",
  "duration_minutes": 30,
  "poses": [
    {
      "name": "English pose name",
      "sanskrit_name": "Sanskrit pose name",
      "duration_minutes": 2,
      "benefits": "one sentence",
      "steps": ["step"]
    }
  ],
  "breathing": ["pranayama or breathing exercise"],
  "precautions": ["safety precaution"]
}`

const diseaseShape = `{
  "disease": "most likely condition name",
  "severity": "mild | moderate | severe | critical",
  "overview": "2-sentence plain language explanation",
  "instructions": ["self-care instruction"],
  "diet_advice": ["diet advice"],
  "warning_signs": ["sign that needs urgent care"],
  "see_doctor_when": "when to see a doctor",
  "specialization": "doctor specialization to consult"
}`

const goalShape = `{
  "goal": "the goal restated as a measurable target",
  "timeline_weeks": 12,
  "activity_level": "sedentary | light | moderate | active | very_active",
  "milestones": [
    { "week": 4, "target": "measurable checkpoint" }
  ],
  "daily_habits": ["daily habit"],
  "metrics": ["what to track"]
}`

const prescriptionShape = `{
  "patient_name": "as written",
  "doctor_name": "as written",
  "date": "YYYY-MM-DD",
  "medicines": [
    {
      "name": "medicine name as written",
      "type": "tablet | capsule | syrup | injection | ointment | drops | inhaler | other",
      "dosage": "e.g. 500 mg",
      "frequency": "e.g. twice daily",
      "duration": "e.g. 5 days",
      "instructions": "e.g. after food",
      "price": 0
    }
  ],
  "diagnosis": "as written",
  "notes": "other legible notes",
  "follow_up_date": "YYYY-MM-DD",
  "estimated_total": 0
}`

const appointmentShape = `{
  "doctor": "doctor name mentioned, or Unknown",
  "specialization": "specialization needed",
  "date": "YYYY-MM-DD",
  "time": "HH:MM",
  "reason": "short reason for the visit"
}`

const chatShape = `{
  "reply": "your answer to the latest message",
  "suggestions": ["short follow-up question the user could ask"],
  "topic": "one or two word topic",
  "urgent": false
}`
