package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"HealthMate_V0.1/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider replays canned responses and records every prompt it receives.
type fakeProvider struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []PromptSpec
	block   bool
}

func (f *fakeProvider) Generate(ctx context.Context, p PromptSpec) (RawModelResponse, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	var text string
	if len(f.replies) > 0 {
		text = f.replies[0]
		f.replies = f.replies[1:]
	}
	err, block := f.err, f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return RawModelResponse{}, ctx.Err()
	}
	if err != nil {
		return RawModelResponse{}, err
	}
	return RawModelResponse{Text: text, Provider: "fake", Model: "fake-1"}, nil
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

var fixedNow = time.Date(2025, 10, 20, 11, 0, 0, 0, time.UTC)

func newTestDispatcher(p Provider, opts ...Option) *Dispatcher {
	base := []Option{WithClock(func() time.Time { return fixedNow }), WithLocation(time.UTC)}
	return NewDispatcher(p, append(base, opts...)...)
}

func TestDispatchDietHappyPath(t *testing.T) {
	p := &fakeProvider{replies: []string{"```json\n" + `{"title":"Plan","meals":[{"name":"Lunch","calories":"500"}]}` + "\n```"}}
	d := newTestDispatcher(p)

	plan, err := Run[DietPlan](context.Background(), d, TaskRequest{Kind: TaskDiet})
	require.NoError(t, err)

	assert.Equal(t, "Plan", plan.Title)
	require.Len(t, plan.Meals, 1)
	assert.InDelta(t, 500, plan.Meals[0].Calories, 1e-9)
	assert.Equal(t, 1, p.calls())
	assert.Contains(t, p.prompts[0].Text, "Today is 2025-10-20")
}

func TestDispatchDietWithoutMealsViolatesSchema(t *testing.T) {
	p := &fakeProvider{replies: []string{`{"title":"Plan"}`}}
	d := newTestDispatcher(p)

	_, err := d.Dispatch(context.Background(), TaskRequest{Kind: TaskDiet})

	assert.True(t, IsKind(err, KindSchemaViolation), "got %v", err)
}

func TestDispatchBusinessRules(t *testing.T) {
	tests := []struct {
		kind  TaskKind
		reply string
		instr string
	}{
		{TaskExercise, `{"title":"x","exercises":[]}`, ""},
		{TaskYoga, `{"title":"x","poses":[]}`, ""},
		{TaskDisease, `{"disease":"Flu","instructions":["Unknown"]}`, "fever"},
		{TaskGoal, `{"goal":"Run","milestones":[{"week":2}]}`, "run a 5k"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			d := newTestDispatcher(&fakeProvider{replies: []string{tt.reply}})
			_, err := d.Dispatch(context.Background(), TaskRequest{Kind: tt.kind, Instruction: tt.instr})
			assert.True(t, IsKind(err, KindSchemaViolation), "got %v", err)
		})
	}
}

func TestDispatchEntryChecksSkipProvider(t *testing.T) {
	tests := []struct {
		name string
		req  TaskRequest
	}{
		{"unknown kind", TaskRequest{Kind: "astrology"}},
		{"disease without instruction", TaskRequest{Kind: TaskDisease}},
		{"appointment without instruction", TaskRequest{Kind: TaskAppointment, Instruction: "  "}},
		{"goal without goal", TaskRequest{Kind: TaskGoal, Profile: &HealthProfile{}}},
		{"prescription without image", TaskRequest{Kind: TaskPrescription}},
		{"prescription with text file", TaskRequest{Kind: TaskPrescription, Attachment: []byte("just some text")}},
		{"prescription too large", TaskRequest{Kind: TaskPrescription, Attachment: make([]byte, MaxAttachmentBytes+1), MediaType: "image/png"}},
		{"chat without session", TaskRequest{Kind: TaskChat, Instruction: "hi"}},
		{"chat without message", TaskRequest{Kind: TaskChat, SessionID: "s1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{replies: []string{`{}`}}
			d := newTestDispatcher(p)

			_, err := d.Dispatch(context.Background(), tt.req)

			assert.True(t, IsKind(err, KindInvalidInput), "got %v", err)
			assert.Zero(t, p.calls())
		})
	}
}

func TestDispatchGoalFromProfile(t *testing.T) {
	p := &fakeProvider{replies: []string{`{"goal":"Lose 5 kg","milestones":[{"week":4,"target":"Lose 2 kg"}]}`}}
	d := newTestDispatcher(p)

	plan, err := Run[GoalPlan](context.Background(), d, TaskRequest{
		Kind:    TaskGoal,
		Profile: &HealthProfile{Goals: []string{"lose 5 kg"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Lose 5 kg", plan.Goal)
}

func TestDispatchPrescriptionSniffsMediaType(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	p := &fakeProvider{replies: []string{`{"medicines":[{"name":"Amoxicillin","type":"caps"}]}`}}
	d := newTestDispatcher(p)

	rx, err := Run[PrescriptionExtract](context.Background(), d, TaskRequest{Kind: TaskPrescription, Attachment: png})
	require.NoError(t, err)

	require.Len(t, rx.Medicines, 1)
	assert.Equal(t, MedicineCapsule, rx.Medicines[0].Type)
	require.Equal(t, 1, p.calls())
	assert.Equal(t, "image/png", p.prompts[0].MediaType)
	assert.Equal(t, png, p.prompts[0].Image)
}

func TestDispatchAppointment(t *testing.T) {
	t.Run("future date", func(t *testing.T) {
		d := newTestDispatcher(&fakeProvider{replies: []string{`{"doctor":"Dr. Lee","date":"2025-10-21","time":"3 PM"}`}})
		intent, err := Run[AppointmentIntent](context.Background(), d, TaskRequest{Kind: TaskAppointment, Instruction: "see Dr. Lee tomorrow at 3"})
		require.NoError(t, err)
		assert.Equal(t, "2025-10-21", *intent.Date)
		assert.Equal(t, "15:00", *intent.Time)
	})

	t.Run("today is allowed", func(t *testing.T) {
		d := newTestDispatcher(&fakeProvider{replies: []string{`{"date":"2025-10-20"}`}})
		_, err := d.Dispatch(context.Background(), TaskRequest{Kind: TaskAppointment, Instruction: "today"})
		assert.NoError(t, err)
	})

	t.Run("past date", func(t *testing.T) {
		d := newTestDispatcher(&fakeProvider{replies: []string{`{"doctor":"Dr. Lee","date":"2025-10-19"}`}})
		_, err := d.Dispatch(context.Background(), TaskRequest{Kind: TaskAppointment, Instruction: "yesterday"})
		assert.True(t, IsKind(err, KindPastDateRequested), "got %v", err)
	})

	t.Run("unparseable date", func(t *testing.T) {
		d := newTestDispatcher(&fakeProvider{replies: []string{`{"doctor":"Dr. Lee","date":"whenever"}`}})
		intent, err := Run[AppointmentIntent](context.Background(), d, TaskRequest{Kind: TaskAppointment, Instruction: "sometime"})
		require.NoError(t, err)
		assert.Nil(t, intent.Date)
	})
}

func TestDispatchProviderFailure(t *testing.T) {
	d := newTestDispatcher(&fakeProvider{err: errors.New("401 unauthorized")})

	_, err := d.Dispatch(context.Background(), TaskRequest{Kind: TaskDiet})

	assert.True(t, IsKind(err, KindProviderUnavailable))
}

func TestDispatchProviderTimeout(t *testing.T) {
	p := &fakeProvider{block: true}
	d := newTestDispatcher(p, WithTimeout(20*time.Millisecond))

	_, err := d.Dispatch(context.Background(), TaskRequest{Kind: TaskDiet})

	require.True(t, IsKind(err, KindProviderUnavailable))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, p.calls())
}

func TestDispatchMalformedResponseKeepsRawOutOfOutcome(t *testing.T) {
	raw := "I cannot produce JSON today."
	d := newTestDispatcher(&fakeProvider{replies: []string{raw}})

	r, err := d.Dispatch(context.Background(), TaskRequest{Kind: TaskYoga})
	require.True(t, IsKind(err, KindMalformedResponse))

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, raw, pe.Raw)

	out := OutcomeOf(r, err)
	assert.False(t, out.OK)
	assert.Equal(t, KindMalformedResponse, out.Kind)
	assert.NotContains(t, out.Detail, raw)
}

func TestDispatchDoesNotRetry(t *testing.T) {
	p := &fakeProvider{replies: []string{"garbage", `{"title":"ok","poses":[{"name":"Tree"}]}`}}
	d := newTestDispatcher(p)

	_, err := d.Dispatch(context.Background(), TaskRequest{Kind: TaskYoga})

	assert.Error(t, err)
	assert.Equal(t, 1, p.calls())
}

func TestDispatchDoesNotMutateCallerRequest(t *testing.T) {
	p := &fakeProvider{replies: []string{`{"reply":"hello"}`}}
	d := newTestDispatcher(p)
	req := TaskRequest{Kind: TaskChat, SessionID: "s1", Instruction: "  hi  "}

	_, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, req.Today.IsZero())
	assert.Nil(t, req.History)
	assert.Equal(t, "  hi  ", req.Instruction)
}

func TestDispatchChatRecordsTurns(t *testing.T) {
	p := &fakeProvider{replies: []string{
		`{"reply":"Drink about 2 litres."}`,
		`{"reply":"Less before bed."}`,
	}}
	store := chat.NewStore(10)
	d := newTestDispatcher(p, WithChatStore(store))

	first, err := Run[ChatTurn](context.Background(), d, TaskRequest{Kind: TaskChat, SessionID: "s1", Instruction: "How much water?"})
	require.NoError(t, err)
	assert.Equal(t, "Drink about 2 litres.", first.Reply)

	_, err = Run[ChatTurn](context.Background(), d, TaskRequest{Kind: TaskChat, SessionID: "s1", Instruction: "And at night?"})
	require.NoError(t, err)

	history := store.Context("s1")
	require.Len(t, history, 4)
	assert.Equal(t, chat.RoleUser, history[0].Role)
	assert.Equal(t, chat.RoleAssistant, history[1].Role)
	assert.Equal(t, "Less before bed.", history[3].Text)

	// The second prompt saw the first exchange but not itself as history.
	second := p.prompts[1].Text
	assert.Contains(t, second, "User: How much water?")
	assert.Contains(t, second, "Assistant: Drink about 2 litres.")
	assert.NotContains(t, second, "User: And at night?")
	assert.Contains(t, second, "=== LATEST MESSAGE ===\nAnd at night?")
}

func TestDispatchChatFailureKeepsUserTurnOnly(t *testing.T) {
	store := chat.NewStore(10)
	d := newTestDispatcher(&fakeProvider{replies: []string{`{"topic":"x"}`}}, WithChatStore(store))

	_, err := d.Dispatch(context.Background(), TaskRequest{Kind: TaskChat, SessionID: "s1", Instruction: "hello"})

	assert.True(t, IsKind(err, KindSchemaViolation))
	history := store.Context("s1")
	require.Len(t, history, 1)
	assert.Equal(t, chat.RoleUser, history[0].Role)
}

func TestRunWrongTypeIsInvalidInput(t *testing.T) {
	d := newTestDispatcher(&fakeProvider{replies: []string{`{"title":"Plan","meals":[{"name":"x"}]}`}})

	_, err := Run[YogaPlan](context.Background(), d, TaskRequest{Kind: TaskDiet})

	assert.True(t, IsKind(err, KindInvalidInput))
}

func TestOutcomeOf(t *testing.T) {
	ok := OutcomeOf(ChatTurn{Reply: "hi"}, nil)
	assert.True(t, ok.OK)
	assert.Equal(t, ChatTurn{Reply: "hi"}, ok.Value)

	bad := OutcomeOf(nil, PastDateRequested("2025-01-01"))
	assert.False(t, bad.OK)
	assert.Equal(t, KindPastDateRequested, bad.Kind)
	assert.Contains(t, bad.Detail, "2025-01-01")

	other := OutcomeOf(nil, errors.New("boom"))
	assert.Equal(t, KindProviderUnavailable, other.Kind)
	assert.NotContains(t, other.Detail, "boom")
}
