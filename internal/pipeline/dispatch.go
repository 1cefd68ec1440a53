package pipeline

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"HealthMate_V0.1/internal/chat"
	"github.com/rs/zerolog"
)

// Provider is the model boundary: a prompt with an optional image goes in, text comes out.
// Implementations make exactly one attempt per call and honor ctx.
type Provider interface {
	Generate(ctx context.Context, prompt PromptSpec) (RawModelResponse, error)
}

// RawModelResponse is the untrusted provider output.
type RawModelResponse struct {
	Text     string
	Sent     []byte // exact request body, for diagnostics
	Model    string
	Provider string
}

const (
	// DefaultTimeout bounds a single provider call.
	DefaultTimeout = 60 * time.Second

	// MaxAttachmentBytes caps prescription images.
	MaxAttachmentBytes = 10 << 20
)

var acceptedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

/* =================================================================================
								DISPATCH TABLE
=================================================================================*/

// taskSpec holds what differs between tasks. Prompt rendering and validation are
// looked up by kind in taskPrompts and validators.
type taskSpec struct {
	// check rejects unusable requests before any provider call. It may normalize the copy.
	check func(req *TaskRequest) error
	// rule applies the domain business rule to a validated result.
	rule func(req TaskRequest, r DomainResult) error
}

var dispatchTable = map[TaskKind]taskSpec{
	TaskDiet: {
		rule: func(_ TaskRequest, r DomainResult) error {
			if len(r.(DietPlan).Meals) == 0 {
				return schemaViolation("diet plan contains no meals")
			}
			return nil
		},
	},
	TaskExercise: {
		rule: func(_ TaskRequest, r DomainResult) error {
			if len(r.(ExercisePlan).Exercises) == 0 {
				return schemaViolation("exercise plan contains no exercises")
			}
			return nil
		},
	},
	TaskYoga: {
		rule: func(_ TaskRequest, r DomainResult) error {
			if len(r.(YogaPlan).Poses) == 0 {
				return schemaViolation("yoga plan contains no poses")
			}
			return nil
		},
	},
	TaskDisease: {
		check: requireInstruction("describe the condition or symptoms"),
		rule: func(_ TaskRequest, r DomainResult) error {
			if len(r.(DiseaseGuidance).Instructions) == 0 {
				return schemaViolation("disease guidance contains no instructions")
			}
			return nil
		},
	},
	TaskGoal: {
		check: func(req *TaskRequest) error {
			if strings.TrimSpace(req.Instruction) != "" {
				return nil
			}
			if req.Profile != nil && len(req.Profile.Goals) > 0 {
				return nil
			}
			return InvalidInput("a goal is required, either in the request or in the health profile")
		},
		rule: func(_ TaskRequest, r DomainResult) error {
			if len(r.(GoalPlan).Milestones) == 0 {
				return schemaViolation("goal plan contains no milestones")
			}
			return nil
		},
	},
	TaskPrescription: {
		check: checkAttachment,
	},
	TaskAppointment: {
		check: requireInstruction("describe the appointment you want"),
		rule: func(req TaskRequest, r DomainResult) error {
			intent := r.(AppointmentIntent)
			if intent.Date == nil {
				return nil
			}
			// Canonical dates compare correctly as strings.
			if *intent.Date < req.Today.Format(DateLayout) {
				return PastDateRequested(*intent.Date)
			}
			return nil
		},
	},
	TaskChat: {
		check: func(req *TaskRequest) error {
			if strings.TrimSpace(req.SessionID) == "" {
				return InvalidInput("a chat session id is required")
			}
			return requireInstruction("message must not be empty")(req)
		},
	},
}

func requireInstruction(hint string) func(*TaskRequest) error {
	return func(req *TaskRequest) error {
		if strings.TrimSpace(req.Instruction) == "" {
			return InvalidInput("instruction is required: %s", hint)
		}
		return nil
	}
}

// checkAttachment requires an image of an accepted type under MaxAttachmentBytes.
// An empty media type is sniffed from the bytes.
func checkAttachment(req *TaskRequest) error {
	if len(req.Attachment) == 0 {
		return InvalidInput("a prescription image is required")
	}
	if len(req.Attachment) > MaxAttachmentBytes {
		return InvalidInput("prescription image exceeds %d bytes", MaxAttachmentBytes)
	}

	mediaType := strings.TrimSpace(req.MediaType)
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = http.DetectContentType(req.Attachment)
	}
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	if !acceptedImageTypes[mediaType] {
		return InvalidInput("unsupported image type %q", mediaType)
	}
	req.MediaType = mediaType
	return nil
}

/* =================================================================================
								DISPATCHER
=================================================================================*/

// Dispatcher runs the task pipeline: BuildPrompt, one provider call, Extract,
// Validate and the business rule. It is safe for concurrent use.
type Dispatcher struct {
	provider Provider
	chats    *chat.Store
	now      func() time.Time
	loc      *time.Location
	timeout  time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithChatStore sets the session store used for chat turns.
func WithChatStore(s *chat.Store) Option {
	return func(d *Dispatcher) { d.chats = s }
}

// WithClock overrides the clock used to resolve "today".
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithLocation sets the zone in which "today" is computed.
func WithLocation(loc *time.Location) Option {
	return func(d *Dispatcher) {
		if loc != nil {
			d.loc = loc
		}
	}
}

// WithTimeout bounds each provider call. Non-positive disables the bound.
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = t }
}

func NewDispatcher(p Provider, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		provider: p,
		now:      time.Now,
		loc:      time.Local,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.chats == nil {
		d.chats = chat.NewStore(chat.DefaultMaxTurns)
	}
	return d
}

// Chats exposes the session store, for transports that read history.
func (d *Dispatcher) Chats() *chat.Store { return d.chats }

// Today returns the current day in the dispatcher's location.
func (d *Dispatcher) Today() time.Time {
	now := d.now().In(d.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, d.loc)
}

// Dispatch runs req through its task pipeline. req is taken by value and is never
// modified as seen by the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, req TaskRequest) (DomainResult, error) {
	spec, ok := dispatchTable[req.Kind]
	if !ok {
		return nil, InvalidInput("unknown task kind %q", req.Kind)
	}
	if spec.check != nil {
		if err := spec.check(&req); err != nil {
			return nil, err
		}
	}
	if req.Today.IsZero() {
		req.Today = d.Today()
	}

	if req.Kind == TaskChat {
		return d.dispatchChat(ctx, spec, req)
	}
	return d.run(ctx, spec, req)
}

// Run dispatches req and returns the result as its concrete type.
func Run[T DomainResult](ctx context.Context, d *Dispatcher, req TaskRequest) (T, error) {
	var zero T
	r, err := d.Dispatch(ctx, req)
	if err != nil {
		return zero, err
	}
	v, ok := r.(T)
	if !ok {
		return zero, InvalidInput("task %s does not produce %T", req.Kind, zero)
	}
	return v, nil
}

func (d *Dispatcher) dispatchChat(ctx context.Context, spec taskSpec, req TaskRequest) (DomainResult, error) {
	message := strings.TrimSpace(req.Instruction)

	// The user turn is recorded before the provider call so that concurrent
	// messages on the same session keep their order.
	history := d.chats.AppendTurn(req.SessionID, chat.RoleUser, message)
	req.History = history[:len(history)-1]
	req.Instruction = message

	result, err := d.run(ctx, spec, req)
	if err != nil {
		return nil, err
	}

	turn := result.(ChatTurn)
	d.chats.AppendTurn(req.SessionID, chat.RoleAssistant, turn.Reply)
	return turn, nil
}

func (d *Dispatcher) run(ctx context.Context, spec taskSpec, req TaskRequest) (DomainResult, error) {
	logger := zerolog.Ctx(ctx).With().Str("task", string(req.Kind)).Logger()
	start := time.Now()

	// 1. Render
	prompt, err := BuildPrompt(req.Kind, req)
	if err != nil {
		return nil, err
	}

	// 2. Single provider call, no retry
	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	raw, err := d.provider.Generate(callCtx, prompt)
	if err != nil {
		logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("Model provider call failed")
		detail := "model provider is unavailable"
		if errors.Is(err, context.DeadlineExceeded) {
			detail = "model provider did not respond in time"
		}
		return nil, &Error{Kind: KindProviderUnavailable, Detail: detail, Err: err}
	}
	logger.Debug().
		Str("provider", raw.Provider).
		Str("model", raw.Model).
		Str("raw_response", raw.Text).
		Msg("Model response received")

	// 3. Extract
	payload, err := Extract(raw.Text)
	if err != nil {
		logger.Warn().Err(err).Msg("Model response could not be parsed as JSON")
		return nil, err
	}

	// 4. Validate
	result, err := Validate(req.Kind, payload)
	if err != nil {
		logger.Warn().Err(err).Msg("Model response failed validation")
		return nil, withRaw(err, raw.Text)
	}

	// 5. Business rule
	if spec.rule != nil {
		if err := spec.rule(req, result); err != nil {
			logger.Warn().Err(err).Msg("Model response rejected by task rule")
			return nil, withRaw(err, raw.Text)
		}
	}

	logger.Info().Dur("elapsed", time.Since(start)).Msg("Task completed")
	return result, nil
}

func withRaw(err error, raw string) error {
	var pe *Error
	if errors.As(err, &pe) && pe.Raw == "" {
		pe.Raw = raw
	}
	return err
}

/* =================================================================================
								CALLER-FACING OUTCOME
=================================================================================*/

// Outcome is the shape handed to callers. Raw provider text never appears in it.
type Outcome struct {
	OK     bool         `json:"ok"`
	Value  DomainResult `json:"value,omitempty"`
	Kind   ErrorKind    `json:"kind,omitempty"`
	Detail string       `json:"detail,omitempty"`
}

// OutcomeOf folds a dispatch result into an Outcome. Errors that are not pipeline
// errors are reported as ProviderUnavailable.
func OutcomeOf(r DomainResult, err error) Outcome {
	if err == nil {
		return Outcome{OK: true, Value: r}
	}
	var pe *Error
	if errors.As(err, &pe) {
		return Outcome{Kind: pe.Kind, Detail: pe.Detail}
	}
	return Outcome{Kind: KindProviderUnavailable, Detail: "the request could not be completed"}
}
