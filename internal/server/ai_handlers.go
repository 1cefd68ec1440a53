package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"HealthMate_V0.1/internal/appointment"
	"HealthMate_V0.1/internal/database"
	"HealthMate_V0.1/internal/pipeline"
	"HealthMate_V0.1/internal/utility"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

/* =================================================================================
							DTOs (Data Transfer Objects)
=================================================================================*/

// TaskRequestBody is the body of POST /ai/tasks/:kind.
type TaskRequestBody struct {
	Instruction string `json:"instruction"`
	// Profile overrides the stored profile for this request only.
	Profile *pipeline.HealthProfile `json:"profile,omitempty"`
}

// AppointmentRequestBody is the body of POST /ai/appointment.
type AppointmentRequestBody struct {
	Text     string `json:"text"`
	DoctorID string `json:"doctor_id,omitempty"`
}

type DoctorView struct {
	DoctorID       string `json:"doctor_id"`
	FullName       string `json:"full_name"`
	Specialization string `json:"specialization,omitempty"`
}

// AppointmentResponse pairs the parsed intent with the doctor's free slots.
type AppointmentResponse struct {
	OK           bool                       `json:"ok"`
	Intent       pipeline.AppointmentIntent `json:"intent"`
	Doctor       *DoctorView                `json:"doctor,omitempty"`
	Availability *appointment.Availability  `json:"availability,omitempty"`
	Advisory     string                     `json:"advisory,omitempty"`
}

const advisoryNoDoctor = "No matching doctor was found. Please choose a doctor to see available times."

// standaloneTasks may be called through /ai/tasks/:kind. The others have their own routes.
var standaloneTasks = map[pipeline.TaskKind]bool{
	pipeline.TaskDiet:     true,
	pipeline.TaskExercise: true,
	pipeline.TaskYoga:     true,
	pipeline.TaskDisease:  true,
	pipeline.TaskGoal:     true,
}

/* =================================================================================
								HANDLERS
=================================================================================*/

// taskHandler runs one of the plan/guidance tasks.
func (s *Server) taskHandler(c echo.Context) error {
	ctx := c.Request().Context()

	// 1. Resolve the kind
	kind, err := pipeline.ParseTaskKind(c.Param("kind"))
	if err != nil || !standaloneTasks[kind] {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown task"})
	}

	// 2. Bind
	var body TaskRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	// 3. Profile
	profile := body.Profile
	if profile == nil {
		if profile, err = s.loadProfile(ctx, currentUserID(c)); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load health profile"})
		}
	}

	// 4. Dispatch
	result, err := s.dispatcher.Dispatch(ctx, pipeline.TaskRequest{
		Kind:        kind,
		Profile:     profile,
		Instruction: body.Instruction,
	})
	return respondOutcome(c, pipeline.OutcomeOf(result, err))
}

// prescriptionHandler reads a multipart "image" field and extracts the prescription.
func (s *Server) prescriptionHandler(c echo.Context) error {
	ctx := c.Request().Context()

	// 1. Read the upload
	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing image file"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Failed to read image file"})
	}
	defer f.Close()

	// One byte over the limit is enough for the dispatcher to reject it.
	data, err := io.ReadAll(io.LimitReader(f, pipeline.MaxAttachmentBytes+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Failed to read image file"})
	}

	// 2. Dispatch
	result, err := s.dispatcher.Dispatch(ctx, pipeline.TaskRequest{
		Kind:        pipeline.TaskPrescription,
		Attachment:  data,
		MediaType:   fh.Header.Get("Content-Type"),
		Instruction: c.FormValue("note"),
	})
	return respondOutcome(c, pipeline.OutcomeOf(result, err))
}

// appointmentHandler parses a free-text booking request and reports the free slots
// of the doctor it refers to.
func (s *Server) appointmentHandler(c echo.Context) error {
	ctx := c.Request().Context()
	logger := zerolog.Ctx(ctx)

	var body AppointmentRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	// 1. Parse the intent
	intent, err := pipeline.Run[pipeline.AppointmentIntent](ctx, s.dispatcher, pipeline.TaskRequest{
		Kind:        pipeline.TaskAppointment,
		Instruction: body.Text,
	})
	if err != nil {
		return respondOutcome(c, pipeline.OutcomeOf(nil, err))
	}
	resp := AppointmentResponse{OK: true, Intent: intent}

	// 2. Resolve the doctor
	doctor, err := s.resolveDoctor(ctx, body.DoctorID, intent)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to resolve doctor")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to look up doctor"})
	}
	if doctor == nil || s.bookings == nil {
		resp.Advisory = advisoryNoDoctor
		return c.JSON(http.StatusOK, resp)
	}
	resp.Doctor = doctor

	// 3. Reconcile against existing bookings
	avail, err := s.reconciler.Availability(ctx, s.bookings, doctor.DoctorID, intent)
	if err != nil {
		if pipeline.KindOf(err) != "" {
			return respondOutcome(c, pipeline.OutcomeOf(nil, err))
		}
		logger.Error().Err(err).Str("doctor_id", doctor.DoctorID).Msg("Failed to load bookings")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load bookings"})
	}
	resp.Availability = &avail
	resp.Advisory = avail.Advisory
	return c.JSON(http.StatusOK, resp)
}

/* =================================================================================
								HELPERS
=================================================================================*/

func (s *Server) loadProfile(ctx context.Context, userID string) (*pipeline.HealthProfile, error) {
	if s.profiles == nil || userID == "" {
		return nil, nil
	}
	p, err := s.profiles.Load(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("user_id", userID).Msg("Failed to load health profile")
		return nil, err
	}
	return p, nil
}

// resolveDoctor prefers an explicit id, then the doctor named in the intent,
// then the first doctor of the requested specialization. A nil result means no match.
func (s *Server) resolveDoctor(ctx context.Context, doctorID string, intent pipeline.AppointmentIntent) (*DoctorView, error) {
	if id := strings.TrimSpace(doctorID); id != "" {
		return &DoctorView{DoctorID: id}, nil
	}
	if s.doctors == nil {
		return nil, nil
	}

	lookups := []struct {
		term string
		find func(context.Context, string) (database.Doctor, error)
	}{
		{stripTitle(intent.Doctor), s.doctors.FindDoctorByName},
		{intent.Specialization, s.doctors.FindDoctorBySpecialization},
	}

	for _, l := range lookups {
		term := strings.TrimSpace(l.term)
		if term == "" || strings.EqualFold(term, pipeline.Unknown) {
			continue
		}
		d, err := l.find(ctx, term)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		id, err := utility.PgtypeUUIDToString(d.DoctorID)
		if err != nil {
			return nil, err
		}
		return &DoctorView{
			DoctorID:       id,
			FullName:       d.FullName,
			Specialization: d.Specialization.String,
		}, nil
	}
	return nil, nil
}

// stripTitle drops a leading "Dr." so "Dr. Mehta" matches "Anil Mehta".
func stripTitle(name string) string {
	name = strings.TrimSpace(name)
	for _, prefix := range []string{"dr.", "dr ", "doctor "} {
		if len(name) >= len(prefix) && strings.EqualFold(name[:len(prefix)], prefix) {
			return strings.TrimSpace(name[len(prefix):])
		}
	}
	return name
}

// statusFor maps an Outcome onto its HTTP status.
func statusFor(out pipeline.Outcome) int {
	if out.OK {
		return http.StatusOK
	}
	switch out.Kind {
	case pipeline.KindInvalidInput:
		return http.StatusBadRequest
	case pipeline.KindPastDateRequested:
		return http.StatusUnprocessableEntity
	case pipeline.KindMalformedResponse, pipeline.KindSchemaViolation:
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

func respondOutcome(c echo.Context, out pipeline.Outcome) error {
	return c.JSON(statusFor(out), out)
}
