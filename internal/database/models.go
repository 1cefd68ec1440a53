package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type UserHealthProfile struct {
	UserID         string             `json:"user_id"`
	Age            pgtype.Int4        `json:"age"`
	Gender         pgtype.Text        `json:"gender"`
	WeightKg       pgtype.Numeric     `json:"weight_kg"`
	HeightCm       pgtype.Numeric     `json:"height_cm"`
	DietPreference pgtype.Text        `json:"diet_preference"`
	ActivityLevel  pgtype.Text        `json:"activity_level"`
	Allergies      []string           `json:"allergies"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}

type Doctor struct {
	DoctorID       pgtype.UUID `json:"doctor_id"`
	FullName       string      `json:"full_name"`
	Specialization pgtype.Text `json:"specialization"`
}

type Appointment struct {
	AppointmentID pgtype.UUID        `json:"appointment_id"`
	DoctorID      pgtype.UUID        `json:"doctor_id"`
	UserID        string             `json:"user_id"`
	StartsAt      pgtype.Timestamptz `json:"starts_at"`
	EndsAt        pgtype.Timestamptz `json:"ends_at"`
	Status        string             `json:"status"`
	Reason        pgtype.Text        `json:"reason"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
}

type ChatMessage struct {
	MessageID pgtype.UUID        `json:"message_id"`
	SessionID string             `json:"session_id"`
	UserID    pgtype.Text        `json:"user_id"`
	Role      string             `json:"role"`
	Content   string             `json:"content"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}
