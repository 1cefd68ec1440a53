package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listDoctorBookingsForDay = `-- name: ListDoctorBookingsForDay :many
SELECT appointment_id, starts_at, ends_at, status
FROM appointments
WHERE doctor_id = $1
  AND status IN ('CONFIRMED', 'PENDING')
  AND starts_at < $3
  AND ends_at > $2
ORDER BY starts_at
`

type ListDoctorBookingsForDayParams struct {
	DoctorID pgtype.UUID        `json:"doctor_id"`
	DayStart pgtype.Timestamptz `json:"day_start"`
	DayEnd   pgtype.Timestamptz `json:"day_end"`
}

type ListDoctorBookingsForDayRow struct {
	AppointmentID pgtype.UUID        `json:"appointment_id"`
	StartsAt      pgtype.Timestamptz `json:"starts_at"`
	EndsAt        pgtype.Timestamptz `json:"ends_at"`
	Status        string             `json:"status"`
}

func (q *Queries) ListDoctorBookingsForDay(ctx context.Context, arg ListDoctorBookingsForDayParams) ([]ListDoctorBookingsForDayRow, error) {
	rows, err := q.db.Query(ctx, listDoctorBookingsForDay, arg.DoctorID, arg.DayStart, arg.DayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListDoctorBookingsForDayRow{}
	for rows.Next() {
		var i ListDoctorBookingsForDayRow
		if err := rows.Scan(
			&i.AppointmentID,
			&i.StartsAt,
			&i.EndsAt,
			&i.Status,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const findDoctorByName = `-- name: FindDoctorByName :one
SELECT doctor_id, full_name, specialization
FROM doctors
WHERE full_name ILIKE '%' || $1 || '%'
ORDER BY length(full_name)
LIMIT 1
`

func (q *Queries) FindDoctorByName(ctx context.Context, name string) (Doctor, error) {
	row := q.db.QueryRow(ctx, findDoctorByName, name)
	var i Doctor
	err := row.Scan(&i.DoctorID, &i.FullName, &i.Specialization)
	return i, err
}

const findDoctorBySpecialization = `-- name: FindDoctorBySpecialization :one
SELECT doctor_id, full_name, specialization
FROM doctors
WHERE specialization ILIKE $1
ORDER BY full_name
LIMIT 1
`

func (q *Queries) FindDoctorBySpecialization(ctx context.Context, specialization string) (Doctor, error) {
	row := q.db.QueryRow(ctx, findDoctorBySpecialization, specialization)
	var i Doctor
	err := row.Scan(&i.DoctorID, &i.FullName, &i.Specialization)
	return i, err
}
