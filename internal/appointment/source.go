package appointment

import (
	"context"
	"fmt"
	"time"

	"HealthMate_V0.1/internal/database"
	"HealthMate_V0.1/internal/pipeline"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBSource reads bookings from the appointments table.
type DBSource struct {
	Q *database.Queries
}

func (s DBSource) BookingsFor(ctx context.Context, doctorID string, day time.Time) ([]Booking, error) {
	var id pgtype.UUID
	if err := id.Scan(doctorID); err != nil {
		return nil, pipeline.InvalidInput("invalid doctor id %q", doctorID)
	}

	rows, err := s.Q.ListDoctorBookingsForDay(ctx, database.ListDoctorBookingsForDayParams{
		DoctorID: id,
		DayStart: pgtype.Timestamptz{Time: day, Valid: true},
		DayEnd:   pgtype.Timestamptz{Time: day.AddDate(0, 0, 1), Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings := make([]Booking, 0, len(rows))
	for _, row := range rows {
		if !row.StartsAt.Valid || !row.EndsAt.Valid {
			continue
		}
		bookings = append(bookings, Booking{
			Start:  row.StartsAt.Time,
			End:    row.EndsAt.Time,
			Status: row.Status,
		})
	}
	return bookings, nil
}
