package chat

import (
	"context"
	"fmt"
	"time"

	"HealthMate_V0.1/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Archive mirrors turns to durable storage so a session can be restored after a restart.
type Archive interface {
	Save(ctx context.Context, sessionID, userID string, turns ...Turn) error
	Recent(ctx context.Context, sessionID string, limit int) ([]Turn, error)
}

// DBArchive stores turns in the chat_messages table.
type DBArchive struct {
	Q *database.Queries
}

func (a DBArchive) Save(ctx context.Context, sessionID, userID string, turns ...Turn) error {
	for _, t := range turns {
		at := t.At
		if at.IsZero() {
			at = time.Now()
		}
		err := a.Q.InsertChatMessage(ctx, database.InsertChatMessageParams{
			MessageID: pgtype.UUID{Bytes: uuid.New(), Valid: true},
			SessionID: sessionID,
			UserID:    pgtype.Text{String: userID, Valid: userID != ""},
			Role:      string(t.Role),
			Content:   t.Text,
			CreatedAt: pgtype.Timestamptz{Time: at, Valid: true},
		})
		if err != nil {
			return fmt.Errorf("failed to save chat message: %w", err)
		}
	}
	return nil
}

func (a DBArchive) Recent(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	rows, err := a.Q.ListRecentChatMessages(ctx, database.ListRecentChatMessagesParams{
		SessionID: sessionID,
		Limit:     int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	turns := make([]Turn, 0, len(rows))
	for _, row := range rows {
		turns = append(turns, Turn{Role: Role(row.Role), Text: row.Content, At: row.CreatedAt.Time})
	}
	return turns, nil
}

// Resume seeds id from the archive when the process has no turns for it.
// It reports whether anything was restored.
func (s *Store) Resume(ctx context.Context, a Archive, id string) (bool, error) {
	if a == nil || s.Len(id) > 0 {
		return false, nil
	}
	turns, err := a.Recent(ctx, id, s.maxTurns)
	if err != nil {
		return false, err
	}
	return s.Restore(id, turns), nil
}
