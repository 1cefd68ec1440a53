package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertChatMessage = `-- name: InsertChatMessage :exec
INSERT INTO chat_messages (message_id, session_id, user_id, role, content, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

type InsertChatMessageParams struct {
	MessageID pgtype.UUID        `json:"message_id"`
	SessionID string             `json:"session_id"`
	UserID    pgtype.Text        `json:"user_id"`
	Role      string             `json:"role"`
	Content   string             `json:"content"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) InsertChatMessage(ctx context.Context, arg InsertChatMessageParams) error {
	_, err := q.db.Exec(ctx, insertChatMessage,
		arg.MessageID,
		arg.SessionID,
		arg.UserID,
		arg.Role,
		arg.Content,
		arg.CreatedAt,
	)
	return err
}

const listRecentChatMessages = `-- name: ListRecentChatMessages :many
SELECT message_id, session_id, user_id, role, content, created_at
FROM (
    SELECT message_id, session_id, user_id, role, content, created_at
    FROM chat_messages
    WHERE session_id = $1
    ORDER BY created_at DESC
    LIMIT $2
) recent
ORDER BY created_at ASC
`

type ListRecentChatMessagesParams struct {
	SessionID string `json:"session_id"`
	Limit     int32  `json:"limit"`
}

func (q *Queries) ListRecentChatMessages(ctx context.Context, arg ListRecentChatMessagesParams) ([]ChatMessage, error) {
	rows, err := q.db.Query(ctx, listRecentChatMessages, arg.SessionID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ChatMessage{}
	for rows.Next() {
		var i ChatMessage
		if err := rows.Scan(
			&i.MessageID,
			&i.SessionID,
			&i.UserID,
			&i.Role,
			&i.Content,
			&i.CreatedAt,
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
