package database

import (
	"context"
)

const getHealthProfile = `-- name: GetHealthProfile :one
SELECT user_id, age, gender, weight_kg, height_cm, diet_preference, activity_level, allergies, updated_at
FROM user_health_profiles
WHERE user_id = $1
`

func (q *Queries) GetHealthProfile(ctx context.Context, userID string) (UserHealthProfile, error) {
	row := q.db.QueryRow(ctx, getHealthProfile, userID)
	var i UserHealthProfile
	err := row.Scan(
		&i.UserID,
		&i.Age,
		&i.Gender,
		&i.WeightKg,
		&i.HeightCm,
		&i.DietPreference,
		&i.ActivityLevel,
		&i.Allergies,
		&i.UpdatedAt,
	)
	return i, err
}

const listUserConditions = `-- name: ListUserConditions :many
SELECT condition_name
FROM user_health_conditions
WHERE user_id = $1 AND is_active = TRUE
ORDER BY diagnosed_at DESC NULLS LAST, condition_name
`

func (q *Queries) ListUserConditions(ctx context.Context, userID string) ([]string, error) {
	rows, err := q.db.Query(ctx, listUserConditions, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []string{}
	for rows.Next() {
		var condition_name string
		if err := rows.Scan(&condition_name); err != nil {
			return nil, err
		}
		items = append(items, condition_name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listUserGoals = `-- name: ListUserGoals :many
SELECT goal_text
FROM user_health_goals
WHERE user_id = $1 AND status = 'ACTIVE'
ORDER BY created_at
`

func (q *Queries) ListUserGoals(ctx context.Context, userID string) ([]string, error) {
	rows, err := q.db.Query(ctx, listUserGoals, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []string{}
	for rows.Next() {
		var goal_text string
		if err := rows.Scan(&goal_text); err != nil {
			return nil, err
		}
		items = append(items, goal_text)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
