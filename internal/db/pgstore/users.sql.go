package pgstore

import (
	"context"
)

const getUserByID = `-- name: GetUserByID :one
SELECT id, nickname, rating, created_at FROM users WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var i User
	err := row.Scan(&i.ID, &i.Nickname, &i.Rating, &i.CreatedAt)
	return i, err
}

const getUserByNickname = `-- name: GetUserByNickname :one
SELECT id, nickname, rating, created_at FROM users WHERE nickname = $1
`

func (q *Queries) GetUserByNickname(ctx context.Context, nickname string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByNickname, nickname)
	var i User
	err := row.Scan(&i.ID, &i.Nickname, &i.Rating, &i.CreatedAt)
	return i, err
}

const updateUserRating = `-- name: UpdateUserRating :exec
UPDATE users SET rating = $2 WHERE id = $1
`

type UpdateUserRatingParams struct {
	ID     int64
	Rating int32
}

func (q *Queries) UpdateUserRating(ctx context.Context, arg UpdateUserRatingParams) error {
	_, err := q.db.Exec(ctx, updateUserRating, arg.ID, arg.Rating)
	return err
}

const getSolvedTaskIDs = `-- name: GetSolvedTaskIDs :many
SELECT DISTINCT t.value->>'id'
FROM duels d, jsonb_each(d.tasks) t
WHERE d.user1_id = $1 OR d.user2_id = $1
`

// GetSolvedTaskIDs returns the ids of every task the user met in a duel.
func (q *Queries) GetSolvedTaskIDs(ctx context.Context, userID int64) ([]string, error) {
	rows, err := q.db.Query(ctx, getSolvedTaskIDs, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	return items, rows.Err()
}
