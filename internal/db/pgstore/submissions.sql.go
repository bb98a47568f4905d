package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const listSubmissionsByDuel = `-- name: ListSubmissionsByDuel :many
SELECT id, duel_id, user_id, task_key, submit_time, status, verdict
FROM submissions
WHERE duel_id = $1
ORDER BY submit_time, id
`

func (q *Queries) ListSubmissionsByDuel(ctx context.Context, duelID int64) ([]Submission, error) {
	rows, err := q.db.Query(ctx, listSubmissionsByDuel, duelID)
	if err != nil {
		return nil, err
	}
	return scanSubmissions(rows)
}

const listAcceptedSubmissionsByDuel = `-- name: ListAcceptedSubmissionsByDuel :many
SELECT id, duel_id, user_id, task_key, submit_time, status, verdict
FROM submissions
WHERE duel_id = $1 AND status = 'done' AND verdict = 'Accepted'
ORDER BY submit_time, id
`

func (q *Queries) ListAcceptedSubmissionsByDuel(ctx context.Context, duelID int64) ([]Submission, error) {
	rows, err := q.db.Query(ctx, listAcceptedSubmissionsByDuel, duelID)
	if err != nil {
		return nil, err
	}
	return scanSubmissions(rows)
}

func scanSubmissions(rows pgx.Rows) ([]Submission, error) {
	defer rows.Close()
	var items []Submission
	for rows.Next() {
		var i Submission
		if err := rows.Scan(
			&i.ID,
			&i.DuelID,
			&i.UserID,
			&i.TaskKey,
			&i.SubmitTime,
			&i.Status,
			&i.Verdict,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
