package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const duelColumns = `id, user1_id, user2_id, status, configuration_id, configuration, tasks,
       start_time, deadline_time, end_time, user1_init_rating, user2_init_rating,
       user1_final_rating, user2_final_rating, winner_id, user1_solutions, user2_solutions`

func scanDuel(row pgx.Row) (Duel, error) {
	var i Duel
	err := row.Scan(
		&i.ID,
		&i.User1ID,
		&i.User2ID,
		&i.Status,
		&i.ConfigurationID,
		&i.Configuration,
		&i.Tasks,
		&i.StartTime,
		&i.DeadlineTime,
		&i.EndTime,
		&i.User1InitRating,
		&i.User2InitRating,
		&i.User1FinalRating,
		&i.User2FinalRating,
		&i.WinnerID,
		&i.User1Solutions,
		&i.User2Solutions,
	)
	return i, err
}

func scanDuels(rows pgx.Rows) ([]Duel, error) {
	defer rows.Close()
	var items []Duel
	for rows.Next() {
		i, err := scanDuel(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createDuel = `-- name: CreateDuel :one
INSERT INTO duels (
    user1_id, user2_id, status, configuration_id, configuration, tasks,
    start_time, deadline_time, user1_init_rating, user2_init_rating
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id
`

type CreateDuelParams struct {
	User1ID         int64
	User2ID         int64
	Status          string
	ConfigurationID pgtype.Int8
	Configuration   []byte
	Tasks           []byte
	StartTime       pgtype.Timestamptz
	DeadlineTime    pgtype.Timestamptz
	User1InitRating int32
	User2InitRating int32
}

func (q *Queries) CreateDuel(ctx context.Context, arg CreateDuelParams) (int64, error) {
	row := q.db.QueryRow(ctx, createDuel,
		arg.User1ID,
		arg.User2ID,
		arg.Status,
		arg.ConfigurationID,
		arg.Configuration,
		arg.Tasks,
		arg.StartTime,
		arg.DeadlineTime,
		arg.User1InitRating,
		arg.User2InitRating,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getDuel = `-- name: GetDuel :one
SELECT ` + duelColumns + ` FROM duels WHERE id = $1
`

func (q *Queries) GetDuel(ctx context.Context, id int64) (Duel, error) {
	return scanDuel(q.db.QueryRow(ctx, getDuel, id))
}

const getActiveDuelByUser = `-- name: GetActiveDuelByUser :one
SELECT ` + duelColumns + ` FROM duels
WHERE status = 'in_progress' AND (user1_id = $1 OR user2_id = $1)
ORDER BY id DESC
LIMIT 1
`

func (q *Queries) GetActiveDuelByUser(ctx context.Context, userID int64) (Duel, error) {
	return scanDuel(q.db.QueryRow(ctx, getActiveDuelByUser, userID))
}

const listInProgressDuels = `-- name: ListInProgressDuels :many
SELECT ` + duelColumns + ` FROM duels
WHERE status = 'in_progress' AND id > $1
ORDER BY id
LIMIT $2
`

type ListInProgressDuelsParams struct {
	AfterID int64
	Limit   int32
}

// ListInProgressDuels pages through in-progress duels by ascending id.
func (q *Queries) ListInProgressDuels(ctx context.Context, arg ListInProgressDuelsParams) ([]Duel, error) {
	rows, err := q.db.Query(ctx, listInProgressDuels, arg.AfterID, arg.Limit)
	if err != nil {
		return nil, err
	}
	return scanDuels(rows)
}

const listFinishedDuelsByUser = `-- name: ListFinishedDuelsByUser :many
SELECT ` + duelColumns + ` FROM duels
WHERE status = 'finished' AND (user1_id = $1 OR user2_id = $1)
ORDER BY start_time DESC, id DESC
`

func (q *Queries) ListFinishedDuelsByUser(ctx context.Context, userID int64) ([]Duel, error) {
	rows, err := q.db.Query(ctx, listFinishedDuelsByUser, userID)
	if err != nil {
		return nil, err
	}
	return scanDuels(rows)
}

const finishDuel = `-- name: FinishDuel :execrows
UPDATE duels
SET status = 'finished',
    end_time = $2,
    winner_id = $3,
    user1_final_rating = $4,
    user2_final_rating = $5
WHERE id = $1 AND status = 'in_progress'
`

type FinishDuelParams struct {
	ID               int64
	EndTime          pgtype.Timestamptz
	WinnerID         pgtype.Int8
	User1FinalRating pgtype.Int4
	User2FinalRating pgtype.Int4
}

// FinishDuel reports the number of rows moved to finished (0 or 1).
func (q *Queries) FinishDuel(ctx context.Context, arg FinishDuelParams) (int64, error) {
	tag, err := q.db.Exec(ctx, finishDuel,
		arg.ID,
		arg.EndTime,
		arg.WinnerID,
		arg.User1FinalRating,
		arg.User2FinalRating,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
