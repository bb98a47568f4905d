package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertLeaderboardSnapshot = `-- name: InsertLeaderboardSnapshot :execrows
INSERT INTO leaderboard_snapshots (generated_at, entries, source_hash)
VALUES ($1, $2, $3)
ON CONFLICT (source_hash) DO NOTHING
`

type InsertLeaderboardSnapshotParams struct {
	GeneratedAt pgtype.Timestamptz
	Entries     []byte
	SourceHash  string
}

// InsertLeaderboardSnapshot reports 0 when an identical snapshot already exists.
func (q *Queries) InsertLeaderboardSnapshot(ctx context.Context, arg InsertLeaderboardSnapshotParams) (int64, error) {
	tag, err := q.db.Exec(ctx, insertLeaderboardSnapshot, arg.GeneratedAt, arg.Entries, arg.SourceHash)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listRecentSnapshots = `-- name: ListRecentSnapshots :many
SELECT id, generated_at, entries, source_hash FROM leaderboard_snapshots
ORDER BY generated_at DESC
LIMIT $1
`

func (q *Queries) ListRecentSnapshots(ctx context.Context, limit int32) ([]LeaderboardSnapshot, error) {
	rows, err := q.db.Query(ctx, listRecentSnapshots, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LeaderboardSnapshot
	for rows.Next() {
		var i LeaderboardSnapshot
		if err := rows.Scan(&i.ID, &i.GeneratedAt, &i.Entries, &i.SourceHash); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listTopUsersByRating = `-- name: ListTopUsersByRating :many
SELECT id, nickname, rating, created_at FROM users
ORDER BY rating DESC, id
LIMIT $1
`

// ListTopUsersByRating seeds the rating leaderboard after a cold start.
func (q *Queries) ListTopUsersByRating(ctx context.Context, limit int32) ([]User, error) {
	rows, err := q.db.Query(ctx, listTopUsersByRating, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		var i User
		if err := rows.Scan(&i.ID, &i.Nickname, &i.Rating, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
