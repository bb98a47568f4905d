package pgstore

import (
	"context"
)

const getConfiguration = `-- name: GetConfiguration :one
SELECT id, owner_id, is_rated, should_show_opponent_solution, max_duration_minutes,
       tasks_count, tasks_order, tasks, created_at
FROM duel_configurations WHERE id = $1
`

func (q *Queries) GetConfiguration(ctx context.Context, id int64) (DuelConfiguration, error) {
	row := q.db.QueryRow(ctx, getConfiguration, id)
	var i DuelConfiguration
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.IsRated,
		&i.ShouldShowOpponentSolution,
		&i.MaxDurationMinutes,
		&i.TasksCount,
		&i.TasksOrder,
		&i.Tasks,
		&i.CreatedAt,
	)
	return i, err
}
