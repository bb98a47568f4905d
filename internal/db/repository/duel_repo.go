package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/duel-platform/internal/db/pgstore"
	"github.com/gokatarajesh/duel-platform/internal/duel"
)

type duelStore interface {
	GetUserByID(ctx context.Context, id int64) (pgstore.User, error)
	GetUserByNickname(ctx context.Context, nickname string) (pgstore.User, error)
	UpdateUserRating(ctx context.Context, arg pgstore.UpdateUserRatingParams) error
	GetSolvedTaskIDs(ctx context.Context, userID int64) ([]string, error)
	GetConfiguration(ctx context.Context, id int64) (pgstore.DuelConfiguration, error)
	CreateDuel(ctx context.Context, arg pgstore.CreateDuelParams) (int64, error)
	GetDuel(ctx context.Context, id int64) (pgstore.Duel, error)
	GetActiveDuelByUser(ctx context.Context, userID int64) (pgstore.Duel, error)
	ListInProgressDuels(ctx context.Context, arg pgstore.ListInProgressDuelsParams) ([]pgstore.Duel, error)
	ListFinishedDuelsByUser(ctx context.Context, userID int64) ([]pgstore.Duel, error)
	ListSubmissionsByDuel(ctx context.Context, duelID int64) ([]pgstore.Submission, error)
	ListAcceptedSubmissionsByDuel(ctx context.Context, duelID int64) ([]pgstore.Submission, error)
	FinishDuel(ctx context.Context, arg pgstore.FinishDuelParams) (int64, error)
}

type txFunc func(ctx context.Context, fn func(duelStore) error) error

// DuelRepository is the Postgres implementation of duel.Store.
type DuelRepository struct {
	store duelStore
	inTx  txFunc
}

var _ duel.Store = (*DuelRepository)(nil)

// NewDuelRepository wraps the queries of db.
func NewDuelRepository(db *pgstore.DB) *DuelRepository {
	return newDuelRepository(db, func(ctx context.Context, fn func(duelStore) error) error {
		return db.InTx(ctx, func(q *pgstore.Queries) error { return fn(q) })
	})
}

func newDuelRepository(store duelStore, inTx txFunc) *DuelRepository {
	return &DuelRepository{store: store, inTx: inTx}
}

func (r *DuelRepository) GetUser(ctx context.Context, userID int64) (duel.User, error) {
	u, err := r.store.GetUserByID(ctx, userID)
	if err != nil {
		return duel.User{}, notFound(err, duel.ErrUserNotFound)
	}
	return toUser(u), nil
}

func (r *DuelRepository) GetUserByNickname(ctx context.Context, nickname string) (duel.User, error) {
	u, err := r.store.GetUserByNickname(ctx, nickname)
	if err != nil {
		return duel.User{}, notFound(err, duel.ErrUserNotFound)
	}
	return toUser(u), nil
}

func (r *DuelRepository) GetConfiguration(ctx context.Context, id int64) (duel.Configuration, error) {
	row, err := r.store.GetConfiguration(ctx, id)
	if err != nil {
		return duel.Configuration{}, notFound(err, duel.ErrConfigurationNotFound)
	}

	cfg := duel.Configuration{
		ID:                         &row.ID,
		IsRated:                    row.IsRated,
		ShouldShowOpponentSolution: row.ShouldShowOpponentSolution,
		MaxDurationMinutes:         int(row.MaxDurationMinutes),
		TasksCount:                 int(row.TasksCount),
		TasksOrder:                 duel.TasksOrder(row.TasksOrder),
	}
	if row.OwnerID.Valid {
		owner := row.OwnerID.Int64
		cfg.OwnerID = &owner
	}
	if err := json.Unmarshal(row.Tasks, &cfg.Tasks); err != nil {
		return duel.Configuration{}, fmt.Errorf("decode configuration %d tasks: %w", id, err)
	}
	return cfg, nil
}

func (r *DuelRepository) GetSolvedTaskIDs(ctx context.Context, userID int64) ([]string, error) {
	return r.store.GetSolvedTaskIDs(ctx, userID)
}

// CreateDuel inserts an InProgress duel and returns its id.
func (r *DuelRepository) CreateDuel(ctx context.Context, d *duel.Duel) (int64, error) {
	cfg, err := json.Marshal(d.Configuration)
	if err != nil {
		return 0, fmt.Errorf("encode configuration: %w", err)
	}
	tasks, err := json.Marshal(d.Tasks)
	if err != nil {
		return 0, fmt.Errorf("encode tasks: %w", err)
	}

	return r.store.CreateDuel(ctx, pgstore.CreateDuelParams{
		User1ID:         d.User1ID,
		User2ID:         d.User2ID,
		Status:          string(d.Status),
		ConfigurationID: nullInt8(d.Configuration.ID),
		Configuration:   cfg,
		Tasks:           tasks,
		StartTime:       timestamptz(d.StartTime),
		DeadlineTime:    timestamptz(d.DeadlineTime),
		User1InitRating: int32(d.User1InitRating),
		User2InitRating: int32(d.User2InitRating),
	})
}

func (r *DuelRepository) GetDuel(ctx context.Context, id int64) (*duel.Duel, error) {
	row, err := r.store.GetDuel(ctx, id)
	if err != nil {
		return nil, notFound(err, duel.ErrDuelNotFound)
	}
	return toDuel(row)
}

func (r *DuelRepository) GetActiveDuel(ctx context.Context, userID int64) (*duel.Duel, error) {
	row, err := r.store.GetActiveDuelByUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, duel.ErrDuelNotFound)
	}
	return toDuel(row)
}

// ListInProgressDuels returns up to limit in-progress duels with id greater
// than afterID, ordered by id.
func (r *DuelRepository) ListInProgressDuels(ctx context.Context, afterID int64, limit int) ([]*duel.Duel, error) {
	rows, err := r.store.ListInProgressDuels(ctx, pgstore.ListInProgressDuelsParams{
		AfterID: afterID,
		Limit:   int32(limit),
	})
	if err != nil {
		return nil, err
	}
	return toDuels(rows)
}

// ListUserDuels returns the finished duels of userID, newest first.
func (r *DuelRepository) ListUserDuels(ctx context.Context, userID int64) ([]*duel.Duel, error) {
	rows, err := r.store.ListFinishedDuelsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toDuels(rows)
}

func toDuels(rows []pgstore.Duel) ([]*duel.Duel, error) {
	duels := make([]*duel.Duel, 0, len(rows))
	for _, row := range rows {
		d, err := toDuel(row)
		if err != nil {
			return nil, err
		}
		duels = append(duels, d)
	}
	return duels, nil
}

func (r *DuelRepository) ListSubmissions(ctx context.Context, duelID int64) ([]duel.Submission, error) {
	rows, err := r.store.ListSubmissionsByDuel(ctx, duelID)
	if err != nil {
		return nil, err
	}
	return toSubmissions(rows), nil
}

func (r *DuelRepository) ListAcceptedSubmissions(ctx context.Context, duelID int64) ([]duel.Submission, error) {
	rows, err := r.store.ListAcceptedSubmissionsByDuel(ctx, duelID)
	if err != nil {
		return nil, err
	}
	return toSubmissions(rows), nil
}

// FinishDuel writes the finished duel and both users' final ratings in one
// transaction. A duel that is no longer InProgress yields duel.ErrAlreadyFinished
// and nothing is written.
func (r *DuelRepository) FinishDuel(ctx context.Context, d *duel.Duel) error {
	if d.EndTime == nil || d.User1FinalRating == nil || d.User2FinalRating == nil {
		return fmt.Errorf("duel %d is missing finish fields", d.ID)
	}

	return r.inTx(ctx, func(q duelStore) error {
		n, err := q.FinishDuel(ctx, pgstore.FinishDuelParams{
			ID:               d.ID,
			EndTime:          timestamptz(*d.EndTime),
			WinnerID:         nullInt8(d.WinnerID),
			User1FinalRating: pgtype.Int4{Int32: int32(*d.User1FinalRating), Valid: true},
			User2FinalRating: pgtype.Int4{Int32: int32(*d.User2FinalRating), Valid: true},
		})
		if err != nil {
			return err
		}
		if n == 0 {
			return duel.ErrAlreadyFinished
		}

		if err := q.UpdateUserRating(ctx, pgstore.UpdateUserRatingParams{
			ID: d.User1ID, Rating: int32(*d.User1FinalRating),
		}); err != nil {
			return err
		}
		return q.UpdateUserRating(ctx, pgstore.UpdateUserRatingParams{
			ID: d.User2ID, Rating: int32(*d.User2FinalRating),
		})
	})
}

func notFound(err, kind error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return kind
	}
	return err
}

func toUser(u pgstore.User) duel.User {
	return duel.User{ID: u.ID, Nickname: u.Nickname, Rating: int(u.Rating)}
}

func toDuel(row pgstore.Duel) (*duel.Duel, error) {
	d := &duel.Duel{
		ID:              row.ID,
		User1ID:         row.User1ID,
		User2ID:         row.User2ID,
		Status:          duel.Status(row.Status),
		StartTime:       row.StartTime.Time,
		DeadlineTime:    row.DeadlineTime.Time,
		User1InitRating: int(row.User1InitRating),
		User2InitRating: int(row.User2InitRating),
	}
	if err := json.Unmarshal(row.Configuration, &d.Configuration); err != nil {
		return nil, fmt.Errorf("decode duel %d configuration: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.Tasks, &d.Tasks); err != nil {
		return nil, fmt.Errorf("decode duel %d tasks: %w", row.ID, err)
	}
	if err := unmarshalSolutions(row.User1Solutions, &d.User1Solutions); err != nil {
		return nil, fmt.Errorf("decode duel %d solutions: %w", row.ID, err)
	}
	if err := unmarshalSolutions(row.User2Solutions, &d.User2Solutions); err != nil {
		return nil, fmt.Errorf("decode duel %d solutions: %w", row.ID, err)
	}

	if row.EndTime.Valid {
		end := row.EndTime.Time
		d.EndTime = &end
	}
	if row.WinnerID.Valid {
		winner := row.WinnerID.Int64
		d.WinnerID = &winner
	}
	if row.User1FinalRating.Valid {
		v := int(row.User1FinalRating.Int32)
		d.User1FinalRating = &v
	}
	if row.User2FinalRating.Valid {
		v := int(row.User2FinalRating.Int32)
		d.User2FinalRating = &v
	}
	return d, nil
}

func unmarshalSolutions(data []byte, out *map[string]string) error {
	*out = map[string]string{}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func toSubmissions(rows []pgstore.Submission) []duel.Submission {
	subs := make([]duel.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, duel.Submission{
			ID:         row.ID,
			DuelID:     row.DuelID,
			UserID:     row.UserID,
			TaskKey:    row.TaskKey,
			SubmitTime: row.SubmitTime.Time,
			Status:     duel.SubmissionStatus(row.Status),
			Verdict:    row.Verdict,
		})
	}
	return subs
}

func timestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func nullInt8(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}
