package pgstore

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID        int64
	Nickname  string
	Rating    int32
	CreatedAt pgtype.Timestamptz
}

type DuelConfiguration struct {
	ID                         int64
	OwnerID                    pgtype.Int8
	IsRated                    bool
	ShouldShowOpponentSolution bool
	MaxDurationMinutes         int32
	TasksCount                 int32
	TasksOrder                 string
	Tasks                      []byte
	CreatedAt                  pgtype.Timestamptz
}

type Duel struct {
	ID               int64
	User1ID          int64
	User2ID          int64
	Status           string
	ConfigurationID  pgtype.Int8
	Configuration    []byte
	Tasks            []byte
	StartTime        pgtype.Timestamptz
	DeadlineTime     pgtype.Timestamptz
	EndTime          pgtype.Timestamptz
	User1InitRating  int32
	User2InitRating  int32
	User1FinalRating pgtype.Int4
	User2FinalRating pgtype.Int4
	WinnerID         pgtype.Int8
	User1Solutions   []byte
	User2Solutions   []byte
}

type Submission struct {
	ID         int64
	DuelID     int64
	UserID     int64
	TaskKey    string
	SubmitTime pgtype.Timestamptz
	Status     string
	Verdict    string
}

type LeaderboardSnapshot struct {
	ID          int64
	GeneratedAt pgtype.Timestamptz
	Entries     []byte
	SourceHash  string
}
