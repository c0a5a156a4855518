package league

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusSetup     Status = "setup"
	StatusDrafting  Status = "drafting"
	StatusActive    Status = "active"
	StatusPlayoffs  Status = "playoffs"
	StatusCompleted Status = "completed"
)

type League struct {
	ID              int64     `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Description     string    `db:"description" json:"description"`
	Fee             int       `db:"fee" json:"fee"`
	TeamSize        int       `db:"team_size" json:"team_size"`
	NumTeams        int       `db:"num_teams" json:"num_teams"`
	WeekBonusPoints int       `db:"week_bonus_points" json:"week_bonus_points"`
	Status          Status    `db:"status" json:"status"`
	IsTest          bool      `db:"is_test" json:"is_test"`
	CreatedBy       uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

type SignupStatus string

const (
	SignupPending    SignupStatus = "pending"
	SignupConfirmed  SignupStatus = "confirmed"
	SignupWaitlisted SignupStatus = "waitlisted"
	SignupWithdrawn  SignupStatus = "withdrawn"
)

type Signup struct {
	ID          int64        `db:"id" json:"id"`
	LeagueID    int64        `db:"league_id" json:"league_id"`
	UserID      uuid.UUID    `db:"user_id" json:"user_id"`
	SignupOrder int          `db:"signup_order" json:"signup_order"`
	Status      SignupStatus `db:"status" json:"status"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
}

type Team struct {
	ID        int64     `db:"id" json:"id"`
	LeagueID  int64     `db:"league_id" json:"league_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type TeamMember struct {
	ID        int64     `db:"id" json:"id"`
	TeamID    int64     `db:"team_id" json:"team_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	IsCaptain bool      `db:"is_captain" json:"is_captain"`
	HasPaid   bool      `db:"has_paid" json:"has_paid"`
}

type AdminLogEntry struct {
	ID         int64     `db:"id" json:"id"`
	LeagueID   int64     `db:"league_id" json:"league_id"`
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	ActionType string    `db:"action_type" json:"action_type"`
	Details    string    `db:"details" json:"details"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
