package types

import "time"

// Domain ceilings for a progress record. Enforced by the service, by SQL
// guards on the counter statements and by CHECK constraints in the schema.
const (
	MinLevel     = 1
	MaxLevel     = 5
	MaxAttempts  = 3
	MaxHintStage = 2
)

// Progress is the single per-user learning progress record. It is keyed 1:1
// by the owning user's id and deleted when the user is deleted.
type Progress struct {
	// UserID is both primary key and owner key of the record.
	UserID string `json:"user_id" db:"user_id"`

	// Topic is the free-form topic the user last studied; nil when unset.
	Topic *string `json:"topic" db:"topic"`

	// CurrentLevel is the user's level, 1..5.
	CurrentLevel int `json:"current_level" db:"current_level"`

	// DiagnosticAttempts counts consumed placement-test retries, 0..3.
	DiagnosticAttempts int `json:"diagnostic_attempts" db:"diagnostic_attempts"`

	// DiagnosticPassed records whether the placement test was passed.
	DiagnosticPassed bool `json:"diagnostic_passed" db:"diagnostic_passed"`

	// HintStage is the hint escalation stage: 0=none 1=diagram 2=pseudocode.
	HintStage int `json:"hint_stage" db:"hint_stage"`

	// UpdatedAt is refreshed by the store on every successful mutation.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProgressPatch carries a partial update; nil fields are left untouched.
type ProgressPatch struct {
	Topic              *string `json:"topic"`
	CurrentLevel       *int    `json:"current_level"`
	DiagnosticAttempts *int    `json:"diagnostic_attempts"`
	DiagnosticPassed   *bool   `json:"diagnostic_passed"`
	HintStage          *int    `json:"hint_stage"`
}

// Empty reports whether the patch carries no fields at all.
func (p ProgressPatch) Empty() bool {
	return p.Topic == nil && p.CurrentLevel == nil && p.DiagnosticAttempts == nil &&
		p.DiagnosticPassed == nil && p.HintStage == nil
}
