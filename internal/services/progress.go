package services

import (
	"context"
	"fmt"

	"github.com/pandoras-vault/apiserver/internal/authz"
	"github.com/pandoras-vault/apiserver/internal/errs"
	"github.com/pandoras-vault/apiserver/internal/events"
	"github.com/pandoras-vault/apiserver/types"
)

// ProgressRepository defines persistence operations for progress records.
// Counter mutations are atomic relative to the stored value and fail with the
// matching domain sentinel at their ceiling.
type ProgressRepository interface {
	Get(ctx context.Context, userID string) (types.Progress, error)
	Upsert(ctx context.Context, userID string, patch types.ProgressPatch) (types.Progress, error)
	IncrementAttempts(ctx context.Context, userID string) (int, error)
	SetPassed(ctx context.Context, userID string, passed bool) (types.Progress, error)
	AdvanceLevel(ctx context.Context, userID string) (int, error)
	AdvanceHintStage(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID string) error
}

// ProgressService owns the progress state machine. Every call is authorized
// against the record owner before any field change is computed; domain
// validation is an independent second gate. The privileged-operator path skips
// the ownership comparison but not validation.
type ProgressService struct {
	repo   ProgressRepository
	events *events.Publisher
}

func NewProgressService(repo ProgressRepository, publisher *events.Publisher) *ProgressService {
	return &ProgressService{repo: repo, events: publisher}
}

func (s *ProgressService) authorize(caller authz.Principal, ownerID string, op authz.Operation) error {
	if ownerID == "" {
		return fmt.Errorf("%w: empty owner id", errs.ErrValidation)
	}
	if !caller.Allowed(ownerID, authz.ResourceProgress, op) {
		return errs.ErrForbidden
	}
	return nil
}

// Get returns the caller's progress record, or ErrNotFound when not started.
func (s *ProgressService) Get(ctx context.Context, caller authz.Principal, ownerID string) (types.Progress, error) {
	if err := s.authorize(caller, ownerID, authz.OpRead); err != nil {
		return types.Progress{}, err
	}
	return s.repo.Get(ctx, ownerID)
}

// Upsert lazily creates the record on first write and applies only the fields
// present in the patch afterwards. Out-of-domain values hard-fail; they are
// never clamped, since clamping would hide a caller bug.
func (s *ProgressService) Upsert(ctx context.Context, caller authz.Principal, ownerID string, patch types.ProgressPatch) (types.Progress, error) {
	if err := s.authorize(caller, ownerID, authz.OpUpdate); err != nil {
		return types.Progress{}, err
	}
	if err := validatePatch(patch); err != nil {
		return types.Progress{}, err
	}
	p, err := s.repo.Upsert(ctx, ownerID, patch)
	if err != nil {
		return types.Progress{}, err
	}
	s.events.Emit(ctx, events.Event{
		Type:         events.TypeProgressUpdated,
		UserID:       ownerID,
		CurrentLevel: p.CurrentLevel,
		HintStage:    p.HintStage,
		Attempts:     p.DiagnosticAttempts,
	})
	return p, nil
}

// IncrementDiagnosticAttempt consumes one attempt and returns the new count,
// or ErrAttemptsExhausted once the stored count is 3.
func (s *ProgressService) IncrementDiagnosticAttempt(ctx context.Context, caller authz.Principal, ownerID string) (int, error) {
	if err := s.authorize(caller, ownerID, authz.OpUpdate); err != nil {
		return 0, err
	}
	attempts, err := s.repo.IncrementAttempts(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	s.events.Emit(ctx, events.Event{
		Type:     events.TypeProgressUpdated,
		UserID:   ownerID,
		Attempts: attempts,
	})
	return attempts, nil
}

// MarkDiagnosticPassed stores the diagnostic outcome. Level advancement is a
// separate, explicit caller decision; this never auto-advances.
func (s *ProgressService) MarkDiagnosticPassed(ctx context.Context, caller authz.Principal, ownerID string, passed bool) (types.Progress, error) {
	if err := s.authorize(caller, ownerID, authz.OpUpdate); err != nil {
		return types.Progress{}, err
	}
	p, err := s.repo.SetPassed(ctx, ownerID, passed)
	if err != nil {
		return types.Progress{}, err
	}
	evtType := events.TypeProgressUpdated
	if passed {
		evtType = events.TypeDiagnosticPassed
	}
	s.events.Emit(ctx, events.Event{Type: evtType, UserID: ownerID, Passed: passed})
	return p, nil
}

// AdvanceLevel bumps the level and returns the new one, or ErrMaxLevel at 5.
func (s *ProgressService) AdvanceLevel(ctx context.Context, caller authz.Principal, ownerID string) (int, error) {
	if err := s.authorize(caller, ownerID, authz.OpUpdate); err != nil {
		return 0, err
	}
	level, err := s.repo.AdvanceLevel(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	s.events.Emit(ctx, events.Event{
		Type:         events.TypeLevelAdvanced,
		UserID:       ownerID,
		CurrentLevel: level,
	})
	return level, nil
}

// AdvanceHintStage bumps the hint stage, or ErrMaxHint at 2.
func (s *ProgressService) AdvanceHintStage(ctx context.Context, caller authz.Principal, ownerID string) (int, error) {
	if err := s.authorize(caller, ownerID, authz.OpUpdate); err != nil {
		return 0, err
	}
	stage, err := s.repo.AdvanceHintStage(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	s.events.Emit(ctx, events.Event{
		Type:      events.TypeProgressUpdated,
		UserID:    ownerID,
		HintStage: stage,
	})
	return stage, nil
}

// Reset deletes the record, returning the state to "not started". Resetting
// an absent record succeeds.
func (s *ProgressService) Reset(ctx context.Context, caller authz.Principal, ownerID string) error {
	if err := s.authorize(caller, ownerID, authz.OpDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, ownerID); err != nil {
		return err
	}
	s.events.Emit(ctx, events.Event{Type: events.TypeProgressReset, UserID: ownerID})
	return nil
}

func validatePatch(patch types.ProgressPatch) error {
	if patch.CurrentLevel != nil && (*patch.CurrentLevel < types.MinLevel || *patch.CurrentLevel > types.MaxLevel) {
		return fmt.Errorf("%w: current_level %d out of range [%d,%d]",
			errs.ErrValidation, *patch.CurrentLevel, types.MinLevel, types.MaxLevel)
	}
	if patch.DiagnosticAttempts != nil && (*patch.DiagnosticAttempts < 0 || *patch.DiagnosticAttempts > types.MaxAttempts) {
		return fmt.Errorf("%w: diagnostic_attempts %d out of range [0,%d]",
			errs.ErrValidation, *patch.DiagnosticAttempts, types.MaxAttempts)
	}
	if patch.HintStage != nil && (*patch.HintStage < 0 || *patch.HintStage > types.MaxHintStage) {
		return fmt.Errorf("%w: hint_stage %d out of range [0,%d]",
			errs.ErrValidation, *patch.HintStage, types.MaxHintStage)
	}
	return nil
}
