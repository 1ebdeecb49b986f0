package services

import (
	"errors"
	"fmt"
)

// NotFound
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrInvalidTier        = errors.New("invalid tier")
	ErrCompletionNotFound = errors.New("completion not found")
	ErrNotRanked          = errors.New("user has no position on this leaderboard")
)

// PreconditionFailed: no mutation happened, the caller may retry later.
var (
	ErrAlreadyCheckedIn    = errors.New("already checked in today")
	ErrOnCooldown          = errors.New("task is on cooldown")
	ErrMaxCompletions      = errors.New("maximum completions reached")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrProofPending        = errors.New("proof already submitted and awaiting review")
	ErrAwaitingClaim       = errors.New("previous completion is verified and waiting to be claimed")
	ErrNotClaimable        = errors.New("completion is not claimable")
	ErrNotPending          = errors.New("completion is not pending review")
	ErrDuplicateTask       = errors.New("a task with this slug already exists")
)

// Bad input
var (
	ErrInvalidScope              = errors.New("invalid leaderboard scope")
	ErrInvalidTask               = errors.New("invalid task definition")
	ErrInvalidNotificationTarget = errors.New("invalid notification target")
)

var (
	ErrStore            = errors.New("store failure")
	ErrConcurrentUpdate = errors.New("concurrent update on user ledger")
)

// CooldownError carries the whole hours (rounded up) until the task can be completed again.
type CooldownError struct {
	HoursRemaining int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: %d hour(s) remaining", ErrOnCooldown, e.HoursRemaining)
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrOnCooldown
}

var (
	notFoundErrors     = []error{ErrUserNotFound, ErrTaskNotFound, ErrCompletionNotFound, ErrNotRanked}
	preconditionErrors = []error{
		ErrAlreadyCheckedIn, ErrOnCooldown, ErrMaxCompletions, ErrInsufficientBalance,
		ErrProofPending, ErrAwaitingClaim, ErrNotClaimable, ErrNotPending, ErrDuplicateTask,
	}
	badInputErrors     = []error{ErrInvalidTier, ErrInvalidScope, ErrInvalidTask, ErrInvalidNotificationTarget}
)

func IsNotFound(err error) bool     { return isAny(err, notFoundErrors) }
func IsPrecondition(err error) bool { return isAny(err, preconditionErrors) }
func IsBadInput(err error) bool     { return isAny(err, badInputErrors) }

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// isDomainError: anything that should reach the caller unwrapped.
func isDomainError(err error) bool {
	return IsNotFound(err) || IsPrecondition(err) || IsBadInput(err) ||
		errors.Is(err, ErrStore) || errors.Is(err, ErrConcurrentUpdate)
}

// storeErr wraps a persistence error so callers can match ErrStore.
func storeErr(action string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, action, err)
}

var reasons = map[error]string{
	ErrUserNotFound:              "user_not_found",
	ErrTaskNotFound:              "task_not_found",
	ErrInvalidTier:               "invalid_tier",
	ErrCompletionNotFound:        "completion_not_found",
	ErrNotRanked:                 "not_ranked",
	ErrAlreadyCheckedIn:          "already_checked_in",
	ErrOnCooldown:                "on_cooldown",
	ErrMaxCompletions:            "max_completions_reached",
	ErrInsufficientBalance:       "insufficient_balance",
	ErrProofPending:              "proof_pending",
	ErrAwaitingClaim:             "awaiting_claim",
	ErrNotClaimable:              "not_claimable",
	ErrNotPending:                "not_pending",
	ErrDuplicateTask:             "duplicate_task",
	ErrInvalidScope:              "invalid_scope",
	ErrInvalidTask:               "invalid_task",
	ErrInvalidNotificationTarget: "invalid_notification_target",
	ErrConcurrentUpdate:          "concurrent_update",
	ErrStore:                     "store_failure",
}

// Reason is a stable machine-readable code for err, used in responses and metrics.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	for target, code := range reasons {
		// ErrStore is matched last; a store failure may wrap another sentinel.
		if target != ErrStore && errors.Is(err, target) {
			return code
		}
	}
	if errors.Is(err, ErrStore) {
		return reasons[ErrStore]
	}
	return "internal"
}
