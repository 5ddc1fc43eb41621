package service

import (
	"time"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
)

// ComputeDeadlineStatus derives the status of one deadline for one entity
// at the given instant. Pure: no state, no I/O. The same calculus backs the
// read-path status display and the flag reconciliation pass.
//
// submittedAt is the entity's submission instant for this deadline, nil
// when the entity never acted on it.
func ComputeDeadlineStatus(d *models.Deadline, submittedAt *time.Time, now time.Time) models.DeadlineStatus {
	if d.Kind == models.DeadlineKindAnnouncement {
		return models.StatusAnnouncement
	}

	effective := d.EffectiveDue()
	if effective == nil {
		return models.StatusUpcoming
	}

	// Late, grace and lock semantics only apply to SUBMISSION deadlines;
	// on other kinds the fields are inert.
	allowLate := d.AllowLate && d.Kind == models.DeadlineKindSubmission
	lockAfterGrace := d.LockAfterGrace && d.Kind == models.DeadlineKindSubmission

	graceEnd := *effective
	if allowLate {
		graceEnd = effective.Add(time.Duration(d.GracePeriodMinutes) * time.Minute)
	}

	// An already-submitted entity never becomes locked or overdue,
	// regardless of the current time.
	if submittedAt != nil {
		if !submittedAt.After(*effective) {
			return models.StatusSubmitted
		}
		return models.StatusSubmittedLate
	}

	if now.After(*effective) {
		// Past grace the status hardens into a lock only when the
		// deadline says so; otherwise it stays overdue indefinitely.
		if lockAfterGrace && now.After(graceEnd) {
			return models.StatusLocked
		}
		return models.StatusOverdue
	}

	if d.WindowStart != nil && !now.Before(*d.WindowStart) && !now.After(*effective) {
		return models.StatusInWindow
	}

	return models.StatusUpcoming
}

// StatusImpliesOverdue reports whether a computed status should raise the
// denormalized overdue flag on the entity's workflow state.
func StatusImpliesOverdue(status models.DeadlineStatus) bool {
	return status == models.StatusOverdue || status == models.StatusLocked
}
