// Package approval decides who may see and decide on submitted records,
// and guards the Pending -> Approved/Rejected lifecycle.
package approval

import (
	"fmt"
	"strings"

	"crewtime/internal/domain"
)

// DeniedError marks a transition attempted by a reviewer whose resolved
// set does not contain the record's owner. Raised before any network call.
type DeniedError struct {
	ReviewerID int64
	RecordID   int64
}

func (e DeniedError) Error() string {
	return fmt.Sprintf("reviewer %d is not authorized to decide record %d", e.ReviewerID, e.RecordID)
}

// TerminalError marks a transition attempted on a non-Pending record.
type TerminalError struct {
	RecordID int64
	Status   domain.Status
}

func (e TerminalError) Error() string {
	return fmt.Sprintf("record %d is already %s and cannot transition", e.RecordID, e.Status)
}

// Visible reports whether the reviewer may see and decide records owned
// by the given actor.
//
// Managers review every owner in their company. Admins review every
// company owner except peer Managers. Team Leaders review direct reports
// only (owner.ManagerID equal to the reviewer's id, no recursion).
// Everyone else reviews nothing.
func Visible(reviewer, owner domain.Actor) bool {
	switch reviewer.Role {
	case domain.RoleManager:
		return owner.Company == reviewer.Company
	case domain.RoleAdmin:
		return owner.Company == reviewer.Company && owner.Role != domain.RoleManager
	case domain.RoleTeamLeader:
		return owner.ManagerID == reviewer.ID
	default:
		return false
	}
}

// Resolve returns the subset of records the reviewer may see and decide.
// Pure and deterministic: identical inputs yield identical results.
// Records whose owner is absent from the roster are excluded; dangling
// owner references are tolerated, not reported.
func Resolve[S domain.Submittable](reviewer domain.Actor, roster []domain.Actor, records []S) []S {
	byID := make(map[int64]domain.Actor, len(roster))
	for _, a := range roster {
		byID[a.ID] = a
	}
	var out []S
	for _, rec := range records {
		owner, ok := byID[rec.OwnerID()]
		if !ok {
			continue
		}
		if Visible(reviewer, owner) {
			out = append(out, rec)
		}
	}
	return out
}

// Authorize checks a transition attempt before any network call: the
// record must still be Pending, the target status must be terminal, and
// the record's owner must fall inside the reviewer's resolved set.
func Authorize(reviewer domain.Actor, roster []domain.Actor, record domain.Submittable, to domain.Status) error {
	if record.SubmitStatus() != domain.StatusPending {
		return TerminalError{RecordID: record.SubmittableID(), Status: record.SubmitStatus()}
	}
	if !to.Terminal() {
		return fmt.Errorf("invalid target status %q: only Approved or Rejected are reachable from Pending", to)
	}
	var owner domain.Actor
	found := false
	for _, a := range roster {
		if a.ID == record.OwnerID() {
			owner = a
			found = true
			break
		}
	}
	if !found || !Visible(reviewer, owner) {
		return DeniedError{ReviewerID: reviewer.ID, RecordID: record.SubmittableID()}
	}
	return nil
}

// Split divides a resolved set into the actionable Pending queue and the
// read-only history of decided records.
func Split[S domain.Submittable](records []S) (pending, history []S) {
	for _, rec := range records {
		if rec.SubmitStatus() == domain.StatusPending {
			pending = append(pending, rec)
		} else {
			history = append(history, rec)
		}
	}
	return pending, history
}

// HistoryFilter narrows decided records. Zero fields match everything.
type HistoryFilter struct {
	Status domain.Status
	From   string // inclusive YYYY-MM-DD
	To     string // inclusive YYYY-MM-DD
	Query  string // case-insensitive free text over payload fields
}

// FilterHistory applies the filter, using the supplied extractors for the
// variant's date and searchable text.
func FilterHistory[S domain.Submittable](history []S, f HistoryFilter, date func(S) string, text func(S) string) []S {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	var out []S
	for _, rec := range history {
		if f.Status != "" && rec.SubmitStatus() != f.Status {
			continue
		}
		if f.From != "" || f.To != "" {
			d := date(rec)
			if f.From != "" && d < f.From {
				continue
			}
			if f.To != "" && d > f.To {
				continue
			}
		}
		if query != "" && !strings.Contains(strings.ToLower(text(rec)), query) {
			continue
		}
		out = append(out, rec)
	}
	return out
}
