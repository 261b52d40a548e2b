// Package reconcile diffs a desired collection state against the last
// known snapshot and issues the minimal set of remote create, update,
// and delete operations, in a fixed order.
package reconcile

import (
	"context"
	"log"
	"reflect"
)

// Remote is the per-item mutation surface of one synced collection.
type Remote[T any] interface {
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, id int64, item T) error
	Delete(ctx context.Context, id int64) error
}

// Plan holds the disjoint operation sets derived from one diff, keyed by
// stable item id.
type Plan[T any] struct {
	ToDelete []int64
	ToCreate []T
	ToUpdate []T
}

// Empty reports whether the plan would issue no operations.
func (p Plan[T]) Empty() bool {
	return len(p.ToDelete) == 0 && len(p.ToCreate) == 0 && len(p.ToUpdate) == 0
}

// Syncer reconciles one collection. ID extracts an item's stable id and
// WithID returns a copy carrying a server-assigned id; both must be set.
type Syncer[T any] struct {
	Key    string
	ID     func(T) int64
	WithID func(T, int64) T
	Remote Remote[T]
	Logger *log.Logger

	// OnError receives every non-fatal per-item failure; the batch
	// continues regardless.
	OnError func(collection string, err error)
	// OnCommit is the cross-session change signal, fired once after the
	// snapshot commit of a batch that issued at least one operation.
	OnCommit func(collection string)
}

func (s Syncer[T]) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

// New computes the plan for moving previous to desired. Items are matched
// by id; matched items with structurally different content become updates,
// unchanged ones produce no operation.
func New[T any](id func(T) int64, previous, desired []T) Plan[T] {
	prevByID := make(map[int64]T, len(previous))
	for _, item := range previous {
		prevByID[id(item)] = item
	}
	desiredIDs := make(map[int64]struct{}, len(desired))
	for _, item := range desired {
		desiredIDs[id(item)] = struct{}{}
	}

	var plan Plan[T]
	for _, item := range previous {
		if _, ok := desiredIDs[id(item)]; !ok {
			plan.ToDelete = append(plan.ToDelete, id(item))
		}
	}
	for _, item := range desired {
		prev, ok := prevByID[id(item)]
		switch {
		case !ok:
			plan.ToCreate = append(plan.ToCreate, item)
		case !reflect.DeepEqual(prev, item):
			plan.ToUpdate = append(plan.ToUpdate, item)
		}
	}
	return plan
}

// Plan computes this syncer's plan for moving previous to desired.
func (s Syncer[T]) Plan(previous, desired []T) Plan[T] {
	return New(s.ID, previous, desired)
}

// Sync applies the plan and returns the committed snapshot: all deletes
// first, then each desired item in its original order, created or updated
// as needed. A create may return a server-assigned id, which replaces the
// client-provisional id in the committed record.
//
// The full desired set is committed even when individual operations fail;
// failures are logged and surfaced through OnError but never abort the
// batch or roll back the optimistic commit. The resulting client/server
// drift on partial failure is a deliberate trade, resolved by the next
// authoritative re-fetch.
func (s Syncer[T]) Sync(ctx context.Context, previous, desired []T) []T {
	prevByID := make(map[int64]T, len(previous))
	for _, item := range previous {
		prevByID[s.ID(item)] = item
	}
	desiredIDs := make(map[int64]struct{}, len(desired))
	for _, item := range desired {
		desiredIDs[s.ID(item)] = struct{}{}
	}

	issued := false
	for _, item := range previous {
		id := s.ID(item)
		if _, ok := desiredIDs[id]; ok {
			continue
		}
		issued = true
		if err := s.Remote.Delete(ctx, id); err != nil {
			s.report(err)
		}
	}

	committed := make([]T, 0, len(desired))
	for _, item := range desired {
		id := s.ID(item)
		prev, known := prevByID[id]
		switch {
		case !known:
			issued = true
			created, err := s.Remote.Create(ctx, item)
			if err != nil {
				s.report(err)
				break
			}
			if serverID := s.ID(created); serverID != 0 && serverID != id {
				item = s.WithID(item, serverID)
			}
		case !reflect.DeepEqual(prev, item):
			issued = true
			if err := s.Remote.Update(ctx, id, item); err != nil {
				s.report(err)
			}
		}
		committed = append(committed, item)
	}

	if issued && s.OnCommit != nil {
		s.OnCommit(s.Key)
	}
	return committed
}

func (s Syncer[T]) report(err error) {
	s.logger().Printf("sync %s: %v", s.Key, err)
	if s.OnError != nil {
		s.OnError(s.Key, err)
	}
}
