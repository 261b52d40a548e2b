package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"reflect"
	"testing"

	"crewtime/internal/reconcile"
)

type item struct {
	ID    int64
	Label string
}

type op struct {
	Kind string
	ID   int64
}

// fakeRemote records every call in order and can fail selected operations.
type fakeRemote struct {
	Ops      []op
	ServerID int64
	FailOn   map[op]error
}

func (f *fakeRemote) Create(ctx context.Context, it item) (item, error) {
	call := op{Kind: "create", ID: it.ID}
	f.Ops = append(f.Ops, call)
	if err := f.FailOn[call]; err != nil {
		return item{}, err
	}
	if f.ServerID != 0 {
		it.ID = f.ServerID
	}
	return it, nil
}

func (f *fakeRemote) Update(ctx context.Context, id int64, it item) error {
	call := op{Kind: "update", ID: id}
	f.Ops = append(f.Ops, call)
	return f.FailOn[call]
}

func (f *fakeRemote) Delete(ctx context.Context, id int64) error {
	call := op{Kind: "delete", ID: id}
	f.Ops = append(f.Ops, call)
	return f.FailOn[call]
}

func newSyncer(remote *fakeRemote) reconcile.Syncer[item] {
	return reconcile.Syncer[item]{
		Key:    "items",
		ID:     func(it item) int64 { return it.ID },
		WithID: func(it item, id int64) item { it.ID = id; return it },
		Remote: remote,
		Logger: log.New(io.Discard, "", 0),
	}
}

func TestPlanDisjointSets(t *testing.T) {
	previous := []item{{ID: 1, Label: "keep"}, {ID: 2, Label: "old"}, {ID: 3, Label: "gone"}}
	desired := []item{{ID: 1, Label: "keep"}, {ID: 2, Label: "new"}, {ID: 4, Label: "fresh"}}

	plan := newSyncer(nil).Plan(previous, desired)

	if !reflect.DeepEqual(plan.ToDelete, []int64{3}) {
		t.Fatalf("deletes = %v, want [3]", plan.ToDelete)
	}
	if len(plan.ToCreate) != 1 || plan.ToCreate[0].ID != 4 {
		t.Fatalf("creates = %v, want item 4", plan.ToCreate)
	}
	if len(plan.ToUpdate) != 1 || plan.ToUpdate[0].ID != 2 {
		t.Fatalf("updates = %v, want item 2", plan.ToUpdate)
	}
}

func TestPlanEmptyWhenUnchanged(t *testing.T) {
	set := []item{{ID: 1, Label: "a"}, {ID: 2, Label: "b"}}
	plan := newSyncer(nil).Plan(set, set)
	if !plan.Empty() {
		t.Fatalf("plan = %+v, want empty", plan)
	}
}

func TestSyncNoCallsWhenUnchanged(t *testing.T) {
	remote := &fakeRemote{}
	s := newSyncer(remote)
	committed := false
	s.OnCommit = func(string) { committed = true }

	set := []item{{ID: 1, Label: "a"}}
	out := s.Sync(context.Background(), set, set)

	if len(remote.Ops) != 0 {
		t.Fatalf("ops = %v, want none", remote.Ops)
	}
	if committed {
		t.Fatal("OnCommit fired for a no-op batch")
	}
	if !reflect.DeepEqual(out, set) {
		t.Fatalf("committed = %v, want %v", out, set)
	}
}

func TestSyncDeletesBeforeCreates(t *testing.T) {
	remote := &fakeRemote{}
	s := newSyncer(remote)

	previous := []item{{ID: 1}, {ID: 2}}
	desired := []item{{ID: 2}, {ID: 9, Label: "new"}}
	s.Sync(context.Background(), previous, desired)

	want := []op{{Kind: "delete", ID: 1}, {Kind: "create", ID: 9}}
	if !reflect.DeepEqual(remote.Ops, want) {
		t.Fatalf("ops = %v, want %v", remote.Ops, want)
	}
}

func TestSyncAdoptsServerAssignedID(t *testing.T) {
	remote := &fakeRemote{ServerID: 42}
	s := newSyncer(remote)

	out := s.Sync(context.Background(), nil, []item{{ID: 1700000000000, Label: "provisional"}})

	if len(out) != 1 || out[0].ID != 42 {
		t.Fatalf("committed = %v, want server id 42", out)
	}
	if out[0].Label != "provisional" {
		t.Fatalf("label lost on id substitution: %v", out[0])
	}
}

func TestSyncKeepsClientIDWhenServerEchoes(t *testing.T) {
	remote := &fakeRemote{}
	s := newSyncer(remote)

	out := s.Sync(context.Background(), nil, []item{{ID: 7, Label: "x"}})
	if out[0].ID != 7 {
		t.Fatalf("id = %d, want 7", out[0].ID)
	}
}

func TestSyncCommitsDespitePartialFailure(t *testing.T) {
	boom := errors.New("boom")
	remote := &fakeRemote{FailOn: map[op]error{
		{Kind: "update", ID: 2}: boom,
		{Kind: "delete", ID: 3}: boom,
	}}
	s := newSyncer(remote)
	var reported []error
	s.OnError = func(collection string, err error) {
		if collection != "items" {
			t.Fatalf("collection = %q, want items", collection)
		}
		reported = append(reported, err)
	}

	previous := []item{{ID: 1, Label: "a"}, {ID: 2, Label: "b"}, {ID: 3, Label: "c"}}
	desired := []item{{ID: 1, Label: "a"}, {ID: 2, Label: "B"}, {ID: 4, Label: "d"}}
	out := s.Sync(context.Background(), previous, desired)

	if !reflect.DeepEqual(out, desired) {
		t.Fatalf("committed = %v, want full desired set %v", out, desired)
	}
	if len(reported) != 2 {
		t.Fatalf("reported %d errors, want 2: %v", len(reported), reported)
	}
}

func TestSyncFailedCreateStillCommitsItem(t *testing.T) {
	remote := &fakeRemote{FailOn: map[op]error{
		{Kind: "create", ID: 5}: fmt.Errorf("unreachable"),
	}}
	s := newSyncer(remote)

	out := s.Sync(context.Background(), nil, []item{{ID: 5, Label: "optimistic"}})
	if len(out) != 1 || out[0].ID != 5 {
		t.Fatalf("committed = %v, want the optimistic item", out)
	}
}

func TestSyncOnCommitFiresOncePerBatch(t *testing.T) {
	remote := &fakeRemote{}
	s := newSyncer(remote)
	fired := 0
	s.OnCommit = func(collection string) {
		if collection != "items" {
			t.Fatalf("collection = %q", collection)
		}
		fired++
	}

	previous := []item{{ID: 1}, {ID: 2}}
	desired := []item{{ID: 3}, {ID: 4}}
	s.Sync(context.Background(), previous, desired)

	if fired != 1 {
		t.Fatalf("OnCommit fired %d times, want 1", fired)
	}
}
