package mutation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/wardrobe/internal/domain"
	"github.com/mmcdole/wardrobe/internal/store"
)

type fakeCanceler struct {
	calls int
}

func (f *fakeCanceler) CancelFetches(store.Predicate[domain.PageKey]) int {
	f.calls++
	return 0
}

func makePage(page, size, total int, ids ...string) domain.Page {
	p := domain.Page{Page: page, PageSize: size, Total: total}
	for _, id := range ids {
		p.Items = append(p.Items, domain.Item{ID: id, Status: domain.StatusReady})
	}
	p.RecomputeHasMore()
	return p
}

func seqIDs(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return ids
}

func newTestCoordinator() (*store.PageStore, *Coordinator, *fakeCanceler) {
	pages := store.NewMemoryPageStore()
	cancel := &fakeCanceler{}
	return pages, NewCoordinator(pages, cancel, nil), cancel
}

var rootKey = domain.NewPageKey(domain.ItemFilter{}, 1, 20)

func TestRun_SuccessConfirmsAndInvalidates(t *testing.T) {
	pages, c, cancel := newTestCoordinator()
	pages.Fill(rootKey, makePage(1, 20, 3, "a", "b", "c"), 0)

	var invalidations int
	pages.OnInvalidate(func([]domain.PageKey) { invalidations++ })

	m := Mutation[string]{
		Name:  "delete",
		Scope: store.InNamespace(domain.NamespaceItems),
		Plan:  RemoveFromListings([]string{"b"}),
		Call: func(context.Context) (string, error) {
			got, _ := pages.Get(rootKey)
			assert.Equal(t, []string{"a", "c"}, got.IDs(), "optimistic state is visible before the call")
			return "ok", nil
		},
		Describe: func(r string) string { return "done: " + r },
	}

	out := Run(context.Background(), c, m)
	assert.True(t, out.OK())
	assert.Equal(t, StateConfirmed, out.State)
	assert.Equal(t, "ok", out.Result)
	assert.Equal(t, "done: ok", out.Message)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, 1, cancel.calls)
	assert.Equal(t, 2, invalidations, "confirm and settle each invalidate")
	assert.True(t, pages.Stale(rootKey))
	assert.Equal(t, 0, c.InFlight())

	got, _ := pages.Get(rootKey)
	assert.Equal(t, []string{"a", "c"}, got.IDs())
	assert.Equal(t, 2, got.Total)
}

func TestRun_FailureRestoresExactly(t *testing.T) {
	pages, c, _ := newTestCoordinator()
	shirts := domain.NewPageKey(domain.ItemFilter{Type: "shirt"}, 1, 20)
	pages.Fill(rootKey, makePage(1, 20, 3, "a", "b", "c"), 0)
	pages.Fill(shirts, makePage(1, 20, 1, "b"), 0)

	before := pages.Snapshot(store.All[domain.PageKey]())

	boom := &domain.APIError{Status: 409, Detail: "item is in an outfit"}
	out := Run(context.Background(), c, Mutation[struct{}]{
		Name:  "delete",
		Scope: store.InNamespace(domain.NamespaceItems),
		Plan:  RemoveFromListings([]string{"b"}),
		Call:  func(context.Context) (struct{}, error) { return struct{}{}, boom },
	})

	assert.False(t, out.OK())
	assert.Equal(t, StateRolledBack, out.State)
	assert.ErrorIs(t, out.Err, boom)
	assert.Equal(t, "delete failed: item is in an outfit", out.Message)

	for _, e := range before.Entries {
		got, ok := pages.Get(e.Key)
		require.True(t, ok)
		assert.Equal(t, e.Value, got)
		assert.True(t, pages.Stale(e.Key), "settle invalidates after rollback")
	}
}

func TestBegin_TransformErrorLeavesCacheUntouched(t *testing.T) {
	pages, c, _ := newTestCoordinator()
	pages.Fill(rootKey, makePage(1, 20, 1, "a"), 0)

	called := false
	txn := Begin(c, Mutation[int]{
		Name: "broken",
		Transform: func(domain.PageKey, domain.Page) (domain.Page, error) {
			return domain.Page{}, errors.New("bad page")
		},
		Call: func(context.Context) (int, error) { called = true; return 1, nil },
	})
	assert.Equal(t, StateSettled, txn.State())

	_, err := txn.Dispatch(context.Background())
	require.Error(t, err)
	assert.False(t, called)

	out := txn.Settle(0, err)
	assert.Equal(t, StateRolledBack, out.State)
	assert.False(t, pages.Stale(rootKey))

	got, _ := pages.Get(rootKey)
	assert.Equal(t, []string{"a"}, got.IDs())
	assert.Equal(t, 0, c.InFlight())
}

func TestTxn_StatesAndIdempotentSettle(t *testing.T) {
	pages, c, _ := newTestCoordinator()
	pages.Fill(rootKey, makePage(1, 20, 1, "a"), 0)

	txn := Begin(c, Mutation[int]{Name: "noop", Call: func(context.Context) (int, error) { return 7, nil }})
	assert.Equal(t, StateOptimisticApplied, txn.State())
	assert.True(t, c.Pending(rootKey))

	r, err := txn.Dispatch(context.Background())
	require.NoError(t, err)
	first := txn.Settle(r, err)
	assert.Equal(t, StateSettled, txn.State())
	assert.False(t, c.Pending(rootKey))

	second := txn.Settle(0, errors.New("late"))
	assert.Equal(t, first, second)

	_, err = txn.Dispatch(context.Background())
	assert.ErrorIs(t, err, ErrNotApplied)
}

func TestRollback_PreservesLaterPendingMutation(t *testing.T) {
	pages, c, _ := newTestCoordinator()
	pages.Fill(rootKey, makePage(1, 20, 4, "a", "b", "c", "d"), 0)

	del := Begin(c, Mutation[struct{}]{Name: "delete", Plan: RemoveFromListings([]string{"a"})})
	analyze := Begin(c, Mutation[struct{}]{Name: "analyze", Transform: SetStatus([]string{"c"}, domain.StatusProcessing)})

	out := del.Settle(struct{}{}, domain.ErrServerOffline)
	require.Equal(t, StateRolledBack, out.State)

	got, _ := pages.Get(rootKey)
	assert.Equal(t, []string{"a", "b", "c", "d"}, got.IDs(), "delete rolled back")
	assert.Equal(t, 4, got.Total)
	item, _ := got.Find("c")
	assert.Equal(t, domain.StatusProcessing, item.Status, "concurrent analyze survives the rollback")

	// The analyze snapshot was rebased, so its own rollback does not resurrect the delete.
	analyze.Settle(struct{}{}, errors.New("nope"))
	got, _ = pages.Get(rootKey)
	item, _ = got.Find("c")
	assert.Equal(t, domain.StatusReady, item.Status)
	assert.Equal(t, []string{"a", "b", "c", "d"}, got.IDs())
}

func TestRollback_RebasesOnlyWhereScopesOverlap(t *testing.T) {
	pages, c, _ := newTestCoordinator()
	shirts := domain.ItemFilter{Type: "shirt"}
	shirtKey := domain.NewPageKey(shirts, 1, 20)
	pages.Fill(rootKey, makePage(1, 20, 4, "a", "b", "c", "d"), 0)
	pages.Fill(shirtKey, makePage(1, 20, 2, "b", "c"), 0)

	analyze := Begin(c, Mutation[struct{}]{
		Name:      "analyze",
		Scope:     store.WithFilter(domain.NamespaceItems, shirts),
		Transform: SetStatus([]string{"c"}, domain.StatusProcessing),
	})
	del := Begin(c, Mutation[struct{}]{Name: "delete", Plan: RemoveFromListings([]string{"b"})})

	analyze.Settle(struct{}{}, domain.ErrServerOffline)

	root, _ := pages.Get(rootKey)
	assert.Equal(t, []string{"a", "c", "d"}, root.IDs())
	assert.Equal(t, 3, root.Total, "delete is not applied twice outside the rolled back scope")
	shirt, _ := pages.Get(shirtKey)
	assert.Equal(t, []string{"c"}, shirt.IDs())
	assert.Equal(t, 1, shirt.Total)
	item, _ := shirt.Find("c")
	assert.Equal(t, domain.StatusReady, item.Status)

	del.Settle(struct{}{}, domain.ErrServerOffline)

	root, _ = pages.Get(rootKey)
	assert.Equal(t, []string{"a", "b", "c", "d"}, root.IDs())
	assert.Equal(t, 4, root.Total)
	shirt, _ = pages.Get(shirtKey)
	assert.Equal(t, []string{"b", "c"}, shirt.IDs())
	assert.Equal(t, 2, shirt.Total)
}

func TestRun_PartialBulkIsNotAFailure(t *testing.T) {
	pages, c, _ := newTestCoordinator()
	pages.Fill(rootKey, makePage(1, 20, 2, "a", "b"), 0)

	out := Run(context.Background(), c, Mutation[domain.BulkDeleteResult]{
		Name: "bulk delete",
		Plan: RemoveFromListings([]string{"a", "b"}),
		Call: func(context.Context) (domain.BulkDeleteResult, error) {
			return domain.BulkDeleteResult{Deleted: 1, Failed: 1, Errors: []string{"b: locked"}}, nil
		},
		Report: func(r domain.BulkDeleteResult) (int, []string) { return r.Failed, r.Errors },
	})

	assert.True(t, out.OK())
	assert.True(t, out.Partial)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, []string{"b: locked"}, out.Errors)
	assert.True(t, pages.Stale(rootKey))
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"offline", fmt.Errorf("list: %w", domain.ErrServerOffline), "cannot reach the wardrobe server; check your connection and the server URL"},
		{"auth", domain.ErrAuthFailed, "the server rejected the token; run 'wardrobe setup' again"},
		{"not found", domain.ErrItemNotFound, "item no longer exists"},
		{"api detail", &domain.APIError{Status: 400, Detail: "Too many ids"}, "Too many ids"},
		{"api no detail", &domain.APIError{Status: 502}, "server returned status 502"},
		{"cancelled", context.Canceled, "cancelled"},
		{"other", errors.New("weird"), "weird"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.err))
		})
	}
}
