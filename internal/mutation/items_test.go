package mutation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/wardrobe/internal/domain"
	"github.com/mmcdole/wardrobe/internal/selection"
)

// fakeServer holds the authoritative collection and can refuse some deletes
type fakeServer struct {
	items    []domain.Item
	locked   map[string]bool
	lastBulk domain.BulkRequest
	err      error
}

func newFakeServer(ids ...string) *fakeServer {
	s := &fakeServer{locked: map[string]bool{}}
	for _, id := range ids {
		s.items = append(s.items, domain.Item{ID: id, Type: "shirt", Status: domain.StatusReady})
	}
	return s
}

func (s *fakeServer) list(page, size int) domain.Page {
	p := domain.Page{Page: page, PageSize: size, Total: len(s.items)}
	start := min((page-1)*size, len(s.items))
	end := min(start+size, len(s.items))
	p.Items = append([]domain.Item(nil), s.items[start:end]...)
	p.RecomputeHasMore()
	return p
}

func (s *fakeServer) remove(id string) bool {
	if s.locked[id] {
		return false
	}
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

func (s *fakeServer) DeleteItem(_ context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	if !s.remove(id) {
		return domain.ErrItemNotFound
	}
	return nil
}

func (s *fakeServer) AnalyzeItem(context.Context, string) error { return s.err }

func (s *fakeServer) ArchiveItem(_ context.Context, id, _ string) (domain.Item, error) {
	return domain.Item{ID: id, IsArchived: true, Status: domain.StatusArchived}, s.err
}

func (s *fakeServer) RestoreItem(_ context.Context, id string) (domain.Item, error) {
	return domain.Item{ID: id, Status: domain.StatusReady}, s.err
}

func (s *fakeServer) SetFavorite(_ context.Context, id string, favorite bool) (domain.Item, error) {
	return domain.Item{ID: id, Favorite: favorite}, s.err
}

func (s *fakeServer) BulkDelete(_ context.Context, req domain.BulkRequest) (domain.BulkDeleteResult, error) {
	s.lastBulk = req
	if s.err != nil {
		return domain.BulkDeleteResult{}, s.err
	}
	var res domain.BulkDeleteResult
	for _, id := range req.ItemIDs {
		if s.remove(id) {
			res.Deleted++
		} else {
			res.Failed++
			res.Errors = append(res.Errors, id+": locked")
		}
	}
	return res, nil
}

func (s *fakeServer) BulkAnalyze(_ context.Context, req domain.BulkRequest) (domain.BulkAnalyzeResult, error) {
	s.lastBulk = req
	return domain.BulkAnalyzeResult{Queued: len(req.ItemIDs)}, s.err
}

func TestBulkDelete_OptimisticCountsThenServerTruth(t *testing.T) {
	server := newFakeServer(seqIDs("i", 45)...)
	server.locked["i2"] = true

	pages, c, _ := newTestCoordinator()
	pages.Fill(rootKey, server.list(1, 20), 0)

	// N=3 of M=20 on a collection of T=45
	sel := selection.None().Toggle("i1", true).Toggle("i2", true).Toggle("i3", true)
	m, err := NewItems(server).BulkDelete(sel, domain.ItemFilter{}, pages)
	require.NoError(t, err)

	txn := Begin(c, m)
	optimistic, _ := pages.Get(rootKey)
	assert.Len(t, optimistic.Items, 17)
	assert.Equal(t, 42, optimistic.Total)
	assert.True(t, optimistic.HasMore)

	r, err := txn.Dispatch(context.Background())
	out := txn.Settle(r, err)
	require.True(t, out.OK())
	assert.True(t, out.Partial)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, "deleted 2 items, 1 failed", out.Message)
	assert.Equal(t, []string{"i1", "i2", "i3"}, server.lastBulk.ItemIDs)

	// Settlement left the page stale; the refetch reflects what the server really did.
	require.True(t, pages.Stale(rootKey))
	require.True(t, pages.Fill(rootKey, server.list(1, 20), pages.Generation(rootKey)))
	refetched, _ := pages.Get(rootKey)
	assert.Equal(t, 43, refetched.Total)
	assert.Contains(t, refetched.IDs(), "i2")
	assert.Len(t, refetched.Items, 20)
}

func TestBulkDelete_SelectAll(t *testing.T) {
	server := newFakeServer("a", "b", "c", "d")
	pages, c, _ := newTestCoordinator()

	shirts := domain.ItemFilter{Type: "shirt"}
	shirtKey := domain.NewPageKey(shirts, 1, 2)
	otherKey := domain.NewPageKey(domain.ItemFilter{}, 1, 20)
	pages.Fill(shirtKey, makePage(1, 2, 10, "a", "b"), 0)
	pages.Fill(otherKey, makePage(1, 20, 3, "b", "x", "y"), 0)

	sel := selection.None().SelectAll().Toggle("a", false)
	m, err := NewItems(server).BulkDelete(sel, shirts, pages)
	require.NoError(t, err)

	Begin(c, m)

	same, _ := pages.Get(shirtKey)
	assert.Equal(t, []string{"a"}, same.IDs())
	assert.Equal(t, 1, same.Total)
	assert.False(t, same.HasMore)

	other, _ := pages.Get(otherKey)
	assert.Equal(t, []string{"x", "y"}, other.IDs(), "visible targets leave other listings too")
	assert.Equal(t, 2, other.Total)
}

func TestBulkDelete_SiblingPagesKeepOneTotal(t *testing.T) {
	server := newFakeServer("a", "b", "c", "d")
	pages, c, _ := newTestCoordinator()

	p1 := domain.NewPageKey(domain.ItemFilter{}, 1, 2)
	p2 := domain.NewPageKey(domain.ItemFilter{}, 2, 2)
	pages.Fill(p1, server.list(1, 2), 0)
	pages.Fill(p2, server.list(2, 2), 0)

	sel := selection.None().Toggle("a", true).Toggle("c", true)
	m, err := NewItems(server).BulkDelete(sel, domain.ItemFilter{}, pages)
	require.NoError(t, err)
	Begin(c, m)

	first, _ := pages.Get(p1)
	second, _ := pages.Get(p2)
	assert.Equal(t, []string{"b"}, first.IDs())
	assert.Equal(t, []string{"d"}, second.IDs())
	assert.Equal(t, 2, first.Total)
	assert.Equal(t, 2, second.Total)
}

func TestArchive_SiblingPagesKeepOneTotal(t *testing.T) {
	pages, c, _ := newTestCoordinator()

	p1 := domain.NewPageKey(domain.ItemFilter{}, 1, 2)
	p2 := domain.NewPageKey(domain.ItemFilter{}, 2, 2)
	pages.Fill(p1, makePage(1, 2, 4, "a", "b"), 0)
	pages.Fill(p2, makePage(2, 2, 4, "c", "d"), 0)

	Begin(c, NewItems(newFakeServer()).Archive("c", ""))

	first, _ := pages.Get(p1)
	second, _ := pages.Get(p2)
	assert.Equal(t, []string{"a", "b"}, first.IDs())
	assert.Equal(t, 3, first.Total)
	assert.Equal(t, 3, second.Total)
	assert.False(t, second.HasMore)
}

func TestBulkDelete_SelectAllSendsFrozenFilter(t *testing.T) {
	server := newFakeServer()
	_, c, _ := newTestCoordinator()

	sel := selection.None().SelectAll().Toggle("z", false)
	m, err := NewItems(server).BulkDelete(sel, domain.ItemFilter{Type: "shirt", Search: "oxford"}, nil)
	require.NoError(t, err)

	out := Run(context.Background(), c, m)
	require.True(t, out.OK())

	req := server.lastBulk
	assert.True(t, req.SelectAll)
	assert.Equal(t, []string{"z"}, req.ExcludedIDs)
	require.NotNil(t, req.Filters)
	assert.Equal(t, "shirt", *req.Filters.Type)
	assert.Equal(t, "oxford", *req.Filters.Search)
}

func TestBulkDelete_RejectsEmptyAndUnfreezable(t *testing.T) {
	items := NewItems(newFakeServer())

	_, err := items.BulkDelete(selection.None(), domain.ItemFilter{}, nil)
	assert.ErrorIs(t, err, selection.ErrEmptySelection)

	_, err = items.BulkAnalyze(selection.None().SelectAll(), domain.ItemFilter{Colors: []string{"red"}}, nil)
	assert.ErrorIs(t, err, selection.ErrFilterNotBulkable)
}

func TestBulkAnalyze_FlipsStatus(t *testing.T) {
	server := newFakeServer()
	pages, c, _ := newTestCoordinator()
	pages.Fill(rootKey, makePage(1, 20, 3, "a", "b", "c"), 0)

	sel := selection.None().SelectAll().Toggle("b", false)
	m, err := NewItems(server).BulkAnalyze(sel, domain.ItemFilter{}, pages)
	require.NoError(t, err)

	Begin(c, m)
	got, _ := pages.Get(rootKey)
	for _, item := range got.Items {
		want := domain.StatusProcessing
		if item.ID == "b" {
			want = domain.StatusReady
		}
		assert.Equal(t, want, item.Status, item.ID)
	}
	assert.Equal(t, 3, got.Total, "analyze never changes membership")
}

func TestSingleItemMutations(t *testing.T) {
	archivedKey := domain.NewPageKey(domain.ItemFilter{IsArchived: true}, 1, 20)
	favKey := domain.NewPageKey(domain.ItemFilter{Favorite: func() *bool { b := true; return &b }()}, 1, 20)

	tests := []struct {
		name   string
		build  func(*Items) Mutation[domain.Item]
		key    domain.PageKey
		wantID []string
		check  func(t *testing.T, p domain.Page)
	}{
		{
			name:   "archive leaves the active listing",
			build:  func(it *Items) Mutation[domain.Item] { return it.Archive("a", "donated") },
			key:    rootKey,
			wantID: []string{"b"},
		},
		{
			name:   "restore leaves the archived listing",
			build:  func(it *Items) Mutation[domain.Item] { return it.Restore("a") },
			key:    archivedKey,
			wantID: []string{"b"},
		},
		{
			name:   "unfavorite leaves the favorites listing",
			build:  func(it *Items) Mutation[domain.Item] { return it.SetFavorite("a", false) },
			key:    favKey,
			wantID: []string{"b"},
		},
		{
			name:   "favorite flips the flag in place",
			build:  func(it *Items) Mutation[domain.Item] { return it.SetFavorite("a", true) },
			key:    rootKey,
			wantID: []string{"a", "b"},
			check: func(t *testing.T, p domain.Page) {
				item, _ := p.Find("a")
				assert.True(t, item.Favorite)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, c, _ := newTestCoordinator()
			pages.Fill(tt.key, makePage(1, 20, 2, "a", "b"), 0)

			txn := Begin(c, tt.build(NewItems(newFakeServer())))
			got, _ := pages.Get(tt.key)
			assert.Equal(t, tt.wantID, got.IDs())
			if tt.check != nil {
				tt.check(t, got)
			}

			r, err := txn.Dispatch(context.Background())
			assert.True(t, txn.Settle(r, err).OK())
		})
	}
}

func TestDeleteAndAnalyze_RollBackOnNetworkError(t *testing.T) {
	server := newFakeServer("a")
	server.err = domain.ErrServerOffline
	pages, c, _ := newTestCoordinator()
	pages.Fill(rootKey, makePage(1, 20, 1, "a"), 0)
	items := NewItems(server)

	out := Run(context.Background(), c, items.Delete("a"))
	assert.False(t, out.OK())
	assert.Contains(t, out.Message, "cannot reach the wardrobe server")

	out = Run(context.Background(), c, items.Analyze("a"))
	assert.False(t, out.OK())

	got, _ := pages.Get(rootKey)
	assert.Equal(t, []string{"a"}, got.IDs())
	assert.Equal(t, domain.StatusReady, got.Items[0].Status)
}

func TestPendingScopesCoverAllItemPages(t *testing.T) {
	pages, c, _ := newTestCoordinator()
	k := domain.NewPageKey(domain.ItemFilter{Type: "pants"}, 3, 20)
	pages.Fill(k, makePage(3, 20, 41, "p"), 0)

	txn := Begin(c, NewItems(newFakeServer()).Delete("p"))
	assert.True(t, c.Pending(k))
	assert.False(t, c.Pending(domain.PageKey{Namespace: "outfits"}))
	txn.Settle(struct{}{}, nil)
	assert.False(t, c.Pending(k))

}
