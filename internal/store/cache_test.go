package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/wardrobe/internal/domain"
)

func testPage(total int, ids ...string) domain.Page {
	p := domain.Page{Total: total, Page: 1, PageSize: 20}
	for _, id := range ids {
		p.Items = append(p.Items, domain.Item{ID: id, Status: domain.StatusReady, Colors: []string{"red"}})
	}
	p.RecomputeHasMore()
	return p
}

func newPageCache() *Cache[domain.PageKey, domain.Page] {
	return New[domain.PageKey](domain.Page.Clone)
}

func TestCache_GetReturnsCopies(t *testing.T) {
	c := newPageCache()
	k := domain.NewPageKey(domain.ItemFilter{}, 1, 20)
	c.Set(k, testPage(2, "a", "b"))

	got, ok := c.Get(k)
	require.True(t, ok)
	got.Items[0].Colors[0] = "blue"
	got.Total = 99

	again, _ := c.Get(k)
	assert.Equal(t, "red", again.Items[0].Colors[0])
	assert.Equal(t, 2, again.Total)
}

func TestCache_KeysInInsertionOrder(t *testing.T) {
	c := New[string, int](nil)
	c.Set("b", 1)
	c.Set("a", 2)
	c.Set("c", 3)
	c.Set("a", 4)

	assert.Equal(t, []string{"b", "a", "c"}, c.Keys(All[string]()))
	assert.Equal(t, []string{"a"}, c.Keys(Exact("a")))
	assert.Equal(t, 3, c.Len())
}

func TestCache_UpdateThenRestoreIsExact(t *testing.T) {
	c := newPageCache()
	k1 := domain.NewPageKey(domain.ItemFilter{}, 1, 20)
	k2 := domain.NewPageKey(domain.ItemFilter{Type: "shirt"}, 1, 20)
	c.Set(k1, testPage(3, "a", "b", "c"))
	c.Set(k2, testPage(1, "b"))

	before1, _ := c.Get(k1)
	before2, _ := c.Get(k2)

	snap := c.Snapshot(InNamespace(domain.NamespaceItems))
	assert.Equal(t, []domain.PageKey{k1, k2}, snap.Keys())

	touched, err := c.Update(InNamespace(domain.NamespaceItems), func(_ domain.PageKey, p domain.Page) (domain.Page, error) {
		p.Items = p.Items[:0]
		p.Total = 0
		return p, nil
	})
	require.NoError(t, err)
	assert.Len(t, touched, 2)

	c.Delete(Exact(k2))
	c.Restore(snap)

	after1, _ := c.Get(k1)
	after2, ok := c.Get(k2)
	require.True(t, ok, "restore re-creates evicted keys")
	assert.Equal(t, before1, after1)
	assert.Equal(t, before2, after2)
}

func TestCache_UpdateIsAllOrNothing(t *testing.T) {
	c := newPageCache()
	k1 := domain.NewPageKey(domain.ItemFilter{}, 1, 20)
	k2 := domain.NewPageKey(domain.ItemFilter{}, 2, 20)
	c.Set(k1, testPage(2, "a"))
	c.Set(k2, testPage(2, "b"))
	gen1 := c.Generation(k1)

	boom := errors.New("boom")
	_, err := c.Update(All[domain.PageKey](), func(k domain.PageKey, p domain.Page) (domain.Page, error) {
		if k == k2 {
			return p, boom
		}
		p.Items = nil
		return p, nil
	})
	assert.ErrorIs(t, err, boom)

	got, _ := c.Get(k1)
	assert.Len(t, got.Items, 1, "first page must not be committed")
	assert.Equal(t, gen1, c.Generation(k1))
}

func TestCache_FillRejectsStaleGeneration(t *testing.T) {
	c := newPageCache()
	k := domain.NewPageKey(domain.ItemFilter{}, 1, 20)

	gen := c.Generation(k)
	assert.True(t, c.Fill(k, testPage(1, "a"), gen))
	assert.False(t, c.Stale(k))

	// A fetch starts, then an optimistic write lands before it returns.
	gen = c.Generation(k)
	_, err := c.Update(Exact(k), func(_ domain.PageKey, p domain.Page) (domain.Page, error) {
		p.Items = nil
		p.Total = 0
		return p, nil
	})
	require.NoError(t, err)

	assert.False(t, c.Fill(k, testPage(1, "a"), gen))
	got, _ := c.Get(k)
	assert.Empty(t, got.Items, "optimistic state survives the racing fetch")

	assert.True(t, c.Fill(k, testPage(0), c.Generation(k)))
}

func TestCache_FillAdvancesGeneration(t *testing.T) {
	c := newPageCache()
	k := domain.NewPageKey(domain.ItemFilter{}, 1, 20)

	// Two fetches start from the same generation; the slower one returns last.
	gen := c.Generation(k)
	require.True(t, c.Fill(k, testPage(2, "a", "b"), gen))
	assert.NotEqual(t, gen, c.Generation(k))

	assert.False(t, c.Fill(k, testPage(1, "a"), gen), "an older response must not overwrite a newer one")
	got, _ := c.Get(k)
	assert.Equal(t, []string{"a", "b"}, got.IDs())
}

func TestCache_FillRejectedAfterDelete(t *testing.T) {
	c := newPageCache()
	k := domain.NewPageKey(domain.ItemFilter{}, 1, 20)
	gen := c.Generation(k)
	c.Delete(All[domain.PageKey]())
	c.Set(k, testPage(0))
	c.Delete(Exact(k))

	assert.False(t, c.Fill(k, testPage(1, "a"), gen))
	assert.Equal(t, 0, c.Len())
}

func TestCache_InvalidateMarksStaleAndNotifies(t *testing.T) {
	c := newPageCache()
	k1 := domain.NewPageKey(domain.ItemFilter{}, 1, 20)
	k2 := domain.NewPageKey(domain.ItemFilter{Type: "shirt"}, 1, 20)
	c.Fill(k1, testPage(1, "a"), 0)
	c.Fill(k2, testPage(1, "a"), 0)

	var notified []domain.PageKey
	c.OnInvalidate(func(keys []domain.PageKey) { notified = append(notified, keys...) })

	keys := c.Invalidate(WithFilter(domain.NamespaceItems, domain.ItemFilter{Type: "shirt"}))
	assert.Equal(t, []domain.PageKey{k2}, keys)
	assert.Equal(t, []domain.PageKey{k2}, notified)
	assert.True(t, c.Stale(k2))
	assert.False(t, c.Stale(k1))

	_, ok := c.Get(k2)
	assert.True(t, ok, "stale pages stay readable")

	c.Invalidate(Exact(domain.NewPageKey(domain.ItemFilter{}, 9, 20)))
	assert.Len(t, notified, 1, "no notification when nothing matched")
}

func TestCache_StaleWhenAbsent(t *testing.T) {
	c := newPageCache()
	assert.True(t, c.Stale(domain.NewPageKey(domain.ItemFilter{}, 1, 20)))
}

func TestCache_ConcurrentWritersLastWins(t *testing.T) {
	c := New[string, int](nil)
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c.Set("k", n)
			_, _ = c.Update(All[string](), func(_ string, v int) (int, error) { return v + 1, nil })
			c.Invalidate(Exact("k"))
		}(i)
	}
	wg.Wait()

	_, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
}
