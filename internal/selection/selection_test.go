package selection

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/wardrobe/internal/domain"
)

func TestToggle_SomeMode(t *testing.T) {
	s := None().Toggle("a", true)
	assert.Equal(t, ModeSome, s.Mode())
	assert.True(t, s.IsSelected("a"))
	assert.False(t, s.IsSelected("b"))

	s = s.Toggle("b", true).Toggle("a", false)
	assert.Equal(t, []string{"b"}, s.SelectedIDs())

	s = s.Toggle("b", false)
	assert.Equal(t, ModeNone, s.Mode(), "empty some collapses to none")
}

func TestToggle_UncheckFromNoneStaysNone(t *testing.T) {
	s := None().Toggle("a", false)
	assert.Equal(t, ModeNone, s.Mode())
}

func TestToggle_AllModeInvertsPolarity(t *testing.T) {
	s := None().SelectAll().Toggle("id7", false)
	require.Equal(t, ModeAll, s.Mode())
	assert.False(t, s.IsSelected("id7"))
	assert.True(t, s.IsSelected("id8"))
	assert.Equal(t, []string{"id7"}, s.ExcludedIDs())

	s = s.Toggle("id7", true)
	assert.Equal(t, ModeAll, s.Mode(), "re-including the last exclusion keeps all mode")
	assert.Empty(t, s.ExcludedIDs())
	assert.Nil(t, s.SelectedIDs())
	assert.True(t, s.IsSelected("id7"))
}

func TestToggle_DoesNotMutateReceiver(t *testing.T) {
	a := None().Toggle("x", true)
	b := a.Toggle("y", true)

	assert.Equal(t, []string{"x"}, a.SelectedIDs())
	assert.Equal(t, []string{"x", "y"}, b.SelectedIDs())
}

func TestSelectAll(t *testing.T) {
	tests := []struct {
		name     string
		start    Selection
		wantMode Mode
	}{
		{"from none", None(), ModeAll},
		{"from some", None().Toggle("a", true), ModeAll},
		{"full all clears", None().SelectAll(), ModeNone},
		{"partial all renormalizes", None().SelectAll().Toggle("a", false), ModeAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start.SelectAll()
			assert.Equal(t, tt.wantMode, got.Mode())
			assert.Empty(t, got.ExcludedIDs())
			if got.Mode() == ModeAll {
				assert.True(t, got.IsSelected("a"))
			}
		})
	}
}

func TestSelectAll_PressedTwiceToggles(t *testing.T) {
	once := None().SelectAll()
	assert.Equal(t, ModeAll, once.Mode())
	assert.Empty(t, once.ExcludedIDs())

	twice := once.SelectAll()
	assert.Equal(t, ModeNone, twice.Mode())
	assert.True(t, twice.IsEmpty())
	assert.Equal(t, once, twice.SelectAll(), "a third press selects everything again")
}

func TestClear(t *testing.T) {
	assert.True(t, None().SelectAll().Toggle("a", false).Clear().IsEmpty())
	assert.True(t, None().Toggle("a", true).Clear().IsEmpty())
}

// Random operation sequences must keep IsSelected consistent with the mode/set pair.
func TestSelection_ConsistentUnderRandomOps(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	rng := rand.New(rand.NewSource(42))

	s := None()
	for i := 0; i < 2000; i++ {
		switch op := rng.Intn(10); {
		case op < 7:
			s = s.Toggle(ids[rng.Intn(len(ids))], rng.Intn(2) == 0)
		case op < 9:
			s = s.SelectAll()
		default:
			s = s.Clear()
		}

		switch s.Mode() {
		case ModeNone:
			assert.Empty(t, s.ids)
			for _, id := range ids {
				assert.False(t, s.IsSelected(id))
			}
		case ModeSome:
			require.NotEmpty(t, s.ids, "some mode with empty set")
			for _, id := range ids {
				_, in := s.ids[id]
				assert.Equal(t, in, s.IsSelected(id))
			}
			assert.Nil(t, s.ExcludedIDs())
		case ModeAll:
			for _, id := range ids {
				_, in := s.ids[id]
				assert.Equal(t, !in, s.IsSelected(id))
			}
			assert.Nil(t, s.SelectedIDs())
		}
	}
}

func TestCount(t *testing.T) {
	assert.Equal(t, 0, None().Count(100))
	assert.Equal(t, 2, None().Toggle("a", true).Toggle("b", true).Count(100))
	assert.Equal(t, 99, None().SelectAll().Toggle("a", false).Count(100))
	assert.Equal(t, 0, None().SelectAll().Toggle("a", false).Count(0))
}

func TestTargets(t *testing.T) {
	items := []domain.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	assert.Nil(t, None().Targets(items))

	some := None().Toggle("c", true).Toggle("a", true)
	assert.Equal(t, []domain.Item{{ID: "a"}, {ID: "c"}}, some.Targets(items))

	all := None().SelectAll().Toggle("b", false)
	assert.Equal(t, []domain.Item{{ID: "a"}, {ID: "c"}}, all.Targets(items))
}

func TestDescriptor(t *testing.T) {
	filter := domain.ItemFilter{Type: "shirt", Search: "linen"}

	t.Run("none is rejected", func(t *testing.T) {
		_, err := None().Descriptor(filter)
		assert.ErrorIs(t, err, ErrEmptySelection)
	})

	t.Run("some sends explicit ids", func(t *testing.T) {
		req, err := None().Toggle("b", true).Toggle("a", true).Descriptor(filter)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, req.ItemIDs)
		assert.False(t, req.SelectAll)
		assert.Nil(t, req.Filters)
		assert.Nil(t, req.ExcludedIDs)
	})

	t.Run("all freezes the filter", func(t *testing.T) {
		req, err := None().SelectAll().Toggle("id7", false).Descriptor(filter)
		require.NoError(t, err)
		assert.True(t, req.SelectAll)
		assert.Nil(t, req.ItemIDs)
		assert.Equal(t, []string{"id7"}, req.ExcludedIDs)
		require.NotNil(t, req.Filters)
		assert.Equal(t, "shirt", *req.Filters.Type)
		assert.Equal(t, "linen", *req.Filters.Search)
	})

	t.Run("all with no exclusions sends an empty list", func(t *testing.T) {
		req, err := None().SelectAll().Descriptor(domain.ItemFilter{})
		require.NoError(t, err)
		assert.NotNil(t, req.ExcludedIDs)
		assert.Empty(t, req.ExcludedIDs)
	})

	t.Run("all under an unfreezable filter", func(t *testing.T) {
		_, err := None().SelectAll().Descriptor(domain.ItemFilter{Colors: []string{"red"}})
		assert.ErrorIs(t, err, ErrFilterNotBulkable)
	})
}
