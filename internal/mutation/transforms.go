package mutation

import (
	"slices"

	"github.com/mmcdole/wardrobe/internal/domain"
	"github.com/mmcdole/wardrobe/internal/store"
)

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Plan builds a Transform from the pages it is about to edit
type Plan func(store.Snapshot[domain.PageKey, domain.Page]) Transform

// RemoveFromListings drops ids from every page in the snapshot. total is a
// count of the whole listing, so every page of a listing loses the number of
// distinct ids found on any of that listing's cached pages, keeping sibling
// pages in lockstep.
func RemoveFromListings(ids []string) Plan {
	return dropFromListings(ids, func(domain.PageKey) (bool, error) { return true, nil })
}

// dropFromListings is RemoveFromListings restricted to pages where leaves
// reports true.
func dropFromListings(ids []string, leaves func(domain.PageKey) (bool, error)) Plan {
	return func(snap store.Snapshot[domain.PageKey, domain.Page]) Transform {
		set := idSet(ids)
		found := make(map[string]map[string]struct{})
		for _, e := range snap.Entries {
			if ok, err := leaves(e.Key); err != nil || !ok {
				continue
			}
			listing := e.Key.Prefix()
			for _, item := range e.Value.Items {
				if _, ok := set[item.ID]; !ok {
					continue
				}
				if found[listing] == nil {
					found[listing] = make(map[string]struct{})
				}
				found[listing][item.ID] = struct{}{}
			}
		}

		return func(k domain.PageKey, p domain.Page) (domain.Page, error) {
			ok, err := leaves(k)
			if err != nil || !ok {
				return p, err
			}
			n := len(found[k.Prefix()])
			if n == 0 {
				return p, nil
			}
			p.Items = slices.DeleteFunc(p.Items, func(item domain.Item) bool {
				_, ok := set[item.ID]
				return ok
			})
			p.Total = max(p.Total-n, 0)
			p.RecomputeHasMore()
			return p, nil
		}
	}
}

// KeepOnly is the optimistic form of "delete everything except excluded"
// on a page of the collection the select-all was made against. Only the
// excluded items survive, and the collection can hold no more than them.
func KeepOnly(excluded []string) Transform {
	set := idSet(excluded)
	return func(_ domain.PageKey, p domain.Page) (domain.Page, error) {
		p.Items = slices.DeleteFunc(p.Items, func(item domain.Item) bool {
			_, keep := set[item.ID]
			return !keep
		})
		p.Total = min(p.Total, len(set))
		p.RecomputeHasMore()
		return p, nil
	}
}

// SetStatus sets status on every item in ids
func SetStatus(ids []string, status domain.ItemStatus) Transform {
	set := idSet(ids)
	return func(_ domain.PageKey, p domain.Page) (domain.Page, error) {
		for i := range p.Items {
			if _, ok := set[p.Items[i].ID]; ok {
				p.Items[i].Status = status
			}
		}
		return p, nil
	}
}

// SetStatusExcept sets status on every item not in excluded
func SetStatusExcept(excluded []string, status domain.ItemStatus) Transform {
	set := idSet(excluded)
	return func(_ domain.PageKey, p domain.Page) (domain.Page, error) {
		for i := range p.Items {
			if _, skip := set[p.Items[i].ID]; !skip {
				p.Items[i].Status = status
			}
		}
		return p, nil
	}
}

// SetFavorite sets the favorite flag on one item. Pages filtered on
// favorite lose or keep the item the way the server would list it.
func SetFavorite(id string, favorite bool) Plan {
	leaves := func(k domain.PageKey) (bool, error) {
		f, err := k.ItemFilter()
		if err != nil {
			return false, err
		}
		return f.Favorite != nil && *f.Favorite != favorite, nil
	}
	return func(snap store.Snapshot[domain.PageKey, domain.Page]) Transform {
		drop := dropFromListings([]string{id}, leaves)(snap)
		return func(k domain.PageKey, p domain.Page) (domain.Page, error) {
			leaving, err := leaves(k)
			if err != nil || leaving {
				return drop(k, p)
			}
			for i := range p.Items {
				if p.Items[i].ID == id {
					p.Items[i].Favorite = favorite
				}
			}
			return p, nil
		}
	}
}

// SetArchived moves one item between the active and archived listings.
// Pages of the listing the item leaves drop it; the listing it joins is
// left to the refetch since its position there is unknown.
func SetArchived(id string, archived bool) Plan {
	leaves := func(k domain.PageKey) (bool, error) {
		f, err := k.ItemFilter()
		if err != nil {
			return false, err
		}
		return f.IsArchived != archived, nil
	}
	return func(snap store.Snapshot[domain.PageKey, domain.Page]) Transform {
		drop := dropFromListings([]string{id}, leaves)(snap)
		return func(k domain.PageKey, p domain.Page) (domain.Page, error) {
			leaving, err := leaves(k)
			if err != nil || leaving {
				return drop(k, p)
			}
			for i := range p.Items {
				if p.Items[i].ID == id {
					p.Items[i].IsArchived = archived
					if archived {
						p.Items[i].Status = domain.StatusArchived
					}
				}
			}
			return p, nil
		}
	}
}

// Split applies inside to pages matching pred and outside to the rest.
// A nil transform leaves those pages unchanged.
func Split(pred store.Predicate[domain.PageKey], inside, outside Transform) Transform {
	return func(k domain.PageKey, p domain.Page) (domain.Page, error) {
		t := outside
		if pred(k) {
			t = inside
		}
		if t == nil {
			return p, nil
		}
		return t(k, p)
	}
}
