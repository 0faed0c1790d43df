package mutation

import (
	"context"
	"fmt"

	"github.com/mmcdole/wardrobe/internal/domain"
	"github.com/mmcdole/wardrobe/internal/selection"
	"github.com/mmcdole/wardrobe/internal/store"
)

// ItemWriter is the server side of every item mutation
type ItemWriter interface {
	domain.ItemMutator
	domain.BulkMutator
}

// PageReader exposes the materialized pages a select-all action can see
type PageReader interface {
	Keys(pred store.Predicate[domain.PageKey]) []domain.PageKey
	Get(k domain.PageKey) (domain.Page, bool)
}

// Items builds the mutations for wardrobe items
type Items struct {
	client ItemWriter
}

func NewItems(client ItemWriter) *Items {
	return &Items{client: client}
}

var allItems = store.InNamespace(domain.NamespaceItems)

// Delete removes one item everywhere it is listed
func (it *Items) Delete(id string) Mutation[struct{}] {
	return Mutation[struct{}]{
		Name:  "delete",
		Scope: allItems,
		Plan:  RemoveFromListings([]string{id}),
		Call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, it.client.DeleteItem(ctx, id)
		},
		Describe: func(struct{}) string { return "item deleted" },
	}
}

// Analyze queues AI re-analysis; the item flips to processing immediately
func (it *Items) Analyze(id string) Mutation[struct{}] {
	return Mutation[struct{}]{
		Name:      "analyze",
		Scope:     allItems,
		Transform: SetStatus([]string{id}, domain.StatusProcessing),
		Call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, it.client.AnalyzeItem(ctx, id)
		},
		Describe: func(struct{}) string { return "analysis queued" },
	}
}

func (it *Items) Archive(id, reason string) Mutation[domain.Item] {
	return Mutation[domain.Item]{
		Name:  "archive",
		Scope: allItems,
		Plan:  SetArchived(id, true),
		Call: func(ctx context.Context) (domain.Item, error) {
			return it.client.ArchiveItem(ctx, id, reason)
		},
		Describe: func(item domain.Item) string { return fmt.Sprintf("archived %s", item.DisplayName()) },
	}
}

func (it *Items) Restore(id string) Mutation[domain.Item] {
	return Mutation[domain.Item]{
		Name:  "restore",
		Scope: allItems,
		Plan:  SetArchived(id, false),
		Call: func(ctx context.Context) (domain.Item, error) {
			return it.client.RestoreItem(ctx, id)
		},
		Describe: func(item domain.Item) string { return fmt.Sprintf("restored %s", item.DisplayName()) },
	}
}

func (it *Items) SetFavorite(id string, favorite bool) Mutation[domain.Item] {
	return Mutation[domain.Item]{
		Name:  "favorite",
		Scope: allItems,
		Plan:  SetFavorite(id, favorite),
		Call: func(ctx context.Context) (domain.Item, error) {
			return it.client.SetFavorite(ctx, id, favorite)
		},
		Describe: func(item domain.Item) string {
			if item.Favorite {
				return fmt.Sprintf("%s added to favorites", item.DisplayName())
			}
			return fmt.Sprintf("%s removed from favorites", item.DisplayName())
		},
	}
}

// BulkDelete deletes the selection made under filter.
//
// For an explicit selection the ids are removed from every listing. For a
// select-all, pages of the same filter keep only the excluded items, and
// other listings lose the targets visible in the same-filter pages.
func (it *Items) BulkDelete(sel selection.Selection, filter domain.ItemFilter, pages PageReader) (Mutation[domain.BulkDeleteResult], error) {
	req, err := sel.Descriptor(filter)
	if err != nil {
		return Mutation[domain.BulkDeleteResult]{}, err
	}

	plan := RemoveFromListings(req.ItemIDs)
	if req.SelectAll {
		sameFilter := store.WithFilter(domain.NamespaceItems, filter)
		removeVisible := RemoveFromListings(visibleTargets(sel, filter, pages))
		plan = func(snap store.Snapshot[domain.PageKey, domain.Page]) Transform {
			return Split(sameFilter, KeepOnly(req.ExcludedIDs), removeVisible(snap))
		}
	}

	return Mutation[domain.BulkDeleteResult]{
		Name:  "bulk delete",
		Scope: allItems,
		Plan:  plan,
		Call: func(ctx context.Context) (domain.BulkDeleteResult, error) {
			return it.client.BulkDelete(ctx, req)
		},
		Report: func(r domain.BulkDeleteResult) (int, []string) { return r.Failed, r.Errors },
		Describe: func(r domain.BulkDeleteResult) string {
			if r.Partial() {
				return fmt.Sprintf("deleted %d items, %d failed", r.Deleted, r.Failed)
			}
			return fmt.Sprintf("deleted %d items", r.Deleted)
		},
	}, nil
}

// BulkAnalyze queues re-analysis of the selection made under filter.
// Targets flip to processing; nothing is removed.
func (it *Items) BulkAnalyze(sel selection.Selection, filter domain.ItemFilter, pages PageReader) (Mutation[domain.BulkAnalyzeResult], error) {
	req, err := sel.Descriptor(filter)
	if err != nil {
		return Mutation[domain.BulkAnalyzeResult]{}, err
	}

	var transform Transform
	if req.SelectAll {
		transform = Split(
			store.WithFilter(domain.NamespaceItems, filter),
			SetStatusExcept(req.ExcludedIDs, domain.StatusProcessing),
			SetStatus(visibleTargets(sel, filter, pages), domain.StatusProcessing),
		)
	} else {
		transform = SetStatus(req.ItemIDs, domain.StatusProcessing)
	}

	return Mutation[domain.BulkAnalyzeResult]{
		Name:      "bulk analyze",
		Scope:     allItems,
		Transform: transform,
		Call: func(ctx context.Context) (domain.BulkAnalyzeResult, error) {
			return it.client.BulkAnalyze(ctx, req)
		},
		Report: func(r domain.BulkAnalyzeResult) (int, []string) { return r.Failed, r.Errors },
		Describe: func(r domain.BulkAnalyzeResult) string {
			if r.Partial() {
				return fmt.Sprintf("queued %d items for analysis, %d failed", r.Queued, r.Failed)
			}
			return fmt.Sprintf("queued %d items for analysis", r.Queued)
		},
	}, nil
}

// visibleTargets lists the selected items materialized under filter
func visibleTargets(sel selection.Selection, filter domain.ItemFilter, pages PageReader) []string {
	if pages == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, k := range pages.Keys(store.WithFilter(domain.NamespaceItems, filter)) {
		p, ok := pages.Get(k)
		if !ok {
			continue
		}
		for _, item := range sel.Targets(p.Items) {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			ids = append(ids, item.ID)
		}
	}
	return ids
}
