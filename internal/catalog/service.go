// Package catalog joins the wardrobe API client with the local page store
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mmcdole/wardrobe/internal/domain"
	"github.com/mmcdole/wardrobe/internal/store"
)

// Guard reports keys that must not be refetched yet because an unsettled
// mutation holds optimistic state there
type Guard interface {
	Pending(k domain.PageKey) bool
}

type fetch struct {
	key    domain.PageKey
	cancel context.CancelFunc
}

// Service orchestrates page fetches, cancellation and cache fills.
type Service struct {
	client domain.ItemClient
	pages  *store.PageStore
	logger *slog.Logger

	mu       sync.Mutex
	guard    Guard
	inflight map[uint64]fetch
	nextID   uint64
}

// NewService creates a new catalog service.
func NewService(client domain.ItemClient, pages *store.PageStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:   client,
		pages:    pages,
		logger:   logger,
		inflight: make(map[uint64]fetch),
	}
}

// SetGuard installs the mutation guard consulted before every fetch
func (s *Service) SetGuard(g Guard) {
	s.mu.Lock()
	s.guard = g
	s.mu.Unlock()
}

func (s *Service) Pages() *store.PageStore { return s.pages }

// FetchPage loads key from the server and fills the cache.
//
// fresh is false when the result was not stored: the fetch was cancelled
// by a mutation, an optimistic write landed while it ran, or a mutation on
// the key is still awaiting the server. The returned page is then the
// cached one, if any.
func (s *Service) FetchPage(ctx context.Context, key domain.PageKey) (page domain.Page, fresh bool, err error) {
	filter, err := key.ItemFilter()
	if err != nil {
		return domain.Page{}, false, err
	}

	// Generation and registration come before the guard check. A mutation
	// that begins after the check then cancels this fetch and bumps the
	// generation; one that began before it is reported by the guard.
	gen := s.pages.Generation(key)
	fctx, id := s.track(ctx, key)
	defer s.untrack(id)

	s.mu.Lock()
	guard := s.guard
	s.mu.Unlock()

	if guard != nil && guard.Pending(key) {
		s.logger.Debug("deferring fetch behind pending mutation", "key", key.String())
		page, _ = s.pages.Get(key)
		return page, false, nil
	}

	page, err = s.client.ListItems(fctx, filter, key.Page, key.PageSize)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() == nil {
			s.logger.Debug("fetch superseded by mutation", "key", key.String())
			page, _ = s.pages.Get(key)
			return page, false, nil
		}
		s.logger.Error("failed to fetch page", "error", err, "key", key.String())
		return domain.Page{}, false, err
	}

	if !s.pages.Fill(key, page, gen) {
		s.logger.Debug("discarded stale fetch", "key", key.String())
		page, _ = s.pages.Get(key)
		return page, false, nil
	}

	s.logger.Debug("fetched page", "key", key.String(), "items", len(page.Items), "total", page.Total)
	return page, true, nil
}

func (s *Service) track(ctx context.Context, key domain.PageKey) (context.Context, uint64) {
	fctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.inflight[s.nextID] = fetch{key: key, cancel: cancel}
	return fctx, s.nextID
}

func (s *Service) untrack(id uint64) {
	s.mu.Lock()
	f, ok := s.inflight[id]
	delete(s.inflight, id)
	s.mu.Unlock()

	if ok {
		f.cancel()
	}
}

// CancelFetches aborts every in-flight fetch whose key matches pred and
// returns how many were cancelled
func (s *Service) CancelFetches(pred store.Predicate[domain.PageKey]) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, f := range s.inflight {
		if pred(f.key) {
			f.cancel()
			delete(s.inflight, id)
			n++
		}
	}
	return n
}

// Cached returns the cached page for key
func (s *Service) Cached(key domain.PageKey) (domain.Page, bool) {
	return s.pages.Get(key)
}

// Stale reports whether key needs a refetch
func (s *Service) Stale(key domain.PageKey) bool {
	return s.pages.Stale(key)
}

func (s *Service) Invalidate(pred store.Predicate[domain.PageKey]) []domain.PageKey {
	return s.pages.Invalidate(pred)
}

// ItemTypes returns the per-type counts, skipping empty types
func (s *Service) ItemTypes(ctx context.Context) ([]domain.ItemType, error) {
	types, err := s.client.ItemTypes(ctx)
	if err != nil {
		s.logger.Error("failed to fetch item types", "error", err)
		return nil, err
	}
	out := types[:0]
	for _, t := range types {
		if t.Type != "" && t.Count > 0 {
			out = append(out, t)
		}
	}
	return out, nil
}

// Upload sends images to the server. New items can appear in any listing,
// so every item page is invalidated once the server has answered.
// Cancelling ctx aborts the transfer and leaves the cache alone.
func (s *Service) Upload(ctx context.Context, paths []string) (domain.BulkUploadResult, error) {
	res, err := s.client.UploadItems(ctx, paths)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Info("upload cancelled", "files", len(paths))
			return res, err
		}
		s.logger.Error("upload failed", "error", err, "files", len(paths))
		return res, err
	}

	s.pages.Invalidate(store.InNamespace(domain.NamespaceItems))
	s.logger.Info("upload finished", "total", res.Total, "successful", res.Successful, "failed", res.Failed)
	return res, nil
}
