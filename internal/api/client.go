// Package api is the HTTP client for the wardrobe REST API (/api/v1)
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/wardrobe/internal/domain"
)

const (
	defaultTimeout  = 60 * time.Second
	uploadTimeout   = 10 * time.Minute
	maxPageSize     = 100
	defaultPageSize = 20
	maxRetries      = 3
	baseRetryDelay  = 500 * time.Millisecond
)

// Client implements domain.ItemClient against a wardrobe server
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger

	// retryDelay is the first backoff step; tests shorten it
	retryDelay time.Duration
}

// NewClient creates a client for the server at baseURL (without /api/v1)
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger:     logger,
		retryDelay: baseRetryDelay,
	}
}

var _ domain.ItemClient = (*Client)(nil)

// doRequest performs an authenticated request and returns the response body.
// Only GETs are retried on 5xx, with exponential backoff; writes are sent
// exactly once.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	attempts := 1
	if method == http.MethodGet {
		attempts += maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // 500ms, 1s, 2s
			c.logger.Debug("retrying request", "attempt", attempt, "delay", delay, "url", reqURL)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		c.authorize(req)

		c.logger.Debug("wardrobe request", "method", method, "url", reqURL, "attempt", attempt)

		respBody, status, err := c.send(req)
		if err != nil {
			return nil, err
		}

		if status >= 500 && status < 600 {
			lastErr = decodeError(status, respBody)
			c.logger.Warn("wardrobe server error",
				"status", status,
				"body", string(respBody),
				"attempt", attempt,
				"method", method,
				"path", path,
			)
			continue
		}
		if status < 200 || status >= 300 {
			err := decodeError(status, respBody)
			c.logger.Error("wardrobe request error", "method", method, "path", path, "status", status, "error", err)
			return nil, err
		}
		return respBody, nil
	}

	c.logger.Error("wardrobe request failed", "error", lastErr, "method", method, "url", reqURL, "attempts", attempts)
	return nil, lastErr
}

// send executes req, mapping transport failures to domain.ErrServerOffline
func (c *Client) send(req *http.Request) ([]byte, int, error) {
	return c.sendWith(c.httpClient, req)
}

func (c *Client) sendWith(hc *http.Client, req *http.Request) ([]byte, int, error) {
	resp, err := hc.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		c.logger.Error("wardrobe request failed", "error", err)
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// decodeError maps a non-2xx response to a domain error.
// FastAPI reports {"detail": "..."} or, for validation errors,
// {"detail": [{"loc": [...], "msg": "..."}]}.
func decodeError(status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized:
		return domain.ErrAuthFailed
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrItemNotFound, detail(body))
	}
	return &domain.APIError{Status: status, Detail: detail(body)}
}

func detail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var s string
	if json.Unmarshal(payload.Detail, &s) == nil {
		return s
	}

	var issues []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if json.Unmarshal(payload.Detail, &issues) == nil && len(issues) > 0 {
		msgs := make([]string, 0, len(issues))
		for _, is := range issues {
			if n := len(is.Loc); n > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", is.Loc[n-1], is.Msg))
			} else {
				msgs = append(msgs, is.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(payload.Detail)
}

func decode[T any](body []byte, what string) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("failed to parse %s: %w", what, err)
	}
	return v, nil
}

// ListItems returns one 1-based page of items matching filter
func (c *Client) ListItems(ctx context.Context, filter domain.ItemFilter, page, pageSize int) (domain.Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, maxPageSize)

	query := filter.Query()
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))

	body, err := c.doRequest(ctx, http.MethodGet, "/items", query, nil)
	if err != nil {
		return domain.Page{}, err
	}
	return decode[domain.Page](body, "item list")
}

// ItemTypes returns the per-type counts used by the type picker
func (c *Client) ItemTypes(ctx context.Context) ([]domain.ItemType, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/items/types", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]domain.ItemType](body, "item types")
}

func itemPath(id string, suffix ...string) string {
	return "/items/" + url.PathEscape(id) + strings.Join(suffix, "")
}

func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, itemPath(itemID), nil, nil)
	return err
}

func (c *Client) AnalyzeItem(ctx context.Context, itemID string) error {
	_, err := c.doRequest(ctx, http.MethodPost, itemPath(itemID, "/analyze"), nil, nil)
	return err
}

func (c *Client) ArchiveItem(ctx context.Context, itemID, reason string) (domain.Item, error) {
	payload := map[string]string{"reason": reason}
	body, err := c.doRequest(ctx, http.MethodPost, itemPath(itemID, "/archive"), nil, payload)
	if err != nil {
		return domain.Item{}, err
	}
	return decode[domain.Item](body, "item")
}

func (c *Client) RestoreItem(ctx context.Context, itemID string) (domain.Item, error) {
	body, err := c.doRequest(ctx, http.MethodPost, itemPath(itemID, "/restore"), nil, nil)
	if err != nil {
		return domain.Item{}, err
	}
	return decode[domain.Item](body, "item")
}

// SetFavorite updates the favorite flag with PATCH /items/{id}
func (c *Client) SetFavorite(ctx context.Context, itemID string, favorite bool) (domain.Item, error) {
	payload := map[string]bool{"favorite": favorite}
	body, err := c.doRequest(ctx, http.MethodPatch, itemPath(itemID), nil, payload)
	if err != nil {
		return domain.Item{}, err
	}
	return decode[domain.Item](body, "item")
}

func (c *Client) BulkDelete(ctx context.Context, req domain.BulkRequest) (domain.BulkDeleteResult, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/items/bulk/delete", nil, req)
	if err != nil {
		return domain.BulkDeleteResult{}, err
	}
	return decode[domain.BulkDeleteResult](body, "bulk delete result")
}

func (c *Client) BulkAnalyze(ctx context.Context, req domain.BulkRequest) (domain.BulkAnalyzeResult, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/items/bulk/analyze", nil, req)
	if err != nil {
		return domain.BulkAnalyzeResult{}, err
	}
	return decode[domain.BulkAnalyzeResult](body, "bulk analyze result")
}

// UploadItems streams image files to POST /items/bulk as multipart "images".
// Cancelling ctx aborts the transfer.
func (c *Client) UploadItems(ctx context.Context, paths []string) (domain.BulkUploadResult, error) {
	if len(paths) == 0 {
		return domain.BulkUploadResult{}, errors.New("no images to upload")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeImages(mw, paths))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/items/bulk", pr)
	if err != nil {
		pr.Close()
		return domain.BulkUploadResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	c.logger.Info("uploading images", "count", len(paths))

	body, status, err := c.sendWith(&http.Client{Timeout: uploadTimeout}, req)
	pr.Close()
	if err != nil {
		return domain.BulkUploadResult{}, err
	}
	if status < 200 || status >= 300 {
		return domain.BulkUploadResult{}, decodeError(status, body)
	}
	return decode[domain.BulkUploadResult](body, "upload result")
}

func writeImages(mw *multipart.Writer, paths []string) error {
	for _, p := range paths {
		if err := writeImage(mw, p); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeImage(mw *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	// The server validates the declared type, so it must not be octet-stream.
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	head = head[:n]

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, filepath.Base(path)))
	h.Set("Content-Type", imageContentType(path, head))
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(head); err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

func imageContentType(path string, head []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	if t := mime.TypeByExtension(filepath.Ext(path)); strings.HasPrefix(t, "image/") {
		return t
	}
	return http.DetectContentType(head)
}
