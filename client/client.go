// Package client talks to the stickyboard REST API. Every call is a single
// request; there is no retry and no caching.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"stickyboard/models"

	"go.uber.org/zap"
)

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	Details    map[string]string
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		parts := make([]string, 0, len(e.Details))
		for field, msg := range e.Details {
			parts = append(parts, field+": "+msg)
		}
		return fmt.Sprintf("api error %d: %s (%s)", e.StatusCode, e.Message, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.log = logger }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// do sends body as JSON and decodes a 2xx response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.log.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Error   string            `json:"error"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = body.Error
		if apiErr.Message == "" {
			apiErr.Message = body.Message
		}
		apiErr.Details = body.Details
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// Auth

func (c *Client) Register(ctx context.Context, email, password, confirm string) (*models.RegisterResponse, error) {
	var resp models.RegisterResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", models.RegisterRequest{
		Email: email, Password: password, ConfirmPassword: confirm,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login stores the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Logout revokes the token server-side and forgets it locally, even when the call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.SetToken("")
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Boards

func (c *Client) ListBoards(ctx context.Context) ([]models.Board, error) {
	var boards []models.Board
	if err := c.do(ctx, http.MethodGet, "/api/boards", nil, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

func (c *Client) CountBoards(ctx context.Context) (int, error) {
	var n int
	if err := c.do(ctx, http.MethodGet, "/api/boards/count", nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Client) GetBoard(ctx context.Context, id int64) (*models.Board, error) {
	var b models.Board
	if err := c.do(ctx, http.MethodGet, "/api/boards/"+strconv.FormatInt(id, 10), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) CreateBoard(ctx context.Context, name string) (*models.Board, error) {
	var b models.Board
	if err := c.do(ctx, http.MethodPost, "/api/boards", models.BoardRequest{Name: name}, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) UpdateBoard(ctx context.Context, id int64, name string) (*models.Board, error) {
	var b models.Board
	if err := c.do(ctx, http.MethodPut, "/api/boards/"+strconv.FormatInt(id, 10), models.BoardRequest{Name: name}, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) DeleteBoard(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/boards/"+strconv.FormatInt(id, 10), nil, nil)
}

// Notes

func (c *Client) listNotes(ctx context.Context, path string) ([]models.Note, error) {
	var notes []models.Note
	if err := c.do(ctx, http.MethodGet, path, nil, &notes); err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return notes, nil
}

// ListNotes returns the notes of one board.
func (c *Client) ListNotes(ctx context.Context, boardID int64) ([]models.Note, error) {
	return c.listNotes(ctx, "/api/notes?boardId="+strconv.FormatInt(boardID, 10))
}

func (c *Client) ListAllNotes(ctx context.Context) ([]models.Note, error) {
	return c.listNotes(ctx, "/api/notes/all")
}

// NotesByTag matches the tag exactly, case included.
func (c *Client) NotesByTag(ctx context.Context, tag string) ([]models.Note, error) {
	return c.listNotes(ctx, "/api/notes/filter?tag="+url.QueryEscape(tag))
}

func (c *Client) GetNote(ctx context.Context, id int64) (*models.Note, error) {
	var n models.Note
	if err := c.do(ctx, http.MethodGet, "/api/notes/"+strconv.FormatInt(id, 10), nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateNote sends note without an id and returns the stored copy.
func (c *Client) CreateNote(ctx context.Context, note models.Note, boardID int64) (*models.Note, error) {
	in := models.InputFromNote(note)
	in.BoardID = &boardID
	if note.Color == "" {
		in.Color = nil
	}
	var created models.Note
	if err := c.do(ctx, http.MethodPost, "/api/notes", in, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateNote sends every editable field of note.
func (c *Client) UpdateNote(ctx context.Context, note models.Note) (*models.Note, error) {
	var updated models.Note
	path := "/api/notes/" + strconv.FormatInt(note.ID, 10)
	if err := c.do(ctx, http.MethodPut, path, models.InputFromNote(note), &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteNote(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/notes/"+strconv.FormatInt(id, 10), nil, nil)
}

// Backup

func (c *Client) ExportBackup(ctx context.Context) (*models.BackupData, error) {
	var b models.BackupData
	if err := c.do(ctx, http.MethodGet, "/api/backup", nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// RestoreBackup adds the boards in backup to the account.
func (c *Client) RestoreBackup(ctx context.Context, backup *models.BackupData) (*models.RestoreResult, error) {
	var res models.RestoreResult
	if err := c.do(ctx, http.MethodPost, "/api/backup", backup, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
