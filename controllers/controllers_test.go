package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"stickyboard/auth"
	"stickyboard/config"
	"stickyboard/data"
	"stickyboard/models"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const demoEmail = "demo@example.com"

type harness struct {
	t      *testing.T
	db     *data.DB
	router *mux.Router
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	db, err := data.Open(filepath.Join(dir, "main.db"), filepath.Join(dir, "auth.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tokens := auth.NewTokenService("controller-test-secret-0123456789abcdef", time.Hour, "test")
	demo := config.DemoSection{Enabled: true, Email: demoEmail, Password: "Password123"}
	api := NewAPI(db, tokens, demo, zap.NewNop())
	return &harness{t: t, db: db, router: api.NewRouter()}
}

func (h *harness) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// signup registers and logs in, returning the bearer token.
func (h *harness) signup(email string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Email: email, Password: "Secret1", ConfirmPassword: "Secret1",
	})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	return h.login(email, "Secret1")
}

func (h *harness) login(email, password string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/auth/login", "", models.LoginRequest{Email: email, Password: password})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[models.LoginResponse](h.t, rec)
	assert.Equal(h.t, "Bearer", resp.Type)
	assert.Equal(h.t, "Login successful", resp.Message)
	return resp.Token
}

func (h *harness) createBoard(token, name string) models.Board {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/boards", token, models.BoardRequest{Name: name})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Board](h.t, rec)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK"}`, rec.Body.String())
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)

	cases := map[string]struct {
		req   models.RegisterRequest
		field string
	}{
		"bad email":      {models.RegisterRequest{Email: "nope", Password: "Secret1", ConfirmPassword: "Secret1"}, "email"},
		"short password": {models.RegisterRequest{Email: "a@b.io", Password: "S1", ConfirmPassword: "S1"}, "password"},
		"no uppercase":   {models.RegisterRequest{Email: "a@b.io", Password: "secret1", ConfirmPassword: "secret1"}, "password"},
		"no digit":       {models.RegisterRequest{Email: "a@b.io", Password: "Secrets", ConfirmPassword: "Secrets"}, "password"},
		"mismatch":       {models.RegisterRequest{Email: "a@b.io", Password: "Secret1", ConfirmPassword: "Secret2"}, "confirmPassword"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := h.do(http.MethodPost, "/api/auth/register", "", tc.req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[models.ValidationErrorResponse](t, rec)
			assert.Equal(t, "Validation failed", resp.Error)
			assert.Contains(t, resp.Details, tc.field)
		})
	}
}

func TestRegisterDuplicateAndSeededBoard(t *testing.T) {
	h := newHarness(t)
	token := h.signup("new@example.com")

	rec := h.do(http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Email: "new@example.com", Password: "Secret1", ConfirmPassword: "Secret1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodGet, "/api/boards", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	boards := decode[[]models.Board](t, rec)
	require.Len(t, boards, 1)
	assert.Equal(t, data.DefaultBoardName, boards[0].Name)

	rec = h.do(http.MethodGet, fmt.Sprintf("/api/notes?boardId=%d", boards[0].ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Note](t, rec), 3)
}

func TestLoginFailures(t *testing.T) {
	h := newHarness(t)
	h.signup("user@example.com")

	rec := h.do(http.MethodPost, "/api/auth/login", "", models.LoginRequest{Email: "user@example.com", Password: "Wrong1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/api/auth/login", "", models.LoginRequest{Email: "", Password: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("{"))
	raw := httptest.NewRecorder()
	h.router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/api/boards", "/api/notes", "/api/notes/all", "/api/boards/count"} {
		rec := h.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	h := newHarness(t)
	token := h.signup("user@example.com")

	rec := h.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logout successful", decode[models.MessageResponse](t, rec).Message)

	rec = h.do(http.MethodGet, "/api/boards", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDemoLifecycle(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.db.EnsureUser(context.Background(), demoEmail, "Password123")
	require.NoError(t, err)

	token := h.login(demoEmail, "Password123")
	rec := h.do(http.MethodGet, "/api/boards/count", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[int64](t, rec))

	h.createBoard(token, "Scratch")
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/auth/logout", token, nil).Code)

	token = h.login(demoEmail, "Password123")
	rec = h.do(http.MethodGet, "/api/boards", token, nil)
	boards := decode[[]models.Board](t, rec)
	require.Len(t, boards, 1)
	assert.Equal(t, data.DefaultBoardName, boards[0].Name)
}

func TestBoardEndpoints(t *testing.T) {
	h := newHarness(t)
	token := h.signup("owner@example.com")
	intruder := h.signup("intruder@example.com")

	board := h.createBoard(token, "  Work  ")
	assert.Equal(t, "Work", board.Name)

	rec := h.do(http.MethodPost, "/api/boards", token, models.BoardRequest{Name: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	path := fmt.Sprintf("/api/boards/%d", board.ID)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, path, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, path, intruder, nil).Code)

	rec = h.do(http.MethodPut, path, token, models.BoardRequest{Name: "Home"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Home", decode[models.Board](t, rec).Name)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPut, path, intruder, models.BoardRequest{Name: "x"}).Code)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, path, intruder, nil).Code)
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, path, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, path, token, nil).Code)
}

func TestBoardLimitIsForbidden(t *testing.T) {
	h := newHarness(t)
	token := h.signup("owner@example.com")

	// the seeded Main Board counts toward the cap
	for i := 1; i < models.MaxBoardsPerUser; i++ {
		h.createBoard(token, fmt.Sprintf("b%d", i))
	}
	rec := h.do(http.MethodPost, "/api/boards", token, models.BoardRequest{Name: "overflow"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Maximum number of boards (20)")
}

func TestNoteEndpoints(t *testing.T) {
	h := newHarness(t)
	token := h.signup("owner@example.com")
	intruder := h.signup("intruder@example.com")
	board := h.createBoard(token, "Work")

	rec := h.do(http.MethodPost, "/api/notes", token, map[string]interface{}{"title": "no board"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/notes", intruder, map[string]interface{}{"boardId": board.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodPost, "/api/notes", token, map[string]interface{}{"boardId": board.ID, "color": "#123456"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/notes", token, map[string]interface{}{
		"boardId": board.ID, "title": "Plan", "tags": []string{"work", "Work"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	note := decode[models.Note](t, rec)
	assert.NotZero(t, note.ID)
	assert.Equal(t, models.DefaultNoteColor, note.Color)
	assert.Equal(t, models.DefaultPositionX, note.PositionX)
	assert.Equal(t, []string{"work", "Work"}, note.Tags)

	path := fmt.Sprintf("/api/notes/%d", note.ID)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, path, intruder, nil).Code)

	rec = h.do(http.MethodPut, path, token, map[string]interface{}{"positionX": 250, "color": "#dbeafe"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.Note](t, rec)
	assert.Equal(t, 250.0, updated.PositionX)
	assert.Equal(t, "#dbeafe", updated.Color)
	assert.Equal(t, "Plan", updated.Title)

	rec = h.do(http.MethodGet, "/api/notes/filter?tag=Work", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Note](t, rec), 1)
	rec = h.do(http.MethodGet, "/api/notes/filter?tag=WORK", token, nil)
	assert.Empty(t, decode[[]models.Note](t, rec))
	rec = h.do(http.MethodGet, "/api/notes/filter?tag=Work", intruder, nil)
	assert.Empty(t, decode[[]models.Note](t, rec))

	rec = h.do(http.MethodGet, fmt.Sprintf("/api/notes?boardId=%d", board.ID), intruder, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodGet, "/api/notes/all", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Note](t, rec), 4)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, path, intruder, nil).Code)
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, path, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPut, path, token, map[string]interface{}{"title": "x"}).Code)
}

func TestDeleteBoardDeletesItsNotes(t *testing.T) {
	h := newHarness(t)
	token := h.signup("owner@example.com")
	board := h.createBoard(token, "Temp")

	rec := h.do(http.MethodPost, "/api/notes", token, map[string]interface{}{"boardId": board.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	note := decode[models.Note](t, rec)

	require.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, fmt.Sprintf("/api/boards/%d", board.ID), token, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, fmt.Sprintf("/api/notes/%d", note.ID), token, nil).Code)
}

func TestBackupExportAndRestore(t *testing.T) {
	h := newHarness(t)
	src := h.signup("src@example.com")
	dst := h.signup("dst@example.com")

	rec := h.do(http.MethodGet, "/api/backup", src, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "stickyboard-backup.json")
	backup := decode[models.BackupData](t, rec)
	require.Len(t, backup.Boards, 1)
	assert.Len(t, backup.Boards[0].Notes, 3)

	backup.Boards[0].Name = "  Imported  "
	backup.Boards[0].Notes[0].Color = ""
	rec = h.do(http.MethodPost, "/api/backup", dst, backup)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, models.RestoreResult{Boards: 1, Notes: 3}, decode[models.RestoreResult](t, rec))

	boards := decode[[]models.Board](t, h.do(http.MethodGet, "/api/boards", dst, nil))
	require.Len(t, boards, 2)
	assert.Equal(t, "Imported", boards[1].Name)

	notes := decode[[]models.Note](t, h.do(http.MethodGet, fmt.Sprintf("/api/notes?boardId=%d", boards[1].ID), dst, nil))
	require.Len(t, notes, 3)
	assert.Equal(t, models.DefaultNoteColor, notes[0].Color)
}

func TestBackupRestoreRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	token := h.signup("user@example.com")

	rec := h.do(http.MethodPost, "/api/backup", token, models.BackupData{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bad := models.BackupData{Boards: []models.BoardBackup{
		{Name: " ", Notes: []models.Note{{Color: "#000000"}}},
	}}
	rec = h.do(http.MethodPost, "/api/backup", token, bad)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[models.ValidationErrorResponse](t, rec)
	assert.Contains(t, resp.Details, "boards[0].name")
	assert.Contains(t, resp.Details, "boards[0].notes[0].color")

	tooMany := models.BackupData{}
	for i := 0; i < models.MaxBoardsPerUser; i++ {
		tooMany.Boards = append(tooMany.Boards, models.BoardBackup{Name: fmt.Sprintf("b%d", i)})
	}
	rec = h.do(http.MethodPost, "/api/backup", token, tooMany)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 1, decode[int](t, h.do(http.MethodGet, "/api/boards/count", token, nil)))

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/backup", "", nil).Code)
}
