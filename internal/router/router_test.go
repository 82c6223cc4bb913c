package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/comments/internal/middleware"
	"github.com/anonto42/nano-midea/comments/internal/models"
	"github.com/anonto42/nano-midea/comments/internal/repositories"
	"github.com/anonto42/nano-midea/comments/internal/repositories/mock"
	"github.com/anonto42/nano-midea/comments/pkg/config"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "router-test-secret"

func newServer(t *testing.T) (*echo.Echo, *mock.AuditRepository) {
	t.Helper()
	db, err := config.OpenSQL(&config.Config{
		DBDriver:       config.DriverSQLite,
		DatabaseURL:    filepath.Join(t.TempDir(), "comments.db"),
		DBMaxOpenConns: 1,
		LogLevel:       "off",
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() { (&config.DB{SQL: db}).CloseDB() })

	audit := mock.NewAuditRepository()
	e := echo.New()
	SetupMiddleware(e)
	SetupRoutes(e, Dependencies{
		Comments: repositories.NewPostgresCommentRepository(db),
		Audit:    audit,
		Auth:     middleware.JWTAuthMiddleware(secret),
	})
	return e, audit
}

func bearer(t *testing.T, userID int64) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JwtCustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + token
}

func request(e *echo.Echo, method, target, body, auth, requestID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	if requestID != "" {
		req.Header.Set(echo.HeaderXRequestID, requestID)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCommentLifecycle(t *testing.T) {
	e, audit := newServer(t)
	owner, other := bearer(t, 7), bearer(t, 9)

	rec := request(e, http.MethodPost, "/comment/create", `{"post_id":1,"text":"hello"}`, owner, "req-create")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "req-create", rec.Header().Get(echo.HeaderXRequestID))

	var created models.CommentView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, int64(7), created.UserID)
	assert.Equal(t, "hello", created.Text)
	_, err := time.Parse(models.TimestampLayout, created.Timestamp)
	assert.NoError(t, err)

	rec = request(e, http.MethodGet, "/comment/read_all?limit=10", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page models.PaginatedView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, []models.CommentView{created}, page.Items)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, created.ID, *page.NextCursor)
	assert.False(t, page.HasMore)
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)

	rec = request(e, http.MethodPut, "/comment/update/1", `{"text":"bye"}`, other, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Comment either not found or unauthorized"}`, rec.Body.String())

	rec = request(e, http.MethodPut, "/comment/update/1", `{"text":"bye"}`, owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.CommentView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "bye", updated.Text)
	assert.Equal(t, created.Timestamp, updated.Timestamp)

	rec = request(e, http.MethodDelete, "/comment/delete/1", "", owner, "req-delete")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = request(e, http.MethodGet, "/comment/read_all", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"next_cursor":null,"has_more":false}`, rec.Body.String())

	require.Len(t, audit.Entries, 3)
	assert.Equal(t, "req-create", audit.Entries[0].RequestID)
	assert.Equal(t, models.AuditDelete, audit.Entries[2].Action)
	assert.Equal(t, "req-delete", audit.Entries[2].RequestID)
}

func TestMutationsRequireAuth(t *testing.T) {
	e, _ := newServer(t)

	routes := []struct{ method, target, body string }{
		{http.MethodPost, "/comment/create", `{"post_id":1,"text":"x"}`},
		{http.MethodPut, "/comment/update/1", `{"text":"x"}`},
		{http.MethodPatch, "/comment/patch/1", `{"text":"x"}`},
		{http.MethodDelete, "/comment/delete/1", ""},
	}
	for _, r := range routes {
		rec := request(e, r.method, r.target, r.body, "", "req-auth")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, r.target)
		assert.Equal(t, "req-auth", rec.Header().Get(echo.HeaderXRequestID), r.target)
	}
}

func TestHealth(t *testing.T) {
	e, _ := newServer(t)
	rec := request(e, http.MethodGet, "/health", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","database":"ok"}`, rec.Body.String())
}

// accessLines returns the access log entries written to buf.
func accessLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &line), string(raw))
		if _, ok := line["latency"]; ok {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestAccessLogRecordsClassifiedStatus(t *testing.T) {
	e, _ := newServer(t)
	var buf bytes.Buffer
	e.Logger.SetOutput(&buf)
	e.Logger.SetLevel(log.INFO)

	rec := request(e, http.MethodPut, "/comment/update/42", `{"text":"x"}`, bearer(t, 7), "req-missing")
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = request(e, http.MethodGet, "/comment/read_all?limit=0", "", "", "req-invalid")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	lines := accessLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "req-missing", lines[0]["request_id"])
	assert.Equal(t, "/comment/update/42", lines[0]["uri"])
	assert.Equal(t, float64(http.StatusNotFound), lines[0]["status"])
	assert.Equal(t, "req-invalid", lines[1]["request_id"])
	assert.Equal(t, float64(http.StatusUnprocessableEntity), lines[1]["status"])
}

func TestUnmigratedStoreReportsSchemaHint(t *testing.T) {
	db, err := config.OpenSQL(&config.Config{
		DBDriver:       config.DriverSQLite,
		DatabaseURL:    filepath.Join(t.TempDir(), "empty.db"),
		DBMaxOpenConns: 1,
		LogLevel:       "off",
	})
	require.NoError(t, err)
	t.Cleanup(func() { (&config.DB{SQL: db}).CloseDB() })

	e := echo.New()
	var buf bytes.Buffer
	e.Logger.SetOutput(&buf)
	SetupMiddleware(e)
	SetupRoutes(e, Dependencies{
		Comments: repositories.NewPostgresCommentRepository(db),
		Auth:     middleware.JWTAuthMiddleware(secret),
	})

	rec := request(e, http.MethodGet, "/comment/read_all", "", "", "req-schema")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Database structure mismatch.", body["detail"])
	assert.Contains(t, body["hint"], "AutoMigrate")

	var critical map[string]interface{}
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &line), string(raw))
		if line["severity"] == "critical" {
			critical = line
		}
	}
	require.NotNil(t, critical, buf.String())
	assert.Equal(t, "req-schema", critical["request_id"])
	assert.Equal(t, body["hint"], critical["hint"])
}
