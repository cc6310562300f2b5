package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "pomegranate/internal/core/context"
	"pomegranate/internal/domain/auth"
	"pomegranate/internal/domain/crud"
	"pomegranate/internal/domain/social"
	"pomegranate/internal/domain/survey"
	"pomegranate/internal/infrastructure/storage/sqlstore"
	"pomegranate/internal/metadata"
	"pomegranate/pkg/logger"
)

var dbSeq atomic.Int64

type fakeUploader struct {
	mu    sync.Mutex
	names []string
}

func (f *fakeUploader) Upload(_ context.Context, _ []byte, filename string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, filename)
	return "https://img.example/" + filename, nil
}

func (f *fakeUploader) UploadDataURL(_ context.Context, _ string) (string, error) {
	return "https://img.example/inline.png", nil
}

type routeRecorder struct {
	mu     sync.Mutex
	routes []string
}

func (r *routeRecorder) RequestStarted(context.Context) func() { return func() {} }

func (r *routeRecorder) ObserveHTTP(_ context.Context, method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, fmt.Sprintf("%s %s %d", method, route, status))
}

type testAPI struct {
	router   *gin.Engine
	jwt      *auth.JWTService
	txm      *sqlstore.TxManager
	uploader *fakeUploader
	metrics  *routeRecorder
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:router%d?mode=memory&cache=private", dbSeq.Add(1))
	db, err := sqlstore.Open(ctx, sqlstore.DefaultConfig("sqlite", dsn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = sqlstore.Migrate(ctx, db)
	require.NoError(t, err)
	txm := sqlstore.NewTxManager(db, 0)

	audit, err := sqlstore.NewAuditLog(txm)
	require.NoError(t, err)
	reg, err := crud.NewRegistry(
		crud.Deps{Repo: sqlstore.NewEntityRepo(txm), Tx: txm, Auditor: audit},
		social.Entities(social.Deps{Store: sqlstore.NewSocialStore(txm), Views: sqlstore.NewViews(txm)})...,
	)
	require.NoError(t, err)

	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("router-test-secret"))
	authSvc := auth.NewService(sqlstore.NewAdminRepo(txm), jwtSvc)
	_, err = authSvc.CreateAdmin(ctx, "root", "s3cret-pass")
	require.NoError(t, err)

	api := &testAPI{jwt: jwtSvc, txm: txm, uploader: &fakeUploader{}, metrics: &routeRecorder{}}
	api.router = NewRouter(RouterConfig{
		Logger:           logger.Nop(),
		Database:         db,
		Driver:           "sqlite",
		AuthService:      authSvc,
		Entities:         reg,
		MetadataRegistry: metadata.RegisterAll(reg),
		Idempotency:      sqlstore.NewIdempotencyStore(txm, time.Hour),
		Audit:            audit,
		Uploader:         api.uploader,
		Surveys:          survey.NewService(txm, sqlstore.NewSurveyStore(txm)),
		Metrics:          api.metrics,
	})
	return api
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return a.serve(t, req)
}

func (a *testAPI) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && bytes.HasPrefix(bytes.TrimSpace(w.Body.Bytes()), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (a *testAPI) login(t *testing.T) string {
	t.Helper()
	w, env := a.do(t, http.MethodPost, "/api/auth/admin/login", "", map[string]string{
		"username": "root", "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (a *testAPI) userToken(t *testing.T) string {
	t.Helper()
	token, _, err := a.jwt.GenerateAccessToken(appctx.Principal{ID: 7, Username: "reader", Kind: appctx.KindUser})
	require.NoError(t, err)
	return token
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func TestAuth_LoginAndMe(t *testing.T) {
	api := newTestAPI(t)

	w, env := api.do(t, http.MethodPost, "/api/auth/admin/login", "", map[string]string{
		"username": "root", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Error)

	token := api.login(t)
	w, env = api.do(t, http.MethodGet, "/api/auth/admin/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 200, env.Code)
	assert.Equal(t, "success", env.Message)
	me := decode[map[string]any](t, env.Data)
	assert.Equal(t, "root", me["username"])
	assert.NotContains(t, me, "password")
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	api := newTestAPI(t)

	w, env := api.do(t, http.MethodGet, "/api/admin/tags", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 401, env.Code)

	w, _ = api.do(t, http.MethodGet, "/api/admin/tags", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEntityRoutes_TagLifecycle(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t)

	w, env := api.do(t, http.MethodPost, "/api/admin/tags", token, map[string]any{"name": "golang", "description": "gophers"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[map[string]float64](t, env.Data)
	tagID := int64(created["id"])
	require.Positive(t, tagID)

	w, env = api.do(t, http.MethodGet, fmt.Sprintf("/api/admin/tags/%d", tagID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "golang", decode[map[string]any](t, env.Data)["name"])

	w, env = api.do(t, http.MethodPut, fmt.Sprintf("/api/admin/tags/%d", tagID), token, map[string]any{"description": "updated"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode[map[string]float64](t, env.Data)["affected"])

	w, env = api.do(t, http.MethodPut, "/api/admin/tags/9999", token, map[string]any{"description": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error)

	w, env = api.do(t, http.MethodPost, "/api/admin/tags", token, map[string]any{"name": "golang"})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "VALIDATION_ERROR", env.Error)

	w, env = api.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/tags/%d", tagID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = api.do(t, http.MethodGet, fmt.Sprintf("/api/admin/tags/%d", tagID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEntityRoutes_Validation(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t)

	w, env := api.do(t, http.MethodPost, "/api/admin/tags", token, map[string]any{"description": "no name"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error)

	w, _ = api.do(t, http.MethodGet, "/api/admin/tags/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = api.do(t, http.MethodDelete, "/api/admin/tags", token, map[string]any{"ids": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEntityRoutes_ListAndDeleteMany(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t)

	for i := range 25 {
		w, _ := api.do(t, http.MethodPost, "/api/admin/tags", token, map[string]any{"name": fmt.Sprintf("tag-%02d", i)})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, env := api.do(t, http.MethodGet, "/api/admin/tags?page=2&limit=10&sortBy=id&sortOrder=asc", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[crud.ListResult](t, env.Data)
	assert.Len(t, page.Data, 10)
	assert.Equal(t, crud.PageInfo{Page: 2, Limit: 10, Total: 25, Pages: 3}, page.Pagination)
	assert.Equal(t, float64(11), page.Data[0]["id"])

	w, env = api.do(t, http.MethodGet, "/api/admin/tags?name=tag-0&bogus=1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(10), decode[crud.ListResult](t, env.Data).Pagination.Total)

	w, env = api.do(t, http.MethodDelete, "/api/admin/tags", token, map[string]any{"ids": []any{1, "2", 3}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(3), decode[map[string]float64](t, env.Data)["affected"])

	w, env = api.do(t, http.MethodGet, "/api/admin/tags?name=does-not-exist", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	empty := decode[crud.ListResult](t, env.Data)
	assert.Empty(t, empty.Data)
	assert.NotNil(t, empty.Data)
}

func TestEntityRoutes_AccessLevels(t *testing.T) {
	api := newTestAPI(t)
	user := api.userToken(t)

	w, env := api.do(t, http.MethodGet, "/api/admin/tags", user, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Error)

	w, _ = api.do(t, http.MethodGet, "/api/admin/survey-questions", user, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(t, http.MethodGet, "/api/admin/meta", user, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = api.do(t, http.MethodGet, "/api/auth/admin/me", user, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestIdempotentCreate(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t)
	body := map[string]any{"name": "once"}

	w1, env1 := api.do(t, http.MethodPost, "/api/admin/tags", token, body, "X-Idempotency-Key", "create-once")
	require.Equal(t, http.StatusOK, w1.Code, w1.Body.String())

	w2, env2 := api.do(t, http.MethodPost, "/api/admin/tags", token, body, "X-Idempotency-Key", "create-once")
	require.Equal(t, http.StatusOK, w2.Code, w2.Body.String())
	assert.Equal(t, "true", w2.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, string(env1.Data), string(env2.Data))

	var n int64
	require.NoError(t, api.txm.DB().QueryRowContext(context.Background(), "SELECT COUNT(*) FROM tags").Scan(&n))
	assert.Equal(t, int64(1), n)

	w3, env3 := api.do(t, http.MethodPost, "/api/admin/tags", token, map[string]any{"name": "other"}, "X-Idempotency-Key", "create-once")
	assert.Equal(t, http.StatusConflict, w3.Code)
	assert.Equal(t, "IDEMPOTENCY_CONFLICT", env3.Error)
}

func TestMetadataAndMenu(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t)

	w, env := api.do(t, http.MethodGet, "/api/admin/meta", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	defs := decode[[]metadata.EntityDef](t, env.Data)
	require.NotEmpty(t, defs)
	assert.Equal(t, "users", defs[0].Name)

	w, env = api.do(t, http.MethodGet, "/api/admin/meta/survey-questions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "survey_questions", decode[metadata.EntityDef](t, env.Data).Name)

	w, _ = api.do(t, http.MethodGet, "/api/admin/meta/nothing", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = api.do(t, http.MethodGet, "/api/admin/menu", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	menu := decode[[]metadata.MenuItem](t, env.Data)
	require.NotEmpty(t, menu)
	assert.Equal(t, "dashboard", menu[0].Key)
	assert.Equal(t, "/api/admin/users", menu[1].Path)
}

func TestAuditHistory(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t)

	_, env := api.do(t, http.MethodPost, "/api/admin/tags", token, map[string]any{"name": "audited"})
	tagID := int64(decode[map[string]float64](t, env.Data)["id"])
	api.do(t, http.MethodPut, fmt.Sprintf("/api/admin/tags/%d", tagID), token, map[string]any{"description": "v2"})

	w, env := api.do(t, http.MethodGet, fmt.Sprintf("/api/admin/audit/tags/%d", tagID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	records := decode[[]sqlstore.AuditRecord](t, env.Data)
	require.Len(t, records, 2)
	assert.Equal(t, "update", records[0].Action)
	assert.Equal(t, "create", records[1].Action)

	w, _ = api.do(t, http.MethodGet, "/api/admin/audit/unknown/1", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func multipartRequest(t *testing.T, path, token, field string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestUpload(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t)

	w, env := api.serve(t, multipartRequest(t, "/api/upload/single", token, "file", map[string][]byte{"cat.png": pngBytes}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	single := decode[map[string]any](t, env.Data)
	assert.Equal(t, "cat.png", single["originalname"])
	assert.Equal(t, "image/png", single["mimetype"])
	assert.Equal(t, "https://img.example/cat.png", single["url"])

	w, env = api.serve(t, multipartRequest(t, "/api/upload/single", token, "file", map[string][]byte{"notes.txt": []byte("plain text")}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error)

	w, env = api.serve(t, multipartRequest(t, "/api/upload/multiple", token, "files", map[string][]byte{
		"a.png": pngBytes, "b.png": pngBytes,
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[[]map[string]any](t, env.Data), 2)

	many := make(map[string][]byte, 10)
	for i := range 10 {
		many[fmt.Sprintf("%d.png", i)] = pngBytes
	}
	w, _ = api.serve(t, multipartRequest(t, "/api/upload/multiple", token, "files", many))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = api.do(t, http.MethodPost, "/api/upload/base64", token, map[string]any{"images": []string{"data:image/png;base64,AAAA"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode[map[string]any](t, env.Data)["count"])
}

func TestHealthAndNoRoute(t *testing.T) {
	api := newTestAPI(t)

	w, _ := api.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = api.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = api.do(t, http.MethodGet, "/health/info", "", nil)
	assert.Contains(t, w.Body.String(), `"driver":"sqlite"`)

	w, env := api.do(t, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error)
}

func TestMetricsUseRouteTemplates(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t)

	api.do(t, http.MethodGet, "/api/admin/tags/42", token, nil)

	api.metrics.mu.Lock()
	defer api.metrics.mu.Unlock()
	assert.Contains(t, api.metrics.routes, "GET /api/admin/tags/:id 404")
}

func TestRecoveryRendersEnvelope(t *testing.T) {
	api := newTestAPI(t)
	api.router.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w, env := api.do(t, http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", env.Error)
	assert.NotContains(t, w.Body.String(), "kaboom")
}

func TestSurveyResponses(t *testing.T) {
	api := newTestAPI(t)
	_, err := api.txm.DB().ExecContext(context.Background(),
		"INSERT INTO users (id, user_id, nickname) VALUES (7, 'reader', 'Reader')")
	require.NoError(t, err)
	user := api.userToken(t)

	w, env := api.do(t, http.MethodGet, "/api/surveys/responses/status", user, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "not_started", decode[map[string]any](t, env.Data)["status"])

	w, env = api.do(t, http.MethodPost, "/api/surveys/responses/save", user, map[string]any{"answers": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error)
	w, _ = api.do(t, http.MethodPost, "/api/surveys/responses/submit", user, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = api.do(t, http.MethodPost, "/api/surveys/responses/save", user, map[string]any{"answers": []any{"a", "b"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotZero(t, decode[map[string]any](t, env.Data)["responseId"])

	w, env = api.do(t, http.MethodGet, "/api/surveys/responses/status", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	progress := decode[map[string]any](t, env.Data)
	assert.Equal(t, "in_progress", progress["status"])
	assert.Equal(t, false, progress["isVerified"])
	assert.Equal(t, []any{"a", "b"}, progress["lastAnswers"])

	answers := make([]string, survey.PassScore)
	w, env = api.do(t, http.MethodPost, "/api/surveys/responses/submit", user, map[string]any{"answers": answers})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[map[string]any](t, env.Data)
	assert.Equal(t, float64(survey.PassScore), result["score"])
	assert.Equal(t, true, result["isPassed"])

	w, env = api.do(t, http.MethodGet, "/api/surveys/responses/status", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"isVerified": true, "status": "passed"}, decode[map[string]any](t, env.Data))

	w, _ = api.do(t, http.MethodGet, "/api/surveys/responses/status", api.login(t), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = api.do(t, http.MethodGet, "/api/surveys/responses/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
