package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/guileen/finledger/auth"
	"github.com/guileen/finledger/config"
	"github.com/guileen/finledger/idgen"
	"github.com/guileen/finledger/storage"
	"github.com/guileen/finledger/store"
	"github.com/guileen/finledger/tableview"
	"github.com/guileen/finledger/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *captureMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[to] = codePattern.FindString(body)
	return nil
}

func (m *captureMailer) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[to]
}

type apiFixture struct {
	router http.Handler
	mailer *captureMailer
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	kv, err := storage.NewPebbleKV(storage.TestPebbleConfig(filepath.Join(t.TempDir(), "db")))
	require.NoError(t, err)
	ids, err := idgen.NewIDGenerator(1)
	require.NoError(t, err)
	st := store.NewKVStore(kv, ids)
	t.Cleanup(func() { st.Close() })

	cfg := config.DefaultServerConfig()
	cfg.Auth.BcryptCost = bcrypt.MinCost

	mailer := &captureMailer{codes: map[string]string{}}
	svc, err := auth.NewService(st, ids, mailer, cfg.Auth)
	require.NoError(t, err)

	return &apiFixture{
		router: NewRouter(NewRESTHandler(st, svc), "http://localhost:8080"),
		mailer: mailer,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

// signUp registers and verifies email and returns its token.
func (f *apiFixture) signUp(t *testing.T, email string) string {
	t.Helper()
	status, _ := f.do(t, http.MethodPost, "/api/users", "", CredentialsRequest{Email: email, Password: "secret-pw"})
	require.Equal(t, http.StatusCreated, status)

	status, env := f.do(t, http.MethodPost, "/api/users/verify", "", VerifyRequest{Email: email, Code: f.mailer.code(email)})
	require.Equal(t, http.StatusOK, status, env.Error)

	var session auth.Session
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(t, session.Token)
	return session.Token
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	status, env := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

func TestAccountFlow(t *testing.T) {
	f := newAPIFixture(t)
	creds := CredentialsRequest{Email: "ada@example.com", Password: "secret-pw"}

	status, env := f.do(t, http.MethodPost, "/api/users", "", creds)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, env.Success)

	status, env = f.do(t, http.MethodPost, "/api/users/validate", "", creds)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)

	status, _ = f.do(t, http.MethodPost, "/api/users/verify", "", VerifyRequest{Email: creds.Email, Code: "000000"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.do(t, http.MethodPost, "/api/users/verify", "", VerifyRequest{Email: creds.Email, Code: f.mailer.code(creds.Email)})
	require.Equal(t, http.StatusOK, status)

	status, env = f.do(t, http.MethodPost, "/api/users/validate", "", creds)
	require.Equal(t, http.StatusOK, status)
	var session auth.Session
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.Equal(t, "ada@example.com", session.Username)

	status, _ = f.do(t, http.MethodGet, "/api/debt", session.Token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = f.do(t, http.MethodPost, "/api/users", "", creds)
	assert.Equal(t, http.StatusConflict, status)
}

func TestPasswordReset(t *testing.T) {
	f := newAPIFixture(t)
	f.signUp(t, "bob@example.com")

	status, _ := f.do(t, http.MethodPost, "/api/users/forgot-password", "", ForgotPasswordRequest{Email: "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodPost, "/api/users/forgot-password", "", ForgotPasswordRequest{Email: "bob@example.com"})
	require.Equal(t, http.StatusOK, status)

	status, _ = f.do(t, http.MethodPost, "/api/users/reset-password", "", ResetPasswordRequest{
		Email: "bob@example.com", Code: f.mailer.code("bob@example.com"), NewPassword: "new-secret",
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = f.do(t, http.MethodPost, "/api/users/validate", "", CredentialsRequest{Email: "bob@example.com", Password: "new-secret"})
	assert.Equal(t, http.StatusOK, status)
}

func TestMalformedBody(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestRecordsRequireAuth(t *testing.T) {
	f := newAPIFixture(t)

	status, env := f.do(t, http.MethodGet, "/api/debt", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)

	status, _ = f.do(t, http.MethodGet, "/api/debt", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestInsertAndList(t *testing.T) {
	f := newAPIFixture(t)
	ada := f.signUp(t, "ada@example.com")
	bob := f.signUp(t, "bob@example.com")

	for _, name := range []string{"Rent", "Phone", "Gym"} {
		status, env := f.do(t, http.MethodPost, "/api/debts", ada, map[string]any{
			"name": name, "amount": "10.005", "due_date": "2024-01-10",
		})
		require.Equal(t, http.StatusCreated, status, env.Error)
		assert.Equal(t, "debt record created", env.Message)
	}
	status, _ := f.do(t, http.MethodPost, "/api/debt", bob, map[string]any{
		"name": "Car", "amount": 1, "due_date": "2024-01-10",
	})
	require.Equal(t, http.StatusCreated, status)

	status, env := f.do(t, http.MethodGet, "/api/debt", ada, nil)
	require.Equal(t, http.StatusOK, status)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "Rent", rows[0]["name"])
	assert.Equal(t, "Gym", rows[2]["name"])
	assert.Equal(t, 10.01, rows[0]["amount"])
	assert.Equal(t, "ada@example.com", rows[0][types.ColumnOwner])

	status, env = f.do(t, http.MethodGet, "/api/income", ada, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestInsertValidation(t *testing.T) {
	f := newAPIFixture(t)
	token := f.signUp(t, "ada@example.com")

	status, env := f.do(t, http.MethodPost, "/api/asset", token, map[string]any{"quantity": "many"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, env.Error)

	status, _ = f.do(t, http.MethodPost, "/api/salary", token, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestViewRecords(t *testing.T) {
	f := newAPIFixture(t)
	token := f.signUp(t, "ada@example.com")
	for i, amount := range []string{"100", "250", "50", "75", "300", "20"} {
		status, _ := f.do(t, http.MethodPost, "/api/expense", token, map[string]any{
			"name": "item", "amount": amount, "due_date": "2024-01-1" + string(rune('0'+i)),
		})
		require.Equal(t, http.StatusCreated, status)
	}

	status, env := f.do(t, http.MethodGet, "/api/expense/view?filter.amount=between:60-300&hide=currency&rows=5", token, nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	var page tableview.Rendered
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, "filtered", page.State)
	assert.Equal(t, 4, page.Pagination.FilteredRows)
	assert.Equal(t, 6, page.Pagination.TotalRows)
	require.Len(t, page.Rows, 4)
	for _, h := range page.Headers {
		assert.NotEqual(t, "currency", h.Column)
	}

	status, env = f.do(t, http.MethodGet, "/api/expense/view?rows=5&page=last&move=amount:id", token, nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.Pagination.CurrentPage)
	assert.Len(t, page.Rows, 1)
	assert.Equal(t, "amount", page.Headers[0].Column)
	assert.Equal(t, "20.00", page.Rows[0][0].Display)

	for _, q := range []string{"rows=7", "page=zero", "filter.nope=x", "move=amount", "filter.amount=contains:1", "hide=nope"} {
		status, _ = f.do(t, http.MethodGet, "/api/expense/view?"+q, token, nil)
		assert.Equal(t, http.StatusBadRequest, status, q)
	}
}

func TestViewRecordsEmpty(t *testing.T) {
	f := newAPIFixture(t)
	token := f.signUp(t, "ada@example.com")

	status, env := f.do(t, http.MethodGet, "/api/income/view", token, nil)
	require.Equal(t, http.StatusOK, status)
	var page tableview.Rendered
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, "empty", page.State)
	assert.Equal(t, 0, page.Pagination.TotalPages)
	schema, _ := types.SchemaFor(types.RecordTypeIncome)
	assert.Len(t, page.Headers, len(schema.ColumnNames()))
}

func TestGetSchema(t *testing.T) {
	f := newAPIFixture(t)
	token := f.signUp(t, "ada@example.com")

	status, env := f.do(t, http.MethodGet, "/api/borc/schema", token, nil)
	require.Equal(t, http.StatusOK, status)
	var schema types.Schema
	require.NoError(t, json.Unmarshal(env.Data, &schema))
	assert.Equal(t, types.RecordTypeDebt, schema.Type)
	col, ok := schema.Column("due_date")
	require.True(t, ok)
	assert.Equal(t, types.ColumnTypeDate, col.Type)
}

func TestNotFoundRoute(t *testing.T) {
	f := newAPIFixture(t)
	status, env := f.do(t, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
	assert.Equal(t, "not found", env.Error)
}

func TestCORSPreflight(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/debt", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:8080", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Empty(t, w.Body.String(), "preflight must not reach the record routes")

	req = httptest.NewRequest(http.MethodOptions, "/api/debt", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	req.Header.Set("Access-Control-Request-Method", "DELETE")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
