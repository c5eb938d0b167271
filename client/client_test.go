package client

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/guileen/finledger/auth"
	"github.com/guileen/finledger/config"
	apperrors "github.com/guileen/finledger/errors"
	"github.com/guileen/finledger/idgen"
	"github.com/guileen/finledger/protocol/api"
	"github.com/guileen/finledger/storage"
	"github.com/guileen/finledger/store"
	"github.com/guileen/finledger/tableview"
	"github.com/guileen/finledger/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

type codeMailer struct {
	mu   sync.Mutex
	last map[string]string
}

func (m *codeMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[to] = codePattern.FindString(body)
	return nil
}

func (m *codeMailer) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last[to]
}

func newTestServer(t *testing.T) (*httptest.Server, *codeMailer) {
	t.Helper()
	kv, err := storage.NewPebbleKV(storage.TestPebbleConfig(filepath.Join(t.TempDir(), "db")))
	require.NoError(t, err)
	ids, err := idgen.NewIDGenerator(2)
	require.NoError(t, err)
	st := store.NewKVStore(kv, ids)

	cfg := config.DefaultServerConfig().Auth
	cfg.BcryptCost = bcrypt.MinCost
	mailer := &codeMailer{last: map[string]string{}}
	svc, err := auth.NewService(st, ids, mailer, cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(api.NewRouter(api.NewRESTHandler(st, svc), ""))
	t.Cleanup(func() {
		srv.Close()
		st.Close()
	})
	return srv, mailer
}

func loggedIn(t *testing.T) (*Client, *httptest.Server) {
	t.Helper()
	srv, mailer := newTestServer(t)
	c := New(srv.URL + "/")
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, "ada@example.com", "secret-pw"))
	_, err := c.Verify(ctx, "ada@example.com", mailer.code("ada@example.com"))
	require.NoError(t, err)
	return c, srv
}

func TestAccountFlow(t *testing.T) {
	srv, mailer := newTestServer(t)
	ctx := context.Background()
	c := New(srv.URL)

	require.NoError(t, c.Register(ctx, "ada@example.com", "secret-pw"))

	_, err := c.Login(ctx, "ada@example.com", "secret-pw")
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Nil(t, c.Session())

	_, err = c.Verify(ctx, "ada@example.com", "999999")
	assert.True(t, apperrors.IsValidationError(err))

	s, err := c.Verify(ctx, "ada@example.com", mailer.code("ada@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", s.Username)
	assert.Equal(t, srv.URL, s.Server)
	assert.NotEmpty(t, s.Token)

	err = c.Register(ctx, "ada@example.com", "secret-pw")
	assert.True(t, apperrors.IsConflict(err))

	require.NoError(t, c.ForgotPassword(ctx, "ada@example.com"))
	require.NoError(t, c.ResetPassword(ctx, "ada@example.com", mailer.code("ada@example.com"), "brand-new"))

	other := New(srv.URL)
	s, err = other.Login(ctx, "ada@example.com", "brand-new")
	require.NoError(t, err)
	assert.Same(t, s, other.Session())
}

func TestSubmitAndList(t *testing.T) {
	c, _ := loggedIn(t)
	ctx := context.Background()

	rec, err := c.Submit(ctx, types.RecordTypeIncome, map[string]any{
		"name": "Salary", "amount": 4200.5, "collection_date": "2024-02-01",
	})
	require.NoError(t, err)
	assert.Equal(t, json.Number("4200.50"), rec["amount"])
	assert.IsType(t, int64(0), rec[types.ColumnID])
	assert.IsType(t, time.Time{}, rec["collection_date"])

	_, err = c.Submit(ctx, types.RecordTypeIncome, map[string]any{"amount": "x"})
	assert.True(t, apperrors.IsValidationError(err))

	_, err = c.Submit(ctx, types.RecordTypeIncome, map[string]any{"name": "Bonus", "amount": 300, "collection_date": "2024-03-01"})
	require.NoError(t, err)

	records, err := c.List(ctx, types.RecordTypeIncome)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Salary", records[0]["name"])
	assert.Equal(t, "Bonus", records[1]["name"])
	assert.True(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Equal(records[1]["collection_date"].(time.Time)))

	_, err = c.List(ctx, "salary")
	assert.True(t, apperrors.IsValidationError(err))
}

func TestListRequiresSession(t *testing.T) {
	srv, _ := newTestServer(t)
	_, err := New(srv.URL).List(context.Background(), types.RecordTypeDebt)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestSchemaAndView(t *testing.T) {
	c, _ := loggedIn(t)
	ctx := context.Background()

	schema, err := c.Schema(ctx, types.RecordTypeAsset)
	require.NoError(t, err)
	assert.Equal(t, types.RecordTypeAsset, schema.Type)
	local, _ := types.SchemaFor(types.RecordTypeAsset)
	assert.Equal(t, local.ColumnNames(), schema.ColumnNames())

	for _, name := range []string{"Gold", "BTC", "Silver"} {
		_, err := c.Submit(ctx, types.RecordTypeAsset, map[string]any{"name": name, "purchased_at": "2024-01-05"})
		require.NoError(t, err)
	}

	page, err := c.View(ctx, types.RecordTypeAsset, api.ViewQuery{
		Filters: tableview.Filters{"name": {Operator: tableview.OpEndsWith, Value: "d"}},
		Hide:    []string{"location"},
	})
	require.NoError(t, err)
	assert.Equal(t, "filtered", page.State)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, 3, page.Pagination.TotalRows)

	_, err = c.View(ctx, types.RecordTypeAsset, api.ViewQuery{Hide: []string{"nope"}})
	assert.True(t, apperrors.IsValidationError(err))
}

func TestUnreachableServer(t *testing.T) {
	srv, _ := newTestServer(t)
	url := srv.URL
	srv.Close()

	err := New(url, WithTimeout(time.Second)).Register(context.Background(), "a@b.c", "secret-pw")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnknown, apperrors.CodeOf(err))
}

func TestSessionLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	_, err := LoadSession(path)
	assert.True(t, apperrors.IsNotFound(err))

	s := &Session{Token: "tok", Username: "ada@example.com", Server: "http://localhost:3000"}
	require.NoError(t, s.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadSession(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)

	require.NoError(t, loaded.Clear(path))
	assert.Equal(t, Session{}, *loaded)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, loaded.Clear(path))

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))
	_, err = LoadSession(path)
	assert.Equal(t, apperrors.ErrCodeFormat, apperrors.CodeOf(err))
}
