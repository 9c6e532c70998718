package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/ideconnector/internal/connector/cms"
)

// TestPostgresDSNEnv names the database the PostgreSQL tests run against.
const TestPostgresDSNEnv = "IDECONNECTOR_TEST_POSTGRES_DSN"

func restoreContext(principal string) cms.Context {
	return cms.NewContext(principal, "/")
}

func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv(TestPostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", TestPostgresDSNEnv)
	}
	table := fmt.Sprintf("sessions_test_%d", time.Now().UnixNano())
	s, err := OpenPostgresStore(context.Background(), dsn, table, restoreContext)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.db.Exec("DROP TABLE IF EXISTS " + s.table)
		s.Close()
	})
	return s
}

func TestPostgresStoreTableName(t *testing.T) {
	for _, table := range []string{"", "1sessions", "sessions; DROP TABLE x", "a.b.c", `"quoted"`} {
		_, err := NewPostgresStore(context.Background(), nil, table, restoreContext)
		assert.ErrorIs(t, err, ErrInvalidStoreConfig, table)
	}
	_, err := NewPostgresStore(context.Background(), nil, DefaultTable, nil)
	assert.ErrorIs(t, err, ErrInvalidStoreConfig)

	assert.Equal(t, `"sessions"`, quoteTable("sessions"))
	assert.Equal(t, `"connector"."sessions"`, quoteTable("connector.sessions"))
}

func TestPostgresStoreLifecycle(t *testing.T) {
	s := newTestPostgresStore(t)
	c := cms.NewContext("Admin", "/")

	token, err := s.Create(c)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	got, ok := s.Lookup(token)
	require.True(t, ok)
	assert.Same(t, c, got)

	_, ok = s.Lookup("unknown")
	assert.False(t, ok)

	s.Destroy(token)
	_, ok = s.Lookup(token)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
	s.Destroy(token)

	_, err = s.Create(nil)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestPostgresStoreSurvivesRestart(t *testing.T) {
	s := newTestPostgresStore(t)
	token, err := s.Create(cms.NewContext("Admin", "/sites/default/"))
	require.NoError(t, err)

	// a second store on the same table stands in for a restarted server
	db, serr := sql.Open("pgx", os.Getenv(TestPostgresDSNEnv))
	require.NoError(t, serr)
	defer db.Close()
	restarted, err := NewPostgresStore(context.Background(), db, s.table[1:len(s.table)-1], restoreContext)
	require.NoError(t, err)

	c, ok := restarted.Lookup(token)
	require.True(t, ok)
	assert.Equal(t, "Admin", c.Principal())
	assert.Equal(t, "/", c.SiteRoot())

	again, ok := restarted.Lookup(token)
	require.True(t, ok)
	assert.Same(t, c, again)

	// a logout on one server is seen by the other
	restarted.Destroy(token)
	_, ok = s.Lookup(token)
	assert.False(t, ok)
}
