package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/ideconnector/internal/connector/cms"
	"github.com/tansive/ideconnector/internal/connector/session"
)

func sampleConfig(rootDir, hash string) string {
	return fmt.Sprintf(`
format_version = "0.1.0"
server_hostname = "cms.local"
server_port = "8080"
handle_cors = true
service_path = "/opencms/IDEConnector/"
log_level = "debug"

[backend]
type = "filesystem"

[backend.options]
root_dir = %q

[backend.options.users]
Admin = %q
`, rootDir, hash)
}

func TestLoadConfig(t *testing.T) {
	hash, err := cms.HashPassword("admin")
	require.NoError(t, err)
	root := t.TempDir()
	file := filepath.Join(t.TempDir(), "ideconnector.conf")
	require.NoError(t, os.WriteFile(file, []byte(sampleConfig(root, hash)), 0600))

	require.NoError(t, LoadConfig(file))
	c := Config()
	require.NotNil(t, c)
	assert.Equal(t, "8080", c.ServerPort)
	assert.True(t, c.HandleCORS)
	assert.Equal(t, "/opencms/IDEConnector", c.ServicePath)
	assert.Equal(t, "http://cms.local:8080/opencms/IDEConnector", c.GetURL())
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, root, c.Backend.Options["root_dir"])

	b, err := c.NewBackend()
	require.NoError(t, err)
	_, aerr := b.Login(context.Background(), "Admin", "admin")
	assert.NoError(t, aerr)
}

func TestParseConfigDefaults(t *testing.T) {
	c, err := ParseConfig(`
format_version = "0.1.0"
server_port = "8080"
[backend]
type = "filesystem"
`)
	require.NoError(t, err)
	assert.Equal(t, "/IDEConnector", c.ServicePath)
	assert.NotNil(t, c.Backend.Options)
	assert.Equal(t, "http://localhost:8080/IDEConnector", c.GetURL())
	assert.Equal(t, SessionStoreMemory, c.SessionStore.Type)

	store, err := c.NewSessionStore(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &session.MemoryStore{}, store)
}

func TestParseConfigPostgresSessionStore(t *testing.T) {
	c, err := ParseConfig(`
format_version = "0.1.0"
server_port = "8080"
[backend]
type = "filesystem"
[session_store]
type = "Postgres"
dsn = "postgres://ideconnector@localhost:5432/ideconnector?sslmode=disable"
`)
	require.NoError(t, err)
	assert.Equal(t, SessionStorePostgres, c.SessionStore.Type)
	assert.Equal(t, session.DefaultTable, c.SessionStore.Table)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", `format_version = `},
		{"wrong version", "format_version = \"9.9\"\nserver_port = \"1\"\n[backend]\ntype = \"filesystem\""},
		{"no port", "format_version = \"0.1.0\"\n[backend]\ntype = \"filesystem\""},
		{"no backend", "format_version = \"0.1.0\"\nserver_port = \"1\""},
		{"unknown backend", "format_version = \"0.1.0\"\nserver_port = \"1\"\n[backend]\ntype = \"jcr\""},
		{"root service path", "format_version = \"0.1.0\"\nserver_port = \"1\"\nservice_path = \"/\"\n[backend]\ntype = \"filesystem\""},
		{"unknown session store", "format_version = \"0.1.0\"\nserver_port = \"1\"\n[backend]\ntype = \"filesystem\"\n[session_store]\ntype = \"redis\""},
		{"postgres without dsn", "format_version = \"0.1.0\"\nserver_port = \"1\"\n[backend]\ntype = \"filesystem\"\n[session_store]\ntype = \"postgres\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig(tt.content)
			assert.Error(t, err)
		})
	}
	assert.Error(t, LoadConfig(""))
	assert.Error(t, LoadConfig(filepath.Join(t.TempDir(), "missing.conf")))
}
