package cli

import (
	"archive/zip"
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tansive/ideconnector/internal/connector/cms"
	serverconfig "github.com/tansive/ideconnector/internal/connector/config"
	"github.com/tansive/ideconnector/internal/connector/server"
	"github.com/tansive/ideconnector/internal/connector/service"
	"github.com/tansive/ideconnector/internal/connector/session"
	"github.com/tansive/ideconnector/pkg/api"
)

type cliEnv struct {
	serverURL  string
	configPath string
	zipDir     string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	hash, err := cms.HashPassword("admin")
	require.NoError(t, err)
	cfg := &serverconfig.ConfigParam{
		FormatVersion: serverconfig.ConfigFormatVersion,
		ServerPort:    "0",
		Backend: serverconfig.BackendConfig{
			Type: cms.BackendFilesystem,
			Options: map[string]any{
				"root_dir": t.TempDir(),
				"users":    map[string]any{"Admin": hash},
			},
		},
	}
	require.NoError(t, serverconfig.ValidateConfig(cfg))
	backend, err := cfg.NewBackend()
	require.NoError(t, err)
	s, err := server.CreateNewServer(cfg, service.New(backend, session.NewMemoryStore()))
	require.NoError(t, err)
	s.MountHandlers()
	srv := httptest.NewServer(s.Router)
	t.Cleanup(srv.Close)

	return &cliEnv{
		serverURL:  srv.URL,
		configPath: filepath.Join(t.TempDir(), "ideconnector", "config.yaml"),
		zipDir:     t.TempDir(),
	}
}

// run executes the CLI with args against the environment's config file.
func (env *cliEnv) run(args ...string) (string, string, error) {
	cmd := newRootCmd()
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--config", env.configPath))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (env *cliEnv) moduleZip(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(env.zipDir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("manifest.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<export/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestCLIWorkflow(t *testing.T) {
	env := newCLIEnv(t)

	out, _, err := env.run("config", "create", "--server", env.serverURL, "--user", "Admin")
	require.NoError(t, err)
	assert.Contains(t, out, "Server configured: "+env.serverURL+api.DefaultServicePath)

	// not logged in yet
	_, _, err = env.run("import", env.moduleZip(t, "a_1.0.zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")

	_, stderr, err := env.run("login", "--passwd", "wrong")
	assert.ErrorIs(t, err, ErrAlreadyHandled)
	assert.Contains(t, stderr, "ERROR logging in")

	out, _, err = env.run("login", "--passwd", "admin")
	require.NoError(t, err)
	assert.Contains(t, out, "User Admin logged in successfully.")
	require.NoError(t, LoadConfig(env.configPath))
	token := GetConfig().Token
	assert.NotEmpty(t, token)

	out, _, err = env.run("import", env.moduleZip(t, "a_1.0.zip"), env.moduleZip(t, "b_1.0.zip"), "--site-root", "/sites/default/")
	require.NoError(t, err)
	assert.Contains(t, out, api.BatchStartMarker(2))
	assert.Contains(t, out, api.ModuleStartMarker("a", "/sites/default/"))
	assert.Contains(t, out, api.ModuleFinishMarker("b"))
	assert.Less(t, strings.Index(out, api.ModuleFinishMarker("a")), strings.Index(out, api.ModuleStartMarker("b", "/sites/default/")))

	broken := filepath.Join(env.zipDir, "broken_1.0.zip")
	require.NoError(t, os.WriteFile(broken, []byte("garbage"), 0644))
	out, stderr, err = env.run("import", broken)
	assert.ErrorIs(t, err, ErrAlreadyHandled)
	assert.Contains(t, out, api.ErrorLinePrefix+"broken")
	assert.Contains(t, stderr, "1 of 1 modules failed to import")

	out, _, err = env.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Protocol: compatible")
	assert.Contains(t, out, "Logged in: yes")

	out, _, err = env.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	require.NoError(t, LoadConfig(env.configPath))
	assert.Empty(t, GetConfig().Token)

	// the server forgot the session too
	cfg := GetConfig()
	cfg.Token = token
	require.NoError(t, cfg.WriteConfig(env.configPath))
	_, _, err = env.run("import", env.moduleZip(t, "a_1.0.zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestCLIWithoutConfig(t *testing.T) {
	env := newCLIEnv(t)
	_, _, err := env.run("login", "--passwd", "admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config create")

	out, _, err := env.run("version")
	require.NoError(t, err)
	assert.Contains(t, out, "ideconnector CLI "+getCLIVersion())

	_, _, err = env.run("config", "create", "--server", "localhost")
	assert.Error(t, err)
}

func TestStatusUnreachable(t *testing.T) {
	env := newCLIEnv(t)
	_, _, err := env.run("config", "create", "--server", "127.0.0.1:1")
	require.NoError(t, err)
	out, _, err := env.run("status", "--attempts", "1")
	assert.ErrorIs(t, err, ErrAlreadyHandled)
	assert.Contains(t, out, "Unable to connect to server")
}

func TestHashPassword(t *testing.T) {
	env := newCLIEnv(t)
	out, _, err := env.run("hash-password", "s3cret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("s3cret")))

	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetIn(strings.NewReader("from-stdin\n"))
	cmd.SetArgs([]string{"hash-password", "--config", env.configPath})
	require.NoError(t, cmd.Execute())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(stdout.String())), []byte("from-stdin")))
}
