package cms

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModuleZip(t *testing.T, dir, name string, files map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for n, content := range files {
		w, err := zw.Create(n)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func newTestBackend(t *testing.T) (*FilesystemBackend, string) {
	t.Helper()
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	root := t.TempDir()
	b, aerr := New("filesystem", map[string]any{
		"root_dir": root,
		"users":    map[string]any{"Admin": hash},
	})
	require.NoError(t, aerr)
	return b.(*FilesystemBackend), root
}

func TestNewBackendOptions(t *testing.T) {
	_, err := New("jcr", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownBackend)
	assert.Contains(t, err.Error(), "filesystem")

	_, err = New("filesystem", map[string]any{"users": map[string]any{"a": "b"}})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New("filesystem", map[string]any{"root_dir": t.TempDir(), "users": map[string]any{"a": "plain"}})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New("filesystem", map[string]any{"root_dir": 42})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLogin(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	c, err := b.Login(ctx, "Admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Admin", c.Principal())
	assert.Equal(t, "/", c.SiteRoot())

	_, err = b.Login(ctx, "Admin", "wrong")
	assert.ErrorIs(t, err, ErrLoginFailed)
	_, err = b.Login(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, ErrLoginFailed)
}

func TestImportAndDeleteModule(t *testing.T) {
	b, root := newTestBackend(t)
	ctx := context.Background()
	c := NewContext("Admin", "/sites/default/")

	zipPath := writeModuleZip(t, t.TempDir(), "com.acme.web_1.2.zip", map[string]string{
		"manifest.xml":        "<export/>",
		"system/index.jsp":    "hello",
		"system/css/main.css": "body{}",
	})

	assert.False(t, b.ModuleExists(ctx, c, "com.acme.web"))
	var report bytes.Buffer
	require.NoError(t, b.ImportModule(ctx, c, zipPath, &report))
	assert.True(t, b.ModuleExists(ctx, c, "com.acme.web"))

	lines := strings.Split(strings.TrimSpace(report.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Importing module com.acme.web from com.acme.web_1.2.zip to site root /sites/default/", lines[0])
	assert.Contains(t, lines[1], "( 1 / 3 ) Importing ")
	assert.True(t, strings.HasSuffix(lines[3], "... OK"))
	assert.Equal(t, "Module com.acme.web imported, 3 files", lines[4])

	content, err := os.ReadFile(filepath.Join(root, "sites", "sites", "default", "com.acme.web", "system", "index.jsp"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	rec, aerr := b.Module("com.acme.web")
	require.NoError(t, aerr)
	assert.Equal(t, "Admin", rec.InstalledBy)
	assert.Equal(t, "/sites/default/", rec.SiteRoot)
	assert.Equal(t, []string{"manifest.xml", "system/css/main.css", "system/index.jsp"}, rec.Files)

	report.Reset()
	require.NoError(t, b.DeleteModule(ctx, c, "com.acme.web", &report))
	assert.False(t, b.ModuleExists(ctx, c, "com.acme.web"))
	assert.Contains(t, report.String(), "Deleting module com.acme.web\n")
	assert.Contains(t, report.String(), "Module com.acme.web deleted\n")
	_, err = os.Stat(filepath.Join(root, "sites", "sites", "default", "com.acme.web"))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, b.DeleteModule(ctx, c, "com.acme.web", &report), ErrModuleNotFound)
}

func TestImportRejectsInvalidArchives(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	c := NewContext("Admin", "/")
	dir := t.TempDir()

	notZip := filepath.Join(dir, "broken_1.0.zip")
	require.NoError(t, os.WriteFile(notZip, []byte("this is not an archive"), 0644))

	var report bytes.Buffer
	err := b.ImportModule(ctx, c, notZip, &report)
	assert.ErrorIs(t, err, ErrInvalidArchive)
	err = b.ImportModule(ctx, c, filepath.Join(dir, "missing_1.0.zip"), &report)
	assert.ErrorIs(t, err, ErrInvalidArchive)
	assert.Empty(t, report.String())
	assert.False(t, b.ModuleExists(ctx, c, "broken"))
}

func TestImportRejectsPathTraversal(t *testing.T) {
	b, root := newTestBackend(t)
	ctx := context.Background()
	c := NewContext("Admin", "/")

	zipPath := writeModuleZip(t, t.TempDir(), "evil_1.0.zip", map[string]string{
		"../../escaped.txt": "x",
	})
	var report bytes.Buffer
	err := b.ImportModule(ctx, c, zipPath, &report)
	require.Error(t, err)
	assert.False(t, b.ModuleExists(ctx, c, "evil"))
	_, statErr := os.Stat(filepath.Join(root, "escaped.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestImportStopsOnCancelledContext(t *testing.T) {
	b, _ := newTestBackend(t)
	c := NewContext("Admin", "/")
	zipPath := writeModuleZip(t, t.TempDir(), "mod_1.0.zip", map[string]string{"a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var report bytes.Buffer
	err := b.ImportModule(ctx, c, zipPath, &report)
	assert.ErrorIs(t, err, ErrImportFailed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, b.ModuleExists(context.Background(), c, "mod"))
}

func TestContextSiteRoot(t *testing.T) {
	c := NewContext("u", "/")
	assert.Equal(t, "/", c.SetSiteRoot("/sites/a/"))
	assert.Equal(t, "/sites/a/", c.SiteRoot())
	assert.Equal(t, "/sites/a/", c.SetSiteRoot("/"))
	assert.Equal(t, "/", c.SiteRoot())
}
