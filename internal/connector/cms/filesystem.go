package cms

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/h2non/filetype"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/tansive/ideconnector/internal/common/apperrors"
	"github.com/tansive/ideconnector/pkg/api"
)

// FilesystemOptions configures a FilesystemBackend.
type FilesystemOptions struct {
	RootDir string            `mapstructure:"root_dir"`
	Users   map[string]string `mapstructure:"users"` // user name to bcrypt hash
}

// Validate checks that the options describe a usable backend.
func (o *FilesystemOptions) Validate() apperrors.Error {
	if strings.TrimSpace(o.RootDir) == "" {
		return ErrInvalidConfig.Msg("root_dir is required")
	}
	if len(o.Users) == 0 {
		return ErrInvalidConfig.Msg("at least one user is required")
	}
	for user, hash := range o.Users {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return ErrInvalidConfig.Msg("password of user " + user + " is not a bcrypt hash")
		}
	}
	return nil
}

// ModuleRecord describes an installed module.
type ModuleRecord struct {
	Name        string    `json:"name"`
	Archive     string    `json:"archive"`
	SiteRoot    string    `json:"site_root"`
	Files       []string  `json:"files"`
	InstalledBy string    `json:"installed_by"`
	InstalledAt time.Time `json:"installed_at"`
}

// FilesystemBackend installs modules by extracting their archives below
// <root_dir>/sites/<site root>/<module> and keeps one record per module in
// <root_dir>/modules/<module>.json.
type FilesystemBackend struct {
	rootDir string
	users   map[string]string
	mu      sync.Mutex // guards the module records
}

// NewFilesystemBackend creates a FilesystemBackend from its options map.
func NewFilesystemBackend(options map[string]any) (Backend, apperrors.Error) {
	var opts FilesystemOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, ErrInvalidConfig.MsgErr("unable to decode backend options", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	b := &FilesystemBackend{
		rootDir: filepath.Clean(opts.RootDir),
		users:   opts.Users,
	}
	for _, dir := range []string{b.modulesDir(), filepath.Join(b.rootDir, "sites")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, ErrInvalidConfig.MsgErr("unable to create "+dir, err)
		}
	}
	return b, nil
}

// HashPassword returns the bcrypt hash of password for use in the users option.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (b *FilesystemBackend) Login(ctx context.Context, user, password string) (Context, apperrors.Error) {
	hash, ok := b.users[user]
	if !ok || user == "" {
		return nil, ErrLoginFailed.Msg("invalid user name or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrLoginFailed.Msg("invalid user name or password")
	}
	return NewContext(user, api.RootSiteRoot), nil
}

func (b *FilesystemBackend) ModuleExists(ctx context.Context, c Context, name string) bool {
	if !validModuleName(name) {
		return false
	}
	_, err := os.Stat(b.recordPath(name))
	return err == nil
}

func (b *FilesystemBackend) DeleteModule(ctx context.Context, c Context, name string, report io.Writer) apperrors.Error {
	if !validModuleName(name) {
		return ErrModuleNotFound.Msg("invalid module name: " + name)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.readRecord(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(report, "Deleting module %s\n", name)
	moduleDir, err := b.moduleDir(rec.SiteRoot, name)
	if err != nil {
		return err
	}
	for i, f := range rec.Files {
		if cerr := ctx.Err(); cerr != nil {
			return ErrDeleteFailed.MsgErr("delete of module "+name+" interrupted", cerr)
		}
		fmt.Fprintf(report, "( %d / %d ) Deleting %s ... ", i+1, len(rec.Files), f)
		if rerr := os.Remove(filepath.Join(moduleDir, filepath.FromSlash(f))); rerr != nil && !os.IsNotExist(rerr) {
			fmt.Fprintln(report, "FAILED")
			return ErrDeleteFailed.MsgErr("unable to delete "+f, rerr)
		}
		fmt.Fprintln(report, "OK")
	}
	if rerr := os.RemoveAll(moduleDir); rerr != nil {
		return ErrDeleteFailed.MsgErr("unable to delete module directory", rerr)
	}
	if rerr := os.Remove(b.recordPath(name)); rerr != nil {
		return ErrDeleteFailed.MsgErr("unable to delete module record", rerr)
	}
	fmt.Fprintf(report, "Module %s deleted\n", name)
	return nil
}

func (b *FilesystemBackend) ImportModule(ctx context.Context, c Context, zipPath string, report io.Writer) apperrors.Error {
	name := api.ModuleImportInfo{ModuleZipPath: zipPath}.ModuleName()
	if !validModuleName(name) {
		return ErrInvalidArchive.Msg("unable to derive a module name from " + zipPath)
	}
	if err := checkZipArchive(zipPath); err != nil {
		return err
	}
	zr, zerr := zip.OpenReader(zipPath)
	if zerr != nil {
		return ErrInvalidArchive.MsgErr("unable to open "+zipPath, zerr)
	}
	defer zr.Close()

	b.mu.Lock()
	defer b.mu.Unlock()

	siteRoot := c.SiteRoot()
	moduleDir, err := b.moduleDir(siteRoot, name)
	if err != nil {
		return err
	}
	if rerr := os.MkdirAll(moduleDir, 0755); rerr != nil {
		return ErrImportFailed.MsgErr("unable to create module directory", rerr)
	}

	entries := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if !f.FileInfo().IsDir() {
			entries = append(entries, f)
		}
	}
	fmt.Fprintf(report, "Importing module %s from %s to site root %s\n", name, filepath.Base(zipPath), siteRoot)

	files := make([]string, 0, len(entries))
	for i, f := range entries {
		if cerr := ctx.Err(); cerr != nil {
			return ErrImportFailed.MsgErr("import of module "+name+" interrupted", cerr)
		}
		fmt.Fprintf(report, "( %d / %d ) Importing %s ... ", i+1, len(entries), f.Name)
		if ferr := extractFile(f, moduleDir); ferr != nil {
			fmt.Fprintln(report, "FAILED")
			return ErrImportFailed.MsgErr("unable to import "+f.Name, ferr)
		}
		fmt.Fprintln(report, "OK")
		files = append(files, filepath.ToSlash(filepath.Clean(f.Name)))
	}
	sort.Strings(files)

	rec := &ModuleRecord{
		Name:        name,
		Archive:     filepath.Base(zipPath),
		SiteRoot:    siteRoot,
		Files:       files,
		InstalledBy: c.Principal(),
		InstalledAt: time.Now().UTC(),
	}
	if err := b.writeRecord(rec); err != nil {
		return err
	}
	fmt.Fprintf(report, "Module %s imported, %d files\n", name, len(files))
	log.Ctx(ctx).Info().Str("module", name).Str("site_root", siteRoot).Int("files", len(files)).Msg("module imported")
	return nil
}

// Module returns the record of an installed module.
func (b *FilesystemBackend) Module(name string) (*ModuleRecord, apperrors.Error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readRecord(name)
}

func (b *FilesystemBackend) modulesDir() string {
	return filepath.Join(b.rootDir, "modules")
}

func (b *FilesystemBackend) recordPath(name string) string {
	return filepath.Join(b.modulesDir(), name+".json")
}

// moduleDir returns the directory a module is extracted to. The site root is confined to
// the sites directory.
func (b *FilesystemBackend) moduleDir(siteRoot, name string) (string, apperrors.Error) {
	sites := filepath.Join(b.rootDir, "sites")
	dir := filepath.Join(sites, filepath.FromSlash(filepath.Clean("/"+siteRoot)), name)
	if !strings.HasPrefix(dir, sites+string(os.PathSeparator)) {
		return "", ErrImportFailed.Msg("site root escapes the sites directory: " + siteRoot)
	}
	return dir, nil
}

func (b *FilesystemBackend) readRecord(name string) (*ModuleRecord, apperrors.Error) {
	data, err := os.ReadFile(b.recordPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrModuleNotFound.Msg("module " + name + " is not installed")
		}
		return nil, ErrCmsError.MsgErr("unable to read module record", err)
	}
	var rec ModuleRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, ErrCmsError.MsgErr("corrupt module record for "+name, err)
	}
	return &rec, nil
}

func (b *FilesystemBackend) writeRecord(rec *ModuleRecord) apperrors.Error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return ErrImportFailed.MsgErr("unable to encode module record", err)
	}
	tmp := b.recordPath(rec.Name) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return ErrImportFailed.MsgErr("unable to write module record", err)
	}
	if err := os.Rename(tmp, b.recordPath(rec.Name)); err != nil {
		return ErrImportFailed.MsgErr("unable to write module record", err)
	}
	return nil
}

func validModuleName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

func checkZipArchive(zipPath string) apperrors.Error {
	f, err := os.Open(zipPath)
	if err != nil {
		return ErrInvalidArchive.MsgErr("unable to open "+zipPath, err)
	}
	defer f.Close()

	// 262 bytes are enough for filetype sniffing
	header := make([]byte, 262)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return ErrInvalidArchive.MsgErr("unable to read "+zipPath, err)
	}
	kind, err := filetype.Match(header[:n])
	if err != nil || kind.Extension != "zip" {
		return ErrInvalidArchive.Msg(filepath.Base(zipPath) + " is not a zip archive")
	}
	return nil
}

func extractFile(f *zip.File, dir string) error {
	target := filepath.Join(dir, filepath.FromSlash(f.Name))
	if !strings.HasPrefix(target, dir+string(os.PathSeparator)) {
		return fmt.Errorf("invalid path escapes module dir: %s", f.Name)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

var _ Backend = (*FilesystemBackend)(nil)
