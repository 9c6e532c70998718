package service

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tansive/ideconnector/internal/common/apperrors"
	"github.com/tansive/ideconnector/internal/connector/cms"
	"github.com/tansive/ideconnector/pkg/api"
)

// Importer imports batches of modules and writes their progress to a stream: marker lines
// around the batch and around every module, and in between the report lines the backend
// produces while it works.
type Importer struct {
	backend cms.Backend
}

// NewImporter returns an Importer that imports into backend.
func NewImporter(backend cms.Backend) *Importer {
	return &Importer{backend: backend}
}

// Run imports units in order. A module that fails is logged, reported with an error line in
// place of its finish marker, and the batch continues with the next module. The context's
// lock is held for the whole batch. Run stops early only when ctx is done, which happens
// when the client goes away.
func (i *Importer) Run(ctx context.Context, c cms.Context, units []api.ModuleImportInfo, out io.Writer) error {
	c.Lock()
	defer c.Unlock()

	w := &streamWriter{w: out}
	logger := log.Ctx(ctx).With().Str("user", c.Principal()).Logger()

	n := len(units)
	if n > 1 {
		w.line(api.BatchStartMarker(n))
	}
	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			logger.Warn().Err(err).Msg("import batch aborted")
			return err
		}
		name := unit.ModuleName()
		if err := i.importUnit(ctx, c, unit, w); err != nil {
			logger.Error().Str("module", name).Str("zip", unit.ModuleZipPath).Str("error", err.ErrorAll()).Msg("error importing module")
			w.line(api.ModuleErrorLine(name, err.ErrorAll()))
			continue
		}
		logger.Info().Str("module", name).Str("site_root", unit.SiteRoot()).Msg("module imported")
	}
	if n > 1 {
		w.line(api.BatchFinishMarker(n))
	}
	return w.err()
}

func (i *Importer) importUnit(ctx context.Context, c cms.Context, unit api.ModuleImportInfo, w *streamWriter) apperrors.Error {
	name := unit.ModuleName()
	siteRoot := unit.SiteRoot()

	w.line(api.ModuleStartMarker(name, siteRoot))

	prev := c.SetSiteRoot(siteRoot)
	defer c.SetSiteRoot(prev)

	if i.backend.ModuleExists(ctx, c, name) {
		if err := i.backend.DeleteModule(ctx, c, name, w); err != nil {
			return err
		}
	}
	if err := i.backend.ImportModule(ctx, c, unit.ModuleZipPath, w); err != nil {
		return err
	}
	w.line(api.ModuleFinishMarker(name))
	return nil
}

// streamWriter forwards writes and remembers the first write error. Once the client is
// gone every further write fails, so the error is reported once at the end of the batch.
type streamWriter struct {
	mu       sync.Mutex
	w        io.Writer
	firstErr error
}

func (s *streamWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil {
		s.mu.Lock()
		if s.firstErr == nil {
			s.firstErr = err
		}
		s.mu.Unlock()
	}
	return n, err
}

func (s *streamWriter) line(text string) {
	s.Write([]byte(text + "\n"))
}

func (s *streamWriter) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstErr
}
