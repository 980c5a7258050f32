package studio

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"storyboard/internal/batch"
	"storyboard/internal/board"
	"storyboard/internal/generate"
	"storyboard/internal/history"
	"storyboard/internal/logging"
	"storyboard/internal/project"
	"storyboard/internal/reconcile"
	"storyboard/internal/roster"
	"storyboard/internal/services"
)

var (
	// ErrConfirmationRequired is returned when an import would replace a
	// non-empty table without confirmation.
	ErrConfirmationRequired = fmt.Errorf("%w: replacing the current table requires confirmation", services.ErrValidation)
	// ErrRowBusy is returned when an operation is already running for a row.
	ErrRowBusy = fmt.Errorf("%w: row is busy", services.ErrValidation)
)

// Observer receives every applied batch event with the row it produced.
type Observer func(ev board.Event, row *board.Row)

// Session is the state owner of one project.
type Session struct {
	mu       sync.Mutex
	path     string
	lock     *project.Lock
	project  project.Project
	dirty    bool
	reserved map[int]bool

	backend      generate.Backend
	runner       *batch.Runner
	history      *history.Store
	logger       *slog.Logger
	observer     Observer
	pick         func(n int) int
	defaultStyle string
	imageGroup   int
	promptGroup  int
}

// Option configures a Session.
type Option func(*Session)

// WithBackend sets the generation backend.
func WithBackend(backend generate.Backend) Option {
	return func(s *Session) { s.backend = backend }
}

// WithHistory records every finished row operation in store.
func WithHistory(store *history.Store) Option {
	return func(s *Session) { s.history = store }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithObserver registers fn for applied batch events. It is called without
// the session lock held.
func WithObserver(fn Observer) Option {
	return func(s *Session) { s.observer = fn }
}

// WithConcurrency sets the group sizes of bulk image and prompt generation.
func WithConcurrency(images, prompts int) Option {
	return func(s *Session) {
		s.imageGroup = images
		s.promptGroup = prompts
	}
}

// WithDefaultStyle sets the style prompt used when the project has none.
func WithDefaultStyle(prompt string) Option {
	return func(s *Session) { s.defaultStyle = prompt }
}

// WithRunner replaces the batch runner.
func WithRunner(runner *batch.Runner) Option {
	return func(s *Session) {
		if runner != nil {
			s.runner = runner
		}
	}
}

// WithPick sets the random source for the random character option.
func WithPick(fn func(n int) int) Option {
	return func(s *Session) { s.pick = fn }
}

// New returns a session over an empty, unsaved project.
func New(opts ...Option) *Session {
	s := &Session{
		project:     project.Project{Rows: []*board.Row{}},
		reserved:    make(map[int]bool),
		imageGroup:  3,
		promptGroup: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "studio")
	if s.runner == nil {
		s.runner = batch.NewRunner(batch.WithLogger(s.logger))
	}
	return s
}

// Open locks and loads the project at path. A missing file starts an empty
// project that Save will create. Loaded rows are re-resolved against the
// stored roster, so a manual character override does not survive a reload.
// The lock is held until Close.
func Open(path string, opts ...Option) (*Session, error) {
	lk, err := project.Acquire(path)
	if err != nil {
		return nil, err
	}
	s := New(opts...)
	s.path = path
	s.lock = lk
	p, err := project.Load(path)
	switch {
	case err == nil:
		s.project = p
		if rows, changed := reconcile.All(p.Rows, p.Roster, p.Meta.DefaultCharacter); changed {
			s.project.Rows = rows
			s.dirty = true
		}
		s.logger.Debug("project loaded",
			logging.String("path", path),
			logging.Int("rows", len(p.Rows)),
			logging.Bool("reconciled", s.dirty),
		)
	case errors.Is(err, services.ErrNotFound):
		s.logger.Debug("project not found, starting empty", logging.String("path", path))
	default:
		_ = lk.Release()
		return nil, err
	}
	return s, nil
}

// Close releases the project lock. A later Save takes it again.
func (s *Session) Close() error {
	s.mu.Lock()
	lk := s.lock
	s.lock = nil
	s.mu.Unlock()
	return lk.Release()
}

// Path returns the project file location.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Save writes the project to its path.
func (s *Session) Save() error {
	s.mu.Lock()
	path := s.path
	s.mu.Unlock()
	return s.SaveAs(path)
}

// SaveAs writes the project to path and makes it the session's path. The
// lock moves to path when it differs from the current one.
func (s *Session) SaveAs(path string) error {
	if path == "" {
		return services.Wrap(services.ErrValidation, "studio", "save", "project path is required", nil)
	}
	s.mu.Lock()
	held := s.lock != nil && filepath.Clean(path) == filepath.Clean(s.path)
	s.mu.Unlock()

	var acquired *project.Lock
	if !held {
		lk, err := project.Acquire(path)
		if err != nil {
			return err
		}
		acquired = lk
	}
	snap := s.Snapshot()
	if err := project.Save(path, snap); err != nil {
		_ = acquired.Release()
		return err
	}

	var previous *project.Lock
	s.mu.Lock()
	s.path = path
	s.dirty = false
	if acquired != nil {
		previous, s.lock = s.lock, acquired
	}
	s.mu.Unlock()
	if err := previous.Release(); err != nil {
		s.logger.Warn("release previous project lock", logging.Error(err))
	}
	s.logger.Info("project saved", logging.String("path", path), logging.Int("rows", len(snap.Rows)))
	return nil
}

// Dirty reports unsaved changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Snapshot returns a copy of the project. Rows are shared because they are
// never mutated.
func (s *Session) Snapshot() project.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() project.Project {
	meta := s.project.Meta
	if meta.DefaultCharacter != nil {
		slot := *meta.DefaultCharacter
		meta.DefaultCharacter = &slot
	}
	return project.Project{
		Meta:   meta,
		Roster: s.project.Roster.Clone(),
		Rows:   append([]*board.Row{}, s.project.Rows...),
	}
}

// Rows returns the current rows in table order.
func (s *Session) Rows() []*board.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*board.Row{}, s.project.Rows...)
}

// Row returns the row with id.
func (s *Session) Row(id int) (*board.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, row := board.Find(s.project.Rows, id)
	if row == nil {
		return nil, rowNotFound(id)
	}
	return row, nil
}

// Roster returns a copy of the roster.
func (s *Session) Roster() roster.Roster {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project.Roster.Clone()
}

// Meta returns the project settings.
func (s *Session) Meta() project.Meta {
	return s.Snapshot().Meta
}

func rowNotFound(id int) error {
	return services.Wrap(services.ErrNotFound, "studio", "row", fmt.Sprintf("row %d does not exist", id), nil)
}
