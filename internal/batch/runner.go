package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"storyboard/internal/board"
	"storyboard/internal/logging"
	"storyboard/internal/services"
)

// Operation generates for one row. It may emit Chunk and AssetProduced events
// for that row; Started and the terminal event are emitted by the runner.
type Operation func(ctx context.Context, row *board.Row, emit func(board.Event)) error

// Predicate selects the rows a job applies to.
type Predicate func(row *board.Row) bool

// Job describes one bulk action.
type Job struct {
	// Name labels the operation in logs and history ("image", "video_prompt").
	Name string
	// Status is set on a row while its operation runs.
	Status      board.Status
	Select      Predicate
	Operation   Operation
	Concurrency int
}

// Result summarizes a run.
type Result struct {
	BatchID   string
	Selected  int
	Groups    int
	Succeeded int
	Failed    int
	// Skipped counts selected rows never dispatched because the context ended.
	Skipped int
}

// Runner executes jobs.
type Runner struct {
	logger *slog.Logger
	newID  func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithIDGenerator replaces the batch ID source.
func WithIDGenerator(fn func() string) Option {
	return func(r *Runner) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// NewRunner constructs a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{newID: uuid.NewString}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "batch")
	return r
}

// Select returns the rows matching pred in table order.
func Select(rows []*board.Row, pred Predicate) []*board.Row {
	var out []*board.Row
	for _, row := range rows {
		if pred == nil || pred(row) {
			out = append(out, row)
		}
	}
	return out
}

// Partition splits rows into consecutive groups of at most size rows.
func Partition(rows []*board.Row, size int) [][]*board.Row {
	if size <= 0 {
		size = 1
	}
	groups := make([][]*board.Row, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		groups = append(groups, rows[start:end])
	}
	return groups
}

// Run executes job over the selected rows, sending every event to events.
// The caller must keep draining events until Run returns.
func (r *Runner) Run(ctx context.Context, rows []*board.Row, job Job, events chan<- board.Event) Result {
	selected := Select(rows, job.Select)
	return r.run(ctx, selected, job, events)
}

// RunOne executes job for a single row regardless of the job's predicate.
func (r *Runner) RunOne(ctx context.Context, row *board.Row, job Job, events chan<- board.Event) Result {
	job.Concurrency = 1
	return r.run(ctx, []*board.Row{row}, job, events)
}

func (r *Runner) run(ctx context.Context, selected []*board.Row, job Job, events chan<- board.Event) Result {
	groups := Partition(selected, job.Concurrency)
	result := Result{BatchID: r.newID(), Selected: len(selected), Groups: len(groups)}
	ctx = services.WithBatchID(ctx, result.BatchID)
	ctx = services.WithOperation(ctx, job.Name)
	logger := logging.WithContext(ctx, r.logger)

	if len(selected) == 0 {
		logger.Debug("no rows selected")
		return result
	}
	logger.Info("batch started",
		logging.Event("batch_started"),
		logging.Int("rows", len(selected)),
		logging.Int("groups", len(groups)),
		logging.Int("concurrency", max(job.Concurrency, 1)),
	)
	started := time.Now()

	var mu sync.Mutex
	for i, group := range groups {
		if err := ctx.Err(); err != nil {
			for _, rest := range groups[i:] {
				result.Skipped += len(rest)
			}
			logger.Warn("batch cancelled before group",
				logging.Int("group", i+1),
				logging.Int("skipped", result.Skipped),
				logging.Error(err),
			)
			break
		}

		var g errgroup.Group
		for _, row := range group {
			g.Go(func() error {
				err := r.execute(ctx, row, job, events)
				mu.Lock()
				if err != nil {
					result.Failed++
				} else {
					result.Succeeded++
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
		logger.Debug("group finished", logging.Int("group", i+1), logging.Int("rows", len(group)))
	}

	logger.Info("batch finished",
		logging.Event("batch_finished"),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed),
		logging.Int("skipped", result.Skipped),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result
}

func (r *Runner) execute(ctx context.Context, row *board.Row, job Job, events chan<- board.Event) (err error) {
	id := row.ID
	ctx = services.WithRowID(ctx, id)
	logger := logging.WithContext(ctx, r.logger)

	events <- board.Started(id, job.Status)
	emit := func(ev board.Event) {
		ev.RowID = id
		events <- ev
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s operation panicked: %v", job.Name, rec)
		}
		if err != nil {
			logger.Warn("row operation failed", logging.Error(err))
			events <- board.Failed(id, err)
			return
		}
		events <- board.Finished(id)
	}()

	if job.Operation == nil {
		return services.Wrap(services.ErrConfiguration, "batch", job.Name, "no operation configured", nil)
	}
	return job.Operation(ctx, row, emit)
}
