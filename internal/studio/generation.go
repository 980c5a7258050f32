package studio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storyboard/internal/batch"
	"storyboard/internal/board"
	"storyboard/internal/generate"
	"storyboard/internal/history"
	"storyboard/internal/logging"
	"storyboard/internal/services"
)

// GenerateImages generates an image for every idle row with no assets and
// no error, in groups of the configured image concurrency.
func (s *Session) GenerateImages(ctx context.Context) (batch.Result, error) {
	if err := s.requireBackend(); err != nil {
		return batch.Result{}, err
	}
	in := s.inputs()
	return s.runBatch(ctx, generate.ImageJob(s.backend, in, s.imageGroup), in)
}

// GeneratePrompts streams a video prompt for every idle row that has an
// asset, no video prompt and no error.
func (s *Session) GeneratePrompts(ctx context.Context) (batch.Result, error) {
	if err := s.requireBackend(); err != nil {
		return batch.Result{}, err
	}
	in := s.inputs()
	return s.runBatch(ctx, generate.VideoPromptJob(s.backend, in, s.promptGroup), in)
}

// GenerateRow generates one image for a row regardless of its state, with
// optional prompt adjustments.
func (s *Session) GenerateRow(ctx context.Context, id int, adj generate.Adjustments) (batch.Result, error) {
	if err := s.requireBackend(); err != nil {
		return batch.Result{}, err
	}
	in := s.inputs()
	job := generate.ImageJob(s.backend, in, 1)
	job.Operation = generate.ImageOperation(s.backend, in, adj)
	return s.runSingle(ctx, id, job, in)
}

// GeneratePrompt streams a video prompt for one row. A row without a main
// asset keeps its current video prompt and gets an error instead.
func (s *Session) GeneratePrompt(ctx context.Context, id int) (batch.Result, error) {
	if err := s.requireBackend(); err != nil {
		return batch.Result{}, err
	}
	row, err := s.Row(id)
	if err != nil {
		return batch.Result{}, err
	}
	if _, ok := row.MainAssetValue(); !ok {
		return s.rejectPrompt(ctx, row), nil
	}
	in := s.inputs()
	return s.runSingle(ctx, id, generate.VideoPromptJob(s.backend, in, 1), in)
}

func (s *Session) rejectPrompt(ctx context.Context, row *board.Row) batch.Result {
	failure := &generate.Failure{Kind: generate.FailurePrecondition, Message: generate.MissingMainAsset}
	ev := board.Failed(row.ID, failure)
	applied := s.apply(ev)
	if applied != nil {
		s.notify(ev, applied)
	}
	now := time.Now()
	s.record(ctx, []history.Attempt{{
		RowID:        row.ID,
		Kind:         "video_prompt",
		Outcome:      services.FailureOutcome(failure),
		ErrorMessage: failure.Message,
		StartedAt:    now,
		FinishedAt:   now,
	}}, "")
	return batch.Result{Selected: 1, Failed: 1}
}

func (s *Session) requireBackend() error {
	if s.backend == nil {
		return services.Wrap(services.ErrConfiguration, "studio", "generate", "no generation backend configured", nil)
	}
	return nil
}

// inputs snapshots the generation inputs at launch.
func (s *Session) inputs() generate.Inputs {
	s.mu.Lock()
	defer s.mu.Unlock()
	style := s.project.Meta.StylePrompt
	if style == "" {
		style = s.defaultStyle
	}
	return generate.Inputs{
		Roster:      s.project.Roster.Clone(),
		StylePrompt: style,
		VideoNote:   s.project.Meta.VideoPromptNote,
		Pick:        s.pick,
	}
}

// runBatch reserves the rows the job selects and runs the job over them.
func (s *Session) runBatch(ctx context.Context, job batch.Job, in generate.Inputs) (batch.Result, error) {
	s.mu.Lock()
	selected := batch.Select(s.project.Rows, func(row *board.Row) bool {
		if s.reserved[row.ID] {
			return false
		}
		return job.Select == nil || job.Select(row)
	})
	s.reserveLocked(selected)
	s.mu.Unlock()

	job.Select = nil
	return s.execute(ctx, selected, job, in, func(events chan<- board.Event) batch.Result {
		return s.runner.Run(ctx, selected, job, events)
	}), nil
}

// runSingle reserves one row and runs job for it.
func (s *Session) runSingle(ctx context.Context, id int, job batch.Job, in generate.Inputs) (batch.Result, error) {
	s.mu.Lock()
	_, row := board.Find(s.project.Rows, id)
	if row == nil {
		s.mu.Unlock()
		return batch.Result{}, rowNotFound(id)
	}
	if row.Busy() || s.reserved[id] {
		s.mu.Unlock()
		return batch.Result{}, fmt.Errorf("%w: row %d", ErrRowBusy, id)
	}
	s.reserveLocked([]*board.Row{row})
	s.mu.Unlock()

	return s.execute(ctx, []*board.Row{row}, job, in, func(events chan<- board.Event) batch.Result {
		return s.runner.RunOne(ctx, row, job, events)
	}), nil
}

func (s *Session) reserveLocked(rows []*board.Row) {
	for _, row := range rows {
		s.reserved[row.ID] = true
	}
}

// attemptState tracks one row operation between Started and its terminal
// event.
type attemptState struct {
	started time.Time
	prompt  string
	assets  int
}

// execute drives run in a goroutine and folds its events into the live rows
// until the run returns.
func (s *Session) execute(ctx context.Context, rows []*board.Row, job batch.Job, in generate.Inputs, run func(events chan<- board.Event) batch.Result) batch.Result {
	launched := make(map[int]*board.Row, len(rows))
	for _, row := range rows {
		launched[row.ID] = row
	}

	events := make(chan board.Event, 16)
	done := make(chan batch.Result, 1)
	go func() {
		defer close(events)
		done <- run(events)
	}()

	inflight := make(map[int]*attemptState)
	var attempts []history.Attempt
	for ev := range events {
		switch ev.Kind {
		case board.EventStarted:
			inflight[ev.RowID] = &attemptState{started: time.Now()}
		case board.EventAsset:
			if st := inflight[ev.RowID]; st != nil {
				st.prompt = ev.Prompt
				st.assets++
			}
		case board.EventFinished, board.EventFailed:
			attempts = append(attempts, s.attempt(ev, job.Name, inflight[ev.RowID], launched[ev.RowID], in))
			delete(inflight, ev.RowID)
		}

		if applied := s.apply(ev); applied != nil {
			s.notify(ev, applied)
		}
	}
	result := <-done

	s.mu.Lock()
	for id := range launched {
		delete(s.reserved, id)
	}
	s.mu.Unlock()

	s.record(ctx, attempts, result.BatchID)
	return result
}

func (s *Session) attempt(ev board.Event, kind string, st *attemptState, launched *board.Row, in generate.Inputs) history.Attempt {
	finished := time.Now()
	a := history.Attempt{RowID: ev.RowID, Kind: kind, FinishedAt: finished, StartedAt: finished}
	if st != nil {
		a.StartedAt = st.started
		a.Prompt = st.prompt
		a.AssetCount = st.assets
	}
	if ev.Kind == board.EventFailed {
		a.Outcome = services.FailureOutcome(ev.Err)
		a.ErrorMessage = ev.Text
		var failure *generate.Failure
		if errors.As(ev.Err, &failure) && failure.Prompt != "" {
			a.Prompt = failure.Prompt
		}
		return a
	}
	a.Outcome = history.OutcomeSucceeded
	if a.Prompt == "" && kind == "video_prompt" && launched != nil {
		a.Prompt = generate.BuildVideoPrompt(launched, in.VideoNote)
	}
	return a
}

// apply folds ev into the live rows and returns the updated row, or nil when
// nothing changed. Events for rows removed since launch are dropped.
func (s *Session) apply(ev board.Event) *board.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, changed := board.ApplyEvent(s.project.Rows, ev)
	if !changed {
		return nil
	}
	s.project.Rows = rows
	s.dirty = true
	_, row := board.Find(rows, ev.RowID)
	return row
}

func (s *Session) notify(ev board.Event, row *board.Row) {
	if s.observer != nil {
		s.observer(ev, row)
	}
}

// record writes attempts to the history store. Failures are logged and never
// affect the batch.
func (s *Session) record(ctx context.Context, attempts []history.Attempt, batchID string) {
	if s.history == nil || len(attempts) == 0 {
		return
	}
	path := s.Path()
	ctx = context.WithoutCancel(ctx)
	for _, a := range attempts {
		a.Project = path
		a.BatchID = batchID
		if _, err := s.history.Record(ctx, a); err != nil {
			s.logger.Warn("history record failed",
				logging.RowID(a.RowID),
				logging.Operation(a.Kind),
				logging.Error(err),
			)
		}
	}
}
