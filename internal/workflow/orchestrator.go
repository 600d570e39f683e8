// Package workflow drives one transcription request through probing,
// pricing, windowed transcription and aggregation.
//
// Every step records its output on the Run and persists it before the next
// step starts, so an interrupted run resumes where it stopped. The pricing
// step charges under the run's idempotency key, which makes a replayed
// charge a no-op. Temporary files are tracked by a janitor and removed on
// every exit path, including failure and cancellation.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-scribe/internal/apierr"
	"github.com/alnah/go-scribe/internal/billing"
	"github.com/alnah/go-scribe/internal/janitor"
	"github.com/alnah/go-scribe/internal/media"
	"github.com/alnah/go-scribe/internal/metrics"
	"github.com/alnah/go-scribe/internal/notify"
	"github.com/alnah/go-scribe/internal/settings"
	"github.com/alnah/go-scribe/internal/transcribe"
	"github.com/alnah/go-scribe/internal/transcript"
)

// Defaults.
const (
	DefaultMaxWindow   = 600.0
	DefaultCallTimeout = 5 * time.Minute
	DefaultMaxRetries  = 3
	defaultBaseDelay   = 1 * time.Second
	defaultMaxDelay    = 30 * time.Second
)

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

// Prober reports media duration, falling back to an estimate.
type Prober interface {
	Probe(ctx context.Context, path string) media.ProbeResult
}

// Extractor materializes one window as its own file in dir.
type Extractor interface {
	Extract(ctx context.Context, src string, w media.Window, dir string) (media.ChunkArtifact, error)
}

// Validator rejects media before any paid step.
type Validator interface {
	Validate(path string) error
}

// Gate charges and refunds runs.
type Gate interface {
	Authorize(ctx context.Context, runID, userID string, seconds float64, tier settings.Model) (billing.Outcome, error)
	Refund(ctx context.Context, runID, userID string, o billing.Outcome) (int64, error)
}

// Compile-time interface compliance checks.
var (
	_ Prober    = (*media.Prober)(nil)
	_ Extractor = (*media.Extractor)(nil)
	_ Validator = (*media.Validator)(nil)
	_ Gate      = (*billing.Gate)(nil)
)

// Deps are the required collaborators of an Orchestrator.
type Deps struct {
	Store     Store
	Media     media.Store
	Validator Validator
	Prober    Prober
	Extractor Extractor
	Gate      Gate
	Client    transcribe.Client
}

func (d Deps) validate() error {
	missing := []string{}
	for name, ok := range map[string]bool{
		"Store":     d.Store != nil,
		"Media":     d.Media != nil,
		"Validator": d.Validator != nil,
		"Prober":    d.Prober != nil,
		"Extractor": d.Extractor != nil,
		"Gate":      d.Gate != nil,
		"Client":    d.Client != nil,
	} {
		if !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingDependency, strings.Join(missing, ", "))
	}
	return nil
}

type discardSender struct{}

func (discardSender) Send(string, string) {}

// ---------------------------------------------------------------------------
// Orchestrator
// ---------------------------------------------------------------------------

// Orchestrator runs transcription workflows. It is safe for concurrent use;
// each run has its own state.
type Orchestrator struct {
	Deps

	maxWindow       float64
	retry           apierr.RetryConfig
	callTimeout     time.Duration
	parallel        int
	refundOnFailure bool
	retainFinished  bool
	workDir         string
	offsetMode      transcript.OffsetMode

	notifier notify.Sender
	logger   *slog.Logger
	metrics  *metrics.Metrics
	newID    func() string
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxWindow sets the longest window, in seconds, sent to the provider.
func WithMaxWindow(seconds float64) Option {
	return func(o *Orchestrator) {
		if seconds > 0 {
			o.maxWindow = seconds
		}
	}
}

// WithRetry sets the retry policy for extraction and transcription.
func WithRetry(cfg apierr.RetryConfig) Option {
	return func(o *Orchestrator) { o.retry = cfg }
}

// WithCallTimeout bounds each call to the prober, splitter, provider or ledger.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.callTimeout = d
		}
	}
}

// WithParallel transcribes up to n windows at once. Results are still
// merged in window order.
func WithParallel(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.parallel = n
		}
	}
}

// WithRefundOnFailure refunds the charge of a run that fails after pricing.
func WithRefundOnFailure(refund bool) Option {
	return func(o *Orchestrator) { o.refundOnFailure = refund }
}

// WithRetainFinished keeps terminal runs in the store instead of purging them.
func WithRetainFinished(retain bool) Option {
	return func(o *Orchestrator) { o.retainFinished = retain }
}

// WithWorkDir sets where per-run chunk directories are created.
func WithWorkDir(dir string) Option {
	return func(o *Orchestrator) { o.workDir = dir }
}

// WithOffsetMode selects how chunk timestamps are shifted when merging.
func WithOffsetMode(m transcript.OffsetMode) Option {
	return func(o *Orchestrator) { o.offsetMode = m }
}

// WithNotifier sets where user-facing progress messages go.
func WithNotifier(s notify.Sender) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.notifier = s
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithIDGenerator overrides run ID generation (for testing).
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// WithClock overrides time.Now (for testing).
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator.
func New(deps Deps, opts ...Option) (*Orchestrator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		Deps:      deps,
		maxWindow: DefaultMaxWindow,
		retry: apierr.RetryConfig{
			MaxRetries: DefaultMaxRetries,
			BaseDelay:  defaultBaseDelay,
			MaxDelay:   defaultMaxDelay,
		},
		callTimeout: DefaultCallTimeout,
		parallel:    1,
		notifier:    discardSender{},
		logger:      slog.New(slog.DiscardHandler),
		newID:       uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Start accepts req as a new run and drives it to a terminal status.
// The returned run is never nil once accepted; the error is the cause of a
// failed run.
func (o *Orchestrator) Start(ctx context.Context, req settings.Request) (*Run, error) {
	run := newRun(o.newID(), req, o.now().UTC())
	if err := o.Store.Create(ctx, run); err != nil {
		return nil, err
	}
	o.logger.Info("run accepted",
		"run_id", run.ID, "user_id", req.UserID, "media", req.MediaRef,
		"model", req.Settings.Model, "language", req.Settings.Language, "accuracy", req.Settings.Accuracy)
	return o.execute(ctx, run)
}

// Resume re-enters a persisted run, skipping steps whose output is recorded.
func (o *Orchestrator) Resume(ctx context.Context, runID string) (*Run, error) {
	run, err := o.Store.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status.Terminal() {
		return run, fmt.Errorf("%w: %s is %s", ErrRunTerminal, runID, run.Status)
	}
	o.logger.Info("run resumed", "run_id", run.ID, "status", run.Status, "steps_done", len(run.Steps))
	return o.execute(ctx, run)
}

func (o *Orchestrator) execute(ctx context.Context, run *Run) (*Run, error) {
	x := &execution{
		Orchestrator: o,
		run:          run,
		jan:          janitor.New(run.Tracked, janitor.WithLogger(o.logger)),
	}

	var err error
	if !run.Failed() && run.Status != StatusCleaning {
		err = x.advance(ctx)
	}
	return x.finish(ctx, err)
}

// ---------------------------------------------------------------------------
// execution
// ---------------------------------------------------------------------------

// execution is one pass over a run. mu guards run during window fan-out.
type execution struct {
	*Orchestrator
	run *Run
	jan *janitor.Janitor
	mu  sync.Mutex
}

func (x *execution) advance(ctx context.Context) error {
	steps := []struct {
		name   string
		status Status
		fn     func(context.Context) error
	}{
		{StepResolve, StatusAccepted, x.resolve},
		{StepValidate, StatusAccepted, x.validate},
		{StepProbe, StatusProbing, x.probe},
		{StepPrice, StatusPricing, x.price},
		{StepPlan, StatusPricing, x.plan},
	}
	for _, s := range steps {
		if err := x.step(ctx, s.name, s.status, s.fn); err != nil {
			return err
		}
	}

	if err := x.transcribeWindows(ctx); err != nil {
		return err
	}
	return x.step(ctx, StepAggregate, StatusAggregating, x.aggregate)
}

// step runs fn unless name is already done, then records and persists it.
// An empty status leaves the run's status to fn.
func (x *execution) step(ctx context.Context, name string, status Status, fn func(context.Context) error) error {
	if x.run.Done(name) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w before %s: %w", ErrCancelled, name, err)
	}
	if status != "" {
		if err := x.run.transition(status); err != nil {
			return &StepError{Step: name, Err: err}
		}
	}

	start := x.now()
	err := fn(ctx)
	elapsed := x.now().Sub(start)
	x.metrics.ObserveStep(metricStep(name), elapsed, err)
	if err != nil {
		return &StepError{Step: name, Err: err}
	}

	x.mu.Lock()
	x.run.markDone(name, x.now().UTC())
	x.mu.Unlock()
	x.logger.Info("step done", "run_id", x.run.ID, "step", name, "duration", elapsed)
	return x.save(ctx)
}

func (x *execution) save(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.run.UpdatedAt = x.now().UTC()
	if err := x.Store.Save(ctx, x.run); err != nil {
		return fmt.Errorf("persist run %s: %w", x.run.ID, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Steps
// ---------------------------------------------------------------------------

func (x *execution) resolve(ctx context.Context) error {
	if err := x.run.Request.Validate(); err != nil {
		return err
	}
	path, err := x.Media.Resolve(ctx, x.run.Request.MediaRef)
	if err != nil {
		return err
	}
	x.run.MediaPath = path
	return nil
}

func (x *execution) validate(context.Context) error {
	return x.Validator.Validate(x.run.MediaPath)
}

func (x *execution) probe(ctx context.Context) error {
	if d := x.run.Request.Duration; d != nil {
		x.run.Duration = *d
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, x.callTimeout)
	defer cancel()
	res := x.Prober.Probe(callCtx, x.run.MediaPath)
	// A cancelled probe falls back too; that must not be billed.
	if err := ctx.Err(); err != nil {
		return err
	}
	x.run.Duration, x.run.DurationEstimated = res.Seconds, res.Estimated
	return nil
}

func (x *execution) price(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, x.callTimeout)
	defer cancel()

	req := x.run.Request
	outcome, err := x.Gate.Authorize(callCtx, x.run.ID, req.UserID, x.run.Duration, req.Settings.Model)
	if err != nil {
		return err
	}
	x.run.Billing = &outcome
	x.metrics.AddCredits(string(outcome.ModelTier), outcome.AmountCharged)
	x.notify(chargedMessage(x.run))
	return nil
}

func (x *execution) plan(context.Context) error {
	windows, err := media.Plan(x.run.Duration, x.maxWindow)
	if err != nil {
		return err
	}
	x.run.Windows = windows
	x.run.Chunks = make([]ChunkRecord, len(windows))
	for i, w := range windows {
		x.run.Chunks[i].Window = w
	}

	if !x.run.Chunked() {
		return nil
	}
	if x.workDir != "" {
		if err := os.MkdirAll(x.workDir, 0o700); err != nil {
			return fmt.Errorf("create work dir: %w", err)
		}
	}
	dir, err := os.MkdirTemp(x.workDir, "scribe-"+x.run.ID+"-")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	x.run.WorkDir = dir
	x.jan.Track(dir)
	x.run.Tracked = x.jan.Tracked()
	x.notify(fmt.Sprintf("Long media: transcribing in %d parts.", len(windows)))
	return nil
}

func (x *execution) aggregate(context.Context) error {
	chunks := x.run.transcriptChunks()
	if len(chunks) != len(x.run.Windows) {
		return fmt.Errorf("%w: %d of %d windows transcribed",
			transcript.ErrAggregationInvariant, len(chunks), len(x.run.Windows))
	}
	result, err := transcript.Merge(chunks, transcript.WithOffsetMode(x.offsetMode))
	if err != nil {
		return err
	}
	x.run.Result = &result
	return nil
}

// ---------------------------------------------------------------------------
// Windows
// ---------------------------------------------------------------------------

func (x *execution) transcribeWindows(ctx context.Context) error {
	var pending []int
	for i := range x.run.Windows {
		if !x.run.Done(WindowStep(i)) {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	if x.parallel <= 1 || len(pending) == 1 {
		for _, i := range pending {
			err := x.step(ctx, WindowStep(i), "", func(ctx context.Context) error {
				return x.window(ctx, i, true)
			})
			if err != nil {
				return err
			}
		}
		return nil
	}
	return x.fanOut(ctx, pending)
}

// fanOut transcribes pending windows concurrently. Each finished window is
// persisted on its own, so a failure keeps the others' work.
func (x *execution) fanOut(ctx context.Context, pending []int) error {
	if x.run.Chunked() {
		if err := x.run.transition(StatusChunking); err != nil {
			return err
		}
	}
	if err := x.run.transition(StatusTranscribing); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.parallel)
	for _, i := range pending {
		g.Go(func() error {
			name := WindowStep(i)
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("%w before %s: %w", ErrCancelled, name, err)
			}
			start := x.now()
			err := x.window(gctx, i, false)
			x.metrics.ObserveStep(metricStep(name), x.now().Sub(start), err)
			if err != nil {
				return &StepError{Step: name, Err: err}
			}

			x.mu.Lock()
			x.run.markDone(name, x.now().UTC())
			x.mu.Unlock()
			return x.save(gctx)
		})
	}
	return g.Wait()
}

// window extracts (when chunked) and transcribes window i. The chunk file
// is released as soon as its transcript is in hand.
func (x *execution) window(ctx context.Context, i int, moveStatus bool) error {
	w := x.run.Windows[i]
	src := x.run.MediaPath

	if x.run.Chunked() {
		if moveStatus {
			if err := x.run.transition(StatusChunking); err != nil {
				return err
			}
		}
		path, err := x.chunkFile(ctx, i, w)
		if err != nil {
			x.metrics.RecordWindow(err)
			return err
		}
		defer x.releaseChunk(i, path)
		src = path
	}

	if moveStatus {
		if err := x.run.transition(StatusTranscribing); err != nil {
			return err
		}
	}
	tr, err := x.transcribe(ctx, src, w)
	x.metrics.RecordWindow(err)
	if err != nil {
		return err
	}

	x.mu.Lock()
	x.run.Chunks[i].Transcript = &tr
	x.mu.Unlock()

	if x.run.Chunked() {
		x.notify(fmt.Sprintf("Part %d of %d transcribed.", i+1, len(x.run.Windows)))
	}
	return nil
}

// chunkFile returns the media file of window i. A file recorded by an
// earlier pass over the run is reused while it is still in the work dir;
// otherwise the window is extracted and recorded before transcription.
func (x *execution) chunkFile(ctx context.Context, i int, w media.Window) (string, error) {
	x.mu.Lock()
	recorded := x.run.Chunks[i].Artifact
	x.mu.Unlock()

	if recorded != "" && filepath.Dir(recorded) == x.run.WorkDir {
		if info, err := os.Stat(recorded); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			x.logger.Debug("reusing chunk", "run_id", x.run.ID, "window", w.Index, "path", recorded)
			x.jan.Track(recorded)
			return recorded, nil
		}
	}

	art, err := x.extract(ctx, w)
	if err != nil {
		return "", err
	}
	x.jan.Track(art.Path)

	x.mu.Lock()
	x.run.Chunks[i].Artifact = art.Path
	x.mu.Unlock()
	if err := x.save(ctx); err != nil {
		return "", err
	}
	return art.Path, nil
}

// releaseChunk removes window i's file and forgets it.
func (x *execution) releaseChunk(i int, path string) {
	x.jan.Release(path)
	x.mu.Lock()
	x.run.Chunks[i].Artifact = ""
	x.mu.Unlock()
}

func (x *execution) extract(ctx context.Context, w media.Window) (media.ChunkArtifact, error) {
	// A resumed run may find its work dir gone after a reboot.
	if err := os.MkdirAll(x.run.WorkDir, 0o700); err != nil {
		return media.ChunkArtifact{}, fmt.Errorf("%w: work dir: %v", media.ErrChunkExtractionFailed, err)
	}
	return apierr.RetryWithBackoff(ctx, x.retryConfig("extract", w),
		func(int) (media.ChunkArtifact, error) {
			callCtx, cancel := context.WithTimeout(ctx, x.callTimeout)
			defer cancel()
			return x.Extractor.Extract(callCtx, x.run.MediaPath, w, x.run.WorkDir)
		},
		func(err error) bool { return errors.Is(err, media.ErrChunkExtractionFailed) },
	)
}

func (x *execution) transcribe(ctx context.Context, src string, w media.Window) (transcript.Transcript, error) {
	tr, err := apierr.RetryWithBackoff(ctx, x.retryConfig("transcribe", w),
		func(int) (transcript.Transcript, error) {
			callCtx, cancel := context.WithTimeout(ctx, x.callTimeout)
			defer cancel()
			return x.Client.Transcribe(callCtx, src, x.run.Request.Settings)
		},
		apierr.IsRetryable,
	)
	if err == nil {
		return tr, nil
	}
	if x.run.Chunked() {
		return transcript.Transcript{}, transcribe.AtWindow(err, w)
	}
	if !errors.Is(err, transcribe.ErrTranscriptionFailed) {
		err = &transcribe.FailedError{Err: err}
	}
	return transcript.Transcript{}, err
}

func (x *execution) retryConfig(op string, w media.Window) apierr.RetryConfig {
	cfg := x.retry
	next := cfg.OnRetry
	cfg.OnRetry = func(retry int, err error) {
		x.metrics.RecordRetry(op)
		x.logger.Warn("retrying",
			"run_id", x.run.ID, "operation", op, "window", w.Index, "retry", retry, "error", err)
		if next != nil {
			next(retry, err)
		}
	}
	return cfg
}

// ---------------------------------------------------------------------------
// Terminal handling
// ---------------------------------------------------------------------------

// finish records a failure, cleans up, settles the refund policy, notifies
// the user and ends the run. It runs on a context detached from
// cancellation so that cleanup happens even for cancelled runs.
func (x *execution) finish(ctx context.Context, runErr error) (*Run, error) {
	run := x.run
	if runErr != nil && ctx.Err() != nil && !errors.Is(runErr, ErrCancelled) {
		runErr = fmt.Errorf("%w: %w", ErrCancelled, runErr)
	}
	ctx = context.WithoutCancel(ctx)

	if runErr != nil {
		run.fail(runErr)
		x.logger.Error("run failed", "run_id", run.ID, "reason", run.FailureReason, "error", runErr)
	}
	if err := run.transition(StatusCleaning); err != nil {
		x.logger.Error("cannot enter cleanup", "run_id", run.ID, "error", err)
	}
	x.saveQuietly(ctx)

	start := x.now()
	if left := x.jan.ReleaseAll(); left > 0 {
		x.logger.Warn("temp files left behind", "run_id", run.ID, "count", left)
	}
	run.Tracked = nil
	run.markDone(StepCleanup, x.now().UTC())
	x.metrics.ObserveStep(StepCleanup, x.now().Sub(start), nil)

	final := StatusCompleted
	if run.Failed() {
		final = StatusFailed
		x.refund(ctx)
	}
	if err := run.transition(final); err != nil {
		x.logger.Error("cannot end run", "run_id", run.ID, "error", err)
	}

	if x.retainFinished {
		x.saveQuietly(ctx)
	} else if err := x.Store.Delete(ctx, run.ID); err != nil {
		x.logger.Warn("run not purged", "run_id", run.ID, "error", err)
	}

	x.metrics.RecordRun(string(final), string(run.FailureReason))
	x.notify(finalMessage(run, runErr))

	if !run.Failed() {
		x.logger.Info("run completed", "run_id", run.ID,
			"windows", len(run.Windows), "characters", len(run.Result.Text))
		return run, nil
	}
	if runErr == nil {
		runErr = fmt.Errorf("%w: %s: %s", ErrRunFailed, run.FailureReason, run.Error)
	}
	return run, runErr
}

func (x *execution) saveQuietly(ctx context.Context) {
	if err := x.save(ctx); err != nil {
		x.logger.Warn("run state not saved", "run_id", x.run.ID, "error", err)
	}
}

func (x *execution) refund(ctx context.Context) {
	run := x.run
	if !x.refundOnFailure || run.Billing == nil || run.Refunded {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, x.callTimeout)
	defer cancel()
	if _, err := x.Gate.Refund(callCtx, run.ID, run.Request.UserID, *run.Billing); err != nil {
		x.logger.Error("refund failed", "run_id", run.ID, "error", err)
		return
	}
	run.Refunded = true
}

func (x *execution) notify(message string) {
	x.notifier.Send(x.run.Request.UserID, message)
}

// metricStep folds window/<i> into one label value.
func metricStep(name string) string {
	base, _, _ := strings.Cut(name, "/")
	return base
}
