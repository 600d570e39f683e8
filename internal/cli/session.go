package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alnah/go-scribe/internal/apierr"
	"github.com/alnah/go-scribe/internal/billing"
	"github.com/alnah/go-scribe/internal/config"
	"github.com/alnah/go-scribe/internal/logger"
	"github.com/alnah/go-scribe/internal/media"
	"github.com/alnah/go-scribe/internal/metrics"
	"github.com/alnah/go-scribe/internal/notify"
	"github.com/alnah/go-scribe/internal/transcribe"
	"github.com/alnah/go-scribe/internal/transcript"
	"github.com/alnah/go-scribe/internal/workflow"
)

// shutdownTimeout bounds flushing notifications and stopping the metrics
// listener on exit.
const shutdownTimeout = 5 * time.Second

// session holds what every command needs once the config is loaded:
// logger, metrics, backend and price gate. Call close when done.
type session struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	backend *Backend
	gate    *billing.Gate

	logCloser io.Closer
	server    *http.Server
}

// openSession loads the config, applies global flag overrides and opens
// the backend.
func openSession(ctx context.Context, env *Env) (*session, error) {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return nil, err
	}
	if env.LogLevel != "" {
		cfg.LogLevel = env.LogLevel
	}
	if env.MetricsAddr != "" {
		cfg.MetricsAddr = env.MetricsAddr
	}

	log, logCloser, err := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Output: env.Stderr,
	})
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, logger: log, logCloser: logCloser}

	prices := billing.DefaultPriceTable()
	if cfg.PricingFile != "" {
		if prices, err = billing.LoadPriceTable(config.ExpandPath(cfg.PricingFile)); err != nil {
			s.close()
			return nil, err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s.metrics = metrics.New(reg)
	if cfg.MetricsAddr != "" {
		s.serveMetrics(reg)
	}

	s.backend, err = env.BackendFactory.NewBackend(ctx, cfg)
	if err != nil {
		s.close()
		return nil, err
	}
	s.gate = billing.NewGate(s.backend.Ledger, prices, billing.WithGateLogger(log))
	return s, nil
}

func (s *session) serveMetrics(reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s.server = &http.Server{
		Addr:              s.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		s.logger.Info("metrics listening", "addr", s.cfg.MetricsAddr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", "error", err)
		}
	}()
}

func (s *session) close() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		_ = s.server.Shutdown(ctx)
		cancel()
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Warn("backend close failed", "error", err)
	}
	_ = s.logCloser.Close()
}

// runOptions are per-command orchestrator settings layered over the config.
type runOptions struct {
	parallel int
	keep     bool
}

// orchestrator wires the workflow engine. The returned stop flushes pending
// notifications and must be called once the run has ended.
func (s *session) orchestrator(ctx context.Context, env *Env, opts runOptions) (*workflow.Orchestrator, func(), error) {
	if !s.backend.Persistent && opts.keep {
		s.logger.Warn("runs are kept in memory only; set redis-addr to resume later")
	}

	client, err := env.ClientFactory.NewClient(s.cfg, env.Getenv)
	if err != nil {
		return nil, nil, err
	}

	ffmpegPath, err := env.FFmpegResolver.Resolve(ctx)
	if err != nil {
		return nil, nil, err
	}
	env.FFmpegResolver.CheckVersion(ctx, ffmpegPath)

	dispatcher := notify.NewDispatcher(notify.NewWriterNotifier(env.Stderr),
		notify.WithLogger(s.logger),
		notify.WithDropHook(s.metrics.NotificationDropped),
	)
	stop := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := dispatcher.Close(closeCtx); err != nil {
			s.logger.Warn("notifications not flushed", "error", err)
		}
	}

	parallel := s.cfg.Parallel
	if opts.parallel > 0 {
		parallel = opts.parallel
	}

	o, err := workflow.New(workflow.Deps{
		Store:     s.backend.Store,
		Media:     media.NewLocalStore(""),
		Validator: media.NewValidator(s.cfg.MaxUploadMB * 1024 * 1024),
		Prober:    env.MediaFactory.NewProber(ffmpegPath, s.cfg.FallbackDuration, s.logger),
		Extractor: env.MediaFactory.NewExtractor(ffmpegPath),
		Gate:      s.gate,
		Client:    client,
	},
		workflow.WithMaxWindow(s.cfg.MaxWindow),
		workflow.WithRetry(apierr.RetryConfig{
			MaxRetries: s.cfg.MaxRetries,
			BaseDelay:  s.cfg.RetryDelay,
			MaxDelay:   30 * s.cfg.RetryDelay,
		}),
		workflow.WithCallTimeout(s.cfg.CallTimeout),
		workflow.WithParallel(clampParallel(parallel)),
		workflow.WithOffsetMode(offsetMode(s.cfg.OffsetMode)),
		workflow.WithRefundOnFailure(s.cfg.RefundOnFailure),
		workflow.WithRetainFinished(opts.keep),
		workflow.WithWorkDir(config.ExpandPath(s.cfg.WorkDir)),
		workflow.WithNotifier(dispatcher),
		workflow.WithLogger(s.logger),
		workflow.WithMetrics(s.metrics),
	)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("wire workflow: %w", err)
	}
	return o, stop, nil
}

// clampParallel constrains concurrent windows to [1, MaxRecommendedParallel].
func clampParallel(n int) int {
	if n < 1 {
		return 1
	}
	if n > transcribe.MaxRecommendedParallel {
		return transcribe.MaxRecommendedParallel
	}
	return n
}

// offsetMode maps the offset-mode setting to a merge strategy.
func offsetMode(name string) transcript.OffsetMode {
	if name == config.OffsetModeLastSegment {
		return transcript.OffsetLastSegment
	}
	return transcript.OffsetWindow
}
