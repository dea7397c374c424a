/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dapr/kit/concurrency"
	"github.com/dapr/kit/ptr"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	clientv3 "go.etcd.io/etcd/client/v3"
	"k8s.io/utils/clock"

	"github.com/diagridio/go-shell-cron/history"
	historyetcd "github.com/diagridio/go-shell-cron/history/etcd"
	historyfile "github.com/diagridio/go-shell-cron/history/file"
	historymemory "github.com/diagridio/go-shell-cron/history/memory"
	historypostgres "github.com/diagridio/go-shell-cron/history/postgres"
	historyredis "github.com/diagridio/go-shell-cron/history/redis"
	historysqlite "github.com/diagridio/go-shell-cron/history/sqlite"
	"github.com/diagridio/go-shell-cron/internal/client"
	"github.com/diagridio/go-shell-cron/internal/config"
	"github.com/diagridio/go-shell-cron/internal/garbage"
	"github.com/diagridio/go-shell-cron/internal/grave"
	"github.com/diagridio/go-shell-cron/internal/job"
	"github.com/diagridio/go-shell-cron/internal/key"
	"github.com/diagridio/go-shell-cron/internal/loop"
	"github.com/diagridio/go-shell-cron/internal/metrics"
	"github.com/diagridio/go-shell-cron/internal/runner"
	"github.com/diagridio/go-shell-cron/internal/scheduler"
	"github.com/diagridio/go-shell-cron/internal/validator"
)

// Options are the options for building the daemon.
type Options struct {
	// Log is the logger to use for logging.
	Log logr.Logger

	// Config is the resolved and validated configuration.
	Config *config.Config

	// Clock defaults to the real clock.
	Clock clock.Clock

	// Runner overrides the command runner built from Config.
	Runner runner.Interface

	// Sink overrides the history sink built from Config.
	Sink history.Sink

	// Registerer receives the daemon metrics. Defaults to a new registry,
	// which is also what the metrics endpoint serves.
	Registerer prometheus.Registerer
}

// Daemon loads the job file once and runs the scheduler loop, alongside the
// metrics endpoint when one is configured.
type Daemon struct {
	log       logr.Logger
	loop      *loop.Loop
	server    *metrics.Server
	collector garbage.Interface
	closers   []io.Closer
}

// New loads jobs and builds the history sink. Rejected job definitions are
// logged and skipped.
func New(ctx context.Context, opts Options) (*Daemon, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	log := opts.Log.WithName("daemon")

	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	builder := scheduler.NewBuilder(scheduler.BuilderOptions{
		Clock:      clk,
		Calculator: scheduler.NewCalculator(cfg.CalculatorOptions()...),
	})

	loader := job.NewLoader(job.LoaderOptions{
		Log:       opts.Log,
		Builder:   builder,
		Validator: validator.New(validator.Options{}),
	})

	jobs, lerr := loader.LoadFile(cfg.JobsFile)
	if lerr != nil {
		log.Error(lerr, "Rejected job definitions", "path", cfg.JobsFile)
	}
	log.Info("Loaded jobs", "path", cfg.JobsFile, "count", len(jobs))

	d := &Daemon{log: log}

	var err error
	run := opts.Runner
	if run == nil {
		run = runner.New(runner.Options{Log: opts.Log, Dir: cfg.Runner.Dir})
	}

	sink := opts.Sink
	if sink == nil {
		sink, err = d.buildSink(ctx, opts.Log, cfg)
		if err != nil {
			return nil, errors.Join(err, d.close())
		}
	}

	reg := opts.Registerer
	var gatherer prometheus.Gatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gatherer = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	if len(cfg.Metrics.Addr) > 0 {
		d.server = metrics.NewServer(metrics.ServerOptions{
			Log:      opts.Log,
			Addr:     cfg.Metrics.Addr,
			Gatherer: gatherer,
		})
	}

	d.loop, err = loop.New(loop.Options{
		Log:           opts.Log,
		Clock:         clk,
		Jobs:          jobs,
		Builder:       builder,
		Runner:        run,
		Sink:          sink,
		Metrics:       metrics.New(reg),
		Yard:          grave.New(),
		AppendTimeout: cfg.History.AppendTimeout,
	})
	if err != nil {
		return nil, errors.Join(err, d.close())
	}

	return d, nil
}

// Run runs until ctx is cancelled, then releases the history sink.
func (d *Daemon) Run(ctx context.Context) error {
	runners := []concurrency.Runner{d.loop.Run}
	if d.server != nil {
		runners = append(runners, d.server.Run)
	}
	if d.collector != nil {
		runners = append(runners, d.collector.Run)
	}

	d.log.Info("Daemon started")
	err := concurrency.NewRunnerManager(runners...).Run(ctx)
	d.logState()
	d.log.Info("Daemon stopped")

	return errors.Join(err, d.close())
}

// logState reports the active set and the jobs removed during this run. It
// must only be called once the loop has returned.
func (d *Daemon) logState() {
	for _, j := range d.loop.Jobs() {
		d.log.Info("Active job", "name", j.Name, "schedule", j.Schedule, "next", j.NextRun)
	}
	for _, g := range d.loop.Yard().Graves() {
		d.log.Info("Removed job", "name", g.Name, "reason", g.Reason, "at", g.RemovedAt)
	}
}

// Loop returns the scheduler loop.
func (d *Daemon) Loop() *loop.Loop {
	return d.loop
}

// MetricsServer returns the metrics server, or nil when none is configured.
func (d *Daemon) MetricsServer() *metrics.Server {
	return d.server
}

func (d *Daemon) buildSink(ctx context.Context, log logr.Logger, cfg *config.Config) (history.Sink, error) {
	enc := history.Encoder{Lowercase: cfg.History.Lowercase}

	switch cfg.History.Backend {
	case config.BackendFile:
		f, err := historyfile.New(historyfile.Options{
			Log:     log,
			Path:    cfg.History.File.Path,
			Encoder: enc,
			NoSync:  cfg.History.File.NoSync,
		})
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, f)
		return f, nil

	case config.BackendMemory:
		return historymemory.New(), nil

	case config.BackendETCD:
		etcdCfg := cfg.History.ETCD
		cl, err := clientv3.New(clientv3.Config{
			Endpoints:   etcdCfg.Endpoints,
			DialTimeout: etcdCfg.DialTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to etcd: %w", err)
		}
		d.closers = append(d.closers, cl)

		k, err := key.New(key.Options{Namespace: etcdCfg.Namespace, ID: etcdCfg.ID})
		if err != nil {
			return nil, err
		}

		ec := client.New(client.Options{KV: cl, Log: log})

		if etcdCfg.Retain > 0 {
			d.collector, err = garbage.New(garbage.Options{
				Log:                log,
				Client:             ec,
				CollectionInterval: ptr.Of(etcdCfg.CollectionInterval),
			})
			if err != nil {
				return nil, err
			}
		}

		return historyetcd.New(ctx, historyetcd.Options{
			Log:       log,
			Client:    ec,
			Key:       k,
			Encoder:   enc,
			Retain:    etcdCfg.Retain,
			Collector: d.collector,
		})

	case config.BackendRedis:
		rc, err := historyredis.Dial(cfg.History.Redis.URL)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, rc)

		return historyredis.New(historyredis.Options{
			Log:     log,
			Client:  rc,
			Stream:  cfg.History.Redis.Stream,
			MaxLen:  cfg.History.Redis.MaxLen,
			Encoder: enc,
		})

	case config.BackendPostgres:
		pool, err := historypostgres.Dial(ctx, cfg.History.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, closerFunc(func() error {
			pool.Close()
			return nil
		}))

		return historypostgres.New(ctx, historypostgres.Options{
			Log:     log,
			Conn:    pool,
			Table:   cfg.History.Postgres.Table,
			Encoder: enc,
		})

	case config.BackendSQLite:
		s, err := historysqlite.New(ctx, historysqlite.Options{
			Log:     log,
			Path:    cfg.History.SQLite.Path,
			Encoder: enc,
		})
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, s)
		return s, nil

	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}
}

func (d *Daemon) close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i].Close())
	}
	d.closers = nil
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}
