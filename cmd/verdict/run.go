package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sta-hq/verdict/pkg/cli"
	"sta-hq/verdict/pkg/engine"
	"sta-hq/verdict/pkg/evidence/recorder"
	"sta-hq/verdict/pkg/evidence/retention"
	"sta-hq/verdict/pkg/evidence/storage"
	"sta-hq/verdict/pkg/registry"
	"sta-hq/verdict/pkg/server"
	"sta-hq/verdict/pkg/telemetry/health"
)

var runFlags struct {
	registry    string
	input       string
	output      string
	listen      string
	record      bool
	runID       string
	keepServing bool
	dryRun      bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate a stream of envelopes with live registry reloads",
	Long: `Evaluate envelopes as they arrive and write one NDJSON result per input line.

The registry is loaded once at start-up; failing that load is fatal. After
that it is reloaded when files under the registry path change (registry.watch),
on the registry.reload_schedule cron schedule, and on SIGHUP. A reload that
fails to load or fails the compatibility check keeps the current registry.

Metrics and health endpoints are served on server.listen_address while the
command runs. By default the command exits once the input is exhausted;
--keep-serving keeps the endpoints and reload triggers up until SIGINT or
SIGTERM.

Examples:
  # Evaluate stdin and write results to stdout
  producer | verdict run --registry rules/

  # Follow a config, record verdicts, keep serving after the input ends
  verdict run --config /etc/verdict/verdict.yaml --input envelopes.ndjson --record --keep-serving

  # Load the registry and exit
  verdict run --dry-run`,
	RunE: runStream,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.registry, "registry", "r", "", "rule pack file or directory (default: registry settings from config)")
	f.StringVarP(&runFlags.input, "input", "i", "-", "envelope stream, - for stdin")
	f.StringVarP(&runFlags.output, "output", "o", "-", "result stream, - for stdout")
	f.StringVarP(&runFlags.listen, "listen", "l", "", "override server.listen_address")
	f.BoolVar(&runFlags.record, "record", false, "record verdicts in the evidence ledger")
	f.StringVar(&runFlags.runID, "run-id", "", "run id stored with recorded verdicts (default: random)")
	f.BoolVar(&runFlags.keepServing, "keep-serving", false, "keep running after the input is exhausted")
	f.BoolVar(&runFlags.dryRun, "dry-run", false, "load configuration and registry, then exit")

	rootCmd.AddCommand(runCmd)
}

func runStream(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, "run")
	if err != nil {
		return err
	}
	defer s.close()
	cfg := s.cfg
	if runFlags.listen != "" {
		cfg.Server.ListenAddress = runFlags.listen
	}

	ctx, stop := cli.SignalContext(commandContext(cmd))
	defer stop()

	src, err := s.source(runFlags.registry)
	if err != nil {
		return err
	}
	store := registry.NewStore(nil)
	reloader := registry.NewReloader(store, src, s.loader(), registry.ReloaderOptions{
		Timeout:           cfg.Registry.ReloadTimeout,
		MaxRetries:        cfg.Registry.MaxRetries,
		RequireCompatible: cfg.Registry.RequireCompatible,
		Observer:          s.tel.Metrics(),
		Logger:            s.logger,
	})
	snap, err := reloader.Reload(ctx)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("initial registry load: %w", err))
	}
	pack := snap.Pack()
	s.logger.Info("registry loaded",
		"source", src.String(),
		"pack", pack.ID,
		"pack_version", pack.Version,
		"version", snap.Version(),
		"rules", snap.Len(),
	)

	if runFlags.dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration valid\n✓ Registry %s@%s loaded (%d rules)\n", pack.ID, pack.Version, snap.Len())
		return nil
	}

	s.tel.Health().RegisterCheck("registry", health.RegistryCheck(store))
	s.tel.Health().SetRegistryInfo(health.StoreInfo(store))

	st := &streamer{
		engine: engine.New(store, engine.Options{
			Workers:          cfg.Evaluation.Workers,
			CheckConformance: cfg.Evaluation.CheckConformance,
			Metrics:          s.tel.Metrics(),
			Logger:           s.logger,
		}),
		runID:   firstNonEmpty(runFlags.runID, uuid.NewString()),
		invalid: s.tel.Metrics(),
		logger:  s.logger,
	}

	if runFlags.record || cfg.Evidence.Enabled {
		evStore, err := storage.New(&cfg.Evidence)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer evStore.Close()

		st.recorder = recorder.New(evStore, recorder.Options{Metrics: s.tel.Metrics(), Logger: s.logger})
		st.recorder.Start()
		defer st.recorder.Close()

		pruner := retention.NewPruner(evStore, cfg.Evidence.Retention, retention.Options{Metrics: s.tel.Metrics(), Logger: s.logger})
		scheduler := retention.NewScheduler(pruner)
		if err := scheduler.Start(ctx); err != nil {
			return cli.NewConfigError("evidence.retention.prune_schedule", err.Error())
		}
		defer scheduler.Stop()
	}

	in, inName, err := openInput(cmd, runFlags.input)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer in.Close()
	out, err := openOutput(cmd, runFlags.output)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer out.Close()

	triggers, err := reloadTriggers(s, src, reloader)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	mux := http.NewServeMux()
	s.tel.Mount(mux, Version, GitCommit, BuildDate)
	srv := server.New(&cfg.Server, s.tel.Handler(mux), s.logger)
	g.Go(func() error { return srv.Start(gctx) })

	for _, trigger := range triggers {
		g.Go(func() error { return trigger(gctx) })
	}

	g.Go(func() error {
		start := time.Now()
		stats, err := st.Run(gctx, in, out)
		s.logger.Info("input stream finished",
			"input", inName,
			"evaluated", stats.Evaluated,
			"invalid", stats.Invalid,
			"recorded", stats.Recorded,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		if runFlags.keepServing {
			<-gctx.Done()
			return nil
		}
		return errInputDone
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errInputDone) {
		return err
	}
	s.logger.Info("shutdown complete")
	return nil
}

// errInputDone stops the run once the input stream is exhausted.
var errInputDone = errors.New("input exhausted")

// reloadTriggers returns the file watcher, the reload schedule and the
// SIGHUP handler wired to reloader. Each trigger runs until its context is
// done.
func reloadTriggers(s *session, src registry.Source, reloader *registry.Reloader) ([]func(context.Context) error, error) {
	cfg := s.cfg
	job := registry.ReloadJob(reloader)
	var triggers []func(context.Context) error

	if _, local := src.(registry.FileSource); local && cfg.Registry.Watch {
		wcfg := registry.DefaultWatcherConfig(src.String())
		if cfg.Registry.DebounceInterval > 0 {
			wcfg.DebounceInterval = cfg.Registry.DebounceInterval
		}
		watcher, err := registry.NewWatcher(wcfg, s.logger)
		if err != nil {
			return nil, cli.NewCommandError("run", fmt.Errorf("watch registry: %w", err))
		}
		triggers = append(triggers, func(ctx context.Context) error { return watcher.Run(ctx, job) })
	}

	if cfg.Registry.ReloadSchedule != "" {
		schedule, err := registry.NewSchedule(cfg.Registry.ReloadSchedule, job, s.logger)
		if err != nil {
			return nil, cli.NewConfigError("registry.reload_schedule", err.Error())
		}
		triggers = append(triggers, schedule.Run)
	}

	triggers = append(triggers, func(ctx context.Context) error {
		hup, stop := cli.ReloadSignals()
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hup:
				s.logger.Info("reload requested by signal")
				job(ctx)
			}
		}
	})
	return triggers, nil
}
