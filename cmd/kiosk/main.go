// Command kiosk runs the on-site face-recognition attendance kiosk: the
// capture/verification loop plus the background sync engine, under one
// supervisor.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/thejerf/suture/v4"

	"github.com/maniegokryz-prog/EndDev/internal/cliconfig"
	"github.com/maniegokryz-prog/EndDev/internal/clock"
	"github.com/maniegokryz-prog/EndDev/internal/config"
	"github.com/maniegokryz-prog/EndDev/internal/health"
	"github.com/maniegokryz-prog/EndDev/internal/supervisor"
	"github.com/maniegokryz-prog/EndDev/pkg/attendance"
	"github.com/maniegokryz-prog/EndDev/pkg/faceindex"
	"github.com/maniegokryz-prog/EndDev/pkg/localstore"
	"github.com/maniegokryz-prog/EndDev/pkg/remotestore"
	"github.com/maniegokryz-prog/EndDev/pkg/sync"
	"github.com/maniegokryz-prog/EndDev/pkg/verify"
)

const envPrefix = "KIOSK_"

var (
	ConfigPath               = pflag.String("config", "", "path to kiosk TOML config file")
	LocalStorePath           = pflag.String("local-store-path", "", "path to the local embedded store")
	RemoteDSN                = pflag.String("remote-dsn", "", "MySQL DSN for the remote server (disables sync if empty)")
	HealthAddr               = pflag.String("health-addr", "", "listen address for /healthz and /metrics")
	LoginCooldownEnabled     = pflag.Bool("login-cooldown-enabled", false, "enable G3 login cooldown")
	LoginCooldownMinutes     = pflag.Int("login-cooldown-minutes", 0, "G3 cooldown duration in minutes")
	LogoutRestrictionEnabled = pflag.Bool("logout-restriction-enabled", true, "enable G2 logout finality")
	SimilarityThreshold      = pflag.Float64("similarity-threshold", 0, "C4 verification cutoff")
	PushIntervalSeconds      = pflag.Int("push-interval-seconds", 0, "C6 push cadence")
	PullIntervalSeconds      = pflag.Int("pull-interval-seconds", 0, "C6 pull cadence")
	LogLevel                 = cliconfig.LevelP("log-level", "L", slog.LevelInfo, "log level")
	LogJSON                  = pflag.Bool("log-json", false, "use json logs")
	Help                     = pflag.BoolP("help", "h", false, "show this help text")
)

func main() {
	cliconfig.ParseEnv(envPrefix)
	pflag.Parse()

	if *Help || pflag.NArg() != 0 {
		fmt.Printf("usage: %s [options]\n%s", os.Args[0], pflag.CommandLine.FlagUsages())
		if *Help {
			return
		}
		os.Exit(2)
	}

	if *LogJSON {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: LogLevel})))
	} else {
		slog.SetDefault(slog.New(tintHandler(os.Stdout, LogLevel)))
	}
	log := slog.Default()

	if err := run(log); err != nil {
		log.Error("kiosk exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	local, err := localstore.Open(cfg.LocalStorePath)
	if err != nil {
		// Per spec.md §6/§7: store unavailable at startup is a fatal,
		// non-zero-exit condition (LocalStoreCorrupt-class).
		return fmt.Errorf("open local store: %w", err)
	}
	defer local.Close()

	var remote *remotestore.Store
	if cfg.RemoteDSN != "" {
		remote, err = remotestore.Open(cfg.RemoteDSN, 5*time.Second)
		if err != nil {
			return fmt.Errorf("open remote store: %w", err)
		}
		defer remote.Close()
	}

	clk := clock.Real{}

	indexRef := new(faceindex.Ref)
	if err := hydrateIndex(local, indexRef); err != nil {
		log.Warn("initial index hydrate failed", slog.Any("error", err))
	}

	var leave attendance.LeaveSource
	if remote != nil {
		leave = remote
	}
	attendanceEngine := attendance.New(attendance.Config{
		LoginCooldownEnabled:     cfg.LoginCooldownEnabled,
		LoginCooldownDuration:    cfg.LoginCooldownDuration(),
		LogoutRestrictionEnabled: cfg.LogoutRestrictionEnabled,
		Source:                   "kiosk",
	}, local, leave, clk, log.With(slog.String("component", "attendance")))

	machine := verify.New(verify.Config{
		StabilizationDuration: cfg.StabilizationDuration(),
		CooldownDuration:      cfg.ReverifyCooldownDuration(),
		MinFaceRatio:          cfg.MinFaceRatio,
		MaxFaceRatio:          cfg.MaxFaceRatio,
		SimilarityThreshold:   cfg.SimilarityThreshold,
	}, clk, stubEmbedder{}, indexRef, log.With(slog.String("component", "verify")))

	super := supervisor.New(log.With(slog.String("component", "supervisor")))

	super.Add(&supervisor.Capture{
		Frames:   stubFrameSource{},
		Detector: stubDetector{},
		Machine:  machine,
		Engine:   attendanceEngine,
		Overlay:  consoleOverlay{log: log},
		Log:      log.With(slog.String("component", "capture")),
	})

	super.Add(&supervisor.DayRollover{
		Engine: attendanceEngine,
		Clock:  clk,
		Log:    log.With(slog.String("component", "day-rollover")),
	})

	if remote != nil {
		syncEngine := sync.New(sync.Config{
			PushInterval: cfg.PushInterval(),
			PullInterval: cfg.PullInterval(),
			PushWindow:   cfg.DailyAttendancePushWindow(),
		}, local, remote, indexRef, clk, log.With(slog.String("component", "sync")))

		super.Add(supervisor.Func(syncEngine.RunPush))
		super.Add(supervisor.Func(syncEngine.RunPull))
	} else {
		log.Warn("no remote DSN configured: running local-only, sync disabled")
	}

	if cfg.HealthAddr != "" {
		super.Add(healthService{addr: cfg.HealthAddr, local: local, remote: remote, log: log})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := super.Serve(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("supervisor: %w", err)
	}
	return nil
}

func loadConfig() (config.Config, error) {
	cfg := config.Default()

	var file config.File
	if err := cliconfig.LoadFile(*ConfigPath, &file); err != nil {
		return cfg, err
	}
	cfg = cfg.ApplyFile(file)

	if *LocalStorePath != "" {
		cfg.LocalStorePath = *LocalStorePath
	}
	if *RemoteDSN != "" {
		cfg.RemoteDSN = *RemoteDSN
	}
	if *HealthAddr != "" {
		cfg.HealthAddr = *HealthAddr
	}
	if pflag.Lookup("login-cooldown-enabled").Changed {
		cfg.LoginCooldownEnabled = *LoginCooldownEnabled
	}
	if *LoginCooldownMinutes != 0 {
		cfg.LoginCooldownMinutes = *LoginCooldownMinutes
	}
	if pflag.Lookup("logout-restriction-enabled").Changed {
		cfg.LogoutRestrictionEnabled = *LogoutRestrictionEnabled
	}
	if *SimilarityThreshold != 0 {
		cfg.SimilarityThreshold = *SimilarityThreshold
	}
	if *PushIntervalSeconds != 0 {
		cfg.PushIntervalSeconds = *PushIntervalSeconds
	}
	if *PullIntervalSeconds != 0 {
		cfg.PullIntervalSeconds = *PullIntervalSeconds
	}
	return cfg, nil
}

func hydrateIndex(local *localstore.Store, ref *faceindex.Ref) error {
	rows, err := local.LoadIndexRows(context.Background())
	if err != nil {
		return err
	}
	idx, err := (faceindex.Indexer{}).Build(rows)
	if err != nil {
		return err
	}
	ref.Store(idx)
	return nil
}
