package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dooshek/voiceassist/internal/app"
	"github.com/dooshek/voiceassist/internal/audio"
	"github.com/dooshek/voiceassist/internal/backend"
	"github.com/dooshek/voiceassist/internal/clipboard"
	"github.com/dooshek/voiceassist/internal/config"
	"github.com/dooshek/voiceassist/internal/dbus"
	"github.com/dooshek/voiceassist/internal/fileops"
	"github.com/dooshek/voiceassist/internal/keyboard"
	"github.com/dooshek/voiceassist/internal/logger"
	"github.com/dooshek/voiceassist/internal/notification"
	"github.com/dooshek/voiceassist/internal/player"
	"github.com/dooshek/voiceassist/internal/stats"
	"github.com/dooshek/voiceassist/internal/types"
	"github.com/dooshek/voiceassist/internal/ui"
)

func init() {
	// Set custom usage message to show -- prefix
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Usage of %s:\n", os.Args[0])
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(out, "  --%s", f.Name)
			name, usage := flag.UnquoteUsage(f)
			if len(name) > 0 {
				fmt.Fprintf(out, " %s", name)
			}
			fmt.Fprintf(out, "\n    \t%s", usage)
			if f.DefValue != "" && f.DefValue != "false" {
				fmt.Fprintf(out, " (default %q)", f.DefValue)
			}
			fmt.Fprintf(out, "\n")
		})
	}
}

func main() {
	runWizard := flag.Bool("wizard", false, "Run the configuration wizard")
	logLevel := flag.String("log-level", "info", "Set log level (debug|info|warn|error)")
	logFilename := flag.String("log-filename", "", "Log to file instead of stderr")
	check := flag.Bool("check", false, "Check that the backend is reachable and exit")
	daemon := flag.Bool("dbus", false, "Run as a D-Bus service without the console")
	noNotify := flag.Bool("no-notify", false, "Disable desktop notifications")
	backendURL := flag.String("backend", "", "Backend URL, overrides the configuration")
	flag.Parse()

	logger.SetLevel(*logLevel)
	if *logFilename != "" {
		if err := logger.SetOutputFile(*logFilename); err != nil {
			fmt.Printf("Error setting log file: %v\n", err)
			os.Exit(1)
		}
		defer logger.CloseLogFile()
	}

	if *runWizard {
		if err := config.RunWizard(); err != nil {
			logger.Error("Error running wizard", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("Error loading config", err)
		os.Exit(1)
	}
	if *backendURL != "" {
		cfg.Backend.URL = *backendURL
	}

	backendCfg := cfg.GetBackendConfig()
	client, err := backend.New(backendCfg.URL, backend.WithTimeout(backendCfg.RequestTimeout))
	if err != nil {
		logger.Error("Invalid backend URL", err)
		os.Exit(1)
	}

	if *check {
		os.Exit(runCheck(client))
	}

	fileOps, err := fileops.NewDefaultFileOps()
	if err != nil {
		logger.Error("Failed to initialize file operations", err)
		os.Exit(1)
	}
	if err := fileOps.EnsureDirectories(); err != nil {
		logger.Error("Failed to create necessary directories", err)
		os.Exit(1)
	}

	if err := fileOps.CheckPID(); err != nil {
		if errors.Is(err, fileops.ErrProcessAlreadyRunning) {
			logger.Error("Another instance of voiceassist is already running", err)
			os.Exit(1)
		}
	}
	if err := fileOps.SavePID(); err != nil {
		logger.Error("Failed to save PID file", err)
		os.Exit(1)
	}
	defer cleanupPID(fileOps)

	var notifier notification.Notifier
	if *noNotify || cfg.Notification.Disabled {
		notifier = notification.NewSilent()
	} else {
		notifier = notification.New()
		if !cfg.Notification.Sounds {
			notifier = notification.WithoutSounds(notifier)
		}
	}

	recCfg := cfg.GetRecordingConfig()
	mic := audio.NewMicrophone()
	defer mic.Close()
	if recCfg.UploadFormat == types.UploadFormatOgg {
		if err := audio.CheckFFmpeg(); err != nil {
			logger.Warnf("%v", err)
		}
	}
	encoder := audio.NewEncoder(mic.Format(), recCfg.UploadFormat == types.UploadFormatOgg, fileOps.GetRecordingsDir(), recCfg.KeepFiles)

	usage := stats.NewStatsManager(fileOps.GetStatsPath())

	deps := app.Deps{
		Fetcher:          client,
		Backend:          client,
		Capturer:         mic,
		Encode:           encoder.Encode,
		Notifier:         notifier,
		Stats:            usage,
		MaxDuration:      cfg.MaxRecordingDuration(),
		DefaultCharacter: cfg.DefaultCharacter,
		RequestTimeout:   backendCfg.RequestTimeout,
	}
	if cfg.AutoplayEnabled() {
		deps.Player = player.New(client, cfg.Playback.Player)
	}
	assistant := app.New(deps)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Hotkey.Key != "" {
		startHotkey(ctx, cfg.Hotkey, assistant)
	}

	if *daemon {
		runDaemon(ctx, assistant)
		return
	}

	console := ui.NewConsole(assistant, os.Stdin, os.Stdout,
		ui.WithStats(usage),
		ui.WithLevels(mic.Levels()),
		ui.WithClipboard(clipboard.New()),
	)
	assistant.Load(ctx)
	logger.Infof("Backend: %s", client.BaseURL())

	if err := console.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Console stopped", err)
	}
	logger.Info("Shutting down...")
}

func loadConfig() (*types.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}

	logger.Info("No configuration found. Running setup wizard...")
	if err := config.RunWizard(); err != nil {
		return nil, fmt.Errorf("wizard: %w", err)
	}
	cfg, err = config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &types.Config{}
	}
	return cfg, nil
}

func runCheck(client *backend.Client) int {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		logger.Error("Backend is not reachable", err)
		return 1
	}
	ts := time.Unix(int64(health.Timestamp), 0)
	logger.Infof("Backend %s is %s (server time %s)", client.BaseURL(), health.Status, ts.Format(time.RFC3339))
	return 0
}

func runDaemon(ctx context.Context, assistant *app.App) {
	server := dbus.NewServer(assistant)
	if err := server.Start(); err != nil {
		logger.Error("Failed to start D-Bus service", err)
		return
	}
	assistant.Load(ctx)

	go func() {
		<-ctx.Done()
		server.Stop()
	}()
	server.Wait()
	assistant.Wait()
}

func startHotkey(ctx context.Context, binding types.KeyBinding, assistant *app.App) {
	monitor, err := keyboard.NewMonitor(binding, assistant.ToggleRecording)
	if err != nil {
		logger.Warnf("Hotkey disabled: %v", err)
		return
	}
	go func() {
		if err := monitor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warnf("Hotkey disabled: %v", err)
		}
	}()
}

func cleanupPID(fileOps fileops.FileOps) {
	if err := fileOps.CleanupPID(); err != nil {
		logger.Error("Failed to cleanup PID file", err)
	}
}
