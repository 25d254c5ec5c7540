package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/coderoom/engine/internal/logger"
	"github.com/coderoom/engine/internal/telemetry"
	"github.com/coderoom/engine/pkg/config"
	"github.com/coderoom/engine/pkg/gateway"
	"github.com/coderoom/engine/pkg/hub"
	"github.com/coderoom/engine/pkg/pty"
	"github.com/coderoom/engine/pkg/room"
	"github.com/coderoom/engine/pkg/rooms"
	"github.com/coderoom/engine/pkg/rooms/gormstore"
	"github.com/coderoom/engine/pkg/rooms/memory"
	"github.com/spf13/cobra"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the coderoomd server",
	Long: `Start the coderoomd server with the specified configuration.

By default, the server runs in the background (daemon mode). Use --foreground
to run in the foreground for debugging or when managed by a process supervisor.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/coderoomd/config.yaml.

Examples:
  # Start in background (default)
  coderoomd start

  # Start in foreground
  coderoomd start --foreground

  # Start with custom config file
  coderoomd start --config /etc/coderoomd/config.yaml

  # Start with environment variable overrides
  CODEROOM_LOGGING_LEVEL=DEBUG coderoomd start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/coderoomd/coderoomd.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/coderoomd/coderoomd.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "coderoomd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "coderoomd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	fmt.Println("coderoomd - collaborative coding room engine")
	logger.Info("log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("profiling disabled")
	}

	store, err := newRoomStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize room store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("room store close error", "error", err)
		}
	}()
	logger.Info("room store ready", "type", cfg.Database.Type)

	workDirRoot := cfg.Rooms.WorkDirRoot
	if workDirRoot == "" {
		workDirRoot = os.TempDir()
	}
	if err := os.MkdirAll(workDirRoot, 0755); err != nil {
		return fmt.Errorf("failed to create workdir root: %w", err)
	}

	h := hub.New()
	ptyMgr := pty.New(h)
	limits := room.Limits{
		MaxMembers:             cfg.Rooms.MaxMembers,
		MaxFileSize:            int64(cfg.Rooms.MaxFileSize),
		WatcherPollInterval:    cfg.Rooms.WatcherPollInterval,
		WatcherStabilityWindow: cfg.Rooms.WatcherStabilityWindow,
	}
	roomManager := room.NewManager(store, h, ptyMgr, workDirRoot, cfg.Rooms.SyncTokenTTL, limits)

	srv := gateway.NewServer(gateway.Config{
		Host:           cfg.Gateway.Host,
		Port:           cfg.Gateway.Port,
		ReadTimeout:    cfg.Gateway.ReadTimeout,
		WriteTimeout:   cfg.Gateway.WriteTimeout,
		MaxMessageSize: cfg.Gateway.MaxMessageSize,
	}, roomManager, readinessProbe(ctx, store))

	// Write PID file if specified
	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("gateway listening", "host", cfg.Gateway.Host, "port", srv.Port())
	logger.Info("server is running, press Ctrl+C to stop")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("server shutdown error", "error", err)
			return err
		}
		logger.Info("server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		logger.Info("server stopped")
	}

	return nil
}

// newRoomStore builds the persisted Room Store for the configured backend.
func newRoomStore(ctx context.Context, cfg *config.Config) (rooms.Store, error) {
	switch cfg.Database.Type {
	case "memory":
		s := memory.New(cfg.Rooms.DefaultTTL)
		s.StartReaper(cfg.Rooms.ReapInterval)
		return s, nil
	case "sqlite", "postgres":
		s, err := gormstore.New(ctx, cfg.Database, cfg.Rooms.DefaultTTL)
		if err != nil {
			return nil, err
		}
		s.StartReaper(cfg.Rooms.ReapInterval)
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
}

// readinessProbe checks that the room store is reachable. A lookup against
// a code that cannot exist (the alphabet is upper-case alphanumeric, so a
// lower-case probe code never collides with a real room) exercises the
// store's query path without mutating anything; ErrRoomNotFound means the
// store answered, any other error means it didn't.
func readinessProbe(ctx context.Context, store rooms.Store) func() error {
	return func() error {
		err := store.Authenticate(ctx, "probe0", "")
		if err == nil || errors.Is(err, rooms.ErrRoomNotFound) || errors.Is(err, rooms.ErrBadPassword) {
			return nil
		}
		return err
	}
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// startDaemon starts the server as a background daemon process.
func startDaemon() error {
	stateDir := GetDefaultStateDir()
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	pidPath := pidFile
	if pidPath == "" {
		pidPath = filepath.Join(stateDir, "coderoomd.pid")
	}

	if _, err := os.Stat(pidPath); err == nil {
		pidData, err := os.ReadFile(pidPath)
		if err == nil {
			var pid int
			if _, err := fmt.Sscanf(string(pidData), "%d", &pid); err == nil {
				if process, err := os.FindProcess(pid); err == nil {
					if err := process.Signal(syscall.Signal(0)); err == nil {
						return fmt.Errorf("coderoomd is already running (PID %d)\nUse 'coderoomd stop' to stop the running instance", pid)
					}
				}
			}
		}
		_ = os.Remove(pidPath)
	}

	logPath := logFile
	if logPath == "" {
		logPath = filepath.Join(stateDir, "coderoomd.log")
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	daemonArgs := []string{"start", "--foreground", "--pid-file", pidPath}
	if GetConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", GetConfigFile())
	}

	cmd := exec.Command(executable, daemonArgs...)

	logFileHandle, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		_ = logFileHandle.Close()
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	_ = logFileHandle.Close()

	fmt.Printf("coderoomd started in background (PID %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  Log file: %s\n", logPath)
	fmt.Println("\nUse 'coderoomd stop' to stop the server")
	fmt.Println("Use 'coderoomd status' to check server status")

	return nil
}
