package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jonboulle/clockwork"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/plantkeeper/internal/config"
	"git.home.luguber.info/inful/plantkeeper/internal/daemon"
	"git.home.luguber.info/inful/plantkeeper/internal/metrics"
	"git.home.luguber.info/inful/plantkeeper/internal/notify"
	"git.home.luguber.info/inful/plantkeeper/internal/plant"
	"git.home.luguber.info/inful/plantkeeper/internal/store"
	"git.home.luguber.info/inful/plantkeeper/internal/user"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"plantkeeper.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Write a default configuration file"`

	User struct {
		Add struct {
			Username string `arg:"" help:"Username (3-30 characters, letters, numbers, underscores)"`
			Email    string `arg:"" help:"Email address reminders are sent to"`
		} `cmd:"" help:"Register a plant owner"`
	} `cmd:"" help:"Manage plant owners"`

	Add struct {
		Owner       string `short:"u" required:"" help:"Owning username"`
		Name        string `arg:"" help:"Plant name (3-30 characters, letters and spaces)"`
		Frequency   int    `short:"f" help:"Watering cadence in days (default 3)"`
		Image       string `help:"Image URL for the plant"`
		LastWatered string `help:"When the plant was last watered (RFC 3339)"`
		NoReminders bool   `help:"Create the plant with reminders disabled"`
	} `cmd:"" help:"Add a plant"`

	List struct {
		Owner string `short:"u" required:"" help:"Owning username"`
	} `cmd:"" help:"List plants with their watering status"`

	Water struct {
		Owner string `short:"u" required:"" help:"Owning username"`
		Plant string `arg:"" help:"Plant name"`
	} `cmd:"" help:"Confirm a plant was watered"`

	Remove struct {
		Owner string `short:"u" required:"" help:"Owning username"`
		Plant string `arg:"" help:"Plant name"`
	} `cmd:"" help:"Remove a plant"`

	Sweep struct{} `cmd:"" help:"Run one reminder sweep and exit"`

	Daemon struct{} `cmd:"" help:"Run the reminder daemon"`
}

func main() {
	ctx := kong.Parse(&CLI)

	if ctx.Command() == "init" {
		setupFallbackLogging()
		if err := config.WriteDefault(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Configuration written", "path", CLI.Config)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		setupFallbackLogging()
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		slog.Error("Failed to open database", "error", err, "path", cfg.Database.Path)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
	}()

	app := &application{
		cfg:    cfg,
		db:     db,
		users:  user.NewService(db, clockwork.NewRealClock()),
		plants: plant.NewService(db, clockwork.NewRealClock()),
	}

	if err := app.run(ctx.Command()); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

type application struct {
	cfg    *config.Config
	db     *store.SQLiteStore
	users  *user.Service
	plants *plant.Service
}

func (a *application) run(command string) error {
	ctx := context.Background()

	switch command {
	case "user add <username> <email>":
		return a.runUserAdd(ctx)
	case "add <name>":
		return a.runAdd(ctx)
	case "list":
		return a.runList(ctx)
	case "water <plant>":
		return a.runWater(ctx)
	case "remove <plant>":
		return a.runRemove(ctx)
	case "sweep":
		return a.runSweep(ctx)
	case "daemon":
		return a.runDaemon()
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func (a *application) runUserAdd(ctx context.Context) error {
	u, err := a.users.Create(ctx, CLI.User.Add.Username, CLI.User.Add.Email)
	if err != nil {
		return err
	}
	slog.Info("User registered", "username", u.Username, "id", u.ID)
	return nil
}

func (a *application) runAdd(ctx context.Context) error {
	owner, err := a.users.ByUsername(ctx, CLI.Add.Owner)
	if err != nil {
		return err
	}

	params := plant.CreateParams{
		OwnerID:            owner.ID,
		Name:               CLI.Add.Name,
		ImageURL:           CLI.Add.Image,
		WaterFrequencyDays: CLI.Add.Frequency,
	}
	if CLI.Add.LastWatered != "" {
		t, err := time.Parse(time.RFC3339, CLI.Add.LastWatered)
		if err != nil {
			return fmt.Errorf("--last-watered must be an RFC 3339 timestamp: %w", err)
		}
		utc := t.UTC()
		params.LastWateredAt = &utc
	}
	if CLI.Add.NoReminders {
		reminders := false
		params.ReminderEnabled = &reminders
	}

	p, err := a.plants.Create(ctx, params)
	if err != nil {
		return err
	}
	slog.Info("Plant added",
		"name", p.Name,
		"id", p.ID,
		"frequency_days", p.WaterFrequencyDays,
		"next_watering", p.NextWateringDate.Format(time.RFC3339))
	return nil
}

func (a *application) runList(ctx context.Context) error {
	owner, err := a.users.ByUsername(ctx, CLI.List.Owner)
	if err != nil {
		return err
	}
	plants, err := a.plants.List(ctx, owner.ID)
	if err != nil {
		return err
	}
	if len(plants) == 0 {
		fmt.Printf("%s has no plants yet.\n", owner.Username)
		return nil
	}

	now := time.Now().UTC()
	fmt.Printf("%-30s %-10s %-7s %s\n", "NAME", "STATUS", "EVERY", "NEXT WATERING")
	for _, p := range plants {
		fmt.Printf("%-30s %-10s %-7s %s\n",
			p.Name,
			p.StatusAt(now),
			fmt.Sprintf("%dd", p.WaterFrequencyDays),
			p.NextWateringDate.Format("2006-01-02 15:04"))
	}
	return nil
}

func (a *application) runWater(ctx context.Context) error {
	p, err := a.resolvePlant(ctx, CLI.Water.Owner, CLI.Water.Plant)
	if err != nil {
		return err
	}
	watered, err := a.plants.ConfirmWatering(ctx, p.ID, p.OwnerID)
	if err != nil {
		return err
	}
	slog.Info("Watering confirmed",
		"name", watered.Name,
		"next_watering", watered.NextWateringDate.Format(time.RFC3339))
	return nil
}

func (a *application) runRemove(ctx context.Context) error {
	p, err := a.resolvePlant(ctx, CLI.Remove.Owner, CLI.Remove.Plant)
	if err != nil {
		return err
	}
	if err := a.plants.Delete(ctx, p.ID, p.OwnerID); err != nil {
		return err
	}
	slog.Info("Plant removed", "name", p.Name)
	return nil
}

// resolvePlant finds an owner's plant by name for the name-based CLI commands.
func (a *application) resolvePlant(ctx context.Context, username, name string) (*plant.Plant, error) {
	owner, err := a.users.ByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	plants, err := a.plants.List(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range plants {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no plant named %q for %s", name, username)
}

func (a *application) runSweep(ctx context.Context) error {
	sender, cleanup, err := buildSender(a.cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	d, err := a.newDispatcher(sender, nil)
	if err != nil {
		return err
	}

	sweepCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	stats, err := d.RunSweep(sweepCtx)
	if err != nil {
		return err
	}
	slog.Info("Sweep finished",
		"candidates", stats.Candidates,
		"notified", stats.Notified,
		"skipped", stats.Skipped,
		"failed", stats.Failed)
	return nil
}

func (a *application) runDaemon() error {
	slog.Info("Starting reminder daemon", "config", CLI.Config)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sender, cleanup, err := buildSender(a.cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var registry *prom.Registry
	var recorder metrics.Recorder
	if a.cfg.Metrics.Enabled {
		registry = prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registry)
	}

	dispatcher, err := a.newDispatcher(sender, recorder)
	if err != nil {
		return err
	}

	d, err := daemon.New(CLI.Config, a.cfg, dispatcher, clockwork.NewRealClock())
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}
	if err := d.Start(ctx, registry); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping daemon...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := d.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	slog.Info("Daemon stopped")
	return nil
}

func (a *application) newDispatcher(sender notify.Sender, recorder metrics.Recorder) (*daemon.Dispatcher, error) {
	loc, err := a.cfg.Reminders.Location()
	if err != nil {
		return nil, err
	}
	timeout, err := a.cfg.Reminders.SendTimeoutDuration()
	if err != nil {
		return nil, err
	}
	policy, err := a.cfg.Reminders.RetryPolicy()
	if err != nil {
		return nil, err
	}
	return daemon.NewDispatcher(a.db, a.db, sender, daemon.DispatcherOptions{
		Location:           loc,
		SendTimeout:        timeout,
		MaxConcurrentSends: a.cfg.Reminders.MaxConcurrentSends,
		Retry:              policy,
		Recorder:           recorder,
	}), nil
}

// buildSender assembles the notification fanout from the configured channels.
// The returned cleanup closes any broker connections.
func buildSender(cfg *config.Config) (notify.Sender, func(), error) {
	var senders notify.Fanout
	cleanup := func() {}

	if cfg.SMTP.Host != "" {
		smtp, err := notify.NewSMTPSender(cfg.SMTP)
		if err != nil {
			return nil, nil, err
		}
		senders = append(senders, smtp)
	}
	if cfg.NATS.Enabled {
		pub, err := notify.NewNATSPublisher(cfg.NATS)
		if err != nil {
			return nil, nil, err
		}
		senders = append(senders, pub)
		cleanup = pub.Close
	}

	if len(senders) == 0 {
		return nil, nil, fmt.Errorf("no notification channel configured: set smtp.host or enable nats")
	}
	return senders, cleanup, nil
}

func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(CLI.Config); os.IsNotExist(err) {
		// The read-only commands work fine on a default setup without a
		// config file; sweep and daemon fail later on the missing channels.
		return config.Default(), nil
	}
	return config.Load(CLI.Config)
}

func setupLogging(cfg *config.Config) {
	logging := cfg.Logging
	if CLI.Verbose {
		logging.Level = string(config.LogLevelDebug)
	}
	slog.SetDefault(logging.NewLogger())
}

func setupFallbackLogging() {
	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
}
