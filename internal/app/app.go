package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/meetwise/meetwise/internal/api"
	"github.com/meetwise/meetwise/internal/calendar"
	"github.com/meetwise/meetwise/internal/config"
	"github.com/meetwise/meetwise/internal/cron"
	"github.com/meetwise/meetwise/internal/directory"
	apperrors "github.com/meetwise/meetwise/internal/errors"
	"github.com/meetwise/meetwise/internal/extract"
	"github.com/meetwise/meetwise/internal/metrics"
	"github.com/meetwise/meetwise/internal/patterns"
)

// App wires the assistant's components together.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      *calendar.Store
	Directory  *directory.Directory
	Patterns   *patterns.Set
	Extractor  *extract.Extractor
	Service    *calendar.Service
	Metrics    *metrics.Metrics
	CronRunner *cron.Runner
	Version    string

	location *time.Location
}

// New builds the application from configuration.
func New(cfg *config.Config, logger *zap.Logger, version string) (*App, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Storage.SQLitePath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store, err := calendar.NewStore(db)
	if err != nil {
		return nil, err
	}

	dir := directory.Empty()
	if cfg.Assistant.DirectoryPath != "" {
		dir, err = directory.Load(cfg.Assistant.DirectoryPath)
		if err != nil {
			return nil, err
		}
		logger.Info("Directory loaded",
			zap.String("path", cfg.Assistant.DirectoryPath),
			zap.Int("people", dir.Len()),
		)
	} else {
		logger.Warn("No directory configured, attendee names will not resolve to emails")
	}

	pats, err := patterns.LoadOrDefaults(cfg.PatternsFile())
	if err != nil {
		return nil, err
	}
	m := metrics.Default()
	m.SetPatternsLoaded(pats.Len())

	extractor := extract.New(
		extract.NewContext(dir, pats, cfg.Assistant.DefaultDuration),
		logger,
	)

	google := calendar.NewGoogleProvider(calendar.GoogleConfig{
		ClientID:          cfg.Google.ClientID,
		ClientSecret:      cfg.Google.ClientSecret,
		RedirectURL:       cfg.Google.RedirectURL,
		RequestsPerMinute: cfg.Google.RequestsPerMinute,
	}, logger)

	service := calendar.NewService(store, google, dir, logger, cfg.Assistant.UserID)

	loc, err := cfg.Location()
	if err != nil {
		logger.Warn("Invalid timezone, falling back to local",
			zap.String("tz", cfg.Assistant.Timezone), zap.Error(err))
		loc = time.Local
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Directory: dir,
		Patterns:  pats,
		Extractor: extractor,
		Service:   service,
		Metrics:   m,
		Version:   version,
		location:  loc,
	}, nil
}

// RunServer starts the HTTP API and the background sync loop, then
// blocks until interrupted.
func (app *App) RunServer() {
	if app.Config.Sync.Enabled {
		app.CronRunner = cron.NewRunner(cron.Config{
			SyncSchedule: app.Config.Sync.Schedule,
		}, app.Service, app.Metrics, app.Logger)
		if err := app.CronRunner.Start(); err != nil {
			app.Logger.Error("Failed to start cron runner", zap.Error(err))
		}
	}

	server := api.New(app.Config, app.Extractor, app.Service, app.Metrics, app.Logger)

	go func() {
		if err := server.Start(); err != nil {
			app.Logger.Fatal("Server error", zap.Error(err))
		}
	}()

	app.Logger.Info("Server started",
		zap.String("address", app.Config.Server.Address),
		zap.Int("port", app.Config.Server.Port),
		zap.String("url", fmt.Sprintf("http://localhost:%d", app.Config.Server.Port)),
		zap.Bool("google_configured", app.Config.Google.ClientID != ""),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info("Shutting down...")

	if app.CronRunner != nil {
		app.CronRunner.Stop()
	}

	if err := server.Shutdown(); err != nil {
		app.Logger.Error("Server shutdown error", zap.Error(err))
	}
}

// RunChat handles one utterance, or drops into the REPL when empty.
func (app *App) RunChat(message string) {
	if message != "" {
		app.OneShot(message)
		return
	}
	app.Interactive()
}

// OneShot processes a single utterance and prints the result.
func (app *App) OneShot(msg string) {
	if err := app.handleUtterance(msg); err != nil {
		os.Exit(1)
	}
}

func (app *App) handleUtterance(msg string) error {
	ref := time.Now().In(app.location)

	meeting, err := app.Extractor.Extract(msg, ref)
	if err != nil {
		app.Metrics.RecordExtraction("", false)
		var exErr *extract.ExtractionError
		if errors.As(err, &exErr) {
			if exErr.Prompt != "" {
				fmt.Println(exErr.Prompt)
			} else {
				fmt.Printf("I couldn't find a date or time in that. Try something like \"tomorrow at 3pm\".\n")
			}
			return err
		}
		fmt.Printf("Error: %v\n", err)
		return err
	}
	app.Metrics.RecordExtraction(string(meeting.Action), true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	outcome, err := app.Service.Apply(ctx, meeting)
	if err != nil {
		if errors.Is(err, apperrors.ErrEventNotFound) {
			fmt.Println("I couldn't find a meeting matching that.")
		} else {
			fmt.Printf("Error: %v\n", err)
		}
		return err
	}

	fmt.Println(outcome.Message)
	for _, warning := range outcome.Warnings {
		fmt.Println("  ⚠ " + warning)
	}
	for i := range outcome.Events {
		event := &outcome.Events[i]
		fmt.Printf("  - %s (%s)\n", event.Title, event.FormatTimeRange())
	}
	return nil
}

// Interactive runs the chat REPL.
func (app *App) Interactive() {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Println("meetwise - type a request, 'help' for examples, 'exit' to quit")
		fmt.Println()
	}

	reader := bufio.NewReader(os.Stdin)

	for {
		if interactive {
			fmt.Print("> ")
		}
		input, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "exit", "quit", "q":
			return
		case "help", "h":
			printInteractiveHelp()
			continue
		}

		app.handleUtterance(input)
		if interactive {
			fmt.Println()
		}
	}
}

func printInteractiveHelp() {
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println(`  Meeting with John tomorrow at 3pm`)
	fmt.Println(`  Schedule a 1:1 with Sarah next tuesday at 10am`)
	fmt.Println(`  Cancel my 2pm meeting`)
	fmt.Println(`  Move my sync with John to 4pm`)
	fmt.Println(`  What meetings do I have on friday`)
	fmt.Println()
	fmt.Println("Commands: help, exit")
	fmt.Println()
}

// RunTrain mines new action patterns from a labeled example file and
// persists the merged set.
func (app *App) RunTrain(examplesPath string) {
	examples, err := patterns.LoadExamples(examplesPath)
	if err != nil {
		app.Logger.Fatal("Failed to load examples", zap.Error(err))
	}

	learner := patterns.NewLearner(patterns.DefaultThreshold, app.Logger)
	learned, report, err := learner.Learn(examples)
	if err != nil {
		app.Logger.Fatal("Training failed", zap.Error(err))
	}

	merged := patterns.Merge(app.Patterns, learned)
	out := app.Config.PatternsFile()
	if err := merged.Save(out); err != nil {
		app.Logger.Fatal("Failed to save patterns", zap.Error(err))
	}
	app.Metrics.SetPatternsLoaded(merged.Len())

	fmt.Printf("Examined %d examples.\n", report.Examples)
	for action, count := range report.ByAction {
		fmt.Printf("  %-12s %d\n", action, count)
	}
	fmt.Printf("Learned %d new action patterns.\n", learned.Len())
	if len(report.TopTimePhrases) > 0 {
		fmt.Println("Most common time phrases:")
		for _, pc := range report.TopTimePhrases {
			fmt.Printf("  %-20s %d\n", pc.Phrase, pc.Count)
		}
	}
	fmt.Printf("Saved %d patterns to %s\n", merged.Len(), out)
}
