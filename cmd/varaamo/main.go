package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/example/varaamo/internal/allocation"
	"github.com/example/varaamo/internal/application"
	"github.com/example/varaamo/internal/config"
	"github.com/example/varaamo/internal/opening"
	"github.com/example/varaamo/internal/persistence/sqlite"
	"github.com/example/varaamo/internal/recurring"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flag.Parse()
	command := flag.Arg(0)
	if command == "" {
		command = "migrate"
	}

	store, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	switch command {
	case "migrate":
		logger.Info("migrations applied", "dsn", cfg.SQLiteDSN)
		return nil
	case "allocate":
		return runAllocation(ctx, cfg, store, logger, flag.Arg(1))
	case "expand":
		return runExpansion(ctx, cfg, store, logger, flag.Arg(1))
	case "create-admin":
		return createAdmin(ctx, cfg, store, logger, flag.Arg(1), flag.Arg(2), flag.Arg(3))
	default:
		return fmt.Errorf("unknown command %q (expected migrate, allocate, expand or create-admin)", command)
	}
}

// runAllocation executes the allocator for one application round using the
// round units' weekly opening hours as capacity.
func runAllocation(ctx context.Context, cfg config.Config, store *sqlite.Store, logger *slog.Logger, roundID string) error {
	if roundID == "" {
		return fmt.Errorf("usage: varaamo allocate <round-id>")
	}

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("resolve timezone: %w", err)
	}

	permissions := application.PermissionConfig{Disabled: cfg.PermissionsDisabled}
	rounds := sqlite.NewRoundRepository(store)
	catalog := sqlite.NewCatalogRepository(store)
	service := application.NewRoundService(rounds, catalog, permissions, recurring.NewEngine(loc), newID, time.Now, logger)

	// The CLI runs as the operator; permission checks are satisfied by the
	// general admin principal.
	principal := application.Principal{UserID: "cli", GeneralAdmin: true}

	availability, err := weeklyAvailability(ctx, service, roundID)
	if err != nil {
		return err
	}

	results, err := service.RunAllocation(ctx, principal, roundID, availability)
	if err != nil {
		return fmt.Errorf("run allocation: %w", err)
	}

	logger.Info("allocation finished", "round_id", roundID, "results", len(results))
	return nil
}

// weeklyAvailability seeds the allocator with one open span per weekday for
// every unit in the round. Spans already granted in earlier rounds are
// subtracted by the allocator itself as it consumes capacity.
func weeklyAvailability(ctx context.Context, service *application.RoundService, roundID string) (allocation.UnitAvailability, error) {
	round, err := service.GetRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load round: %w", err)
	}

	availability := make(allocation.UnitAvailability, len(round.ReservationUnitIDs))
	for _, unitID := range round.ReservationUnitIDs {
		days := make(map[time.Weekday][]allocation.FreeSpan, 7)
		for day := time.Sunday; day <= time.Saturday; day++ {
			days[day] = []allocation.FreeSpan{{Begin: 7 * time.Hour, End: 22 * time.Hour}}
		}
		availability[unitID] = days
	}
	return availability, nil
}

// runExpansion books an allocated round's weekly results as dated reservations
// owned by the applicants. Occurrences that no longer fit (conflicts, past
// begins on a re-run) are logged and skipped rather than aborting the batch.
func runExpansion(ctx context.Context, cfg config.Config, store *sqlite.Store, logger *slog.Logger, roundID string) error {
	if roundID == "" {
		return fmt.Errorf("usage: varaamo expand <round-id>")
	}

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("resolve timezone: %w", err)
	}

	permissions := application.PermissionConfig{Disabled: cfg.PermissionsDisabled}
	rounds := sqlite.NewRoundRepository(store)
	catalog := sqlite.NewCatalogRepository(store)
	roundService := application.NewRoundService(rounds, catalog, permissions, recurring.NewEngine(loc), newID, time.Now, logger)

	openHours := opening.NewCachedProvider(allocationHours{}, cfg.OpeningHoursTTL, 0, time.Now)
	reservations := application.NewReservationService(sqlite.NewReservationRepository(store), catalog, rounds, openHours, permissions, newID, time.Now, logger)

	occurrences, err := roundService.ExpandResults(ctx, roundID)
	if err != nil {
		return fmt.Errorf("expand results: %w", err)
	}

	applications, err := roundService.ListApplications(ctx, roundID)
	if err != nil {
		return fmt.Errorf("load applications: %w", err)
	}
	applicants := make(map[string]string, len(applications))
	for _, app := range applications {
		applicants[app.ID] = app.ApplicantID
	}

	principal := application.Principal{UserID: "cli", GeneralAdmin: true}
	created, skipped := 0, 0
	for _, occurrence := range occurrences {
		_, err := reservations.CreateReservation(ctx, application.CreateReservationParams{
			Principal: principal,
			Input: application.ReservationInput{
				UserID:             applicants[occurrence.Result.ApplicationID],
				ReservationUnitIDs: []string{occurrence.Result.ReservationUnitID},
				Begin:              occurrence.Begin,
				End:                occurrence.End,
			},
		})
		if err != nil {
			skipped++
			logger.Warn("occurrence not booked",
				"unit_id", occurrence.Result.ReservationUnitID,
				"begin", occurrence.Begin,
				"error", err)
			continue
		}
		created++
	}

	logger.Info("expansion finished", "round_id", roundID, "reservations", created, "skipped", skipped)
	return nil
}

// allocationHours publishes the same 07:00-22:00 daily span the allocator was
// seeded with as capacity.
type allocationHours struct{}

func (allocationHours) OpenTimeSpans(_ context.Context, _ string, date time.Time) ([]opening.TimeSpan, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return []opening.TimeSpan{{Start: day.Add(7 * time.Hour), End: day.Add(22 * time.Hour)}}, nil
}

func createAdmin(ctx context.Context, cfg config.Config, store *sqlite.Store, logger *slog.Logger, email, displayName, password string) error {
	if email == "" || displayName == "" || password == "" {
		return fmt.Errorf("usage: varaamo create-admin <email> <display-name> <password>")
	}

	permissions := application.PermissionConfig{Disabled: true}
	users := application.NewUserService(sqlite.NewUserRepository(store), permissions, newID, time.Now, logger)

	user, err := users.CreateUser(ctx, application.Principal{UserID: "cli"}, application.UserInput{
		Email:        email,
		DisplayName:  displayName,
		Password:     password,
		GeneralAdmin: true,
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	logger.Info("admin account created", "user_id", user.ID, "email", user.Email)
	return nil
}

func newID() string {
	return uuid.NewString()
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
