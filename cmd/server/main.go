/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the depreciation engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, then overlay DEPR_* environment variables
  2. Initialize SQLite store (schema auto-migrated, shift factors seeded)
  3. Wire generator, coordinator, posting driver, asset service
  4. Configure HTTP router and the nightly posting scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (default: 8080)
  -db        SQLite database path (default: depreciation.db)
             Use ":memory:" for an in-memory database

ENVIRONMENT (overrides flags):
  DEPR_PORT               HTTP server port
  DEPR_DB                 SQLite database path
  DEPR_FISCAL_YEAR_START  Fiscal year start, "MM-DD" (default 01-01)
  DEPR_POSTING_CRON       Posting cron spec (default "0 1 * * *")
  DEPR_POSTING_ENABLED    Scheduler on/off (default true)
  DEPR_OPERATORS          Comma-separated operator emails for failure
                          notifications
  DEPR_USE_TOTAL_DAYS     Daily pro-rata from total remaining days

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the posting scheduler (waits for an in-flight run)
  2. Stop accepting new connections, drain active requests (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/warp/depreciation-engine/api"
	"github.com/warp/depreciation-engine/assets"
	"github.com/warp/depreciation-engine/depreciation"
	"github.com/warp/depreciation-engine/store/sqlite"
	memstore "github.com/warp/depreciation-engine/depreciation/store"
)

// envOverrides are the DEPR_* variables layered over the flags.
type envOverrides struct {
	Port            int      `envconfig:"PORT"`
	DB              string   `envconfig:"DB"`
	FiscalYearStart string   `envconfig:"FISCAL_YEAR_START" default:"01-01"`
	PostingCron     string   `envconfig:"POSTING_CRON" default:"0 1 * * *"`
	PostingEnabled  bool     `envconfig:"POSTING_ENABLED" default:"true"`
	Operators       []string `envconfig:"OPERATORS"`
	UseTotalDays    bool     `envconfig:"USE_TOTAL_DAYS"`
}

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "depreciation.db", "SQLite database path")
	flag.Parse()

	var env envOverrides
	if err := envconfig.Process("depr", &env); err != nil {
		log.Fatalf("Invalid environment configuration: %v", err)
	}
	if env.Port != 0 {
		*port = env.Port
	}
	if env.DB != "" {
		*dbPath = env.DB
	}

	calendar, err := parseFiscalYearStart(env.FiscalYearStart)
	if err != nil {
		log.Fatalf("Invalid DEPR_FISCAL_YEAR_START: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Seed the shift weighting table from the standard defaults.
	defaults := memstore.NewStandardShiftFactors()
	if err := store.SeedShiftFactors(context.Background(), defaults.Factors, defaults.Default); err != nil {
		log.Fatalf("Failed to seed shift factors: %v", err)
	}

	// Wire the engine
	generator := depreciation.NewGenerator(depreciation.Config{
		UseTotalDays: env.UseTotalDays,
		Calendar:     calendar,
		ShiftFactors: store,
	})
	coordinator := depreciation.NewCoordinator(store, generator)
	driver := depreciation.NewPostingDriver(store, store, logNotifier{}, env.Operators)
	service := assets.NewService(store, coordinator)

	// HTTP and scheduler
	handler := api.NewHandler(service, driver, store)
	router := api.NewRouter(handler)

	scheduler := api.NewPostingScheduler(driver)
	scheduler.Spec = env.PostingCron
	scheduler.Enabled = env.PostingEnabled
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start posting scheduler: %v", err)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// parseFiscalYearStart parses "MM-DD" into a fixed-start fiscal calendar.
func parseFiscalYearStart(s string) (depreciation.FiscalCalendar, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("want MM-DD, got %q", s)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month in %q", s)
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil || day < 1 || day > 31 {
		return nil, fmt.Errorf("invalid day in %q", s)
	}
	return depreciation.YearStartCalendar{StartMonth: time.Month(month), StartDay: day}, nil
}

// logNotifier writes the failure summary to the server log. A production
// deployment would swap in an email or chat integration.
type logNotifier struct{}

func (logNotifier) NotifyOperators(ctx context.Context, recipients []string, assetIDs []depreciation.AssetID, errorRefs []string) error {
	log.Printf("[Notify] depreciation posting failed for %d assets %v (refs %v); recipients: %v",
		len(assetIDs), assetIDs, errorRefs, recipients)
	return nil
}
