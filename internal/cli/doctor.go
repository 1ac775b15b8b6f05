package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/gmp-id/gmpcms/internal/config"
	"github.com/gmp-id/gmpcms/internal/database"
)

// minPostgresMajor is the oldest server the migrations are written for.
const minPostgresMajor = 14

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on the gmpcms installation",
	Long: `Run health checks on the gmpcms installation.

Checks performed:
  - Configuration is complete
  - Data and upload directories writable
  - GeoIP database exists
  - Database connection
  - PostgreSQL version ≥14
  - Database migrations completed
  - Content tables exist

Example:
  gmpcms doctor
  gmpcms doctor --json`,
	RunE: runDoctor,
}

type CheckResult struct {
	Name       string `json:"name"`
	Pass       bool   `json:"pass"`
	Error      string `json:"error,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Details    string `json:"details,omitempty"`
}

var requiredTables = []string{
	"users",
	"revoked_tokens",
	"authors",
	"events",
	"publications",
	"authors_on_publications",
	"homepage_slides",
	"partners",
	"programs",
	"careers",
	"discussions",
	"board_members",
	"social_media_settings",
	"page_content",
	"testimonials",
	"research_data",
	"newsletter_subscriptions",
	"visitor_tracking",
	"activity_log",
}

var (
	latestMigrationVersion = database.LatestMigrationVersion
	openDoctorDatabase     = func(url string) (*sql.DB, error) { return sql.Open("postgres", url) }
)

func checkConfiguration(cfg *config.Config) CheckResult {
	if err := cfg.Validate(); err != nil {
		return CheckResult{
			Name:       "Configuration",
			Pass:       false,
			Error:      strings.ReplaceAll(err.Error(), "\n", "; "),
			Suggestion: "Set the missing values in gmpcms.toml, the environment or .env",
		}
	}
	return CheckResult{Name: "Configuration", Pass: true}
}

func checkWritableDir(name, dir string) CheckResult {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return CheckResult{Name: name, Pass: false, Error: err.Error(), Suggestion: "Ensure the directory can be created"}
	}
	testFile := filepath.Join(dir, ".gmpcms-write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return CheckResult{
			Name:       name,
			Pass:       false,
			Error:      err.Error(),
			Suggestion: "Ensure " + dir + " has write permissions",
		}
	}
	_ = os.Remove(testFile)
	return CheckResult{Name: name, Pass: true, Details: dir}
}

func checkGeoIPDatabase(cfg *config.Config) CheckResult {
	info, err := os.Stat(cfg.GeoIPPath())
	if err != nil {
		if os.IsNotExist(err) {
			suggestion := "Set GEOIP_DOWNLOAD=true or place GeoLite2-City.mmdb in DATA_DIR; visitor countries stay empty until then"
			if cfg.GeoIPDownload {
				suggestion = "Database will auto-download on first server start"
			}
			return CheckResult{
				Name:       "GeoIP Database",
				Pass:       false,
				Error:      "GeoLite2-City.mmdb not found",
				Suggestion: suggestion,
			}
		}
		return CheckResult{Name: "GeoIP Database", Pass: false, Error: err.Error()}
	}

	return CheckResult{
		Name:    "GeoIP Database",
		Pass:    true,
		Details: fmt.Sprintf("%.1f MB", float64(info.Size())/(1024*1024)),
	}
}

func checkDatabaseConnection(ctx context.Context, db *sql.DB) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return CheckResult{
			Name:       "Database Connection",
			Pass:       false,
			Error:      err.Error(),
			Suggestion: "Verify DATABASE_URL and ensure PostgreSQL is running",
		}
	}
	return CheckResult{Name: "Database Connection", Pass: true}
}

func checkPostgreSQLVersion(ctx context.Context, db *sql.DB) CheckResult {
	var version string
	if err := db.QueryRowContext(ctx, "SHOW server_version").Scan(&version); err != nil {
		return CheckResult{Name: "PostgreSQL Version", Pass: false, Error: err.Error()}
	}

	// Parse version (e.g., "17.1 (Debian 17.1-1)")
	number := strings.Fields(version)[0]
	major, _ := strconv.Atoi(strings.Split(number, ".")[0])

	if major < minPostgresMajor {
		return CheckResult{
			Name:       "PostgreSQL Version",
			Pass:       false,
			Error:      fmt.Sprintf("Version %s found, need ≥%d", number, minPostgresMajor),
			Suggestion: fmt.Sprintf("Upgrade PostgreSQL to version %d or higher", minPostgresMajor),
		}
	}
	return CheckResult{Name: "PostgreSQL Version", Pass: true, Details: number}
}

func checkMigrations(cfg *config.Config) CheckResult {
	expected, err := latestMigrationVersion()
	if err != nil {
		return CheckResult{Name: "Database Migrations", Pass: false, Error: err.Error()}
	}

	version, dirty, err := getMigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return CheckResult{
			Name:       "Database Migrations",
			Pass:       false,
			Error:      err.Error(),
			Suggestion: "Run migrations with: gmpcms migrate up",
		}
	}

	if dirty {
		return CheckResult{
			Name:       "Database Migrations",
			Pass:       false,
			Error:      fmt.Sprintf("Migration %d failed part way and left the schema dirty", version),
			Suggestion: fmt.Sprintf("Repair the schema by hand, then run: gmpcms migrate force %d", version),
		}
	}

	if version != expected {
		return CheckResult{
			Name:       "Database Migrations",
			Pass:       false,
			Error:      fmt.Sprintf("Migration version %d, expected %d", version, expected),
			Suggestion: "Run migrations with: gmpcms migrate up",
		}
	}

	return CheckResult{Name: "Database Migrations", Pass: true, Details: fmt.Sprintf("v%d", version)}
}

func checkTables(ctx context.Context, db *sql.DB) CheckResult {
	rows, err := db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = ANY($1)`,
		pq.Array(requiredTables),
	)
	if err != nil {
		return CheckResult{Name: "Content Tables", Pass: false, Error: err.Error()}
	}
	defer func() { _ = rows.Close() }()

	found := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return CheckResult{Name: "Content Tables", Pass: false, Error: err.Error()}
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return CheckResult{Name: "Content Tables", Pass: false, Error: err.Error()}
	}

	var missing []string
	for _, table := range requiredTables {
		if !found[table] {
			missing = append(missing, table)
		}
	}

	if len(missing) > 0 {
		return CheckResult{
			Name:       "Content Tables",
			Pass:       false,
			Error:      fmt.Sprintf("Missing %d tables: %s", len(missing), strings.Join(missing, ", ")),
			Suggestion: "Run migrations to create missing tables",
		}
	}

	return CheckResult{
		Name:    "Content Tables",
		Pass:    true,
		Details: fmt.Sprintf("%d/%d tables found", len(requiredTables), len(requiredTables)),
	}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "✗ Configuration Error: %v\n", err)
		return err
	}

	// Non-DB checks first
	results := []CheckResult{
		checkConfiguration(cfg),
		checkWritableDir("Data Directory Writable", cfg.DataDir),
		checkWritableDir("Upload Directory Writable", cfg.UploadDir),
		checkGeoIPDatabase(cfg),
	}

	if cfg.DatabaseURL != "" {
		db, err := openDoctorDatabase(cfg.DatabaseURL)
		if err != nil {
			results = append(results, CheckResult{
				Name:       "Database Connection",
				Pass:       false,
				Error:      err.Error(),
				Suggestion: "Verify DATABASE_URL is valid",
			})
		} else {
			defer func() { _ = db.Close() }()

			conn := checkDatabaseConnection(ctx, db)
			results = append(results, conn)
			if conn.Pass {
				results = append(results,
					checkPostgreSQLVersion(ctx, db),
					checkMigrations(cfg),
					checkTables(ctx, db),
				)
			}
		}
	}

	// Output results
	if jsonOutput {
		outputDoctorJSON(out, results)
	} else {
		outputDoctorHuman(out, results)
	}

	failed := 0
	for _, r := range results {
		if !r.Pass {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(results))
	}
	return nil
}

func outputDoctorHuman(out io.Writer, results []CheckResult) {
	fmt.Fprintln(out, "\n🏥 gmpcms Health Check")

	passed := 0
	for _, r := range results {
		icon := "✓"
		if r.Pass {
			passed++
		} else {
			icon = "✗"
		}

		fmt.Fprintf(out, "%s %s", icon, r.Name)
		if r.Details != "" {
			fmt.Fprintf(out, " (%s)", r.Details)
		}
		fmt.Fprintln(out)

		if !r.Pass {
			if r.Error != "" {
				fmt.Fprintf(out, "  Error: %s\n", r.Error)
			}
			if r.Suggestion != "" {
				fmt.Fprintf(out, "  💡 %s\n", r.Suggestion)
			}
		}
	}

	fmt.Fprintf(out, "\n%d/%d checks passed\n\n", passed, len(results))
}

func outputDoctorJSON(out io.Writer, results []CheckResult) {
	data, _ := json.MarshalIndent(results, "", "  ")
	fmt.Fprintln(out, string(data))
}

func init() {
	doctorCmd.Flags().Bool("json", false, "Output results as JSON")
	RootCmd.AddCommand(doctorCmd)
}
