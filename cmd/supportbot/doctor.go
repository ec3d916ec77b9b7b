package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"supportbot/internal/config"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your supportbot installation",
		Long: `Verifies that supportbot's configuration, credentials, brand document,
and data stores are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("supportbot doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				failed++
				fmt.Printf("\nRun 'supportbot init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
			} else {
				printPass("Config validation", "valid")
				passed++
			}

			if cfg == nil {
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return nil
			}

			// 3. Credentials present
			if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token != "" {
				printPass("Discord token", "configured")
				passed++
			} else if cfg.Channels.Discord.Enabled {
				printFail("Discord token", "missing (set DISCORD_TOKEN)")
				failed++
			}
			if cfg.Model.APIKey != "" {
				printPass("Gemini API key", "configured")
				passed++
			} else {
				printFail("Gemini API key", "missing (set GEMINI_API_KEY)")
				failed++
			}

			// 4. Brand document readable and non-empty
			if info, err := os.Stat(cfg.Brand.InfoPath); err != nil {
				printFail("Brand document", fmt.Sprintf("not found: %s", cfg.Brand.InfoPath))
				failed++
			} else if info.Size() == 0 {
				printFail("Brand document", fmt.Sprintf("empty: %s", cfg.Brand.InfoPath))
				failed++
			} else {
				detail := fmt.Sprintf("%s (%d bytes)", cfg.Brand.InfoPath, info.Size())
				if info.Size() > int64(cfg.Brand.MaxChars) {
					printWarn("Brand document", detail+", will be truncated")
					warned++
				} else {
					printPass("Brand document", detail)
					passed++
				}
			}

			// 5. Interaction log directory writable
			logDir := filepath.Dir(cfg.Logbook.Path)
			if err := os.MkdirAll(logDir, 0o755); err != nil {
				printFail("Interaction log", fmt.Sprintf("cannot create directory: %v", err))
				failed++
			} else {
				printPass("Interaction log", cfg.Logbook.Path)
				passed++
			}

			// 6. Moderation database writable
			if err := checkDatabase(cfg.Moderation.DBPath); err != nil {
				printFail("Moderation database", err.Error())
				failed++
			} else {
				printPass("Moderation database", cfg.Moderation.DBPath)
				passed++
			}

			// 7. Metrics port available
			if cfg.Metrics.Enabled {
				if err := checkAddr(cfg.Metrics.Addr); err != nil {
					printWarn("Metrics addr", fmt.Sprintf("%s may be in use: %v", cfg.Metrics.Addr, err))
					warned++
				} else {
					printPass("Metrics addr", cfg.Metrics.Addr+" available")
					passed++
				}
			}

			// 8. Log file writable
			if cfg.General.LogFile != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
					printWarn("Log file", fmt.Sprintf("cannot create log directory: %v", err))
					warned++
				} else {
					printPass("Log file", cfg.General.LogFile)
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running supportbot.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nsupportbot should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! supportbot is ready to run.\n")
			}
			return nil
		},
	}
}

func checkDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}

	// Try a write.
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test")

	return nil
}

func checkAddr(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
