package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/maildeck/core/internal/ingest"
	"github.com/maildeck/core/internal/services"
)

var (
	syncAccountID  uint
	syncSinceHours int
)

// syncCmd runs one ingestion pass for an account, streaming progress to
// the terminal. Ctrl-C cancels cleanly and keeps the committed work.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one ingestion pass for an account",
	Run: func(cmd *cobra.Command, args []string) {
		if syncAccountID == 0 {
			fmt.Fprintln(os.Stderr, "Error: --account is required")
			os.Exit(1)
		}

		account, err := accountService.GetAccountByID(syncAccountID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: account %d not found\n", syncAccountID)
			os.Exit(1)
		}

		engine := newEngine()
		if !engine.TryLockAccount(account.ID) {
			fmt.Fprintln(os.Stderr, "Error: a sync is already running for this account")
			os.Exit(1)
		}
		defer engine.UnlockAccount(account.ID)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			fmt.Println("\nStopping after the current message...")
			cancel()
		}()

		var since time.Time
		if syncSinceHours > 0 {
			since = time.Now().Add(-time.Duration(syncSinceHours) * time.Hour)
		}

		events := make(chan ingest.Event, 64)
		go func() {
			for ev := range events {
				switch ev.Type {
				case ingest.EventStage:
					if ev.Message != "" {
						fmt.Printf("[%s] %s\n", ev.Stage, ev.Message)
					}
				case ingest.EventProgress:
					fmt.Printf("\rProcessed %d/%d", ev.Processed, ev.Total)
				case ingest.EventBatch:
					fmt.Printf("\n%d new messages ready\n", len(ev.Batch))
				case ingest.EventError:
					fmt.Printf("\nError: %s\n", ev.Error)
				}
			}
		}()

		result, err := engine.Run(ctx, account.UserID, account.ID, ingest.RunOptions{Since: since, Events: events})
		close(events)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nSync failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Println()
		if result.Cancelled {
			fmt.Println("Sync cancelled; partial results were kept.")
		}
		fmt.Printf("New: %d  Updated: %d  Skipped: %d  Total: %d\n",
			result.NewCount, result.Updated, result.Skipped, result.Total)
	},
}

// monitorCmd watches all enabled accounts until interrupted
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch all enabled accounts for new mail",
	Run: func(cmd *cobra.Command, args []string) {
		engine := newEngine()
		monitor := ingest.NewMonitor(accountService, logService, engine, cfg.MonitorInterval(), cfg.LookbackWindow())
		monitor.Start()
		fmt.Printf("Monitoring every %s. Ctrl-C to stop.\n", cfg.MonitorInterval())

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		for {
			select {
			case n := <-monitor.Notifications():
				fmt.Printf("[%s] Account %d: %d new message(s)\n",
					n.CheckedAt.Format("15:04:05"), n.AccountID, n.NewCount)
			case <-sigCh:
				fmt.Println("\nStopping monitor...")
				monitor.Stop()
				return
			}
		}
	},
}

// newEngine builds an ingestion engine from the CLI's shared services
func newEngine() *ingest.Engine {
	ruleService := services.NewRuleService(db)
	return ingest.NewEngine(db, accountService, ruleService, logService, ingest.NewIMAPDialer(), ingest.Options{
		BatchSize:      cfg.BatchSize,
		CommitInterval: cfg.CommitInterval,
		AttachmentsDir: cfg.GetAttachmentsBaseDir(),
	})
}

func init() {
	syncCmd.Flags().UintVar(&syncAccountID, "account", 0, "account ID to sync")
	syncCmd.Flags().IntVar(&syncSinceHours, "since", 0, "only fetch mail from the last N hours (0 = everything)")
}
