package cli

import (
	"os"

	"github.com/maildeck/core/internal/config"
	"github.com/maildeck/core/internal/services"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	db             *gorm.DB
	cfg            *config.Config
	userService    *services.UserService
	accountService *services.AccountService
	logService     *services.LogService
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "maildeck",
	Short: "Maildeck email ingestion backend",
	Long: `Maildeck ingests mail from IMAP accounts into a local store,
applies classification rules and keeps mailboxes current with a
background monitor.

Examples:
  maildeck user create            # create a dashboard user
  maildeck account add            # register an IMAP account
  maildeck account list           # list registered accounts
  maildeck sync --account 1       # run one ingestion pass
  maildeck monitor                # watch all enabled accounts`,
}

// Execute runs the CLI with the provided database and config
func Execute(database *gorm.DB, config *config.Config) {
	db = database
	cfg = config

	userService = services.NewUserService(db)
	accountService = services.NewAccountService(db, cfg.GetEncryptionKey())
	logService = services.NewLogServiceWithLevel(db, cfg.LogLevel)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(monitorCmd)
}
