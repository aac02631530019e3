package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maildeck/core/internal/database/models"
	"github.com/maildeck/core/internal/services"
)

// accountCmd represents the account command group
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage IMAP accounts",
}

var accountAddUserID uint

// accountAddCmd registers a new IMAP account
var accountAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new IMAP account",
	Long:  `Interactively register an IMAP account and verify the connection.`,
	Run: func(cmd *cobra.Command, args []string) {
		if accountAddUserID == 0 {
			fmt.Fprintln(os.Stderr, "Error: --user is required")
			os.Exit(1)
		}
		if _, err := userService.GetUserByID(accountAddUserID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: user %d not found\n", accountAddUserID)
			os.Exit(1)
		}

		reader := bufio.NewReader(os.Stdin)

		email := promptLine(reader, "Email address: ")
		host := promptLine(reader, "IMAP host: ")
		portStr := promptLine(reader, "IMAP port [993]: ")
		port := 993
		if portStr != "" {
			p, err := strconv.Atoi(portStr)
			if err != nil || p <= 0 || p > 65535 {
				fmt.Fprintln(os.Stderr, "Error: invalid port")
				os.Exit(1)
			}
			port = p
		}
		username := promptLine(reader, fmt.Sprintf("IMAP username [%s]: ", email))
		if username == "" {
			username = email
		}
		sslStr := promptLine(reader, "Use SSL? [Y/n]: ")
		useSSL := sslStr == "" || strings.EqualFold(sslStr, "y") || strings.EqualFold(sslStr, "yes")

		password, err := promptPassword("IMAP password: ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nError: failed to read password: %v\n", err)
			os.Exit(1)
		}

		account, err := accountService.CreateAccount(services.CreateAccountInput{
			UserID:   accountAddUserID,
			Email:    email,
			IMAPHost: host,
			IMAPPort: port,
			Username: username,
			Password: password,
			UseSSL:   useSSL,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create account: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Account %d created for %s.\n", account.ID, account.Email)

		fmt.Println("Testing connection...")
		result := accountService.TestIMAPConnection(account)
		if result.Success {
			fmt.Println("Connection OK.")
		} else {
			fmt.Printf("Connection failed: %s\n", result.Message)
			fmt.Println("The account was saved; fix the settings and test again.")
		}
	},
}

// accountListCmd lists registered accounts
var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered accounts",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			accounts []models.Account
			err      error
		)
		if accountAddUserID != 0 {
			accounts, err = accountService.GetAccountsByUserID(accountAddUserID)
		} else {
			accounts, err = accountService.GetEnabledAccounts()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to list accounts: %v\n", err)
			os.Exit(1)
		}

		if len(accounts) == 0 {
			fmt.Println("No accounts yet.")
			return
		}

		fmt.Printf("%-6s %-6s %-30s %-25s %-8s %s\n", "ID", "User", "Email", "IMAP", "Enabled", "Last sync")
		for _, a := range accounts {
			lastSync := "-"
			if !a.LastSyncAt.IsZero() {
				lastSync = a.LastSyncAt.Format("2006-01-02 15:04:05")
			}
			imap := fmt.Sprintf("%s:%d", a.IMAPHost, a.IMAPPort)
			fmt.Printf("%-6d %-6d %-30s %-25s %-8t %s\n", a.ID, a.UserID, a.Email, imap, a.Enabled, lastSync)
		}
	},
}

// promptLine reads one trimmed line from stdin
func promptLine(reader *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read input: %v\n", err)
		os.Exit(1)
	}
	return strings.TrimSpace(line)
}

func init() {
	accountAddCmd.Flags().UintVar(&accountAddUserID, "user", 0, "owning user ID")
	accountListCmd.Flags().UintVar(&accountAddUserID, "user", 0, "filter by user ID")
	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(accountListCmd)
}
