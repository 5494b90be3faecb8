package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"bup/pkg/auth"
	"bup/pkg/ui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var logoutAll bool

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Bilibili cookies",
	Long: `Manage stored Bilibili cookie accounts.

Accounts are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - BUP_COOKIE environment variable (read only)

Never share your cookies or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store a browser cookie under a name",
	Long: `Store the Cookie header of a logged-in browser session.

You will be prompted for:
  - Account name (if not provided)
  - Cookie header (hidden while typing)
  - User Agent (optional, press Enter for default)

Use the account with 'bup build --account <name>'. The newest account is
used when none is named.`,
	Example: `  # Interactive login
  bup auth login

  # Login under a name
  bup auth login main`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove stored accounts",
	Long: `Remove a stored account.

If no name is provided, you will be shown a list of stored accounts
to choose from.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored accounts with masked cookie values.`,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove every stored account")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	out := cmd.OutOrStdout()

	var name string
	if len(args) > 0 {
		name = args[0]
	} else {
		fmt.Fprint(out, "Account name: ")
		name = readLine(reader)
	}
	if name == "" {
		return errors.New("account name is required")
	}

	if existing, _ := manager.Retrieve(name); existing != nil {
		if !confirm(reader, out, fmt.Sprintf("Account '%s' already exists. Update the cookie?", name)) {
			return nil
		}
	}

	auth.ShowQuickExtractGuide(out)
	fmt.Fprintln(out)

	var cookie string
	for {
		fmt.Fprint(out, "Cookie (hidden): ")
		cookie, err = readSecret(reader)
		if err != nil {
			return fmt.Errorf("failed to read cookie: %w", err)
		}
		if strings.EqualFold(cookie, "help") {
			fmt.Fprintln(out)
			auth.ShowCookieExtractionGuide(out)
			continue
		}
		if cookie == "" {
			return errors.New("cookie is required")
		}
		if !auth.HasSession(cookie) {
			ui.PrintWarning("That cookie has no SESSDATA, requests will run as a guest")
			if !confirm(reader, out, "Store it anyway?") {
				continue
			}
		}
		break
	}

	fmt.Fprint(out, "User Agent (press Enter to use default): ")
	userAgent := readLine(reader)

	account := &auth.Account{
		Name:         name,
		Cookie:       cookie,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}
	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Fprintln(out, "\nSummary:")
	fmt.Fprintf(out, "   Name: %s\n", name)
	fmt.Fprintf(out, "   Cookie: %s\n", auth.SanitizeAccount(account).Cookie)
	if userAgent != "" {
		fmt.Fprintf(out, "   User Agent: %s\n", userAgent)
	}
	fmt.Fprintln(out)
	ui.PrintSuccess("Account saved: " + name)
	fmt.Fprintf(out, "\nUse it with:\n  bup build --account %s\n", name)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	reader := bufio.NewReader(os.Stdin)
	out := cmd.OutOrStdout()

	if len(args) > 0 {
		if err := manager.Delete(args[0]); err != nil {
			return fmt.Errorf("failed to remove account: %w", err)
		}
		ui.PrintSuccess("Account removed: " + args[0])
		return nil
	}

	accounts, err := storedAccounts(manager)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		ui.PrintWarning("No stored accounts found")
		return nil
	}

	var targets []*auth.Account
	switch {
	case logoutAll:
		if !confirm(reader, out, fmt.Sprintf("Remove all %d accounts?", len(accounts))) {
			return nil
		}
		targets = accounts
	case len(accounts) == 1:
		if !confirm(reader, out, fmt.Sprintf("Remove account '%s'?", accounts[0].Name)) {
			return nil
		}
		targets = accounts
	default:
		fmt.Fprintln(out, "Select account to remove:")
		for i, account := range accounts {
			fmt.Fprintf(out, "  %d. %s\n", i+1, account.Name)
		}
		fmt.Fprintf(out, "  0. Cancel\n\n")
		fmt.Fprint(out, "Choice: ")

		var choice int
		fmt.Sscanf(readLine(reader), "%d", &choice)
		if choice == 0 {
			return nil
		}
		if choice < 0 || choice > len(accounts) {
			return errors.New("invalid choice")
		}
		targets = accounts[choice-1 : choice]
	}

	for _, account := range targets {
		if err := manager.Delete(account.Name); err != nil {
			return fmt.Errorf("failed to remove account %s: %w", account.Name, err)
		}
		ui.PrintSuccess("Account removed: " + account.Name)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'bup auth login' to add one")
		return nil
	}

	out := cmd.OutOrStdout()
	ui.PrintHighlight("Stored Accounts")
	fmt.Fprintln(out)
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Fprintf(out, "%d. Name: %s\n", i+1, sanitized.Name)
		fmt.Fprintf(out, "   Cookie: %s\n", sanitized.Cookie)
		if sanitized.UserAgent != "" {
			fmt.Fprintf(out, "   User Agent: %s\n", sanitized.UserAgent)
		}
		if !sanitized.LastModified.IsZero() {
			fmt.Fprintf(out, "   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(out)
	}
	return nil
}

// storedAccounts lists the accounts that can be removed. The environment
// account is read only.
func storedAccounts(manager *auth.Manager) ([]*auth.Account, error) {
	accounts, err := manager.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	out := accounts[:0]
	for _, a := range accounts {
		if a.Name != auth.EnvAccountName {
			out = append(out, a)
		}
	}
	return out, nil
}

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func confirm(reader *bufio.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s (y/N): ", question)
	return strings.HasPrefix(strings.ToLower(readLine(reader)), "y")
}

// readSecret reads a line from stdin without echoing when stdin is a
// terminal.
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
