package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igunfollow/pkg/auth"
	"igunfollow/pkg/config"
	"igunfollow/pkg/instagram"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/ratelimit"
	"igunfollow/pkg/ui"
)

var verifyLogin bool

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Instagram credentials",
	Long: `Manage stored Instagram credentials securely.

Credentials are looked up in this order:
  - IG_user / IG_password (environment or .env file)
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store Instagram credentials securely",
	Long: `Store an Instagram username and password in the system keychain or an
encrypted file. The password is read without echo.

With --verify the credentials are checked against Instagram first by logging
in and out once.`,
	Example: `  # Interactive login
  igunfollow auth login

  # Login with username and check the password works
  igunfollow auth login myusername --verify`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove stored credentials",
	Long: `Remove stored Instagram credentials.

If no username is provided, you will be shown a list of stored accounts
to choose from.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credentials will be used",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)
	loginCmd.Flags().BoolVar(&verifyLogin, "verify", false, "log into Instagram once to check the credentials")
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		fmt.Print("📱 Instagram username: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read username", err.Error())
			os.Exit(1)
		}
		username = strings.TrimSpace(input)
	}

	username = instagram.SanitizeUsername(username)
	if !instagram.IsValidUsername(username) {
		ui.PrintError("Invalid Instagram username", username)
		os.Exit(1)
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		fmt.Printf("\n⚠️  Account '%s' already exists. Update credentials? (y/N): ", username)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("🔐 Password (hidden): ")
	password, err := readPassword(reader)
	if err != nil {
		ui.PrintError("Failed to read password", err.Error())
		os.Exit(1)
	}
	if password == "" {
		ui.PrintError("Password is required")
		os.Exit(1)
	}

	if verifyLogin {
		fmt.Println("\n🔄 Checking credentials with Instagram...")
		if err := testCredentials(username, password); err != nil {
			ui.PrintError("Instagram rejected the login", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("Login verified")
	}

	account := &auth.Account{
		Username:     username,
		Password:     password,
		LastModified: time.Now(),
	}

	fmt.Println("\n💾 Storing credentials securely...")
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Account saved: %s", username))

	fmt.Println("\n🔒 Security Information:")
	fmt.Println("   Your credentials are stored in:")
	if auth.IsKeyringAvailable() {
		fmt.Println("   • System keychain (primary)")
	}
	fmt.Println("   • Encrypted file (backup)")

	fmt.Println("\n📖 Next steps:")
	fmt.Println("   $ igunfollow unfollow --dry-run")
	fmt.Println("   $ igunfollow run")
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	if len(args) > 0 {
		if err := manager.Delete(args[0]); err != nil {
			ui.PrintError("Failed to remove account", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("Account removed: " + args[0])
		return
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		ui.PrintError("No stored accounts found")
		return
	}

	fmt.Println("Select account to remove:")
	for i, account := range accounts {
		fmt.Printf("  %d. %s\n", i+1, account.Username)
	}
	fmt.Printf("  %d. Remove all accounts\n", len(accounts)+1)
	fmt.Printf("  0. Cancel\n\n")

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Choice: ")
	input, _ := reader.ReadString('\n')

	var choice int
	fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)

	switch {
	case choice == 0:
		return
	case choice == len(accounts)+1:
		fmt.Print("Remove ALL accounts? This cannot be undone! (yes/N): ")
		confirm, _ := reader.ReadString('\n')
		if strings.TrimSpace(confirm) != "yes" {
			return
		}
		if err := manager.DeleteAll(); err != nil {
			ui.PrintError("Failed to remove all accounts", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("All accounts removed")
	case choice > 0 && choice <= len(accounts):
		account := accounts[choice-1]
		if err := manager.Delete(account.Username); err != nil {
			ui.PrintError("Failed to remove account", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("Account removed: " + account.Username)
	default:
		ui.PrintError("Invalid choice")
		os.Exit(1)
	}
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if cfg.Instagram.HasCredentials() {
		ui.PrintInfo("Active account", cfg.Instagram.Username)
		ui.PrintInfo("Source", fmt.Sprintf("configuration (%s / %s)", config.EnvInstagramUser, config.EnvInstagramPassword))
		return
	}

	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, _ := manager.List()
	if len(accounts) == 0 {
		ui.PrintWarning("No Instagram credentials configured")
		auth.ShowSetupGuide()
		return
	}

	ui.PrintInfo("Active account", accounts[0].Username)
	ui.PrintInfo("Source", "credential store")

	ui.PrintHighlight("\nStored Accounts")
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. %s (password %s, saved %s)\n", i+1,
			sanitized.Username, sanitized.Password,
			sanitized.LastModified.Format("2006-01-02 15:04:05"))
	}
}

// readPassword reads a password from stdin without echoing
func readPassword(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// testCredentials logs into Instagram once and logs out again
func testCredentials(username, password string) error {
	cfg := config.DefaultConfig()
	log := logger.GetLogger()

	client, err := instagram.NewClient(instagram.OptionsFromConfig(&cfg.Instagram, ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute), log))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := client.Login(ctx, username, password); err != nil {
		return err
	}
	if err := client.Logout(ctx); err != nil {
		log.WithError(err).Warn("Logout after verification failed")
	}
	return nil
}
