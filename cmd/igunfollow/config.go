package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igunfollow/pkg/config"
	"igunfollow/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igunfollow configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IG_user, IG_password, IGUNFOLLOW_*)
  - .env file
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'igunfollow.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging all sources.

The Instagram password and the Discord token are masked.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Run:   runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# igunfollow configuration file
#
# Secrets are better kept out of this file: set IG_user / IG_password and
# IGUNFOLLOW_DISCORD_TOKEN in the environment or a .env file instead.

instagram:
  # Leave empty to use IG_user / IG_password or saved credentials
  username: ""
  password: ""
  user_agent: ""
  app_id: "936619743392459"
  base_url: "https://www.instagram.com"
  timeout: 30s
  # Accounts per friendships page (1-200)
  page_size: 50
  # Pause between pages
  page_delay: 1s

discord:
  token: ""
  # Register the command in one server only (takes effect immediately)
  guild_id: ""
  command_name: "unfollow"

cooldown:
  # Global lock after a successful run
  duration: 24h
  # Also lock after failed runs
  on_failure: false

unfollow:
  # Total tries per follower/following fetch
  fetch_attempts: 3
  fetch_retry_delay: 2s
  # Pause before the first unfollow
  settle_delay: 3s
  # Random pause after each unfollow is drawn from [min_delay, max_delay)
  min_delay: 4s
  max_delay: 8s
  # Pause after a failed unfollow
  failure_delay: 10s

rate_limit:
  requests_per_minute: 60

workers:
  pool_size: 1
  queue_size: 1

metrics:
  # e.g. ":9090" to serve /metrics
  address: ""

logging:
  # debug, info, warn, error
  level: "info"
  # Optional JSON log file
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = "igunfollow.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Put your credentials in .env or run 'igunfollow auth login'")
	fmt.Println("2. Run 'igunfollow config validate' to check the configuration")
	fmt.Println("3. Try 'igunfollow unfollow --dry-run'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (IG_user, IG_password, IGUNFOLLOW_*)")
	fmt.Println("3. .env file")
	if path := resolvedConfigPath(); path != "" {
		fmt.Printf("4. Configuration file: %s\n", path)
	} else {
		fmt.Println("4. Configuration file: (none found)")
	}
	fmt.Println("5. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	path := resolvedConfigPath()
	if path == "" {
		ui.PrintError("No configuration file found", "Specify a file with --config flag")
		os.Exit(1)
	}

	ui.PrintInfo("Validating configuration", path)

	cfg, err := config.Load(path, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	var warnings []string
	if !cfg.Instagram.HasCredentials() {
		warnings = append(warnings, "Instagram credentials not set here; saved credentials will be used if present")
	}
	if cfg.Discord.Token == "" {
		warnings = append(warnings, "Discord token not configured; 'igunfollow run' will not start")
	}
	if cfg.Discord.GuildID == "" {
		warnings = append(warnings, "No guild ID; the slash command is registered globally")
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, warn := range warnings {
			fmt.Printf("  - %s\n", warn)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Cooldown: %s (on failure: %t)\n", cfg.Cooldown.Duration, cfg.Cooldown.OnFailure)
	fmt.Printf("  Unfollow pause: %s-%s, after failure %s\n", cfg.Unfollow.MinDelay, cfg.Unfollow.MaxDelay, cfg.Unfollow.FailureDelay)
	fmt.Printf("  Fetch attempts: %d\n", cfg.Unfollow.FetchAttempts)
	fmt.Printf("  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}

func resolvedConfigPath() string {
	if configFile != "" {
		return configFile
	}
	return config.FindConfigFile()
}
