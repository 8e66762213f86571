package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"igunfollow/pkg/bot"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/ui"
)

var (
	guildID     string
	metricsAddr string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Discord bot",
	Long: `Connect to Discord and serve the /unfollow slash command until interrupted.

The bot token is read from discord.token in the config file or from
IGUNFOLLOW_DISCORD_TOKEN. Set a guild ID to register the command in a single
server, which takes effect immediately; global commands can take up to an
hour to show up.`,
	Example: `  # Serve a single server and expose metrics
  igunfollow run --guild-id 123456789012345678 --metrics-addr :9090`,
	RunE: runBot,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&guildID, "guild-id", "", "register the command in this guild only")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{
		"guild-id":     guildID,
		"metrics-addr": metricsAddr,
	})
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, pool := newRunner(ctx, cfg, "")
	defer pool.Stop()

	if !cfg.Instagram.HasCredentials() {
		log.Warn("Instagram credentials not set in the environment, falling back to saved credentials")
	}

	b, err := bot.New(cfg.Discord, r, log)
	if err != nil {
		ui.PrintError("Failed to create Discord bot", err.Error())
		return err
	}
	if err := b.Start(ctx); err != nil {
		ui.PrintError("Failed to start Discord bot", err.Error())
		return err
	}
	defer func() {
		if err := b.Stop(); err != nil {
			log.WithError(err).Warn("Failed to close Discord session")
		}
	}()

	var server *http.Server
	if cfg.Metrics.Address != "" {
		server = startMetricsServer(cfg.Metrics.Address, log)
	}

	ui.PrintSuccess("Bot is running. Press Ctrl+C to stop.")
	ui.PrintInfo("Cooldown", cfg.Cooldown.Duration.String())

	<-ctx.Done()
	log.Info("Shutting down")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Metrics server shutdown failed")
		}
	}
	return nil
}

func startMetricsServer(addr string, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("Serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server failed")
		}
	}()
	return server
}
