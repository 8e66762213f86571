package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"igunfollow/internal/runner"
	"igunfollow/internal/worker"
	"igunfollow/pkg/auth"
	"igunfollow/pkg/config"
	"igunfollow/pkg/cooldown"
	"igunfollow/pkg/instagram"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/ratelimit"
	"igunfollow/pkg/ui"
	"igunfollow/pkg/unfollow"
)

// loadConfig loads the configuration and initialises the global logger
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// credentialSource resolves credentials per run: the config (file, .env or
// environment) first, then the credential store. The returned error is only
// set when nothing usable was found.
func credentialSource(cfg *config.Config, preferred string) runner.CredentialSource {
	return func(ctx context.Context) (unfollow.Credentials, error) {
		creds := unfollow.Credentials{
			Username: cfg.Instagram.Username,
			Password: cfg.Instagram.Password,
		}
		if preferred != "" && creds.Username != preferred {
			creds = unfollow.Credentials{}
		}
		if len(creds.Missing()) == 0 {
			return creds, nil
		}

		manager, err := auth.NewManager()
		if err != nil {
			logger.WithError(err).Debug("Credential store unavailable")
			return creds, &unfollow.ConfigurationError{Missing: creds.Missing()}
		}
		account, err := manager.RetrieveDefault(preferred)
		if err != nil {
			return creds, &unfollow.ConfigurationError{Missing: creds.Missing()}
		}
		return unfollow.Credentials{Username: account.Username, Password: account.Password}, nil
	}
}

// clientFactory opens a fresh Instagram session per run, sharing one rate
// limiter across sessions
func clientFactory(cfg *config.Config, log logger.Logger) runner.ClientFactory {
	limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)
	return func() (unfollow.Client, error) {
		client, err := instagram.NewClient(instagram.OptionsFromConfig(&cfg.Instagram, limiter, log))
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// newRunner wires the gate, the pool and the workflow settings. The caller
// must stop the returned pool.
func newRunner(ctx context.Context, cfg *config.Config, preferred string) (*runner.Runner, *worker.Pool) {
	log := logger.GetLogger()

	pool := worker.NewPool(cfg.Workers.PoolSize, cfg.Workers.QueueSize, log)
	pool.Start(ctx)

	clock := clockwork.NewRealClock()
	r := runner.New(runner.Options{
		Credentials: credentialSource(cfg, preferred),
		NewClient:   clientFactory(cfg, log),
		Gate: cooldown.NewGate(cooldown.Options{
			Duration:  cfg.Cooldown.Duration,
			OnFailure: cfg.Cooldown.OnFailure,
			Clock:     clock,
		}),
		Pool:     pool,
		Settings: unfollow.SettingsFromConfig(&cfg.Unfollow),
		Logger:   log,
		Clock:    clock,
	})
	return r, pool
}

func printLogo() {
	ui.PrintLogo()
}
