// Package command defines the careportal CLI with urfave/cli/v2. Every
// command loads the environment configuration, applies the global flag
// overrides and initialises the process logger before it runs.
package command

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/medtrack/careportal/internal/pkg/config"
	"github.com/medtrack/careportal/pkg/logger"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

const metaConfig = "config"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:     "careportal",
		Usage:    "Care portal client: session, portal shell and background notifications",
		Version:  fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags:    globalFlags(),
		Metadata: map[string]any{},
		Commands: []*cli.Command{
			ServeCommand(),
			LoginCommand(),
			VerifyCommand(),
			LogoutCommand(),
			WhoamiCommand(),
		},
		Before: setup,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "api-endpoint",
			Aliases: []string{"a"},
			Usage:   "Medication backend base URL (overrides API_ENDPOINT_DEV/PROD)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: trace, debug, info, warn, error",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Human-friendly log output",
		},
		&cli.StringFlag{
			Name:  "credential-path",
			Usage: "Credential file used by the file backend",
		},
		&cli.StringFlag{
			Name:  "profile",
			Usage: "Credential profile for the redis and mongo backends",
		},
	}
}

func setup(c *cli.Context) error {
	cfg, err := config.LoadFrom(c.Context, nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: c.Bool("pretty"),
		Output: c.App.ErrWriter,
	})
	c.App.Metadata[metaConfig] = cfg
	return nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	if v := c.String("api-endpoint"); v != "" {
		cfg.API.Endpoint = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := c.String("credential-path"); v != "" {
		cfg.Credentials.Path = v
	}
	if v := c.String("profile"); v != "" {
		cfg.Credentials.Profile = v
	}
}

// configFrom returns the configuration loaded by setup.
func configFrom(c *cli.Context) (*config.Config, error) {
	cfg, ok := c.App.Metadata[metaConfig].(*config.Config)
	if !ok {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}
