// Command talentkit ingests resumes and matches them against job postings.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vinayprograms/talentkit/config"
	"github.com/vinayprograms/talentkit/credentials"
	"github.com/vinayprograms/talentkit/errors"
	"github.com/vinayprograms/talentkit/kit"
	"github.com/vinayprograms/talentkit/logging"
	"github.com/vinayprograms/talentkit/shutdown"
	"github.com/vinayprograms/talentkit/telemetry"
)

// version is set at build time.
var version = "dev"

// defaultConfigFile is read when --config is not given and the file exists.
const defaultConfigFile = "talentkit.toml"

type globalFlags struct {
	configPath string
	logLevel   string
	jsonOut    bool
}

func main() {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "talentkit",
		Short:         "Resume embedding and retrieval",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file path (default ./"+defaultConfigFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&g.jsonOut, "json", false, "Print results as JSON")

	rootCmd.AddCommand(
		ingestCmd(g),
		matchCmd(g),
		uploadCmd(g),
		questionsCmd(g),
		answerCmd(g),
		searchCmd(g),
		reindexCmd(g),
		listCmd(g),
	)

	if err := rootCmd.Execute(); err != nil {
		printError(err, g.jsonOut)
		os.Exit(exitCode(err))
	}
}

// session is an open kit plus everything that must be torn down with it.
type session struct {
	ctx context.Context
	kit *kit.Kit
	out *output
}

// withSession opens the kit, runs fn, and shuts everything down.
func (g *globalFlags) withSession(fn func(s *session) error) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	log := logging.New()
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeInvalidInput, "invalid log level")
	}
	log.SetLevel(level)

	creds, credPath, err := credentials.Load()
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeInvalidInput, "loading credentials")
	}
	if credPath != "" {
		log.Debug("credentials loaded", map[string]interface{}{"path": credPath})
	}

	coord := shutdown.NewCoordinator(shutdown.DefaultConfig())
	ctx := coord.HandleSignals(context.Background())
	defer coord.ShutdownWithTimeout(0)

	if cfg.Telemetry.Enabled {
		provider, err := telemetry.InitProvider(ctx, telemetry.ProviderConfig{
			ServiceVersion: version,
			Endpoint:       cfg.Telemetry.Endpoint,
			Protocol:       cfg.Telemetry.Protocol,
			Insecure:       cfg.Telemetry.Insecure,
			Debug:          cfg.Telemetry.Debug,
		})
		if err != nil {
			log.Warn("telemetry disabled", map[string]interface{}{"error": err.Error()})
		} else {
			coord.RegisterFunc("telemetry", shutdown.PhaseTelemetry, provider.Shutdown)
		}
	}

	k, err := kit.Open(ctx, cfg, kit.WithCredentials(creds), kit.WithLogger(log))
	if err != nil {
		return err
	}
	coord.RegisterFunc("kit", shutdown.PhaseStores, func(context.Context) error {
		return k.Close()
	})

	return fn(&session{ctx: ctx, kit: k, out: &output{json: g.jsonOut}})
}

func (g *globalFlags) loadConfig() (*config.Config, error) {
	path := g.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}

	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrCodeInvalidInput, "loading config",
				errors.WithMetadata("path", path))
		}
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	return cfg, nil
}

func printError(err error, jsonOut bool) {
	if e := errors.As(err); e != nil {
		if jsonOut {
			if data, jerr := json.Marshal(e); jerr == nil {
				fmt.Fprintln(os.Stderr, string(data))
				return
			}
		}
		fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", e.Code(), err)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

func exitCode(err error) int {
	switch errors.Code(err) {
	case errors.ErrCodeInvalidInput:
		return 2
	case errors.ErrCodeNotFound:
		return 3
	default:
		return 1
	}
}
