package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	urfave "github.com/urfave/cli/v2"

	"github.com/liamcoop/cardiorisk/internal/logger"
)

const (
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	debugFlag = &urfave.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	configFlag = &urfave.StringFlag{
		Name:    "config",
		Usage:   "Path to a YAML config file (optional)",
		EnvVars: []string{"CONFIG_FILE"},
	}

	formatFlag = &urfave.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}
)

type appConfig struct {
	ConfigPath string
	Format     string
}

func getConfig(c *urfave.Context) *appConfig {
	return c.App.Metadata[appConfigKey].(*appConfig)
}

func main() {
	app := newApp(os.Stdout)
	if err := app.Run(os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *urfave.App {
	return &urfave.App{
		Name:                 "riskctl",
		Version:              fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Compiled:             time.Now(),
		EnableBashCompletion: true,
		HideHelpCommand:      true,
		Usage:                "Heart-disease risk scoring from the command line",
		Writer:               out,
		Metadata:             map[string]any{},
		Flags: []urfave.Flag{
			debugFlag,
			configFlag,
			formatFlag,
		},
		Commands: []*urfave.Command{
			scoreCmd,
			predictCmd,
			rulesCmd,
		},
		Before: func(c *urfave.Context) error {
			if c.Bool(debugFlag.Name) {
				logger.SetLevel(slog.LevelDebug)
			} else {
				logger.SetLevel(slog.LevelWarn)
			}

			format := formatJSON
			switch f := c.String(formatFlag.Name); f {
			case formatJSON:
			case formatYAML, "yml":
				format = formatYAML
			default:
				return fmt.Errorf("unsupported format %q (use json or yaml)", f)
			}

			c.App.Metadata[appConfigKey] = &appConfig{
				ConfigPath: c.String(configFlag.Name),
				Format:     format,
			}
			return nil
		},
	}
}
