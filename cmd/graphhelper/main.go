// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/graphhelper"
	"github.com/poiesic/graphhelper/config"
	"github.com/poiesic/graphhelper/graph"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	modeFlag := &cli.StringFlag{
		Name:    "mode",
		Aliases: []string{"m"},
		Usage:   "Operating mode (offline, online); defaults to the configured mode",
	}
	verboseFlag := &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Print each step and the evidence used",
	}

	return &cli.App{
		Name:  "graphhelper",
		Usage: "Answer LangGraph and LangChain questions from local docs and the web",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the TOML config file",
				Value:   config.DefaultPath(),
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the documentation index (overrides the config file)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer a single question",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags:     []cli.Flag{modeFlag, verboseFlag},
			},
			{
				Name:   "chat",
				Usage:  "Start an interactive session",
				Action: chatCommand,
				Flags: []cli.Flag{
					modeFlag,
					verboseFlag,
					&cli.BoolFlag{
						Name:  "memory",
						Usage: "Pass earlier questions and answers into each request",
					},
				},
			},
			{
				Name:   "index",
				Usage:  "Download documentation and build the index",
				Action: indexCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "source",
						Aliases: []string{"s"},
						Usage:   "Source as name=url or name=path; repeatable (defaults to the LangGraph and LangChain llms.txt files)",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Re-index sources whose content did not change",
					},
					&cli.BoolFlag{
						Name:  "no-preprocess",
						Usage: "Index documents exactly as downloaded",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent embedding workers (0 = half the CPUs)",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Show what local retrieval finds for a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Query type used for expansion (graph_framework, chain_framework, code_example, general)",
						Value:   "general",
					},
				},
			},
			{
				Name:   "batch",
				Usage:  "Answer every question in a file concurrently",
				Action: batchCommand,
				Flags: []cli.Flag{
					modeFlag,
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "File with one question per line, or - for stdin",
						Required: true,
					},
				},
			},
			{
				Name:   "config",
				Usage:  "Print the effective configuration",
				Action: configCommand,
			},
		},
	}
}

// loadConfig reads the config file named by --config and applies --db.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if db := c.String("db"); db != "" {
		cfg.Store.Path = db
	}
	return cfg, nil
}

func openAssistant(c *cli.Context, opts ...graphhelper.AssistantOption) (*graphhelper.Assistant, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	opts = append([]graphhelper.AssistantOption{graphhelper.WithConfig(cfg)}, opts...)
	if c.Bool("verbose") {
		opts = append(opts, graphhelper.WithMonitor(newTraceMonitor(c.App.ErrWriter)))
	}
	return graphhelper.NewAssistant(opts...)
}

var _ graph.Monitor = (*traceMonitor)(nil)

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
