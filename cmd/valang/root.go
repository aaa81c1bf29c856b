package main

import (
	"errors"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/krew-solutions/ascetic-valang-go/valang/expression"
	"github.com/krew-solutions/ascetic-valang-go/valang/expression/parser"
)

// errReported ends a command whose problems have been printed already.
var errReported = errors.New("problems reported")

var (
	failure = color.New(color.FgRed, color.Bold).SprintFunc()
	success = color.New(color.FgGreen).SprintFunc()
	code    = color.New(color.FgYellow).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
)

type app struct {
	configFile string
	logLevel   string
	contexts   []string
	noColor    bool

	settings Settings
	logger   zerolog.Logger
	dates    *expression.DateParser
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zerolog.Nop()}
	root := &cobra.Command{
		Use:           "valang",
		Short:         "Parse, check and apply Valang validation rules",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "settings file (default ./valang.toml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringSliceVar(&a.contexts, "context", nil, "activate a validation context, repeatable")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newParseCmd(a),
		newCheckCmd(a),
		newValidateCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	settings, err := loadSettings(a.configFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		settings.LogLevel = a.logLevel
	}
	if cmd.Flags().Changed("context") {
		settings.Contexts = a.contexts
	}
	if cmd.Flags().Changed("short-circuit") {
		settings.ShortCircuit, _ = cmd.Flags().GetBool("short-circuit")
	}
	if a.noColor {
		color.NoColor = true
	}
	if a.logger, err = settings.Logger(); err != nil {
		return err
	}
	if a.dates, err = settings.DateParser(); err != nil {
		return err
	}
	a.settings = settings
	return nil
}

func (a *app) parserOptions() []parser.Option {
	return []parser.Option{parser.WithDateParser(a.dates), parser.WithLogger(a.logger)}
}
