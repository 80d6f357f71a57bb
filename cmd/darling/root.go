package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"darling/internal/config"
	"darling/internal/logging"
)

var version = "dev"

// env is loaded once per invocation before any subcommand runs.
type env struct {
	configPath string
	cfg        config.Config
	log        zerolog.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "darling",
		Short: "Darling - a voice and text assistant for your to-do list",
		Long: titleStyle.Render("Darling") + `

Manage a to-do list by typing or talking. Say "hey darling" to wake the
assistant, then ask it to add, complete, delete or list tasks.

` + dimStyle.Render("Use 'darling [command] --help' for more information."),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(e.configPath)
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.log = logging.New(cfg.Log, cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&e.configPath, "config", "", "config file (default ~/.config/darling/config.yaml)")

	root.AddCommand(
		newChatCmd(e),
		newListenCmd(e),
		newServeCmd(e),
		newTasksCmd(e),
	)
	return root
}
