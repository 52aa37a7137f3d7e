package main

import (
	"fmt"
	"os"

	"github.com/aq2208/gstore-api/configs"
	"github.com/spf13/cobra"
)

var Version = "dev"

type globalFlags struct {
	configDir string
	env       string
}

func (g *globalFlags) load() (configs.Config, error) {
	return configs.Load(g.configDir, g.env)
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "gstore-cli",
		Short:         "Operational commands for gstore-api",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	root.PersistentFlags().StringVar(&g.configDir, "config-dir", "configs", "directory holding base.yaml and <env>.yaml")
	root.PersistentFlags().StringVar(&g.env, "env", env, "config environment (defaults to $APP_ENV)")

	root.AddCommand(migrateCmd(g))
	root.AddCommand(adminCmd(g))
	root.AddCommand(webhookCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
