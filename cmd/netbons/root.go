package main

import (
	"context"
	"strings"
	"sync"

	"netbons/internal/config"
	"netbons/internal/container"

	"github.com/spf13/cobra"
)

type commandContext struct {
	dataDirFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newRootCommand() *cobra.Command {
	var dataDir string
	ctx := &commandContext{dataDirFlag: &dataDir}

	rootCmd := &cobra.Command{
		Use:           "netbons",
		Short:         "NETBONS streaming catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding local state (overrides NETBONS_DATA_DIR)")

	for _, cmd := range newSessionCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range newCatalogCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range newContentCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		if c.dataDirFlag != nil {
			if dir := strings.TrimSpace(*c.dataDirFlag); dir != "" {
				cfg.DataDir = dir
			}
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withContainer builds the application for one command and tears it down
// afterwards.
func (c *commandContext) withContainer(ctx context.Context, mode container.PlaybackMode, fn func(*container.Container) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	app, err := container.New(ctx, cfg, mode)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
