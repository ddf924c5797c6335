package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"dj-backend/internal/app"
	"dj-backend/internal/config"

	"github.com/spf13/cobra"
)

var (
	configPath string
	socketPath string

	dj *app.App
)

var rootCmd = &cobra.Command{
	Use:          "dj-backend",
	Short:        "A DJ that plays songs word by word",
	Long:         `Build an index of where words are sung in a song catalog, then play those moments through an MPRIS player.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := config.Load(configPath)
		if socketPath != "" {
			cfg.App.SocketPath = socketPath
		}
		dj = app.New(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/dj/config.toml)")
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "unix socket of the dj server")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if dj != nil {
		dj.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}
