package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rafbgarcia/ssrshim"
	"github.com/rafbgarcia/ssrshim/internal/config"
)

var rootCmd = &cobra.Command{
	Use:          "ssrshim",
	Short:        "Server-side rendering shim for a single page application",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the built application with server-side rendering",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg, log)
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the client and server bundles for production",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runBuild(cfg)
	},
}

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Start the development server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runDev(cmd.Context(), cfg, log)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ssrshim.yaml in the project root)")
	rootCmd.PersistentFlags().String("root", ".", "project root")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")

	for _, c := range []*cobra.Command{serveCmd, devCmd} {
		c.Flags().String("port", "3000", "HTTP server port")
		c.Flags().String("shell", "", "HTML shell to serve (default: the built index.html)")
		c.Flags().String("mount-id", "app", "id of the element server-rendered markup is placed in")
		c.Flags().Bool("styled", true, "splice rendered markup and collected styles into the shell")
		c.Flags().StringSlice("page", []string{"index"}, "page to serve, repeatable (e.g. users.$id)")
	}

	rootCmd.AddCommand(serveCmd, buildCmd, devCmd)
}

// loadConfig merges flags, environment and the config file, and creates the
// logger at the configured level.
func loadConfig(cmd *cobra.Command) (*config.Config, *ssrshim.Logger, error) {
	flags := cmd.Flags()
	file, _ := flags.GetString("config")
	cfg, err := config.Load(flags, file)
	if err != nil {
		return nil, nil, err
	}
	log := ssrshim.NewLoggerTo(os.Stdout, ssrshim.ParseLevel(cfg.LogLevel))
	return cfg, log, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
