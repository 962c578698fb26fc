package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/floeit/floedash/internal/devserver"
)

var noReload bool

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve starts the development server.",
	Long: `
		Serve starts the development server. It hands out the dashboard shell,
		the static files and proxies the floe API and its event stream to the
		backend. Unless --no-reload is given, browsers reload whenever the
		static directory changes.
	`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("listen") {
			cfg.Server.Listen, _ = flags.GetString("listen")
		}
		if flags.Changed("backend") {
			cfg.Server.Backend, _ = flags.GetString("backend")
		}
		if flags.Changed("static") {
			cfg.Server.StaticDir, _ = flags.GetString("static")
		}
		if noReload {
			cfg.Server.Watch = false
		}

		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		srv, err := devserver.New(cfg, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log.Info("serving", "listen", cfg.Server.Listen, "backend", cfg.Server.Backend, "app", cfg.Client.BasePath)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "", "address to listen on")
	serveCmd.Flags().String("backend", "", "floe server to proxy to")
	serveCmd.Flags().String("static", "", "directory holding main.wasm and the assets")
	serveCmd.Flags().BoolVar(&noReload, "no-reload", false, "disable live reloading")
}
