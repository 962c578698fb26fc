package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/floeit/floedash/app"
	"github.com/floeit/floedash/config"
	"github.com/floeit/floedash/dom"
	"github.com/floeit/floedash/pages"
)

var (
	renderBackend string
	renderCookie  string
	renderWait    time.Duration
)

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render <path>",
	Short: "render prints a dashboard page.",
	Long: `
		Render runs the dashboard headlessly against a floe backend and prints
		the document once every request has been answered. The path is relative
		to the dashboard base path, e.g. /dash or /flows/build-project.
		Live updates are not followed.
	`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if renderBackend != "" {
			cfg.Server.Backend = renderBackend
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), renderWait)
		defer cancel()
		return Render(ctx, cmd.OutOrStdout(), RenderOptions{
			Backend: cfg.Server.Backend,
			Path:    args[0],
			Cookie:  renderCookie,
			Client:  cfg.Client,
			Logger:  log,
		})
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVar(&renderBackend, "backend", "", "floe server to render against")
	renderCmd.Flags().StringVar(&renderCookie, "cookie", "", "session cookie value")
	renderCmd.Flags().DurationVar(&renderWait, "wait", 10*time.Second, "how long to wait for the page to settle")
}

// RenderOptions configures Render.
type RenderOptions struct {
	Backend string
	Path    string
	// Cookie is the session cookie value. Without one the login page renders.
	Cookie string
	Client config.ClientConfig
	Logger *slog.Logger
}

// Render draws the page at opts.Path on a headless document and writes it to w.
func Render(ctx context.Context, w io.Writer, opts RenderOptions) error {
	origin, err := url.Parse(opts.Backend)
	if err != nil {
		return fmt.Errorf("render: backend: %w", err)
	}
	path := opts.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	location := origin.JoinPath(opts.Client.BasePath, path)

	doc, err := dom.NewHeadless(location.String(), "<html><body>"+pages.Layout+"</body></html>")
	if err != nil {
		return err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	if opts.Cookie != "" {
		doc.SetCookie(opts.Client.SessionCookie, opts.Cookie)
		jar.SetCookies(origin, []*http.Cookie{{Name: opts.Client.SessionCookie, Value: opts.Cookie, Path: "/"}})
	}

	a, err := app.New(doc, app.Options{
		Client:     opts.Client,
		Origin:     origin,
		HTTPClient: &http.Client{Jar: jar},
		NoStream:   true,
		Logger:     opts.Logger,
	})
	if err != nil {
		return err
	}

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- a.Run(runCtx) }()

	settled := a.Settle(ctx)
	stop()
	<-done
	if settled != nil {
		return fmt.Errorf("render: page did not settle: %w", settled)
	}
	_, err = io.WriteString(w, doc.Pretty()+"\n")
	return err
}
