//go:build js && wasm

// Command floeweb is the dashboard client. It is compiled to WebAssembly and
// loaded by the page the development server hands out.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/floeit/floedash/app"
	"github.com/floeit/floedash/config"
	"github.com/floeit/floedash/dom"
)

func main() {
	doc := dom.NewBrowser()

	cfg := config.DefaultClient()
	if raw, ok := doc.ScriptJSON(config.ClientScriptID); ok {
		c, err := config.ParseClient(raw)
		if err != nil {
			slog.Error("bad client configuration, using defaults", "err", err)
		} else {
			cfg = c
		}
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	a, err := app.New(doc, app.Options{Client: cfg, Logger: log})
	if err != nil {
		log.Error("cannot start the dashboard", "err", err)
		return
	}
	if err := a.Run(context.Background()); err != nil {
		log.Error("dashboard stopped", "err", err)
	}
}
