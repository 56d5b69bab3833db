// Package app provides application-level wiring for the conversion server.
package app

import (
	"log/slog"
	"net/http"

	"mdx2dax/internal/api"
	"mdx2dax/internal/config"
)

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// App is the assembled application.
type App struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Handler http.Handler
}

// New wires the API handler from its dependencies.
func New(deps Deps) *App {
	handler := api.NewHandler(deps.Cfg, deps.Logger)
	return &App{
		Cfg:     deps.Cfg,
		Logger:  deps.Logger,
		Handler: handler.Router(),
	}
}
