package main

import (
	"errors"
	"net/http"
	"time"

	"canvass/app"
	"canvass/config"
	"canvass/log"
	"canvass/routes"
	"canvass/session"
	"canvass/store"
	"canvass/survey"
)

func main() {
	cfg := config.ParseFlags()
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		// storage unavailable is fatal: nothing works without it
		log.Fatal("main.store.open:", err)
	}
	defer st.Close()

	repo := survey.NewRepository(st)

	app := app.App{
		Repo:     repo,
		Sessions: session.NewManager(repo),
		Config:   cfg,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
