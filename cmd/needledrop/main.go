package main

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"needledrop/internal/logging"
	"needledrop/internal/store"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	logging.Setup(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	db, err := openDatabase(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer db.Close()

	dataStore := store.New(db)
	handler := newHTTPHandler(cfg, dataStore)

	log.Info().Str("addr", cfg.Addr).Msg("starting server")
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
