package main

import (
	"net/http"

	"needledrop/internal/app/scrobbles"
	"needledrop/internal/history"
	"needledrop/internal/http/middleware"
	"needledrop/internal/httpapi"
	"needledrop/internal/lastfm"
	"needledrop/internal/store"
)

func newHTTPHandler(cfg Config, dataStore *store.Store) http.Handler {
	client := lastfm.NewClient(cfg.LastfmAPIKey)
	source := history.NewService(client, dataStore, cfg.RefreshTTL)
	scrobbleSvc := scrobbles.New(source)

	handler := httpapi.New(scrobbleSvc).Routes()
	handler = middleware.CORS(cfg.AllowedOrigins)(handler)
	handler = middleware.RequestLogging()(handler)
	handler = middleware.Recovery()(handler)
	return handler
}
