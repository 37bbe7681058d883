package main

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	platformlogging "github.com/zenGate-Global/palmyra-gacha/platform/go/logging"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/storage"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
	tenantmiddleware "github.com/zenGate-Global/palmyra-gacha/platform/go/tenant/middleware"
)

const (
	gamePage   = "game.html"
	adminPage  = "admin.html"
	masterPage = "master.html"
)

// registerPages mounts the HTML pages, the effect videos and the uploaded assets.
func registerPages(router chi.Router, resolver tenantmiddleware.Resolver, assets storage.Store, staticDir string, logger *zap.Logger) {
	router.Get("/g/{slug}", tenantPage(resolver, staticDir, gamePage))
	router.Get("/admin/{slug}", tenantPage(resolver, staticDir, adminPage))
	router.Get("/master", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(staticDir, masterPage))
	})
	router.Handle("/fx/*", http.StripPrefix("/fx/", http.FileServer(http.Dir(filepath.Join(staticDir, "fx")))))
	router.Get(storage.PublicPathPrefix+"*", uploadsHandler(assets, logger))
}

// tenantPage serves page only for existing tenants; anything else is a plain 404.
func tenantPage(resolver tenantmiddleware.Resolver, staticDir, page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		if !tenant.ValidSlug(slug) {
			http.NotFound(w, r)
			return
		}
		if _, err := resolver.ResolveTenantSpace(r.Context(), slug); err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(staticDir, page))
	}
}

func uploadsHandler(assets storage.Store, fallback *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, storage.PublicPathPrefix)
		if err := storage.ValidateKey(key); err != nil {
			http.NotFound(w, r)
			return
		}

		body, err := assets.Open(r.Context(), key)
		if err != nil {
			if !errors.Is(err, storage.ErrObjectNotFound) {
				platformlogging.FromRequest(r, fallback).Error("open asset", zap.String("key", key), zap.Error(err))
			}
			http.NotFound(w, r)
			return
		}
		defer body.Close()

		w.Header().Set("Content-Type", storage.ContentType(filepath.Ext(key)))
		w.Header().Set("Cache-Control", "public, max-age=3600")
		if _, err := io.Copy(w, body); err != nil {
			platformlogging.FromRequest(r, fallback).Warn("stream asset", zap.String("key", key), zap.Error(err))
		}
	}
}
