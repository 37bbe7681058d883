package main

import (
	"context"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	imageshandler "github.com/zenGate-Global/palmyra-gacha/domains/images/be/handler"
	playhandler "github.com/zenGate-Global/palmyra-gacha/domains/play/be/handler"
	tenantshandler "github.com/zenGate-Global/palmyra-gacha/domains/tenants/be/handler"
	usershandler "github.com/zenGate-Global/palmyra-gacha/domains/users/be/handler"
	platformauth "github.com/zenGate-Global/palmyra-gacha/platform/go/auth"
	platformlogging "github.com/zenGate-Global/palmyra-gacha/platform/go/logging"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/metrics"
	platformmiddleware "github.com/zenGate-Global/palmyra-gacha/platform/go/middleware"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/storage"
	tenantmiddleware "github.com/zenGate-Global/palmyra-gacha/platform/go/tenant/middleware"
)

// pinger reports whether the store is reachable.
type pinger interface {
	Ping(ctx context.Context) error
}

// routerDeps is everything newRouter mounts. Validator may be nil.
type routerDeps struct {
	Logger   *zap.Logger
	Sessions *platformauth.SessionCodec
	Store    pinger
	Assets   storage.Store
	Resolver tenantmiddleware.Resolver

	Users   *usershandler.Handler
	Tenants *tenantshandler.Handler
	Images  *imageshandler.Handler
	Play    *playhandler.Handler

	Registry  *prometheus.Registry
	Spec      *openapi3.T
	Validator func(http.Handler) http.Handler

	RequestTimeout time.Duration
	CORSOrigins    []string
	LoginRate      float64
	LoginBurst     int
	StaticDir      string
}

func newRouter(d routerDeps) http.Handler {
	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(d.RequestTimeout),
		platformmiddleware.CORS(d.CORSOrigins),
	)
	rootRouter.Use(platformlogging.RequestLogger(d.Logger))
	rootRouter.Use(metrics.NewHTTP(d.Registry).Middleware)
	rootRouter.Use(platformauth.Authenticate(d.Sessions))
	rootRouter.Use(platformmiddleware.RequestTrace)

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.Ping(r.Context()); err != nil {
			platformlogging.FromRequest(r, d.Logger).Warn("store not ready", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Method(http.MethodGet, "/metrics", metrics.Handler(d.Registry))

	registerDocsRoutes(rootRouter, d.Spec, d.Logger)
	registerPages(rootRouter, d.Resolver, d.Assets, d.StaticDir, d.Logger)

	loginLimiter := platformmiddleware.NewRateLimiter(d.LoginRate, d.LoginBurst)

	rootRouter.Route("/api", func(api chi.Router) {
		if d.Validator != nil {
			api.Use(d.Validator)
		}

		api.Route("/master", func(r chi.Router) {
			r.With(loginLimiter.Middleware).Post("/login", d.Users.MasterLogin)
			r.Post("/logout", d.Users.MasterLogout)

			r.Group(func(r chi.Router) {
				r.Use(platformauth.RequireMaster)
				r.Get("/tenants", d.Tenants.ListTenants)
				r.Post("/tenants", d.Tenants.CreateTenant)
				r.Post("/tenants/update", d.Tenants.UpdateTenant)
				r.Post("/tenants/broadcast", d.Tenants.Broadcast)
				r.Post("/tenants/poweredby", d.Tenants.PoweredBy)
				r.Delete("/tenants/{slug}", d.Tenants.DeleteTenant)
				r.Post("/users", d.Users.CreateUser)
				r.Post("/users/reset", d.Users.ResetPassword)
			})
		})

		api.Route("/{slug}", func(r chi.Router) {
			r.With(loginLimiter.Middleware).Post("/login", d.Users.TenantLogin)
			r.Post("/logout", d.Users.TenantLogout)

			r.Group(func(r chi.Router) {
				r.Use(tenantmiddleware.WithTenantSpace(d.Resolver, tenantmiddleware.Config{}))
				r.Get("/meta", d.Play.Meta)
				r.Get("/active-images", d.Play.ActiveImages)
				r.Post("/play/start", d.Play.Start)
				r.Post("/play/result", d.Play.Result)
			})

			r.Group(func(r chi.Router) {
				r.Use(platformauth.RequireTenant)
				r.Use(tenantmiddleware.WithTenantSpace(d.Resolver, tenantmiddleware.Config{}))
				r.Use(platformauth.RequireTenantSpace)
				r.Post("/change-password", d.Users.ChangePassword)
				r.Get("/images", d.Images.ListImages)
				r.Post("/images", d.Images.CreateImage)
				r.Delete("/images/{id}", d.Images.DeleteImage)
				r.Post("/backgrounds", d.Tenants.UploadBackgrounds)
				r.Post("/backgrounds/clear", d.Tenants.ClearBackgrounds)
				r.Post("/effect-settings", d.Tenants.UpdateEffectSettings)
			})
		})
	})

	return rootRouter
}
