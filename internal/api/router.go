package api

import (
	"encoding/json"
	"net/http"

	"github.com/fleema/fleetcore/internal/api/handlers"
	mw "github.com/fleema/fleetcore/internal/api/middleware"
	"github.com/fleema/fleetcore/internal/buildconfig"
	"github.com/fleema/fleetcore/internal/config"
	"github.com/fleema/fleetcore/internal/domain"
	"github.com/fleema/fleetcore/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router   *chi.Mux
	Expirer  *service.TokenExpirer
	Registry *prometheus.Registry
}

func NewApp(b Backend, logger *zap.Logger) *App {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Services
	authMetrics := service.NewAuthMetrics(reg)
	creds := service.NewCredentialService(b.Tokens, b.Users, config.AuthTokenTTL(), logger)
	creds.SetMetrics(authMetrics)
	authSvc := service.NewAuthService(b.Tx, b.Users, b.Tenants, creds, authMetrics, logger)
	tenantSvc := service.NewTenantService(b.Tenants, logger)
	vehicleSvc := service.NewVehicleService(b.Vehicles, logger)

	expirer := service.NewTokenExpirer(creds, logger)
	expirer.SetInterval(config.TokenSweepInterval())

	// Handlers
	cookie := handlers.CookieConfig{
		Name:   config.AuthCookieName(),
		MaxAge: config.AuthCookieMaxAge(),
		Secure: config.AuthCookieSecure(),
	}
	authHandler := handlers.NewAuthHandler(authSvc, cookie, logger)
	tenantHandler := handlers.NewTenantHandler(tenantSvc, logger)
	vehicleHandler := handlers.NewVehicleHandler(vehicleSvc, logger)

	r := chi.NewRouter()
	app := &App{Router: r, Expirer: expirer, Registry: reg}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.NewHTTPMetrics(reg).Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(b))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	authed := mw.TokenAuth(creds, cookie.Name)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(authed)
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)
				r.Put("/me", authHandler.UpdateMe)
				r.Patch("/me", authHandler.UpdateMe)
				r.Post("/change-password", authHandler.ChangePassword)
			})
		})

		r.Route("/tenant", func(r chi.Router) {
			r.Use(authed)
			r.Use(mw.RequireCapability(domain.CapTenantMember))
			r.Get("/", tenantHandler.Get)
			r.With(mw.RequireCapability(domain.CapTenantAdmin)).Patch("/", tenantHandler.Update)
		})

		// Role and tenant checks live in the vehicle service.
		r.Route("/vehicles", func(r chi.Router) {
			r.Use(authed)
			r.Get("/", vehicleHandler.List)
			r.Post("/", vehicleHandler.Create)
			r.Get("/count", vehicleHandler.Count)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", vehicleHandler.GetByID)
				r.Put("/", vehicleHandler.Update)
				r.Delete("/", vehicleHandler.Delete)
				r.Post("/restore", vehicleHandler.Restore)
				r.Delete("/purge", vehicleHandler.Purge)
			})
		})
	})

	return app
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	buildconfig.Info
}

func healthHandler(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Info: buildconfig.Current()}
		status := http.StatusOK
		if err := b.Ping(r.Context()); err != nil {
			resp.Status = "error"
			resp.Error = err.Error()
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
