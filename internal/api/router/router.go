package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/careops/platform/internal/assist"
	"github.com/careops/platform/internal/auth"
	"github.com/careops/platform/internal/automation"
	"github.com/careops/platform/internal/catalog"
	"github.com/careops/platform/internal/contacts"
	"github.com/careops/platform/internal/exports"
	"github.com/careops/platform/internal/forms"
	httpmiddleware "github.com/careops/platform/internal/http/middleware"
	"github.com/careops/platform/internal/inbox"
	"github.com/careops/platform/internal/inventory"
	"github.com/careops/platform/internal/onboarding"
	"github.com/careops/platform/internal/reporting"
	"github.com/careops/platform/internal/scheduling"
	"github.com/careops/platform/internal/workspace"
	"github.com/careops/platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger *logging.Logger

	// Auth. TokenIssuer gates every authed route; Workspaces resolves
	// public booking-page slugs to a workspace.
	TokenIssuer *auth.TokenIssuer
	Workspaces  workspace.Repository

	AuthHandler       *auth.Handler
	WorkspaceHandler  *workspace.Handler
	ContactsHandler   *contacts.Handler
	CatalogHandler    *catalog.Handler
	SchedulingHandler *scheduling.Handler
	InboxHandler      *inbox.Handler
	InboxStream       *inbox.Stream
	FormsHandler      *forms.Handler
	InventoryHandler  *inventory.Handler
	AutomationHandler *automation.Handler
	AssistHandler     *assist.Handler
	DashboardHandler  *reporting.DashboardHandler
	ExportsHandler    *exports.Handler
	OnboardingHandler *onboarding.Handler

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Public endpoints are rate limited per client IP. Zero values fall
	// back to 1 req/s with a burst of 10.
	PublicRateLimit float64
	PublicRateBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	publicRate := cfg.PublicRateLimit
	if publicRate <= 0 {
		publicRate = 1
	}
	publicBurst := cfg.PublicRateBurst
	if publicBurst <= 0 {
		publicBurst = 10
	}

	// Public endpoints (health, metrics, auth, booking pages)
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.AuthHandler != nil {
			public.Route("/auth", func(r chi.Router) {
				r.Use(httpmiddleware.RateLimit(publicRate, publicBurst))
				r.Post("/register", cfg.AuthHandler.Register)
				r.Post("/login", cfg.AuthHandler.Login)
			})
		}

		// Slug-scoped booking pages: the slug middleware resolves the
		// workspace before any handler runs, so public handlers read
		// tenancy from context exactly like authed ones.
		public.Route("/public/workspaces/{slug}", func(r chi.Router) {
			r.Use(httpmiddleware.ResolveWorkspaceSlug(cfg.Workspaces, cfg.Logger))
			r.Use(httpmiddleware.RateLimit(publicRate, publicBurst))

			if cfg.WorkspaceHandler != nil {
				r.Get("/", cfg.WorkspaceHandler.PublicProfile)
			}
			if cfg.CatalogHandler != nil {
				r.Get("/services", cfg.CatalogHandler.ListServices)
			}
			if cfg.SchedulingHandler != nil {
				r.Get("/services/{serviceID}/slots", cfg.SchedulingHandler.Slots)
				r.Post("/bookings", cfg.SchedulingHandler.CreatePublic)
			}
			if cfg.ContactsHandler != nil {
				r.Post("/contact", cfg.ContactsHandler.CreatePublic)
			}
			if cfg.FormsHandler != nil {
				r.Get("/forms/{formID}", cfg.FormsHandler.GetTemplate)
				r.Post("/forms/{formID}", cfg.FormsHandler.Submit)
			}
		})
	})

	// Workspace-scoped API routes (Bearer JWT)
	if cfg.TokenIssuer != nil {
		r.Group(func(api chi.Router) {
			api.Use(httpmiddleware.Authenticate(cfg.TokenIssuer))

			if cfg.WorkspaceHandler != nil {
				api.Route("/workspace", func(r chi.Router) {
					r.Get("/", cfg.WorkspaceHandler.Get)
					r.Put("/email-config", cfg.WorkspaceHandler.UpdateEmailConfig)
					r.Put("/sms-config", cfg.WorkspaceHandler.UpdateSMSConfig)
				})
			}

			if cfg.AuthHandler != nil {
				api.Route("/staff", func(r chi.Router) {
					r.Get("/", cfg.AuthHandler.ListStaff)
					r.With(httpmiddleware.RequireOwner).Post("/", cfg.AuthHandler.CreateStaff)
				})
			}

			if cfg.ContactsHandler != nil {
				api.Route("/contacts", func(r chi.Router) {
					r.Post("/", cfg.ContactsHandler.Create)
					r.Get("/", cfg.ContactsHandler.List)
					r.Get("/{contactID}", cfg.ContactsHandler.Get)
				})
			}

			if cfg.CatalogHandler != nil {
				api.Route("/services", func(r chi.Router) {
					r.Post("/", cfg.CatalogHandler.CreateService)
					r.Get("/", cfg.CatalogHandler.ListServices)
					r.Get("/{serviceID}", cfg.CatalogHandler.GetService)
					r.With(httpmiddleware.RequireOwner).Delete("/{serviceID}", cfg.CatalogHandler.DeleteService)
					r.Put("/{serviceID}/availability", cfg.CatalogHandler.UpsertAvailability)
					r.Get("/{serviceID}/availability", cfg.CatalogHandler.ListAvailability)
					r.Put("/{serviceID}/staff", cfg.CatalogHandler.SetQualifiedStaff)
				})
				api.Route("/resources", func(r chi.Router) {
					r.Post("/", cfg.CatalogHandler.CreateResource)
					r.Get("/", cfg.CatalogHandler.ListResources)
					r.With(httpmiddleware.RequireOwner).Delete("/{resourceID}", cfg.CatalogHandler.DeleteResource)
				})
			}

			if cfg.SchedulingHandler != nil {
				api.Route("/bookings", func(r chi.Router) {
					r.Post("/", cfg.SchedulingHandler.Create)
					r.Get("/", cfg.SchedulingHandler.List)
					r.Get("/{bookingID}", cfg.SchedulingHandler.Get)
					r.Patch("/{bookingID}/status", cfg.SchedulingHandler.UpdateStatus)
				})
			}

			if cfg.InboxHandler != nil {
				api.Route("/inbox", func(r chi.Router) {
					r.Get("/", cfg.InboxHandler.List)
					r.Get("/{conversationID}/messages", cfg.InboxHandler.Messages)
					r.Post("/{conversationID}/messages", cfg.InboxHandler.Reply)
					r.Post("/{conversationID}/read", cfg.InboxHandler.MarkRead)
					if cfg.InboxStream != nil {
						r.Get("/ws", cfg.InboxStream.ServeHTTP)
					}
				})
			}

			if cfg.FormsHandler != nil {
				api.Route("/forms", func(r chi.Router) {
					r.Post("/", cfg.FormsHandler.CreateTemplate)
					r.Get("/", cfg.FormsHandler.ListTemplates)
					r.Get("/{formID}", cfg.FormsHandler.GetTemplate)
					r.Get("/{formID}/submissions", cfg.FormsHandler.ListSubmissions)
				})
			}

			if cfg.InventoryHandler != nil {
				api.Route("/inventory", func(r chi.Router) {
					r.Post("/", cfg.InventoryHandler.Create)
					r.Get("/", cfg.InventoryHandler.List)
					r.Get("/{itemID}", cfg.InventoryHandler.Get)
					r.Post("/{itemID}/adjust", cfg.InventoryHandler.Adjust)
					r.With(httpmiddleware.RequireOwner).Delete("/{itemID}", cfg.InventoryHandler.Delete)
				})
			}

			if cfg.AutomationHandler != nil {
				api.Get("/automation/logs", cfg.AutomationHandler.ListLogs)
			}

			if cfg.AssistHandler != nil {
				api.Route("/assist", func(r chi.Router) {
					r.Post("/reply", cfg.AssistHandler.SmartReply)
					r.Post("/insights", cfg.AssistHandler.Insights)
					r.Post("/forms", cfg.AssistHandler.GenerateForm)
					r.Post("/chat", cfg.AssistHandler.Chat)
					r.Get("/jobs/{jobID}", cfg.AssistHandler.GetJob)
				})
			}

			if cfg.DashboardHandler != nil {
				api.Get("/reports/dashboard", cfg.DashboardHandler.GetDashboard)
			}
			if cfg.ExportsHandler != nil {
				api.With(httpmiddleware.RequireOwner).Post("/exports", cfg.ExportsHandler.Trigger)
			}
			if cfg.OnboardingHandler != nil {
				api.Post("/onboarding/prefill", cfg.OnboardingHandler.Prefill)
			}
		})
	}

	return r
}
