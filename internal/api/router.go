package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/erazemk/bloodbank/internal/bank"
	"github.com/erazemk/bloodbank/internal/metrics"
	"github.com/erazemk/bloodbank/internal/model"
)

// Options configures the optional parts of the router.
type Options struct {
	// AllowedOrigins lists the origins the browser UI is served from.
	AllowedOrigins []string
	// Metrics, when set, is exposed at GET /metrics.
	Metrics *metrics.Metrics
	// Now overrides the clock used for token issuing.
	Now func() time.Time
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, b *bank.Bank, opts Options) http.Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret, Now: opts.Now}
	usersHandler := &UsersHandler{DB: db}
	requestsHandler := &RequestsHandler{Bank: b}
	donationsHandler := &DonationsHandler{Bank: b}
	stockHandler := &StockHandler{Bank: b}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/blood-requests", requestsHandler.ListPublic)
	mux.HandleFunc("GET /api/blood-requests/{id}", requestsHandler.Get)
	mux.HandleFunc("GET /api/users/{id}/avatar", usersHandler.GetAvatar)

	// Authenticated.
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("GET /api/users/me", authed(usersHandler.Me))
	mux.Handle("PUT /api/users/me/avatar", authed(usersHandler.UploadAvatar))

	mux.Handle("POST /api/blood-requests", authed(requestsHandler.Create))
	mux.Handle("DELETE /api/blood-requests/{id}", authed(requestsHandler.Delete))
	mux.Handle("PUT /api/blood-requests/{id}/donate", authed(requestsHandler.Donate))

	mux.Handle("POST /api/donation-requests", authed(donationsHandler.Create))
	mux.Handle("POST /api/donation-requests/eligibility", authed(donationsHandler.Eligibility))
	mux.Handle("GET /api/donation-requests/mine", authed(donationsHandler.Mine))

	// Admin.
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	mux.Handle("PUT /api/blood-requests/{id}/approve", admin(requestsHandler.Approve))
	mux.Handle("PUT /api/blood-requests/{id}/reject", admin(requestsHandler.Reject))
	mux.Handle("PUT /api/blood-requests/{id}/donate-from-bank", admin(requestsHandler.DonateFromBank))
	mux.Handle("PUT /api/blood-requests/{id}/status", admin(requestsHandler.UpdateStatus))

	mux.Handle("GET /api/donation-requests", admin(donationsHandler.List))
	mux.Handle("PUT /api/donation-requests/{id}/approve", admin(donationsHandler.Approve))
	mux.Handle("PUT /api/donation-requests/{id}/reject", admin(donationsHandler.Reject))

	mux.Handle("POST /api/admin/blood-entry", admin(stockHandler.Entry))
	mux.Handle("POST /api/admin/blood-donate", admin(stockHandler.Dispense))
	mux.Handle("POST /api/admin/blood-exchange", admin(stockHandler.Exchange))
	mux.Handle("POST /api/admin/blood-disposal", admin(stockHandler.Dispose))
	mux.Handle("GET /api/admin/blood-stock", admin(stockHandler.Stock))
	mux.Handle("GET /api/admin/all-blood-stock", admin(stockHandler.AllStock))
	mux.Handle("GET /api/admin/transactions", admin(stockHandler.Transactions))
	mux.Handle("GET /api/admin/blood-requests", admin(requestsHandler.ListAll))

	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	var handler http.Handler = mux
	if len(opts.AllowedOrigins) > 0 {
		handler = cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		})(handler)
	}
	handler = LoggingMiddleware(handler)
	handler = middleware.Recoverer(handler)
	return middleware.RequestID(handler)
}
