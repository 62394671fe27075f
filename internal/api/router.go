package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/najdeno/internal/mailer"
	"github.com/erazemk/najdeno/internal/model"
)

// Config carries the router's dependencies and tunables.
type Config struct {
	DB            *sql.DB
	JWTSecret     string
	Mailer        mailer.Sender
	DefaultLocker int
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(cfg Config) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: cfg.DB, JWTSecret: cfg.JWTSecret, Mailer: cfg.Mailer}
	itemsHandler := &ItemsHandler{DB: cfg.DB, DefaultLocker: cfg.DefaultLocker}
	claimsHandler := &ClaimsHandler{DB: cfg.DB}
	kioskHandler := &KioskHandler{DB: cfg.DB}
	lookupsHandler := &LookupsHandler{DB: cfg.DB}
	membersHandler := &MembersHandler{DB: cfg.DB}

	authMW := AuthMiddleware(cfg.JWTSecret, cfg.DB)
	requireAdmin := RequireRole(model.RoleAdmin)

	// Public: accounts and browsing found items.
	mux.HandleFunc("POST /api/auth/send-code", authHandler.SendCode)
	mux.HandleFunc("POST /api/auth/verify-code", authHandler.VerifyCode)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.HandleFunc("GET /api/items/{id}/image", itemsHandler.GetImage)
	mux.HandleFunc("GET /api/categories", lookupsHandler.ListCategories)
	mux.HandleFunc("GET /api/places", lookupsHandler.ListPlaces)

	// Authenticated: registration at the kiosk, claims and pickup.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("POST /api/claims", authMW(http.HandlerFunc(claimsHandler.Create)))
	mux.Handle("GET /api/kiosk/items", authMW(http.HandlerFunc(kioskHandler.ListMine)))
	mux.Handle("POST /api/kiosk/collect", authMW(http.HandlerFunc(kioskHandler.Collect)))

	// Admin: adjudication and bookkeeping.
	mux.Handle("GET /api/admin/claims", authMW(requireAdmin(http.HandlerFunc(claimsHandler.ListPending))))
	mux.Handle("POST /api/admin/claims/{id}/decide", authMW(requireAdmin(http.HandlerFunc(claimsHandler.Decide))))
	mux.Handle("GET /api/admin/claims/{id}/proof", authMW(requireAdmin(http.HandlerFunc(claimsHandler.GetProof))))
	mux.Handle("GET /api/admin/members", authMW(requireAdmin(http.HandlerFunc(membersHandler.List))))
	mux.Handle("GET /api/admin/members/{id}", authMW(requireAdmin(http.HandlerFunc(membersHandler.Get))))
	mux.Handle("DELETE /api/admin/members/{id}", authMW(requireAdmin(http.HandlerFunc(membersHandler.Delete))))
	mux.Handle("POST /api/categories", authMW(requireAdmin(http.HandlerFunc(lookupsHandler.CreateCategory))))
	mux.Handle("POST /api/places", authMW(requireAdmin(http.HandlerFunc(lookupsHandler.CreatePlace))))

	return mux
}
