// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/wallet-finder/internal/logging"
	"github.com/wallet-finder/internal/models"
	"github.com/wallet-finder/internal/scanner"
	"github.com/wallet-finder/internal/types"
)

// Store interfaces for dependency injection and testing

// UserStore defines user persistence operations
type UserStore interface {
	Upsert(ctx context.Context, id int64, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	SetBanned(ctx context.Context, id int64, banned bool) error
	SetPlan(ctx context.Context, id int64, plan types.Plan) error
	PurchasePlan(ctx context.Context, id int64, plan types.Plan, cost int64) (int64, error)
}

// KeyStore defines plan-key persistence operations
type KeyStore interface {
	Create(ctx context.Context, token string, plan types.Plan, expiresAt time.Time) (*models.Key, error)
	Delete(ctx context.Context, token string) error
	ListWithUsers(ctx context.Context) ([]*models.KeyWithUser, error)
	Redeem(ctx context.Context, token string, userID int64) (types.Plan, error)
	CreateAndBan(ctx context.Context, token string, plan types.Plan, expiresAt time.Time, userID int64) (*models.Key, error)
	DeleteAndBan(ctx context.Context, token string, userID int64) error
}

// RedeemKeyStore defines redeem-code persistence operations
type RedeemKeyStore interface {
	Create(ctx context.Context, token string, coins int64) (*models.RedeemKey, error)
	Redeem(ctx context.Context, token string, userID int64) (int64, error)
}

// HistoryStore defines scan history reads
type HistoryStore interface {
	ListByUser(ctx context.Context, userID int64, limit int) ([]*models.ScanRecord, error)
}

// ScannerController drives per-user scan loops
type ScannerController interface {
	Start(cfg scanner.Config) error
	Stop(userID int64)
	Status(userID int64) scanner.Snapshot
}

// Cache is the read side of the Redis layer: the joined key listing and the
// last applied scan result per user. Optional.
type Cache interface {
	GetKeyList(ctx context.Context) ([]*models.KeyWithUser, error)
	SetKeyList(ctx context.Context, list []*models.KeyWithUser) error
	InvalidateKeyList(ctx context.Context) error
	GetLastResult(ctx context.Context, userID int64) (*types.WalletResult, error)
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AdminToken      string
	MaxScanSpeed    int
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	users      UserStore
	keys       KeyStore
	redeemKeys RedeemKeyStore
	history    HistoryStore
	scanners   ScannerController
	cache      Cache
	config     *ServerConfig
	logger     *logging.Logger
}

// NewServer creates a new API server instance. cache may be nil.
func NewServer(
	config *ServerConfig,
	users UserStore,
	keys KeyStore,
	redeemKeys RedeemKeyStore,
	history HistoryStore,
	scanners ScannerController,
	cache Cache,
) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		users:      users,
		keys:       keys,
		redeemKeys: redeemKeys,
		history:    history,
		scanners:   scanners,
		cache:      cache,
		config:     config,
		logger:     logging.GetGlobalLogger(),
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Middleware order matters: log first, recover inside, CORS last
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)

	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()

	// Public endpoints
	api.HandleFunc("/users/me", s.handleUpsertUser).Methods(http.MethodPost)
	api.HandleFunc("/plans", s.handleListPlans).Methods(http.MethodGet)
	api.HandleFunc("/plans/purchase", s.handlePurchasePlan).Methods(http.MethodPost)
	api.HandleFunc("/redeem", s.handleRedeem).Methods(http.MethodPost)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/scanner/start", s.handleScannerStart).Methods(http.MethodPost)
	api.HandleFunc("/scanner/stop", s.handleScannerStop).Methods(http.MethodPost)
	api.HandleFunc("/scanner/status", s.handleScannerStatus).Methods(http.MethodGet)

	// Admin endpoints, guarded by the pre-shared bearer token
	admin := api.NewRoute().Subrouter()
	admin.Use(AdminAuthMiddleware(s.config.AdminToken))
	admin.HandleFunc("/admin", s.handleAdminAction).Methods(http.MethodPost)
	admin.HandleFunc("/admin/create-key-and-ban", s.handleCreateKeyAndBan).Methods(http.MethodPost)
	admin.HandleFunc("/admin/remove-key-and-ban", s.handleRemoveKeyAndBan).Methods(http.MethodPost)
	admin.HandleFunc("/keys", s.handleListKeys).Methods(http.MethodGet)
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "wallet-finder",
	})
}

// handleMethodNotAllowed answers 405 with an Allow header listing the
// methods registered for the path.
func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	var allowed []string
	_ = s.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tpl, err := route.GetPathTemplate()
		if err != nil || tpl != r.URL.Path {
			return nil
		}
		if methods, err := route.GetMethods(); err == nil {
			allowed = append(allowed, methods...)
		}
		return nil
	})

	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	respondMessage(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
}

// Router exposes the router for tests
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
