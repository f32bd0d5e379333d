// Package httpapi maps HTTP requests onto the user and entry services.
// Handlers only decode input, call one service method and encode the
// result.
package httpapi

import (
	"context"
	"net/http"
	"net/netip"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/weightlog/weightlog/internal/logging"
	"github.com/weightlog/weightlog/internal/server/config"
	"github.com/weightlog/weightlog/internal/server/models"
)

// Users is the part of services.UserService the API needs.
type Users interface {
	Add(ctx context.Context, username string, metric bool, goalWeight float64, password string) (*models.User, error)
	Update(ctx context.Context, authenticatedID int64, update models.UserDTO) (*models.User, error)
	ChangeOwnPassword(ctx context.Context, user *models.User, currentPassword, newPassword string) error
	Login(ctx context.Context, username, password string) (*models.Token, error)
	UserFromToken(ctx context.Context, token string) (*models.User, error)
}

// Entries is the part of services.EntryService the API needs.
type Entries interface {
	Add(ctx context.Context, user *models.User, dto models.EntryDTO) (int64, error)
	Update(ctx context.Context, user *models.User, dto models.EntryDTO) error
	Delete(ctx context.Context, user *models.User, date models.Date) error
	DeleteAll(ctx context.Context, user *models.User) (int64, error)
	List(ctx context.Context, user *models.User) ([]models.EntryDTO, error)
	ExportCSV(ctx context.Context, user *models.User) (string, error)
	ImportCSV(ctx context.Context, user *models.User, data []byte) error
	Graph(ctx context.Context, user *models.User) ([]byte, error)
}

// Server holds the dependencies shared by every handler.
type Server struct {
	users    Users
	entries  Entries
	logger   logging.Logger
	validate *validator.Validate
	metrics  *Metrics
	registry *prometheus.Registry
	proxies  []netip.Prefix
	cfg      *config.Config
}

func NewServer(cfg *config.Config, users Users, entries Entries, l logging.Logger) *Server {
	reg := prometheus.NewRegistry()
	logger := l.With("module", "http")

	proxies, invalid := ParseProxies(cfg.TrustedProxies)
	if len(invalid) > 0 {
		logger.Warn(context.Background(), "ignoring invalid trusted proxies", "entries", invalid)
	}

	return &Server{
		users:    users,
		entries:  entries,
		logger:   logger,
		validate: validator.New(),
		metrics:  NewMetrics(reg),
		registry: reg,
		proxies:  proxies,
		cfg:      cfg,
	}
}

// Handler builds the router with every route and middleware installed.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.metrics.Middleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	limiter := NewRateLimiter(rate.Limit(s.cfg.LoginRateLimit), s.cfg.LoginRateBurst, s.proxies, s.logger)
	r.Handle("/token", limiter.Handler(http.HandlerFunc(s.handleLogin))).Methods(http.MethodPost)
	r.HandleFunc("/user/", s.handleAddUser).Methods(http.MethodPost)

	authed := r.NewRoute().Subrouter()
	authed.Use(s.authenticate)

	authed.HandleFunc("/user/", s.handleGetUser).Methods(http.MethodGet)
	authed.HandleFunc("/user/", s.handleUpdateUser).Methods(http.MethodPut)
	authed.HandleFunc("/password/", s.handleChangePassword).Methods(http.MethodPut)

	authed.HandleFunc("/entry/", s.handleAddEntry).Methods(http.MethodPost)
	authed.HandleFunc("/entry/", s.handleUpdateEntry).Methods(http.MethodPut)
	authed.HandleFunc("/entry/{date}", s.handleDeleteEntry).Methods(http.MethodDelete)
	authed.HandleFunc("/entries/", s.handleDeleteAllEntries).Methods(http.MethodDelete)
	authed.HandleFunc("/entries/", s.handleListEntries).Methods(http.MethodGet)
	authed.HandleFunc("/entries/csv", s.handleExportCSV).Methods(http.MethodGet)
	authed.HandleFunc("/entries/csv", s.handleImportCSV).Methods(http.MethodPost)
	authed.HandleFunc("/entries/graph", s.handleGraph).Methods(http.MethodGet)

	var h http.Handler = r
	h = NewCORS(s.cfg.CORSOrigins).Handler(h)
	h = s.logRequests(h)
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
