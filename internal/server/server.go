package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/marketing-hub/internal/config"
	"github.com/jonathan/marketing-hub/internal/dedupe"
	"github.com/jonathan/marketing-hub/internal/mail"
	"github.com/jonathan/marketing-hub/internal/server/middleware"
	"github.com/jonathan/marketing-hub/internal/server/ratelimit"
	"github.com/jonathan/marketing-hub/internal/store"
	"github.com/jonathan/marketing-hub/internal/types"
)

// DefaultOTPCleanupInterval is how often expired login codes are purged.
const DefaultOTPCleanupInterval = 5 * time.Minute

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	store       store.Store
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	authService *AuthService
	authHandler *AuthHandler
	validator   *validator.Validate
	detector    *dedupe.Detector
	scans       *scanRegistry
	corsOrigin  string

	otpCleanupInterval time.Duration
}

// Config holds server configuration
type Config struct {
	Port        int
	CORSOrigin  string
	MailFrom    string
	AdminEmails []string
	JWT         *config.JWTConfig
	OTP         *config.OTPConfig
	// RateLimit defaults to ratelimit.LoadConfig() when nil.
	RateLimit          *ratelimit.Config
	OTPCleanupInterval time.Duration
}

// New creates a server over st. Login codes are delivered through mailer.
func New(cfg Config, st store.Store, mailer mail.Mailer) (*Server, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if cfg.JWT == nil {
		jwtConfig, err := config.NewJWTConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create JWT config: %w", err)
		}
		cfg.JWT = jwtConfig
	}
	if cfg.OTP == nil {
		otpConfig, err := config.NewOTPConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create OTP config: %w", err)
		}
		cfg.OTP = otpConfig
	}
	if cfg.RateLimit == nil {
		cfg.RateLimit = ratelimit.LoadConfig()
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	if cfg.OTPCleanupInterval <= 0 {
		cfg.OTPCleanupInterval = DefaultOTPCleanupInterval
	}

	s := &Server{
		store:              st,
		rateLimiter:        ratelimit.NewLimiter(cfg.RateLimit),
		jwtService:         NewJWTService(cfg.JWT),
		validator:          newValidator(),
		detector:           dedupe.NewDetector(),
		scans:              newScanRegistry(),
		corsOrigin:         cfg.CORSOrigin,
		otpCleanupInterval: cfg.OTPCleanupInterval,
	}
	s.authService = NewAuthService(st, mailer, cfg.OTP, cfg.MailFrom, cfg.AdminEmails)
	s.authHandler = NewAuthHandler(s.authService, s.jwtService)

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(s.routes())))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) routes() *http.ServeMux {
	requireAuth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	requireAdmin := middleware.RequireRole(types.RoleAdmin)

	mux := http.NewServeMux()
	private := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, requireAuth(h))
	}

	mux.HandleFunc("GET /health", s.handleHealth)

	// Auth
	mux.HandleFunc("POST /api/auth/send-otp", s.authHandler.SendOTP)
	mux.HandleFunc("POST /api/auth/verify-otp", s.authHandler.VerifyOTP)
	mux.HandleFunc("POST /api/auth/refresh", s.authHandler.Refresh)
	private("POST /api/auth/logout", s.authHandler.Logout)
	private("GET /api/auth/profile", s.authHandler.Profile)
	private("PUT /api/auth/profile", s.authHandler.UpdateProfile)
	private("GET /api/auth/verify-token", s.authHandler.VerifyToken)
	mux.Handle("GET /api/auth/users", requireAuth(requireAdmin(http.HandlerFunc(s.authHandler.ListUsers))))

	// Leads
	private("GET /api/leads", s.handleListLeads)
	private("POST /api/leads", s.handleCreateLead)
	private("GET /api/leads/stats", s.handleLeadStats)
	private("GET /api/leads/export", s.handleExportLeads)
	private("PUT /api/leads/bulk/update", s.handleBulkUpdateLeads)
	private("GET /api/leads/scores", s.handleLeadScores)
	private("POST /api/leads/rescore", s.handleRescoreLeads)
	private("GET /api/leads/segments", s.handleLeadSegments)
	private("GET /api/leads/{id}", s.handleGetLead)
	private("PUT /api/leads/{id}", s.handleUpdateLead)
	private("DELETE /api/leads/{id}", s.handleDeleteLead)

	// Duplicate detection
	private("POST /api/leads/duplicates/scan", s.handleScanDuplicates)
	private("GET /api/leads/duplicates", s.handleListDuplicates)
	private("POST /api/leads/duplicates/{group_id}/merge", s.handleMergeDuplicates)
	private("DELETE /api/leads/duplicates/{group_id}/leads/{lead_id}", s.handleRemoveDuplicate)

	// Campaigns and templates
	private("GET /api/campaigns", s.handleListCampaigns)
	private("POST /api/campaigns", s.handleCreateCampaign)
	private("GET /api/campaigns/templates", s.handleListTemplates)
	private("POST /api/campaigns/templates", s.handleCreateTemplate)
	private("POST /api/campaigns/templates/{id}/preview", s.handlePreviewTemplate)
	private("GET /api/campaigns/{id}", s.handleGetCampaign)
	private("PUT /api/campaigns/{id}", s.handleUpdateCampaign)
	private("DELETE /api/campaigns/{id}", s.handleDeleteCampaign)
	private("POST /api/campaigns/{id}/start", s.handleStartCampaign)
	private("POST /api/campaigns/{id}/pause", s.handlePauseCampaign)
	private("GET /api/campaigns/{id}/analytics", s.handleCampaignAnalytics)
	private("GET /api/campaigns/{id}/audience", s.handleCampaignAudience)

	private("GET /api/dashboard", s.handleDashboard)

	return mux
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.authService.RunCleanup(ctx, s.otpCleanupInterval)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		s.Close()
		return fmt.Errorf("server error: %w", err)
	}
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.Close()
	log.Println("Server stopped")
	return nil
}

// Close releases the rate limiter and the store.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	s.store.Close()
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, Retry-After, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset")
		if s.corsOrigin != "*" {
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[%s] %s %s -> %d in %v", r.Method, r.URL.Path, r.RemoteAddr, rec.status, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID identifies the client by the IP address in RemoteAddr.
// Forwarded headers are not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	retryAfter := int((info.RetryAfter + time.Second - 1) / time.Second)
	response := map[string]any{
		"error":       "Too many requests. Please try again later.",
		"limit":       info.Limit,
		"remaining":   info.Remaining,
		"retry_after": retryAfter,
	}
	if info.Limit > 0 {
		response["reset_at"] = info.ResetTime.UTC().Format(time.RFC3339)
	}
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}

	log.Printf("[rate-limit] %s %s from %s: limit=%d retry_after=%ds",
		r.Method, r.URL.Path, s.extractClientID(r), info.Limit, retryAfter)

	jsonResponse(w, http.StatusTooManyRequests, response)
}
