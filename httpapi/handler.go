package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
	"github.com/rs/cors"
)

// Handler serves the session routes on top of an Engine.
type Handler struct {
	engine *authcore.Engine
	log    *slog.Logger
	opts   Options
}

// NewHandler returns a Handler. A nil log falls back to slog.Default().
func NewHandler(engine *authcore.Engine, log *slog.Logger, opts Options) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		engine: engine,
		log:    log,
		opts:   opts.withDefaults(),
	}
}

// Register wires the routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /users/login", h.handleLogin)
	mux.HandleFunc("POST /users/refresh", h.handleRefresh)
	mux.HandleFunc("POST /users/logout", h.handleLogout)
	mux.HandleFunc("POST /users/password", h.handleChangePassword)
	mux.Handle("GET /users/me", middleware.GuardWith(h.engine, h.guardError, authcore.TokenAccess)(http.HandlerFunc(h.handleMe)))
	mux.HandleFunc("GET /healthz", h.handleHealth)
	if h.opts.Metrics != nil {
		mux.Handle("GET /metrics", h.opts.Metrics)
	}
}

// Routes returns the full handler chain: CORS, request logging, client IP.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)

	var handler http.Handler = withClientIP(mux, h.opts.TrustProxy)
	if len(h.opts.AllowedOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   h.opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler(handler)
	}
	return WithRequestLogging(handler, h.log)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.opts.MaxBodyBytes, &req); err != nil || !req.valid() {
		writeError(w, errInvalidInput)
		return
	}

	res, err := h.engine.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		h.fail(w, "auth.login.fail", err)
		return
	}

	if res.PasswordChangeRequired {
		writeJSON(w, http.StatusOK, passwordChangeRequiredResponse{
			Message: "Password change required",
			Token:   res.AccessToken,
		})
		return
	}

	h.setRefreshCookie(w, res.RefreshToken)
	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken: res.AccessToken,
		Login:       res.Login,
		Role:        res.Role,
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	raw := h.refreshFromCookie(r)
	if raw == "" {
		writeError(w, errNoRefreshToken)
		return
	}

	res, err := h.engine.Refresh(r.Context(), raw)
	if err != nil {
		if errors.Is(err, authcore.ErrInvalidRefreshToken) || errors.Is(err, authcore.ErrUserNotFound) {
			h.clearRefreshCookie(w)
		}
		h.fail(w, "auth.refresh.fail", err)
		return
	}

	h.setRefreshCookie(w, res.RefreshToken)
	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken: res.AccessToken,
		Login:       res.Login,
		Role:        res.Role,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.BearerToken(r)
	err := h.engine.Logout(r.Context(), token, h.refreshFromCookie(r))

	h.clearRefreshCookie(w)
	if err != nil {
		h.fail(w, "auth.logout.fail", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, h.opts.MaxBodyBytes, &req); err != nil || !req.valid() {
		writeError(w, errInvalidInput)
		return
	}

	token, ok := middleware.BearerToken(r)
	if !ok {
		writeError(w, errNoToken)
		return
	}

	err := h.engine.ChangePassword(r.Context(), token, req.OldPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		h.fail(w, "auth.password.fail", err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Password changed successfully, please log in again",
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, authcore.ErrTokenInvalid)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		UserID:    res.UserID,
		TokenType: string(res.TokenType),
		ExpiresAt: res.ExpiresAt.UTC(),
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	latency, err := h.engine.Ping(r.Context())
	if err != nil {
		h.log.Warn("healthz.redis.not_ready", "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		RedisLatencyMS: latency.Milliseconds(),
	})
}

func (h *Handler) guardError(w http.ResponseWriter, _ *http.Request, err error) {
	h.fail(w, "auth.guard.fail", err)
}

// fail writes err and logs it when it maps to a server-side status.
func (h *Handler) fail(w http.ResponseWriter, event string, err error) {
	if status, _ := StatusFor(err); status >= http.StatusInternalServerError {
		h.log.Error(event, "err", err)
	}
	writeError(w, err)
}
