package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	customerrors "github.com/akashipov/userdirectory/internal/errors"
	"github.com/akashipov/userdirectory/internal/pkg/middleware/compress"
	"github.com/akashipov/userdirectory/internal/pkg/middleware/logger"
	"github.com/akashipov/userdirectory/internal/service"
	"github.com/akashipov/userdirectory/internal/storage"
	"github.com/akashipov/userdirectory/internal/storage/user"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const pingTimeout = 2 * time.Second

type UserHandler struct {
	Svc *service.UserService
	Log *zap.SugaredLogger
}

func ServerRouter(svc *service.UserService, log *zap.SugaredLogger) http.Handler {
	h := &UserHandler{Svc: svc, Log: log}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return logger.WithLogging(next, log)
	})
	r.Use(middleware.Recoverer)
	r.Get("/health", h.Health)
	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Get("/{id}", h.GetUser)
		r.Put("/{id}", h.UpdateUser)
		r.Delete("/{id}", h.DeleteUser)
	})
	return compress.GzipHandle(r, log)
}

type messageResponse struct {
	Message string     `json:"message"`
	User    *user.User `json:"user,omitempty"`
}

func (h *UserHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log.Errorf("Problem with writing response: %s", err.Error())
	}
}

func (h *UserHandler) reportError(w http.ResponseWriter, err error, action string) {
	cErr := customerrors.FromError(err, action)
	if cErr.Status >= http.StatusInternalServerError {
		h.Log.Errorf("Error %s user: %s", action, err.Error())
	}
	if err := cErr.ReportError(w); err != nil {
		h.Log.Errorf("Problem with writing error response: %s", err.Error())
	}
}

func decodeInput(r *http.Request) (user.Input, error) {
	var in user.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return in, &customerrors.CustomError{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
			Cause:   err.Error(),
		}
	}
	return in, nil
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q := storage.ParseListQuery(values.Get("page"), values.Get("limit"), values.Get("search"))
	page, err := h.Svc.List(r.Context(), q)
	if err != nil {
		h.reportError(w, err, "fetching")
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.reportError(w, err, "fetching")
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		h.reportError(w, err, "creating")
		return
	}
	u, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		h.reportError(w, err, "creating")
		return
	}
	h.writeJSON(w, http.StatusCreated, messageResponse{Message: "User created successfully", User: u})
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		h.reportError(w, err, "updating")
		return
	}
	u, err := h.Svc.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.reportError(w, err, "updating")
		return
	}
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "User updated successfully", User: u})
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.reportError(w, err, "deleting")
		return
	}
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "User deleted successfully"})
}

func (h *UserHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()
	if err := h.Svc.Ping(ctx); err != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "ERROR", "error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}
