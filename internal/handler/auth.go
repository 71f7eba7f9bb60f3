package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/authd/internal/logger"
	"github.com/authd/internal/middleware"
	"github.com/authd/internal/service"
	"github.com/authd/internal/token"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	id, err := h.svc.Register(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if errors.Is(err, service.ErrConflict) {
			writeError(w, http.StatusConflict, "login already taken")
			return
		}
		logger.Errorf("register login=%s: %v", req.Login, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	res, err := h.svc.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, service.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "password incorrect")
		case errors.Is(err, service.ErrRateLimitExceeded):
			writeError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		default:
			logger.Errorf("login login=%s: %v", req.Login, err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	tok := bearerToken(r)
	if tok == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Logout(r.Context(), tok); err != nil {
		if isTokenError(err) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		logger.Errorf("logout token=%s: %v", middleware.MaskToken(tok), err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	tok := bearerToken(r)
	if tok == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	p, err := h.svc.Profile(r.Context(), tok)
	if err != nil {
		if isTokenError(err) || errors.Is(err, service.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		logger.Errorf("profile token=%s: %v", middleware.MaskToken(tok), err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *AuthHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if err := h.svc.Delete(r.Context(), req.Login, req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, service.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "password incorrect")
		default:
			logger.Errorf("delete login=%s: %v", req.Login, err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// isTokenError — любая ошибка жизненного цикла токена; на границе HTTP это всегда 401.
func isTokenError(err error) bool {
	return errors.Is(err, token.ErrExpired) ||
		errors.Is(err, token.ErrInvalidSignature) ||
		errors.Is(err, token.ErrRevoked) ||
		errors.Is(err, token.ErrMalformed)
}
