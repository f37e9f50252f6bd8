package auth

import (
	"net/http"

	"recipes-api/internal/apperr"
	"recipes-api/internal/httpx"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body RegisterInput
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteAppError(w, r, err, "failed to register")
		return
	}

	user, err := h.service.Register(r.Context(), body)
	if err != nil {
		httpx.WriteAppError(w, r, err, "failed to register")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, user.Identity())
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body LoginInput
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteAppError(w, r, err, "failed to login")
		return
	}

	token, err := h.service.Login(r.Context(), body)
	if err != nil {
		httpx.WriteAppError(w, r, err, "failed to login")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, token)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		httpx.WriteAppError(w, r, apperr.Unauthenticated(msgTokenMissing), "failed to logout")
		return
	}

	if err := h.service.Logout(r.Context(), session); err != nil {
		httpx.WriteAppError(w, r, err, "failed to logout")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Successfully logged out"})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		httpx.WriteAppError(w, r, apperr.Unauthenticated(msgTokenMissing), "failed to reset password")
		return
	}

	var body ResetPasswordInput
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteAppError(w, r, err, "failed to reset password")
		return
	}

	user, err := h.service.ResetPassword(r.Context(), session, body)
	if err != nil {
		httpx.WriteAppError(w, r, err, "failed to reset password")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, user.Identity())
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		httpx.WriteAppError(w, r, apperr.Unauthenticated(msgTokenMissing), "failed to load account")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, user.Identity())
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		httpx.WriteAppError(w, r, apperr.Unauthenticated(msgTokenMissing), "failed to delete account")
		return
	}

	if err := h.service.DeleteAccount(r.Context(), session); err != nil {
		httpx.WriteAppError(w, r, err, "failed to delete account")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Account deleted"})
}
