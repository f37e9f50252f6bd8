package category

import (
	"net/http"

	"recipes-api/internal/apperr"
	"recipes-api/internal/auth"
	"recipes-api/internal/httpx"
	"recipes-api/internal/pagination"
)

type Handler struct {
	store    Store
	defaults pagination.Defaults
}

func NewHandler(store Store, defaults pagination.Defaults) *Handler {
	return &Handler{store: store, defaults: defaults}
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.WriteAppError(w, r, apperr.Unauthenticated("Token is missing"), "failed to list categories")
		return
	}

	params, err := pagination.ParseParams(r.URL.Query(), h.defaults)
	if err != nil {
		httpx.WriteAppError(w, r, err, "failed to list categories")
		return
	}

	page, err := pagination.Paginate(r.Context(), h.store.Source(user.ID), params, pagination.RequestLinker(r))
	if err != nil {
		httpx.WriteAppError(w, r, err, "failed to list categories")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.WriteAppError(w, r, apperr.Unauthenticated("Token is missing"), "failed to create category")
		return
	}

	input, err := h.parseInput(w, r)
	if err != nil {
		httpx.WriteAppError(w, r, err, "failed to create category")
		return
	}

	c, err := h.store.Create(r.Context(), user.ID, input.Name)
	if err != nil {
		httpx.WriteAppError(w, r, err, "failed to create category")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.WriteAppError(w, r, apperr.Unauthenticated("Token is missing"), "failed to load category")
		return
	}

	c, err := h.store.Get(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		httpx.WriteAppError(w, r, err, "failed to load category")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.WriteAppError(w, r, apperr.Unauthenticated("Token is missing"), "failed to update category")
		return
	}

	input, err := h.parseInput(w, r)
	if err != nil {
		httpx.WriteAppError(w, r, err, "failed to update category")
		return
	}

	c, err := h.store.Update(r.Context(), user.ID, r.PathValue("id"), input.Name)
	if err != nil {
		httpx.WriteAppError(w, r, err, "failed to update category")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.WriteAppError(w, r, apperr.Unauthenticated("Token is missing"), "failed to delete category")
		return
	}

	if err := h.store.Delete(r.Context(), user.ID, r.PathValue("id")); err != nil {
		httpx.WriteAppError(w, r, err, "failed to delete category")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Category deleted"})
}

func (h *Handler) parseInput(w http.ResponseWriter, r *http.Request) (Input, error) {
	var input Input
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		return Input{}, err
	}

	input.Normalize()
	if err := input.Validate(); err != nil {
		return Input{}, apperr.FromValidation(err)
	}

	return input, nil
}
