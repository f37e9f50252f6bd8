package recipe

import (
	"context"
	"net/http"

	"recipes-api/internal/apperr"
	"recipes-api/internal/auth"
	"recipes-api/internal/category"
	"recipes-api/internal/httpx"
	"recipes-api/internal/pagination"
)

// CategoryLookup finds a category owned by the user.
type CategoryLookup interface {
	Get(ctx context.Context, userID, id string) (category.Category, error)
}

type Handler struct {
	store      Store
	categories CategoryLookup
	defaults   pagination.Defaults
}

func NewHandler(store Store, categories CategoryLookup, defaults pagination.Defaults) *Handler {
	return &Handler{store: store, categories: categories, defaults: defaults}
}

type messageResponse struct {
	Message string `json:"message"`
}

func currentUser(w http.ResponseWriter, r *http.Request, fallback string) (auth.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.WriteAppError(w, r, apperr.Unauthenticated("Token is missing"), fallback)
	}
	return user, ok
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, "failed to list recipes")
	if !ok {
		return
	}
	h.list(w, r, user, "")
}

// ListByCategory lists the recipes of the category in the path.
func (h *Handler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, "failed to list recipes")
	if !ok {
		return
	}

	c, err := h.categories.Get(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		httpx.WriteAppError(w, r, err, "failed to list recipes")
		return
	}
	h.list(w, r, user, c.ID)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, user auth.User, categoryID string) {
	params, err := pagination.ParseParams(r.URL.Query(), h.defaults)
	if err != nil {
		httpx.WriteAppError(w, r, err, "failed to list recipes")
		return
	}

	page, err := pagination.Paginate(r.Context(), h.store.Source(user.ID, categoryID), params, pagination.RequestLinker(r))
	if err != nil {
		httpx.WriteAppError(w, r, err, "failed to list recipes")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, "failed to create recipe")
	if !ok {
		return
	}

	var input CreateInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.WriteAppError(w, r, err, "failed to create recipe")
		return
	}
	h.create(w, r, user, input)
}

// CreateInCategory creates a recipe in the category named by the path.
func (h *Handler) CreateInCategory(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, "failed to create recipe")
	if !ok {
		return
	}

	var input CreateInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.WriteAppError(w, r, err, "failed to create recipe")
		return
	}
	input.CategoryID = r.PathValue("id")
	input.Category = nil
	h.create(w, r, user, input)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, user auth.User, input CreateInput) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		httpx.WriteAppError(w, r, apperr.FromValidation(err), "failed to create recipe")
		return
	}

	rec, err := h.store.Create(r.Context(), user.ID, input)
	if err != nil {
		httpx.WriteAppError(w, r, err, "failed to create recipe")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, "failed to load recipe")
	if !ok {
		return
	}

	rec, err := h.store.Get(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		httpx.WriteAppError(w, r, err, "failed to load recipe")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, "failed to update recipe")
	if !ok {
		return
	}

	var input UpdateInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.WriteAppError(w, r, err, "failed to update recipe")
		return
	}

	input.Normalize()
	if err := input.Validate(); err != nil {
		httpx.WriteAppError(w, r, apperr.FromValidation(err), "failed to update recipe")
		return
	}

	rec, err := h.store.Update(r.Context(), user.ID, r.PathValue("id"), input)
	if err != nil {
		httpx.WriteAppError(w, r, err, "failed to update recipe")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, "failed to delete recipe")
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), user.ID, r.PathValue("id")); err != nil {
		httpx.WriteAppError(w, r, err, "failed to delete recipe")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Recipe deleted"})
}
