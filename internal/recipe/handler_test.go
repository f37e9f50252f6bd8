package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipes-api/internal/apperr"
	"recipes-api/internal/auth"
	"recipes-api/internal/category"
	"recipes-api/internal/pagination"
)

type memStore struct {
	mu         sync.Mutex
	categories []category.Category
	recipes    []Recipe
	seq        int
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq)
}

func (m *memStore) addCategory(userID, name string) category.Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := category.Category{ID: m.nextID("c"), UserID: userID, Name: name}
	m.categories = append(m.categories, c)
	return c
}

func (m *memStore) Get(_ context.Context, userID, id string) (category.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.ID == id && c.UserID == userID {
			return c, nil
		}
	}
	return category.Category{}, apperr.NotFound(msgCategoryNotFound)
}

func (m *memStore) Create(_ context.Context, userID string, in CreateInput) (Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	categoryID := ""
	for _, c := range m.categories {
		if c.UserID != userID {
			continue
		}
		if c.ID == in.CategoryID || (in.Category != nil && c.Name == in.Category.Name) {
			categoryID = c.ID
		}
	}
	if categoryID == "" {
		if in.Category == nil {
			return Recipe{}, apperr.NotFound(msgCategoryNotFound)
		}
		c := category.Category{ID: m.nextID("c"), UserID: userID, Name: in.Category.Name}
		m.categories = append(m.categories, c)
		categoryID = c.ID
	}

	for _, r := range m.recipes {
		if r.UserID == userID && r.Title == in.Title {
			return Recipe{}, apperr.Conflict(msgDuplicate)
		}
	}
	rec := Recipe{ID: m.nextID("r"), UserID: userID, CategoryID: categoryID, Title: in.Title, Body: in.Body}
	m.recipes = append(m.recipes, rec)
	return rec, nil
}

func (m *memStore) find(userID, id string) (int, error) {
	for i, r := range m.recipes {
		if r.ID == id && r.UserID == userID {
			return i, nil
		}
	}
	return -1, apperr.NotFound(msgNotFound)
}

func (m *memStore) GetRecipe(userID, id string) (Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.find(userID, id)
	if err != nil {
		return Recipe{}, err
	}
	return m.recipes[i], nil
}

func (m *memStore) Update(_ context.Context, userID, id string, in UpdateInput) (Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.find(userID, id)
	if err != nil {
		return Recipe{}, err
	}
	if in.Title != nil {
		m.recipes[i].Title = *in.Title
	}
	if in.Body != nil {
		m.recipes[i].Body = *in.Body
	}
	if in.CategoryID != nil {
		m.recipes[i].CategoryID = *in.CategoryID
	}
	return m.recipes[i], nil
}

func (m *memStore) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.find(userID, id)
	if err != nil {
		return err
	}
	m.recipes = append(m.recipes[:i], m.recipes[i+1:]...)
	return nil
}

func (m *memStore) Source(userID, categoryID string) pagination.Source[Recipe] {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]Recipe, 0, len(m.recipes))
	for _, r := range m.recipes {
		if r.UserID == userID && (categoryID == "" || r.CategoryID == categoryID) {
			items = append(items, r)
		}
	}
	return pagination.SliceSource[Recipe]{
		Items: items,
		Match: func(r Recipe, search string) bool { return pagination.ContainsFold(search, r.Title, r.Body) },
	}
}

// recipeStore hides the category Get so memStore satisfies Store.
type recipeStore struct{ *memStore }

func (s recipeStore) Get(_ context.Context, userID, id string) (Recipe, error) {
	return s.GetRecipe(userID, id)
}

func newRecipeMux(store *memStore) *http.ServeMux {
	h := NewHandler(recipeStore{store}, store, pagination.Defaults{Limit: 5, MaxLimit: 100})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /recipes/{$}", h.List)
	mux.HandleFunc("POST /recipes/{$}", h.Create)
	mux.HandleFunc("GET /recipes/{id}", h.Get)
	mux.HandleFunc("PUT /recipes/{id}", h.Update)
	mux.HandleFunc("DELETE /recipes/{id}", h.Delete)
	mux.HandleFunc("GET /categories/{id}/recipes/{$}", h.ListByCategory)
	mux.HandleFunc("POST /categories/{id}/recipes/{$}", h.CreateInCategory)
	return mux
}

func serve(t *testing.T, mux http.Handler, userID, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		session := auth.Session{User: auth.User{ID: userID, Username: userID}}
		req = req.WithContext(auth.WithSession(req.Context(), session))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) pagination.Page[Recipe] {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page pagination.Page[Recipe]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	return page
}

func TestHandler_CreateFindsOrCreatesCategory(t *testing.T) {
	store := &memStore{}
	mux := newRecipeMux(store)

	rec := serve(t, mux, "u1", http.MethodPost, "/recipes/", `{"title":"Pea Soup","body":"boil peas","category":{"name":"Soups"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var first Recipe
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, "pea soup", first.Title)

	rec = serve(t, mux, "u1", http.MethodPost, "/recipes/", `{"title":"Lentil Soup","body":"boil lentils","category":{"name":"soups"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var second Recipe
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.CategoryID, second.CategoryID)
	assert.Len(t, store.categories, 1)

	rec = serve(t, mux, "u1", http.MethodPost, "/recipes/", `{"title":"PEA SOUP","body":"again","category_id":"`+first.CategoryID+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_CreateValidation(t *testing.T) {
	store := &memStore{}
	mux := newRecipeMux(store)
	c := store.addCategory("u1", "soups")

	rec := serve(t, mux, "u1", http.MethodPost, "/recipes/", `{"title":"pea soup","body":"boil peas"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "category_id or category.name is required")

	rec = serve(t, mux, "u1", http.MethodPost, "/recipes/", `{"title":"pea soup","body":"boil peas","category_id":"`+c.ID+`","category":{"name":"x"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, mux, "u1", http.MethodPost, "/recipes/", `{"title":"","body":"","category_id":"`+c.ID+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "cannot be blank", body.Fields["title"])
	assert.Equal(t, "cannot be blank", body.Fields["body"])

	rec = serve(t, mux, "u2", http.MethodPost, "/recipes/", `{"title":"pea soup","body":"boil peas","category_id":"`+c.ID+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code, "another user's category is invisible")
}

func TestHandler_ListTwelveRecipes(t *testing.T) {
	store := &memStore{}
	mux := newRecipeMux(store)
	c := store.addCategory("u1", "soups")
	for i := 1; i <= 12; i++ {
		rec := serve(t, mux, "u1", http.MethodPost, "/categories/"+c.ID+"/recipes/",
			fmt.Sprintf(`{"title":"soup %02d","body":"boil water"}`, i))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	page := decodePage(t, serve(t, mux, "u1", http.MethodGet, "/recipes/?page=1", ""))
	assert.Len(t, page.Results, 5)
	assert.Nil(t, page.Previous)
	require.NotNil(t, page.Next)
	assert.Contains(t, *page.Next, "page=2")

	page = decodePage(t, serve(t, mux, "u1", http.MethodGet, "/recipes/?page=3", ""))
	assert.Len(t, page.Results, 2)
	assert.Nil(t, page.Next)

	page = decodePage(t, serve(t, mux, "u1", http.MethodGet, "/recipes/?page=4", ""))
	assert.Empty(t, page.Results)
	assert.Nil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Contains(t, *page.Previous, "page=3")

	page = decodePage(t, serve(t, mux, "u1", http.MethodGet, "/categories/"+c.ID+"/recipes/?q=SOUP%201", ""))
	assert.Equal(t, 3, page.Count)

	rec := serve(t, mux, "u2", http.MethodGet, "/categories/"+c.ID+"/recipes/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_GetUpdateDelete(t *testing.T) {
	store := &memStore{}
	mux := newRecipeMux(store)
	c := store.addCategory("u1", "soups")
	other := store.addCategory("u1", "stews")

	rec := serve(t, mux, "u1", http.MethodPost, "/recipes/", `{"title":"pea soup","body":"boil peas","category_id":"`+c.ID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Recipe
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	assert.Equal(t, http.StatusOK, serve(t, mux, "u1", http.MethodGet, "/recipes/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, mux, "u2", http.MethodGet, "/recipes/"+created.ID, "").Code)

	rec = serve(t, mux, "u1", http.MethodPut, "/recipes/"+created.ID, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No input data provided"}`, rec.Body.String())

	rec = serve(t, mux, "u1", http.MethodPut, "/recipes/"+created.ID, `{"body":"simmer peas","category_id":"`+other.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated Recipe
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "pea soup", updated.Title)
	assert.Equal(t, "simmer peas", updated.Body)
	assert.Equal(t, other.ID, updated.CategoryID)

	assert.Equal(t, http.StatusNotFound, serve(t, mux, "u2", http.MethodDelete, "/recipes/"+created.ID, "").Code)
	assert.Equal(t, http.StatusOK, serve(t, mux, "u1", http.MethodDelete, "/recipes/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, mux, "u1", http.MethodGet, "/recipes/"+created.ID, "").Code)
}
