package productext

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func serve(h *Handler, method, target, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/products/{id}/extension", h.Attach)
	mux.HandleFunc("GET /admin/products/{id}/extension", h.Get)
	mux.HandleFunc("DELETE /admin/product-extensions/{id}", h.Delete)
	mux.HandleFunc("POST /admin/product-extensions/{id}/restore", h.Restore)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestHandler_Attach(t *testing.T) {
	t.Run("WithCustomName", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)

		rr := serve(NewHandler(newTestService(repo)), http.MethodPost, "/admin/products/prod_1/extension", `{"custom_name":"Blue"}`)

		assert.Equal(t, http.StatusCreated, rr.Code)
		var res struct {
			ProductExtension ProductExtension `json:"product_extension"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
		assert.Equal(t, "prod_1", res.ProductExtension.ProductID)
		assert.Equal(t, "Blue", res.ProductExtension.CustomName)
	})

	t.Run("EmptyBodyIsNoop", func(t *testing.T) {
		repo := new(MockRepository)

		rr := serve(NewHandler(newTestService(repo)), http.MethodPost, "/admin/products/prod_1/extension", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"product_extension":null}`, rr.Body.String())
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("BlankNameIsNoop", func(t *testing.T) {
		repo := new(MockRepository)

		rr := serve(NewHandler(newTestService(repo)), http.MethodPost, "/admin/products/prod_1/extension", `{"custom_name":"  "}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("UnknownField", func(t *testing.T) {
		rr := serve(NewHandler(newTestService(new(MockRepository))), http.MethodPost, "/admin/products/prod_1/extension", `{"name":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("NameTooLong", func(t *testing.T) {
		body := `{"custom_name":"` + strings.Repeat("x", 256) + `"}`
		rr := serve(NewHandler(newTestService(new(MockRepository))), http.MethodPost, "/admin/products/prod_1/extension", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("RepoFailure", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db error"))

		rr := serve(NewHandler(newTestService(repo)), http.MethodPost, "/admin/products/prod_1/extension", `{"custom_name":"Blue"}`)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestHandler_Get(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListByProduct", mock.Anything, "prod_1").Return([]*ProductExtension{{ID: "prodext_1", ProductID: "prod_1", CustomName: "Blue"}}, nil)

		rr := serve(NewHandler(newTestService(repo)), http.MethodGet, "/admin/products/prod_1/extension", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"id":"prodext_1"`)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListByProduct", mock.Anything, "prod_1").Return([]*ProductExtension{}, nil)

		rr := serve(NewHandler(newTestService(repo)), http.MethodGet, "/admin/products/prod_1/extension", "")

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestHandler_Delete(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("SoftDelete", mock.Anything, "prodext_1").Return(nil)

		rr := serve(NewHandler(newTestService(repo)), http.MethodDelete, "/admin/product-extensions/prodext_1", "")

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("SoftDelete", mock.Anything, "prodext_9").Return(ErrNotFound)

		rr := serve(NewHandler(newTestService(repo)), http.MethodDelete, "/admin/product-extensions/prodext_9", "")

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}


func TestHandler_Restore(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Restore", mock.Anything, "prodext_1").Return(nil)
	repo.On("Restore", mock.Anything, "prodext_live").Return(ErrNotFound)
	h := NewHandler(newTestService(repo))

	rr := serve(h, http.MethodPost, "/admin/product-extensions/prodext_1/restore", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(h, http.MethodPost, "/admin/product-extensions/prodext_live/restore", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
