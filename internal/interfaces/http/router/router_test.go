package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(body string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, body)
	}
}

func TestRouter_Setup(t *testing.T) {
	t.Run("mounts registrars under the default version", func(t *testing.T) {
		engine := gin.New()
		orders := NewDomainGroup("/orders")
		orders.GET("", ok("list")).
			GET("/:id", ok("one")).
			POST("/:id/cancel", ok("cancelled"))

		NewRouter(engine).Register(orders).Setup()

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "list", w.Body.String())

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/orders/ord-1/cancel", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "cancelled", w.Body.String())
	})

	t.Run("honours a custom API version", func(t *testing.T) {
		engine := gin.New()
		stock := NewDomainGroup("/stock")
		stock.GET("/:productId", ok("stock"))

		NewRouter(engine, WithAPIVersion("v2")).Register(stock).Setup()

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/stock/prod-1", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stock/prod-1", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("middleware wraps every registered route", func(t *testing.T) {
		engine := gin.New()
		payments := NewDomainGroup("/payments")
		payments.POST("/callback/:provider", ok("cb"))

		NewRouter(engine).
			Use(func(c *gin.Context) {
				c.Header("X-Seen", "1")
				c.Next()
			}).
			Register(payments).
			Setup()

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback/sandbox", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "1", w.Header().Get("X-Seen"))
	})

	t.Run("middleware does not leak outside the versioned group", func(t *testing.T) {
		engine := gin.New()
		engine.GET("/health", ok("healthy"))

		NewRouter(engine).
			Use(func(c *gin.Context) {
				c.AbortWithStatus(http.StatusUnauthorized)
			}).
			Register(NewDomainGroup("/orders").GET("", ok("list"))).
			Setup()

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestDomainGroup_Methods(t *testing.T) {
	engine := gin.New()
	carts := NewDomainGroup("/carts")
	carts.GET("/:id", ok("get")).
		POST("", ok("post")).
		PUT("/:id/items/:sku", ok("put")).
		DELETE("/:id/items/:sku", ok("delete"))

	NewRouter(engine).Register(carts).Setup()

	cases := []struct {
		method string
		target string
		body   string
	}{
		{http.MethodGet, "/api/v1/carts/c1", "get"},
		{http.MethodPost, "/api/v1/carts", "post"},
		{http.MethodPut, "/api/v1/carts/c1/items/sku-1", "put"},
		{http.MethodDelete, "/api/v1/carts/c1/items/sku-1", "delete"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(tc.method, tc.target, nil))
		assert.Equal(t, http.StatusOK, w.Code, tc.method)
		assert.Equal(t, tc.body, w.Body.String())
	}
}
