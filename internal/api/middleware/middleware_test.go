package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.POST("/echo", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/echo", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func do(r http.Handler, method, body string) int {
	req := httptest.NewRequest(method, "/echo", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestDeduplication(t *testing.T) {
	d := NewDeduplicator(time.Minute)
	r := newEngine(d.Handler())

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{name: "first post", method: http.MethodPost, body: `{"a":1}`, want: http.StatusOK},
		{name: "duplicate post", method: http.MethodPost, body: `{"a":1}`, want: http.StatusTooManyRequests},
		{name: "different body", method: http.MethodPost, body: `{"a":2}`, want: http.StatusOK},
		{name: "get is never deduplicated", method: http.MethodGet, want: http.StatusOK},
		{name: "get again", method: http.MethodGet, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := do(r, tt.method, tt.body); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDeduplicationSkipsToggleRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewDeduplicator(time.Minute, "/posts/:id/like").Handler())
	r.POST("/posts/:id/like", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.POST("/posts/:id/claim", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	tests := []struct {
		name string
		path string
		want int
	}{
		{name: "like", path: "/posts/7/like", want: http.StatusOK},
		{name: "unlike right away", path: "/posts/7/like", want: http.StatusOK},
		{name: "claim", path: "/posts/7/claim", want: http.StatusOK},
		{name: "double claim", path: "/posts/7/claim", want: http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestDeduplicationWindowExpires(t *testing.T) {
	d := NewDeduplicator(time.Second)
	now := time.Unix(100, 0)
	d.now = func() time.Time { return now }

	if !d.allow("k") {
		t.Fatal("first call rejected")
	}
	if d.allow("k") {
		t.Fatal("duplicate inside window allowed")
	}
	now = now.Add(2 * time.Second)
	if !d.allow("k") {
		t.Error("call after window rejected")
	}
}

func TestRateLimit(t *testing.T) {
	r := newEngine(RateLimit(NewRateLimiter(2, time.Hour, 2)))

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		if got := do(r, http.MethodGet, ""); got != want {
			t.Errorf("request %d status = %d, want %d", i, got, want)
		}
	}
}

func TestBodySizeLimit(t *testing.T) {
	r := newEngine(BodySizeLimit(8))
	if got := do(r, http.MethodPost, "short"); got != http.StatusOK {
		t.Errorf("small body status = %d", got)
	}
	if got := do(r, http.MethodPost, strings.Repeat("x", 64)); got != http.StatusRequestEntityTooLarge {
		t.Errorf("large body status = %d", got)
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
