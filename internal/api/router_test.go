package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"freshloop/internal/api/handlers/health"
	"freshloop/internal/core/community"
	"freshloop/internal/core/detection"
	imageService "freshloop/internal/core/image"
	"freshloop/internal/core/recipe"
	"freshloop/internal/infrastructure/config"
	"freshloop/internal/infrastructure/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

type stubVision struct {
	content string
}

func (s stubVision) Analyze(context.Context, string, []byte, string) (string, error) {
	return s.content, nil
}

func newTestRouter(t *testing.T, checks ...health.Check) *gin.Engine {
	t.Helper()
	return newTestRouterWithVision(t, nil, checks...)
}

func newTestRouterWithVision(t *testing.T, vision detection.Vision, checks ...health.Check) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	v := viper.New()
	v.Set("rate_limit.enabled", false)
	v.Set("dedup_window", "1ns")
	v.Set("app.debug", true)
	cfg, err := config.Load(v)
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}

	ctx := context.Background()
	board, err := community.LoadBoard(ctx, storage.NewMemory(), true)
	if err != nil {
		t.Fatalf("LoadBoard() error = %v", err)
	}
	opts := community.DefaultMatchOptions()
	svc := &Services{
		Suggester:  recipe.NewSuggester(nil, recipe.Catalog()),
		Detailer:   recipe.NewDetailer(nil),
		Board:      board,
		Matcher:    community.NewMatcher(community.ModeLocal, nil, opts),
		Help:       community.NewHelpService(nil, board),
		Detections: detection.NewService(vision, detection.NewStore(10)),
		Images:     imageService.NewService(1<<20, 512, 85),
		Health:     health.NewHandler("test", "", nil, checks...),
	}
	r, err := SetupRouter(cfg, svc)
	if err != nil {
		t.Fatalf("SetupRouter() error = %v", err)
	}
	return r
}

func request(t *testing.T, r http.Handler, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil && w.Code != http.StatusOK {
		t.Logf("non-JSON body: %s", w.Body.String())
	}
	return w.Code, out
}

func TestRoutes(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		want     int
		wantCode string
	}{
		{name: "health", method: http.MethodGet, path: "/health", want: http.StatusOK},
		{name: "live", method: http.MethodGet, path: "/live", want: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", want: http.StatusOK},
		{name: "catalog", method: http.MethodGet, path: "/api/recipes", want: http.StatusOK},
		{name: "suggest without ingredients", method: http.MethodPost, path: "/api/suggest-recipes", body: `{"ingredients":[]}`, want: http.StatusBadRequest, wantCode: "NO_INGREDIENTS"},
		{name: "suggest bad json", method: http.MethodPost, path: "/api/suggest-recipes", body: `{"ingredients":`, want: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
		{name: "recipe without dish", method: http.MethodPost, path: "/api/get-recipe", body: `{"ingredients":["eggs"]}`, want: http.StatusBadRequest},
		{name: "parse without text", method: http.MethodPost, path: "/api/parse-ingredient", body: `{}`, want: http.StatusBadRequest},
		{name: "text to speech", method: http.MethodPost, path: "/api/text-to-speech", body: `{"text":"hi"}`, want: http.StatusNotImplemented, wantCode: "NOT_IMPLEMENTED"},
		{name: "unknown filter", method: http.MethodGet, path: "/api/posts?filter=bogus", want: http.StatusBadRequest},
		{name: "like missing post", method: http.MethodPost, path: "/api/posts/999/like", want: http.StatusNotFound, wantCode: "POST_NOT_FOUND"},
		{name: "like bad id", method: http.MethodPost, path: "/api/posts/abc/like", want: http.StatusBadRequest},
		{name: "share missing detection", method: http.MethodPost, path: "/api/share-detection/nope", want: http.StatusNotFound},
		{name: "no matches yet", method: http.MethodGet, path: "/api/matches", want: http.StatusNotFound},
		{name: "help without ingredient", method: http.MethodPost, path: "/api/generate-help-message", body: `{"recipe_name":"Soup"}`, want: http.StatusBadRequest},
		{name: "create post with bad type", method: http.MethodPost, path: "/api/posts", body: `{"type":"selling","text":"x"}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, body := request(t, r, tt.method, tt.path, tt.body)
			if got != tt.want {
				t.Fatalf("status = %d, want %d (body %v)", got, tt.want, body)
			}
			if tt.wantCode != "" && body["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", body["code"], tt.wantCode)
			}
		})
	}
}

func TestSuggestRecipesLocal(t *testing.T) {
	r := newTestRouter(t)
	status, body := request(t, r, http.MethodPost, "/api/suggest-recipes",
		`{"ingredients":["eggs","spinach","onion","cheese"],"filters":[]}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %v", status, body)
	}
	if body["source"] != recipe.SourceLocal {
		t.Errorf("source = %v, want local", body["source"])
	}
	recipes := body["recipes"].([]interface{})
	top := recipes[0].(map[string]interface{})
	if top["title"] != "Herb & Egg Frittata" {
		t.Errorf("top recipe = %v", top["title"])
	}
	if top["matchedCount"].(float64) != 4 {
		t.Errorf("matchedCount = %v, want 4", top["matchedCount"])
	}
}

func TestGetRecipeFallback(t *testing.T) {
	r := newTestRouter(t)
	status, body := request(t, r, http.MethodPost, "/api/get-recipe",
		`{"dish_name":"Herb & Egg Frittata","ingredients":["eggs","spinach"]}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %v", status, body)
	}
	if md, _ := body["recipe"].(string); !strings.Contains(md, "### INGREDIENTS NEEDED:") {
		t.Errorf("recipe markdown = %q", md)
	}
}

func TestParseIngredient(t *testing.T) {
	r := newTestRouter(t)
	status, body := request(t, r, http.MethodPost, "/api/parse-ingredient",
		`{"text":"2 cups chopped spinach (washed)","tags":["Spinach"]}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	ing := body["ingredient"].(map[string]interface{})
	if ing["quantity"] != "2" || ing["unit"] != "cups" || ing["preparation"] != "washed" {
		t.Errorf("ingredient = %v", ing)
	}
	if ing["isFromUserInput"] != true || body["available"] != true {
		t.Errorf("availability flags = %v / %v", ing["isFromUserInput"], body["available"])
	}
}

func TestCommunityFlow(t *testing.T) {
	r := newTestRouter(t)

	status, body := request(t, r, http.MethodPost, "/api/posts/1/like", "")
	if status != http.StatusOK {
		t.Fatalf("like status = %d", status)
	}
	post := body["post"].(map[string]interface{})
	if post["likes"].(float64) != 5 || post["liked"] != true {
		t.Errorf("liked post = %v", post)
	}

	status, body = request(t, r, http.MethodPost, "/api/posts",
		`{"type":"giving","author":"Sam","text":"Spare eggs","items":["eggs"]}`)
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, body %v", status, body)
	}

	status, body = request(t, r, http.MethodGet, "/api/posts?filter=wanting", "")
	if status != http.StatusOK || body["count"].(float64) != 1 {
		t.Fatalf("wanting posts = %v", body)
	}

	status, body = request(t, r, http.MethodPost, "/api/match-ingredients", "")
	if status != http.StatusOK {
		t.Fatalf("match status = %d, body %v", status, body)
	}
	stats := body["stats"].(map[string]interface{})
	if stats["total_matches"].(float64) < 1 {
		t.Errorf("stats = %v", stats)
	}

	if status, _ = request(t, r, http.MethodGet, "/api/matches", ""); status != http.StatusOK {
		t.Errorf("last matches status = %d", status)
	}
}

func TestHelpMessages(t *testing.T) {
	r := newTestRouter(t)

	status, body := request(t, r, http.MethodPost, "/api/generate-help-message",
		`{"recipe_name":"Pancakes","need_ingredient":"milk"}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if body["message"] != "Hi! I need milk for my recipe. Can anyone help?" || body["source"] != "local" {
		t.Errorf("help message = %v", body)
	}

	status, body = request(t, r, http.MethodPost, "/api/post-help-message",
		`{"message":"Need milk","need_ingredient":"milk","quantity":"1","unit":"cup"}`)
	if status != http.StatusCreated {
		t.Fatalf("post status = %d, body %v", status, body)
	}
	post := body["post"].(map[string]interface{})
	if post["type"] != "wanting" {
		t.Errorf("post type = %v", post["type"])
	}
}

func TestDetectionFlow(t *testing.T) {
	r := newTestRouter(t)

	status, body := request(t, r, http.MethodPost, "/api/test-detection", "")
	if status != http.StatusOK {
		t.Fatalf("test-detection status = %d", status)
	}
	id := body["result"].(map[string]interface{})["id"].(string)

	_, body = request(t, r, http.MethodGet, "/api/gemini-results", "")
	if n := len(body["results"].([]interface{})); n != 1 {
		t.Fatalf("results = %d, want 1", n)
	}

	status, body = request(t, r, http.MethodPost, "/api/share-detection/"+id, "")
	if status != http.StatusCreated {
		t.Fatalf("share status = %d, body %v", status, body)
	}
	if post := body["post"].(map[string]interface{}); post["expiry"] != "Check freshness" {
		t.Errorf("shared post expiry = %v", post["expiry"])
	}

	_, body = request(t, r, http.MethodPost, "/api/clear-results", "")
	if body["cleared"].(float64) != 1 {
		t.Errorf("cleared = %v", body["cleared"])
	}
}

func uploadImage(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	fw, _ := mw.CreateFormFile("image", "food.png")
	_, _ = fw.Write(img.Bytes())
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAnalyzeImageWithoutProvider(t *testing.T) {
	r := newTestRouter(t)
	w := uploadImage(t, r, "/api/analyze-image")

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 (body %s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "AI_UNAVAILABLE") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAnalyzeAndSuggest(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantFresh   int
		wantRecipes bool
	}{
		{
			name:        "fresh items become tags",
			content:     `{"items":[{"name":"Eggs","quality":"Fresh"},{"name":"Spinach","quality":"Good","safe":"Yes"},{"name":"Milk","quality":"Poor","safe":"No"}]}`,
			wantFresh:   2,
			wantRecipes: true,
		},
		{
			name:    "nothing usable",
			content: `{"items":[{"name":"Milk","quality":"Poor","safe":"No - sour"}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouterWithVision(t, stubVision{content: tt.content})
			w := uploadImage(t, r, "/api/analyze-and-suggest")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			var body struct {
				Detections []map[string]interface{} `json:"detections"`
				Fresh      []string                 `json:"fresh_ingredients"`
				Recipes    []map[string]interface{} `json:"recipes"`
				Message    string                   `json:"message"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(body.Detections) == 0 || len(body.Fresh) != tt.wantFresh {
				t.Errorf("detections = %d, fresh = %v", len(body.Detections), body.Fresh)
			}
			if (len(body.Recipes) > 0) != tt.wantRecipes {
				t.Errorf("recipes = %d, want some: %v", len(body.Recipes), tt.wantRecipes)
			}
			if !tt.wantRecipes && body.Message == "" {
				t.Error("expected a message when nothing is usable")
			}
		})
	}
}

func TestMatchSingleRequest(t *testing.T) {
	r := newTestRouter(t)
	if status, body := request(t, r, http.MethodPost, "/api/posts",
		`{"type":"giving","author":"Sam","items":["Eggs"]}`); status != http.StatusCreated {
		t.Fatalf("create status = %d, body %v", status, body)
	}

	tests := []struct {
		name        string
		body        string
		want        int
		wantCode    string
		wantMatches float64
		wantOffers  float64
	}{
		{name: "wanting post", body: `{"request_post_id":2}`, want: http.StatusOK, wantMatches: 1, wantOffers: 4},
		{name: "giving post", body: `{"request_post_id":1}`, want: http.StatusNotFound, wantCode: "POST_NOT_FOUND"},
		{name: "missing id", body: `{}`, want: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := request(t, r, http.MethodPost, "/api/match-single-request", tt.body)
			if status != tt.want {
				t.Fatalf("status = %d, want %d (body %v)", status, tt.want, body)
			}
			if tt.wantCode != "" {
				if body["code"] != tt.wantCode {
					t.Errorf("code = %v, want %s", body["code"], tt.wantCode)
				}
				return
			}
			stats := body["stats"].(map[string]interface{})
			if stats["total_matches"] != tt.wantMatches || stats["available_offers"] != tt.wantOffers {
				t.Errorf("stats = %v", stats)
			}
		})
	}

	if status, _ := request(t, r, http.MethodGet, "/api/matches", ""); status != http.StatusNotFound {
		t.Errorf("single-request matching should not set the last result, status = %d", status)
	}
}

func TestMatcherStatus(t *testing.T) {
	r := newTestRouter(t)
	status, body := request(t, r, http.MethodGet, "/api/matcher-status", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	stats := body["stats"].(map[string]interface{})
	if stats["total_posts"] != float64(4) || stats["request_posts"] != float64(1) || stats["offer_posts"] != float64(3) {
		t.Errorf("stats = %v", stats)
	}
	matcher := body["matcher"].(map[string]interface{})
	if matcher["mode"] != community.ModeLocal || matcher["has_result"] != false {
		t.Errorf("matcher = %v", matcher)
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name  string
		check health.Check
		want  int
	}{
		{name: "healthy", check: health.Check{Name: "kv", Ping: func(context.Context) error { return nil }}, want: http.StatusOK},
		{name: "failing", check: health.Check{Name: "kv", Ping: func(context.Context) error { return errors.New("down") }}, want: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, tt.check)
			if status, _ := request(t, r, http.MethodGet, "/ready", ""); status != tt.want {
				t.Errorf("status = %d, want %d", status, tt.want)
			}
		})
	}
}
