package server_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ladle-dev/ladle/internal/extract"
	"github.com/ladle-dev/ladle/internal/fetch"
	"github.com/ladle-dev/ladle/internal/importer"
	"github.com/ladle-dev/ladle/internal/logging"
	"github.com/ladle-dev/ladle/internal/server"
	"github.com/ladle-dev/ladle/internal/store"
	"github.com/ladle-dev/ladle/internal/webclient"
)

const recipePage = `<!DOCTYPE html><html><head>
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"Recipe","name":"Shakshuka",
"description":"Eggs in tomato sauce.","recipeYield":"4",
"recipeIngredient":["6 eggs","800 g tomatoes","1 onion"],
"recipeInstructions":[{"@type":"HowToStep","text":"Soften onion"},
{"@type":"HowToStep","text":"Simmer tomatoes"},{"@type":"HowToStep","text":"Poach eggs"}],
"prepTime":"PT10M","cookTime":"PT25M"}
</script></head><body><h1>Shakshuka</h1></body></html>`

func newTestServer(t *testing.T) *server.Server {
	t.Helper()

	wc, err := webclient.NewNetHTTPClient(webclient.DefaultConfig(), logging.Nop{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { wc.Close() })

	f, err := fetch.New(wc, logging.Nop{})
	if err != nil {
		t.Fatal(err)
	}

	st, err := store.Open(filepath.Join(t.TempDir(), "ladle.db"), logging.Nop{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	orch := extract.NewOrchestrator(logging.Nop{},
		extract.NewJSONLDExtractor(logging.Nop{}),
		extract.NewHeuristicExtractor(logging.Nop{}),
	)
	imp, err := importer.New(f, orch, st, logging.Nop{})
	if err != nil {
		t.Fatal(err)
	}

	s, err := server.NewServer(server.Config{ListenAddr: ":0"}, imp, st)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newUpstream(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, s http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON response: %v (body: %s)", err, rec.Body.String())
	}
}

// ─── CORS ──────────────────────────────────────────────────────────────

func TestServer_CORS_HeaderPresent(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/recipes", "")

	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected CORS origin *, got %q", origin)
	}
}

// ─── Synchronous imports ───────────────────────────────────────────────

func TestServer_ImportURL(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	up := newUpstream(t, http.StatusOK, recipePage)

	rec := doJSON(t, s, "POST", "/api/import/url", fmt.Sprintf(`{"url":%q}`, up.URL))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res map[string]any
	decodeJSON(t, rec, &res)
	if res["status"] != "success" || res["method"] != "structured-data" {
		t.Fatalf("result = %v", res)
	}
	recipeID, _ := res["recipe_id"].(string)
	if recipeID == "" {
		t.Fatal("import did not persist a recipe")
	}

	got := doJSON(t, s, "GET", "/api/recipes/"+recipeID, "")
	if got.Code != http.StatusOK {
		t.Fatalf("get recipe: %d", got.Code)
	}
	var stored map[string]any
	decodeJSON(t, got, &stored)
	recipe, _ := stored["recipe"].(map[string]any)
	if recipe["name"] != "Shakshuka" {
		t.Errorf("stored recipe = %v", stored)
	}
}

func TestServer_ImportURL_BlockedUpstream(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	up := newUpstream(t, http.StatusForbidden, "")

	rec := doJSON(t, s, "POST", "/api/import/url", fmt.Sprintf(`{"url":%q}`, up.URL))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res map[string]any
	decodeJSON(t, rec, &res)
	if res["status"] != "manual_required" {
		t.Errorf("status = %v", res["status"])
	}
}

func TestServer_ImportURL_MissingURL(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/api/import/url", `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestServer_ImportURL_InvalidJSON(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/api/import/url", `{invalid}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestServer_ImportText_MissingContent(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/api/import/text", `{"source_url":"https://example.com"}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

// ─── Jobs ──────────────────────────────────────────────────────────────

func waitForJob(t *testing.T, s http.Handler, jobID string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := doJSON(t, s, "GET", "/api/import/jobs/"+jobID, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("get job: %d", rec.Code)
		}
		var job map[string]any
		decodeJSON(t, rec, &job)
		switch job["status"] {
		case "done", "canceled":
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("job did not finish in time")
	return nil
}

func TestServer_AsyncImportJob(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	up := newUpstream(t, http.StatusOK, recipePage)

	rec := doJSON(t, s, "POST", "/api/import/jobs", fmt.Sprintf(`{"kind":"url","url":%q}`, up.URL))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var job map[string]any
	decodeJSON(t, rec, &job)
	jobID, _ := job["id"].(string)
	if jobID == "" {
		t.Fatal("job has no id")
	}

	final := waitForJob(t, s, jobID)
	if final["status"] != "done" {
		t.Fatalf("job = %v", final)
	}
	result, _ := final["result"].(map[string]any)
	if result["status"] != "success" {
		t.Errorf("result = %v", result)
	}
}

func TestServer_StartJob_BadKind(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/api/import/jobs", `{"kind":"ftp"}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestServer_GetJob_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/import/jobs/nope", "")

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestServer_ListJobs(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/import/jobs", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

// ─── WebSocket ─────────────────────────────────────────────────────────

func TestServer_JobWebSocket(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	up := newUpstream(t, http.StatusOK, recipePage)

	httpSrv := httptest.NewServer(s)
	t.Cleanup(httpSrv.Close)

	rec := doJSON(t, s, "POST", "/api/import/jobs", fmt.Sprintf(`{"kind":"url","url":%q}`, up.URL))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start job: %d", rec.Code)
	}
	var job map[string]any
	decodeJSON(t, rec, &job)
	jobID, _ := job["id"].(string)

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws/import/jobs/" + jobID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// First frame is the job snapshot; any later frames are events. The
	// job may finish before the dial, so the snapshot alone must be
	// enough to learn the outcome.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var snapshot map[string]any
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snapshot["id"] != jobID {
		t.Errorf("snapshot = %v", snapshot)
	}
}

// ─── Recipes ───────────────────────────────────────────────────────────

func TestServer_ListRecipes_Empty(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/recipes", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestServer_GetRecipe_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/recipes/missing", "")

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

// ─── Docs ──────────────────────────────────────────────────────────────

func TestServer_OpenAPIDocument(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/openapi.json", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc map[string]any
	decodeJSON(t, rec, &doc)
	if doc["openapi"] == nil {
		t.Error("not an OpenAPI document")
	}
}
