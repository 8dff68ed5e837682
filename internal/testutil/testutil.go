// Package testutil provides shared test helpers for setting up ledgers and
// fake backend servers.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/starford/pantry/internal/grocy"
	"github.com/starford/pantry/internal/ledger"
)

// TestLedger creates a temporary SQLite ledger that is automatically cleaned up.
func TestLedger(t *testing.T) *ledger.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "pantry-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := ledger.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// FakeBackend is an in-test HTTP server standing in for the Grocy API.
// Routes maps request paths ("GET /api/objects/recipes") to JSON-encodable
// responses; unmatched paths return 404.
type FakeBackend struct {
	Server *httptest.Server
	Routes map[string]any
	Calls  []string
}

// NewFakeBackend starts the server and registers cleanup.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	fb := &FakeBackend{Routes: make(map[string]any)}
	fb.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		fb.Calls = append(fb.Calls, key)
		resp, ok := fb.Routes[key]
		if !ok {
			http.Error(w, `{"error_message":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(fb.Server.Close)
	return fb
}

// Client returns a grocy client pointed at the fake backend.
func (fb *FakeBackend) Client(t *testing.T) *grocy.Client {
	t.Helper()
	c, err := grocy.New(fb.Server.URL+"/api", "test-key", 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	return c
}
