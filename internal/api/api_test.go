package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Clownyz/rentals-bot/internal/auth"
	"github.com/Clownyz/rentals-bot/internal/db"
	"github.com/Clownyz/rentals-bot/internal/model"
	"github.com/Clownyz/rentals-bot/internal/rental"
)

const testSecret = "test-secret"

func setupTestServer(t *testing.T, public bool) (*httptest.Server, *rental.Service) {
	t.Helper()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := rental.NewService(db.NewTestDB(t), rental.WithClock(func() time.Time { return now }))
	server := httptest.NewServer(NewRouter(svc, testSecret, public))
	t.Cleanup(server.Close)
	return server, svc
}

func seed(t *testing.T, svc *rental.Service) {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.AddItem(ctx, "1", "Set1", 1000, "coins"); err != nil {
		t.Fatalf("add Set1: %v", err)
	}
	if _, err := svc.AddItem(ctx, "1", "Set2", 50, "money"); err != nil {
		t.Fatalf("add Set2: %v", err)
	}
	if _, err := svc.RentItem(ctx, "1", "Set2", "42", "2d"); err != nil {
		t.Fatalf("rent Set2: %v", err)
	}
	if err := svc.Blacklist(ctx, "1", "666", "chargeback"); err != nil {
		t.Fatalf("blacklist: %v", err)
	}
}

func get(t *testing.T, url, token string, target any) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if target != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func token(t *testing.T, admin bool) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, "1", admin, time.Hour)
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}
	return tok
}

func TestListingEndpoint(t *testing.T) {
	server, svc := setupTestServer(t, true)
	seed(t, svc)

	var listing rental.Listing
	if code := get(t, server.URL+"/api/listing", "", &listing); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(listing.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(listing.Items))
	}
	if listing.Items[0].Status != "available" {
		t.Errorf("Set1 status = %q, want available", listing.Items[0].Status)
	}
	if listing.Items[1].StatusLabel != "Waiting Payment" {
		t.Errorf("Set2 label = %q, want Waiting Payment", listing.Items[1].StatusLabel)
	}
	if len(listing.Blacklist) != 1 || listing.Blacklist[0].UserID != "666" {
		t.Errorf("unexpected blacklist %+v", listing.Blacklist)
	}
}

func TestItemsEndpoints(t *testing.T) {
	server, svc := setupTestServer(t, true)
	seed(t, svc)

	var items []rental.ListedItem
	if code := get(t, server.URL+"/api/items", "", &items); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(items) != 2 || items[1].RentedBy != "42" {
		t.Fatalf("unexpected items %+v", items)
	}

	var item rental.ListedItem
	if code := get(t, server.URL+"/api/items/Set2", "", &item); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if item.Status != "pending_payment" {
		t.Errorf("status = %q, want pending_payment", item.Status)
	}

	if code := get(t, server.URL+"/api/items/Nope", "", nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown item, got %d", code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	server, svc := setupTestServer(t, true)
	seed(t, svc)

	var events []model.Event
	if code := get(t, server.URL+"/api/items/Set2/history", "", &events); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != model.EventItemRented {
		t.Errorf("newest event = %q, want %q", events[0].Kind, model.EventItemRented)
	}

	if code := get(t, server.URL+"/api/items/Nope/history", "", nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown item, got %d", code)
	}

	// Deleted items keep their history.
	if err := svc.DeleteItem(context.Background(), "1", "Set1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if code := get(t, server.URL+"/api/items/Set1/history", "", &events); code != http.StatusOK {
		t.Fatalf("expected 200 for deleted item, got %d", code)
	}
	if len(events) != 2 || events[0].Kind != model.EventItemDeleted {
		t.Errorf("unexpected history %+v", events)
	}
}

func TestEventsEndpoint(t *testing.T) {
	server, svc := setupTestServer(t, true)
	seed(t, svc)

	var events []model.Event
	if code := get(t, server.URL+"/api/events?limit=2", "", &events); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events, got %d", len(events))
	}

	if code := get(t, server.URL+"/api/events?limit=zero", "", nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", code)
	}
}

func TestBlacklistEndpointEmpty(t *testing.T) {
	server, _ := setupTestServer(t, true)

	var entries []model.BlacklistEntry
	if code := get(t, server.URL+"/api/blacklist", "", &entries); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("expected empty list, got %#v", entries)
	}
}

func TestPrivatePanelRequiresToken(t *testing.T) {
	server, _ := setupTestServer(t, false)

	if code := get(t, server.URL+"/api/items", "", nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", code)
	}
	if code := get(t, server.URL+"/api/items", "garbage", nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 for invalid token, got %d", code)
	}
	if code := get(t, server.URL+"/api/items", token(t, false), nil); code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", code)
	}
}

func TestProofsRequireAdmin(t *testing.T) {
	server, _ := setupTestServer(t, true)

	if code := get(t, server.URL+"/api/proofs", "", nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 anonymously, got %d", code)
	}
	if code := get(t, server.URL+"/api/proofs", token(t, false), nil); code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", code)
	}
	var proofs []model.Proof
	if code := get(t, server.URL+"/api/proofs", token(t, true), &proofs); code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", code)
	}
}

func TestTokenFromCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "abc"})
	if got := TokenFromRequest(req); got != "abc" {
		t.Errorf("TokenFromRequest = %q, want abc", got)
	}
	req.Header.Set("Authorization", "Bearer xyz")
	if got := TokenFromRequest(req); got != "xyz" {
		t.Errorf("header should win, got %q", got)
	}
}
