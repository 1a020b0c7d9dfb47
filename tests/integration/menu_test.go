//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestMenu_List(t *testing.T) {
	resp := doGet(t, "/api/menu")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[menuResponse](t, resp)
	if !body.Success {
		t.Fatalf("expected success envelope, got error %q", body.ErrorCode)
	}
	if len(body.Items) != 10 {
		t.Fatalf("expected 10 menu items, got %d", len(body.Items))
	}

	byID := make(map[string]menuItem, len(body.Items))
	for _, it := range body.Items {
		byID[it.ID] = it
	}

	rice, ok := byID["veg-fried-rice"]
	if !ok {
		t.Fatal("veg-fried-rice not in menu")
	}
	if rice.Price != 140 {
		t.Errorf("veg-fried-rice price: got %v, want 140", rice.Price)
	}
	if rice.TaxMode != "exclusive" {
		t.Errorf("veg-fried-rice tax mode: got %q, want exclusive", rice.TaxMode)
	}

	chai, ok := byID["masala-chai"]
	if !ok {
		t.Fatal("masala-chai not in menu")
	}
	if chai.TaxMode != "inclusive" {
		t.Errorf("masala-chai tax mode: got %q, want inclusive", chai.TaxMode)
	}
}
