package services_test

import (
	"testing"
)

func TestSearch(t *testing.T) {
	e := newEnv(t)

	got, err := e.products.Search("   ", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("blank query should return nothing, got %d", len(got))
	}

	got, err = e.products.Search("MILK", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 milk products, got %d", len(got))
	}
	if got[0].DisplayName > got[1].DisplayName {
		t.Fatalf("results not ordered by name: %s, %s", got[0].DisplayName, got[1].DisplayName)
	}

	// Brand matches too.
	got, _ = e.products.Search("barilla", 0)
	if len(got) != 1 || got[0].ID != "prod-pasta-spaghetti" {
		t.Fatalf("brand search failed: %+v", got)
	}

	// Accents fold.
	got, _ = e.products.Search("jalapeno", 0)
	if len(got) != 1 || got[0].ID != "prod-jalapeno" {
		t.Fatalf("accent folding failed: %+v", got)
	}

	// LIKE wildcards are literal.
	got, _ = e.products.Search("%", 0)
	for _, p := range got {
		if p.ID != "prod-milk-2pct" && p.ID != "prod-bread-wheat" && p.ID != "prod-ground-beef" {
			t.Fatalf("%% should match literally, got %s", p.ID)
		}
	}

	got, _ = e.products.Search("e", 1)
	if len(got) != 1 {
		t.Fatalf("limit not applied: %d", len(got))
	}
	got, _ = e.products.Search("e", 100)
	if len(got) > 30 {
		t.Fatalf("limit not capped: %d", len(got))
	}
}
