package validate

import (
	"strings"
	"testing"
)

func TestEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"  Alice@Example.COM ", "alice@example.com", true},
		{"no-at-sign", "", false},
		{"a@b", "", false},
		{strings.Repeat("a", 250) + "@x.com", "", false},
	}
	for _, c := range cases {
		got, ok := Email(c.in)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("Email(%q) = %q,%v want %q,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestPassword(t *testing.T) {
	if Password("short") {
		t.Error("7-char password accepted")
	}
	if !Password("longenough") {
		t.Error("10-char password rejected")
	}
	if Password(strings.Repeat("x", 129)) {
		t.Error("129-char password accepted")
	}
}

func TestWeekStart(t *testing.T) {
	if _, ok := WeekStart("2025-02-30"); ok {
		t.Error("impossible date accepted")
	}
	if got, ok := WeekStart(" 2025-03-03 "); !ok || got != "2025-03-03" {
		t.Errorf("WeekStart = %q,%v", got, ok)
	}
	if _, ok := WeekStart("03/03/2025"); ok {
		t.Error("non-ISO date accepted")
	}
}

func TestListNameAndFreeText(t *testing.T) {
	if _, ok := ListName(strings.Repeat("n", MaxListName+1)); ok {
		t.Error("overlong name accepted")
	}
	if got, ok := ListName("  Weekly  "); !ok || got != "Weekly" {
		t.Errorf("ListName = %q,%v", got, ok)
	}
	if _, ok := FreeText("milk\x00"); ok {
		t.Error("control character accepted")
	}
	if _, ok := FreeText(strings.Repeat("é", MaxFreeText)); !ok {
		t.Error("limit should count runes, not bytes")
	}
}

func TestLimit(t *testing.T) {
	if Limit(0) != DefaultLimit {
		t.Error("missing limit should default")
	}
	if Limit(-3) != DefaultLimit {
		t.Error("negative limit should default")
	}
	if Limit(500) != MaxLimit {
		t.Error("large limit should be capped")
	}
	if Limit(7) != 7 {
		t.Error("in-range limit should pass through")
	}
}

func TestPlatform(t *testing.T) {
	for in, want := range map[string]string{"ios": "ios", "ANDROID": "android", "": "web", "blackberry": "web"} {
		if got := Platform(in); got != want {
			t.Errorf("Platform(%q) = %q want %q", in, got, want)
		}
	}
}

func TestStoreIDs(t *testing.T) {
	got, ok := StoreIDs([]string{"store-a", "store-b", "store-a"})
	if !ok || len(got) != 2 || got[0] != "store-a" || got[1] != "store-b" {
		t.Errorf("StoreIDs dedupe = %v,%v", got, ok)
	}
	if _, ok := StoreIDs([]string{"bad id!"}); ok {
		t.Error("invalid id accepted")
	}
	many := make([]string, MaxStoreIDs+1)
	for i := range many {
		many[i] = "s"
	}
	if _, ok := StoreIDs(many); ok {
		t.Error("more than the maximum accepted")
	}
}

func TestQ(t *testing.T) {
	got, ok := Q("  milk ")
	if !ok || got != "milk" {
		t.Errorf("Q = %q,%v", got, ok)
	}
	got, _ = Q(strings.Repeat("q", 150))
	if len(got) != MaxQuery {
		t.Errorf("Q should truncate to %d, got %d", MaxQuery, len(got))
	}
	if _, ok := Q("a\tb"); ok {
		t.Error("control character accepted")
	}
}
