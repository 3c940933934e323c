package validate

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"cartscout/internal/domain"
)

const (
	MaxListName  = 200
	MaxFreeText  = 500
	MaxQuery     = 100
	MaxStoreIDs  = 50
	DefaultLimit = 15
	MaxLimit     = 30
)

var (
	reEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	reID    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reDate  = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
)

// Email trims and lower-cases an address and checks its shape.
func Email(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 || len(s) > 255 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Password enforces the length window; content rules are left to the user.
func Password(s string) bool {
	l := utf8.RuneCountInString(s)
	return l >= 8 && l <= 128
}

// RefreshToken only bounds the size; the signature check happens later.
func RefreshToken(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && len(s) <= 1024
}

// ID validates a resource identifier (list, item, store and product ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// ListName trims; an empty name is allowed and means "use the default".
func ListName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, utf8.RuneCountInString(s) <= MaxListName && !hasControl(s)
}

func ListType(s string) (string, bool) {
	switch s {
	case domain.ListCurrentWeek, domain.ListNextOrder, domain.ListCustom:
		return s, true
	}
	return "", false
}

// WeekStart accepts a calendar date in YYYY-MM-DD form.
func WeekStart(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !reDate.MatchString(s) {
		return "", false
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return "", false
	}
	return s, true
}

// FreeText trims an item label; empty means "not given".
func FreeText(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, utf8.RuneCountInString(s) <= MaxFreeText && !hasControl(s)
}

func Quantity(q float64) bool { return q > 0 && q < 1e6 }

// Q validates a search query: trims, caps the length and rejects control characters.
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > MaxQuery {
		s = string([]rune(s)[:MaxQuery])
	}
	return s, !hasControl(s)
}

// Limit applies the default to a missing (zero) or invalid limit and caps it at MaxLimit.
func Limit(n int) int {
	if n < 1 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Platform normalizes a push platform; anything unknown counts as web.
func Platform(s string) string {
	switch p := strings.ToLower(strings.TrimSpace(s)); p {
	case domain.PlatformIOS, domain.PlatformAndroid, domain.PlatformWeb:
		return p
	}
	return domain.PlatformWeb
}

// StoreIDs validates each id, drops duplicates and keeps the first-seen order.
func StoreIDs(ids []string) ([]string, bool) {
	if len(ids) > MaxStoreIDs {
		return nil, false
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, raw := range ids {
		id, ok := ID(raw)
		if !ok {
			return nil, false
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, true
}

func hasControl(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}
