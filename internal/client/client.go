// Package client talks to the CartScout API and keeps a local snapshot of the
// user's lists so the app keeps working without a network.
package client

//go:generate mockgen -source=client.go -destination=mock_doer_test.go -package=client Doer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"cartscout/internal/domain"
)

const apiPrefix = "/api/v1"

// Doer is the part of *http.Client the API client needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is an error envelope returned by the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// NetworkError means the request never got an answer from the server.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// Unreachable reports whether the server could not serve the request at all:
// a transport failure or a 5xx answer. Client errors (4xx) are not included.
func Unreachable(err error) bool {
	if IsNetwork(err) {
		return true
	}
	var ae *APIError
	return errors.As(err, &ae) && ae.Status >= 500
}

// Client is a typed API client. Requests carry the stored access token; a
// 401 triggers one refresh and one retry.
type Client struct {
	BaseURL string
	HTTP    Doer
	Tokens  TokenStore

	// Attempts and Delay tune the retry of transport failures.
	Attempts uint
	Delay    time.Duration
}

func New(baseURL string, tokens TokenStore) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		HTTP:     &http.Client{Timeout: 15 * time.Second},
		Tokens:   tokens,
		Attempts: 3,
		Delay:    200 * time.Millisecond,
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  json.RawMessage `json:"meta"`
	Error *APIError       `json:"error"`
}

type request struct {
	method string
	path   string
	body   any
	auth   bool
	// raw skips envelope decoding and hands back the body.
	raw bool
}

type response struct {
	status int
	env    envelope
	raw    []byte
}

func (c *Client) call(ctx context.Context, r request, out any) error {
	resp, err := c.roundTrip(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(resp.env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, r request) (response, error) {
	var body []byte
	if r.body != nil {
		var err error
		if body, err = json.Marshal(r.body); err != nil {
			return response{}, fmt.Errorf("encode %s %s: %w", r.method, r.path, err)
		}
	}
	tokens := c.loadTokens()
	resp, err := c.send(ctx, r, body, tokens.AccessToken)
	if err != nil {
		return resp, err
	}
	if resp.status == http.StatusUnauthorized && r.auth && tokens.RefreshToken != "" {
		s, rerr := c.refresh(ctx, tokens.RefreshToken)
		if rerr != nil {
			return resp, resp.asError()
		}
		if resp, err = c.send(ctx, r, body, s.AccessToken); err != nil {
			return resp, err
		}
	}
	return resp, resp.asError()
}

func (r response) asError() error {
	if r.status < 400 {
		return nil
	}
	if r.env.Error != nil {
		e := *r.env.Error
		e.Status = r.status
		return &e
	}
	return &APIError{Status: r.status, Code: "HTTP_" + strconv.Itoa(r.status), Message: http.StatusText(r.status)}
}

// send performs one logical request, retrying transport failures with
// backoff. The body is replayed on every attempt.
func (c *Client) send(ctx context.Context, r request, body []byte, token string) (response, error) {
	var out response
	attempts := c.Attempts
	if attempts == 0 {
		attempts = 1
	}
	err := retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, r.method, c.BaseURL+r.path, bytes.NewReader(body))
		if err != nil {
			return retry.Unrecoverable(err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if r.auth && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := c.HTTP.Do(req)
		if err != nil {
			return &NetworkError{Err: err}
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return &NetworkError{Err: err}
		}
		out = response{status: resp.StatusCode, raw: raw}
		if r.raw && resp.StatusCode < 400 {
			return nil
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &out.env); err != nil && resp.StatusCode < 400 {
				return retry.Unrecoverable(fmt.Errorf("decode %s %s: %w", r.method, r.path, err))
			}
		}
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsNetwork),
		retry.LastErrorOnly(true),
	)
	return out, err
}

func (c *Client) loadTokens() Tokens {
	if c.Tokens == nil {
		return Tokens{}
	}
	t, err := c.Tokens.Load()
	if err != nil {
		return Tokens{}
	}
	return t
}

func (c *Client) saveSession(s domain.Session) error {
	if c.Tokens == nil {
		return nil
	}
	return c.Tokens.Save(Tokens{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken})
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (domain.Session, error) {
	var s domain.Session
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   apiPrefix + "/auth/refresh",
		body:   map[string]string{"refreshToken": refreshToken},
	}, &s)
	if err != nil {
		return s, err
	}
	return s, c.saveSession(s)
}

// ---------- Auth ----------

func (c *Client) Register(ctx context.Context, email, password string) (domain.Session, error) {
	return c.authenticate(ctx, "/auth/register", email, password)
}

func (c *Client) Login(ctx context.Context, email, password string) (domain.Session, error) {
	return c.authenticate(ctx, "/auth/login", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (domain.Session, error) {
	var s domain.Session
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   apiPrefix + path,
		body:   map[string]string{"email": email, "password": password},
	}, &s)
	if err != nil {
		return s, err
	}
	return s, c.saveSession(s)
}

// Refresh spends the stored refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context) (domain.Session, error) {
	t := c.loadTokens()
	if t.RefreshToken == "" {
		return domain.Session{}, &APIError{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "not logged in"}
	}
	return c.refresh(ctx, t.RefreshToken)
}

func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var u domain.User
	err := c.call(ctx, request{method: http.MethodGet, path: apiPrefix + "/auth/me", auth: true}, &u)
	return u, err
}

// ---------- Lists ----------

// ListInput is the body for creating a list.
type ListInput struct {
	Name      string  `json:"name"`
	ListType  string  `json:"list_type,omitempty"`
	WeekStart *string `json:"week_start,omitempty"`
}

// ListPatch changes some fields of a list. ClearWeekStart sends an explicit
// null for week_start.
type ListPatch struct {
	Name           *string
	ListType       *string
	WeekStart      *string
	ClearWeekStart bool
}

func (p ListPatch) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.ListType != nil {
		m["list_type"] = *p.ListType
	}
	switch {
	case p.ClearWeekStart:
		m["week_start"] = nil
	case p.WeekStart != nil:
		m["week_start"] = *p.WeekStart
	}
	return json.Marshal(m)
}

func (c *Client) Lists(ctx context.Context) ([]domain.List, error) {
	var out []domain.List
	err := c.call(ctx, request{method: http.MethodGet, path: apiPrefix + "/lists", auth: true}, &out)
	return out, err
}

func (c *Client) ListsWithItems(ctx context.Context) ([]domain.ListWithItems, error) {
	var out []domain.ListWithItems
	err := c.call(ctx, request{method: http.MethodGet, path: apiPrefix + "/lists?include=items", auth: true}, &out)
	return out, err
}

// List fetches one list with its items.
func (c *Client) List(ctx context.Context, id string) (domain.ListWithItems, error) {
	var out domain.ListWithItems
	err := c.call(ctx, request{method: http.MethodGet, path: listPath(id) + "?include=items", auth: true}, &out)
	return out, err
}

func (c *Client) CreateList(ctx context.Context, in ListInput) (domain.List, error) {
	var out domain.List
	err := c.call(ctx, request{method: http.MethodPost, path: apiPrefix + "/lists", body: in, auth: true}, &out)
	return out, err
}

func (c *Client) UpdateList(ctx context.Context, id string, p ListPatch) (domain.List, error) {
	var out domain.List
	err := c.call(ctx, request{method: http.MethodPatch, path: listPath(id), body: p, auth: true}, &out)
	return out, err
}

func (c *Client) DeleteList(ctx context.Context, id string) error {
	return c.call(ctx, request{method: http.MethodDelete, path: listPath(id), auth: true}, nil)
}

// PrintList returns the printable HTML view of a list.
func (c *Client) PrintList(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.roundTrip(ctx, request{method: http.MethodGet, path: listPath(id) + "/print", auth: true, raw: true})
	if err != nil {
		return nil, err
	}
	return resp.raw, nil
}

func (c *Client) ListStores(ctx context.Context, id string) ([]string, error) {
	var out []string
	err := c.call(ctx, request{method: http.MethodGet, path: listPath(id) + "/stores", auth: true}, &out)
	return out, err
}

func (c *Client) SetListStores(ctx context.Context, id string, storeIDs []string) ([]string, error) {
	var out []string
	err := c.call(ctx, request{
		method: http.MethodPut,
		path:   listPath(id) + "/stores",
		body:   map[string][]string{"store_ids": storeIDs},
		auth:   true,
	}, &out)
	return out, err
}

// ---------- Items ----------

// ItemInput is the body for adding an item: a product reference or free text.
type ItemInput struct {
	CanonicalProductID *string  `json:"canonical_product_id,omitempty"`
	FreeText           *string  `json:"free_text,omitempty"`
	Quantity           *float64 `json:"quantity,omitempty"`
}

type ItemPatch struct {
	Quantity *float64 `json:"quantity,omitempty"`
	Checked  *bool    `json:"checked,omitempty"`
}

func (c *Client) AddItem(ctx context.Context, listID string, in ItemInput) (domain.ListItem, error) {
	var out domain.ListItem
	err := c.call(ctx, request{method: http.MethodPost, path: listPath(listID) + "/items", body: in, auth: true}, &out)
	return out, err
}

func (c *Client) UpdateItem(ctx context.Context, listID, itemID string, p ItemPatch) (domain.ListItem, error) {
	var out domain.ListItem
	err := c.call(ctx, request{method: http.MethodPatch, path: itemPath(listID, itemID), body: p, auth: true}, &out)
	return out, err
}

func (c *Client) DeleteItem(ctx context.Context, listID, itemID string) error {
	return c.call(ctx, request{method: http.MethodDelete, path: itemPath(listID, itemID), auth: true}, nil)
}

func (c *Client) ReorderItems(ctx context.Context, listID string, itemIDs []string) ([]domain.ListItem, error) {
	var out []domain.ListItem
	err := c.call(ctx, request{
		method: http.MethodPut,
		path:   listPath(listID) + "/items/order",
		body:   map[string][]string{"item_ids": itemIDs},
		auth:   true,
	}, &out)
	return out, err
}

// ---------- Stores, products, push ----------

func (c *Client) Stores(ctx context.Context) ([]domain.Store, error) {
	var out []domain.Store
	err := c.call(ctx, request{method: http.MethodGet, path: apiPrefix + "/stores", auth: true}, &out)
	return out, err
}

func (c *Client) FavoriteStores(ctx context.Context) ([]string, error) {
	var out []string
	err := c.call(ctx, request{method: http.MethodGet, path: apiPrefix + "/stores/favorites", auth: true}, &out)
	return out, err
}

func (c *Client) AddFavoriteStore(ctx context.Context, storeID string) ([]string, error) {
	var out []string
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   apiPrefix + "/stores/favorites",
		body:   map[string]string{"store_id": storeID},
		auth:   true,
	}, &out)
	return out, err
}

func (c *Client) RemoveFavoriteStore(ctx context.Context, storeID string) ([]string, error) {
	var out []string
	err := c.call(ctx, request{
		method: http.MethodDelete,
		path:   apiPrefix + "/stores/favorites/" + url.PathEscape(storeID),
		auth:   true,
	}, &out)
	return out, err
}

// SearchProducts searches the catalog. limit <= 0 leaves the server default.
func (c *Client) SearchProducts(ctx context.Context, q string, limit int) ([]domain.CanonicalProduct, error) {
	v := url.Values{"q": {q}}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	var out []domain.CanonicalProduct
	err := c.call(ctx, request{method: http.MethodGet, path: apiPrefix + "/products/search?" + v.Encode(), auth: true}, &out)
	return out, err
}

// PushRegistration is the server's answer to a push token registration.
type PushRegistration struct {
	Registered bool   `json:"registered"`
	Platform   string `json:"platform"`
}

func (c *Client) RegisterPush(ctx context.Context, token, platform string) (PushRegistration, error) {
	var out PushRegistration
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   apiPrefix + "/push/register",
		body:   map[string]string{"token": token, "platform": platform},
		auth:   true,
	}, &out)
	return out, err
}

// Health pings the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.roundTrip(ctx, request{method: http.MethodGet, path: "/health", raw: true})
	return err
}

func listPath(id string) string {
	return apiPrefix + "/lists/" + url.PathEscape(id)
}

func itemPath(listID, itemID string) string {
	return listPath(listID) + "/items/" + url.PathEscape(itemID)
}
