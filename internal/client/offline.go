package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"

	"cartscout/internal/domain"
)

var (
	ErrListsUnavailable = errors.New("failed to load lists")
	ErrListUnavailable  = errors.New("failed to load list")
)

// Mutation kinds that can wait in the queue.
const (
	MutationCreateList  = "list.create"
	MutationUpdateList  = "list.update"
	MutationDeleteList  = "list.delete"
	MutationSetStores   = "list.stores"
	MutationAddItem     = "item.add"
	MutationUpdateItem  = "item.update"
	MutationDeleteItem  = "item.delete"
	MutationReorderItem = "item.reorder"
)

// Mutation is one queued write.
type Mutation struct {
	Type    string          `json:"type"`
	Payload MutationPayload `json:"payload"`
	TS      string          `json:"ts"`
}

type MutationPayload struct {
	ListID string          `json:"list_id,omitempty"`
	ItemID string          `json:"item_id,omitempty"`
	Body   json.RawMessage `json:"body,omitempty"`
	// PendingID is the local id a queued list.create or item.add stands for
	// in the snapshot until the server assigns the real one.
	PendingID string `json:"pending_id,omitempty"`
}

const (
	pendingPrefix   = "pending-"
	defaultListName = "New list"
)

func isPending(id string) bool { return strings.HasPrefix(id, pendingPrefix) }

type reorderBody struct {
	ItemIDs []string `json:"item_ids"`
}

// refsPending reports whether m points at a list or item that only exists
// locally so far.
func (m Mutation) refsPending() bool {
	p := m.Payload
	if isPending(p.ListID) || isPending(p.ItemID) {
		return true
	}
	if m.Type == MutationReorderItem {
		var body reorderBody
		if json.Unmarshal(p.Body, &body) == nil {
			for _, id := range body.ItemIDs {
				if isPending(id) {
					return true
				}
			}
		}
	}
	return false
}

// resolve rewrites pending ids in m with the server ids learned so far.
func (m Mutation) resolve(ids map[string]string) Mutation {
	if len(ids) == 0 {
		return m
	}
	if to, ok := ids[m.Payload.ListID]; ok {
		m.Payload.ListID = to
	}
	if to, ok := ids[m.Payload.ItemID]; ok {
		m.Payload.ItemID = to
	}
	if m.Type == MutationReorderItem {
		var body reorderBody
		if json.Unmarshal(m.Payload.Body, &body) == nil {
			changed := false
			for i, id := range body.ItemIDs {
				if to, ok := ids[id]; ok {
					body.ItemIDs[i] = to
					changed = true
				}
			}
			if raw, err := json.Marshal(body); changed && err == nil {
				m.Payload.Body = raw
			}
		}
	}
	return m
}

func newMutation(kind, listID, itemID string, body any) (Mutation, error) {
	m := Mutation{Type: kind, Payload: MutationPayload{ListID: listID, ItemID: itemID}, TS: domain.Now()}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return m, fmt.Errorf("encode %s: %w", kind, err)
		}
		m.Payload.Body = raw
	}
	return m, nil
}

func (m Mutation) request() (request, error) {
	r := request{auth: true}
	p := m.Payload
	switch m.Type {
	case MutationCreateList:
		r.method, r.path = http.MethodPost, apiPrefix+"/lists"
	case MutationUpdateList:
		r.method, r.path = http.MethodPatch, listPath(p.ListID)
	case MutationDeleteList:
		r.method, r.path = http.MethodDelete, listPath(p.ListID)
	case MutationSetStores:
		r.method, r.path = http.MethodPut, listPath(p.ListID)+"/stores"
	case MutationAddItem:
		r.method, r.path = http.MethodPost, listPath(p.ListID)+"/items"
	case MutationUpdateItem:
		r.method, r.path = http.MethodPatch, itemPath(p.ListID, p.ItemID)
	case MutationDeleteItem:
		r.method, r.path = http.MethodDelete, itemPath(p.ListID, p.ItemID)
	case MutationReorderItem:
		r.method, r.path = http.MethodPut, listPath(p.ListID)+"/items/order"
	default:
		return r, fmt.Errorf("unknown mutation type %q", m.Type)
	}
	if len(p.Body) > 0 {
		r.body = p.Body
	}
	return r, nil
}

// apply sends a mutation and returns the response data.
func (c *Client) apply(ctx context.Context, m Mutation) (json.RawMessage, error) {
	r, err := m.request()
	if err != nil {
		return nil, err
	}
	resp, err := c.roundTrip(ctx, r)
	if err != nil {
		return nil, err
	}
	return resp.env.Data, nil
}

// OfflineLists reads lists through the snapshot cache and queues writes that
// cannot reach the server. There is no conflict resolution: whichever write
// reaches the server last wins.
type OfflineLists struct {
	Client *Client
	Cache  *Cache
	// Pace spaces out replayed mutations. Nil replays as fast as possible.
	Pace *rate.Limiter
	// Workers bounds the parallel fetches of Refresh.
	Workers int

	mu sync.Mutex
}

func NewOfflineLists(c *Client, cache *Cache) *OfflineLists {
	return &OfflineLists{
		Client:  c,
		Cache:   cache,
		Pace:    rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		Workers: 4,
	}
}

// Lists fetches the user's lists. When the server is unreachable it falls back
// to the snapshot and reports fromCache.
func (o *OfflineLists) Lists(ctx context.Context) (lists []domain.List, fromCache bool, err error) {
	lists, err = o.Client.Lists(ctx)
	if err == nil {
		lists = dedupeLists(lists)
		o.Cache.SaveLists(lists)
		return lists, false, nil
	}
	if !Unreachable(err) {
		return nil, false, err
	}
	cached := dedupeLists(o.Cache.Lists())
	if len(cached) == 0 {
		return nil, false, ErrListsUnavailable
	}
	return cached, true, nil
}

// List fetches one list with items, falling back to its snapshot.
func (o *OfflineLists) List(ctx context.Context, id string) (domain.ListWithItems, bool, error) {
	l, err := o.Client.List(ctx, id)
	if err == nil {
		l.Items = dedupeItems(l.Items)
		o.Cache.SaveList(l)
		return l, false, nil
	}
	if !Unreachable(err) {
		var ae *APIError
		if errors.As(err, &ae) && ae.Status == http.StatusNotFound {
			o.Cache.DropList(id)
		}
		return domain.ListWithItems{}, false, err
	}
	cached, ok := o.Cache.List(id)
	if !ok {
		return domain.ListWithItems{}, false, ErrListUnavailable
	}
	cached.Items = dedupeItems(cached.Items)
	return cached, true, nil
}

// Refresh rebuilds the snapshot: the lists plus every list's detail.
func (o *OfflineLists) Refresh(ctx context.Context) error {
	lists, err := o.Client.Lists(ctx)
	if err != nil {
		return err
	}
	lists = dedupeLists(lists)
	o.Cache.SaveLists(lists)

	workers := o.Workers
	if workers < 1 {
		workers = 1
	}
	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for _, l := range lists {
		id := l.ID
		p.Go(func(ctx context.Context) error {
			full, err := o.Client.List(ctx, id)
			if err != nil {
				return fmt.Errorf("list %s: %w", id, err)
			}
			full.Items = dedupeItems(full.Items)
			o.Cache.SaveList(full)
			return nil
		})
	}
	return p.Wait()
}

// Apply sends a mutation. When the server is unreachable the mutation is
// queued, reflected in the snapshot, and queued is true. Mutations on lists or
// items created offline always queue behind the write that creates them.
func (o *OfflineLists) Apply(ctx context.Context, m Mutation) (queued bool, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if m.refsPending() {
		return o.enqueue(m)
	}
	data, err := o.Client.apply(ctx, m)
	if err == nil {
		o.applyLocal(m, data)
		return false, nil
	}
	if !Unreachable(err) {
		return false, err
	}
	return o.enqueue(m)
}

func (o *OfflineLists) enqueue(m Mutation) (bool, error) {
	if (m.Type == MutationCreateList || m.Type == MutationAddItem) && m.Payload.PendingID == "" {
		m.Payload.PendingID = pendingPrefix + uuid.NewString()
	}
	if err := o.Cache.Enqueue(m); err != nil {
		return false, fmt.Errorf("queue %s: %w", m.Type, err)
	}
	o.applyLocal(m, nil)
	return true, nil
}

func (o *OfflineLists) CreateList(ctx context.Context, in ListInput) (bool, error) {
	return o.build(ctx, MutationCreateList, "", "", in)
}

func (o *OfflineLists) UpdateList(ctx context.Context, id string, p ListPatch) (bool, error) {
	return o.build(ctx, MutationUpdateList, id, "", p)
}

func (o *OfflineLists) DeleteList(ctx context.Context, id string) (bool, error) {
	return o.build(ctx, MutationDeleteList, id, "", nil)
}

func (o *OfflineLists) SetStores(ctx context.Context, id string, storeIDs []string) (bool, error) {
	return o.build(ctx, MutationSetStores, id, "", map[string][]string{"store_ids": storeIDs})
}

func (o *OfflineLists) AddItem(ctx context.Context, listID string, in ItemInput) (bool, error) {
	return o.build(ctx, MutationAddItem, listID, "", in)
}

func (o *OfflineLists) UpdateItem(ctx context.Context, listID, itemID string, p ItemPatch) (bool, error) {
	return o.build(ctx, MutationUpdateItem, listID, itemID, p)
}

func (o *OfflineLists) CheckItem(ctx context.Context, listID, itemID string, checked bool) (bool, error) {
	return o.UpdateItem(ctx, listID, itemID, ItemPatch{Checked: &checked})
}

func (o *OfflineLists) DeleteItem(ctx context.Context, listID, itemID string) (bool, error) {
	return o.build(ctx, MutationDeleteItem, listID, itemID, nil)
}

func (o *OfflineLists) ReorderItems(ctx context.Context, listID string, itemIDs []string) (bool, error) {
	return o.build(ctx, MutationReorderItem, listID, "", map[string][]string{"item_ids": itemIDs})
}

func (o *OfflineLists) build(ctx context.Context, kind, listID, itemID string, body any) (bool, error) {
	m, err := newMutation(kind, listID, itemID, body)
	if err != nil {
		return false, err
	}
	return o.Apply(ctx, m)
}

// Pending is the number of mutations waiting for the server.
func (o *OfflineLists) Pending() int {
	return len(o.Cache.Pending())
}

// FlushResult counts what happened to the queued mutations.
type FlushResult struct {
	Applied   int
	Dropped   int
	Remaining int
}

// Flush replays queued mutations in order. It stops at the first mutation
// the server cannot take right now, keeping it and everything after it.
// Mutations the server rejects are dropped. Ids of lists and items created
// offline are swapped for the server's ids as their creates go through.
func (o *OfflineLists) Flush(ctx context.Context) (FlushResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var res FlushResult
	q, err := o.Cache.LoadPending()
	if err != nil {
		return res, err
	}
	ids := map[string]string{}
	keep := func(i int, cause error) (FlushResult, error) {
		rest := make([]Mutation, 0, len(q)-i)
		for _, m := range q[i:] {
			rest = append(rest, m.resolve(ids))
		}
		res.Remaining = len(rest)
		return res, errors.Join(cause, o.Cache.SetPending(rest))
	}
	for i, queued := range q {
		if o.Pace != nil {
			if err := o.Pace.Wait(ctx); err != nil {
				return keep(i, err)
			}
		}
		m := queued.resolve(ids)
		data, err := o.Client.apply(ctx, m)
		switch {
		case err == nil:
			res.Applied++
			o.settle(m, data, ids)
		case held(err):
			return keep(i, err)
		default:
			res.Dropped++
		}
	}
	return res, o.Cache.SetPending(nil)
}

// held reports answers that say nothing about the mutation itself: the
// server is unreachable, the session is gone, requests are throttled, or the
// caller gave up. Such mutations stay queued.
func held(err error) bool {
	if Unreachable(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ae *APIError
	return errors.As(err, &ae) && (ae.Status == http.StatusUnauthorized || ae.Status == http.StatusTooManyRequests)
}

// settle records the server id of a list or item created offline and swaps
// it into the snapshot.
func (o *OfflineLists) settle(m Mutation, data json.RawMessage, ids map[string]string) {
	pending := m.Payload.PendingID
	if pending == "" || len(data) == 0 {
		return
	}
	switch m.Type {
	case MutationCreateList:
		var l domain.List
		if json.Unmarshal(data, &l) != nil || l.ID == "" {
			return
		}
		ids[pending] = l.ID
		o.swapList(pending, l)
	case MutationAddItem:
		var it domain.ListItem
		if json.Unmarshal(data, &it) != nil || it.ID == "" {
			return
		}
		ids[pending] = it.ID
		o.swapItem(m.Payload.ListID, pending, it)
	}
}

func (o *OfflineLists) swapList(pending string, l domain.List) {
	lists := o.Cache.Lists()
	found := false
	for i := range lists {
		if lists[i].ID == pending {
			lists[i] = l
			found = true
		}
	}
	if !found {
		lists = append(lists, l)
	}
	o.Cache.SaveLists(lists)
	items := []domain.ListItem{}
	if full, ok := o.Cache.List(pending); ok {
		items = full.Items
	}
	o.Cache.SaveList(domain.ListWithItems{List: l, Items: items})
	o.Cache.DropList(pending)
}

// swapItem replaces a pending item with the server's copy, keeping the local
// checked state and quantity, which later queued updates will bring along.
func (o *OfflineLists) swapItem(listID, pending string, it domain.ListItem) {
	full, ok := o.Cache.List(listID)
	if !ok {
		return
	}
	for i := range full.Items {
		if full.Items[i].ID == pending {
			it.Checked = full.Items[i].Checked
			it.Quantity = full.Items[i].Quantity
			full.Items[i] = it
		}
	}
	o.Cache.SaveList(full)
}

// applyLocal mirrors a mutation into the snapshot. data is the server's answer
// when there was one.
func (o *OfflineLists) applyLocal(m Mutation, data json.RawMessage) {
	p := m.Payload
	switch m.Type {
	case MutationDeleteList:
		o.Cache.DropList(p.ListID)
	case MutationUpdateList:
		var l domain.List
		if len(data) > 0 && json.Unmarshal(data, &l) == nil && l.ID != "" {
			o.replaceList(l)
			return
		}
		var patch struct {
			Name *string `json:"name"`
		}
		if json.Unmarshal(p.Body, &patch) != nil || patch.Name == nil {
			return
		}
		if full, ok := o.Cache.List(p.ListID); ok {
			full.Name = *patch.Name
			o.replaceList(full.List)
		}
	case MutationCreateList:
		var l domain.List
		if len(data) == 0 || json.Unmarshal(data, &l) != nil || l.ID == "" {
			if p.PendingID == "" {
				return
			}
			l = pendingList(p.PendingID, p.Body, m.TS)
		}
		o.Cache.SaveLists(append(o.Cache.Lists(), l))
		o.Cache.SaveList(domain.ListWithItems{List: l, Items: []domain.ListItem{}})
	case MutationAddItem:
		full, ok := o.Cache.List(p.ListID)
		if !ok {
			return
		}
		var it domain.ListItem
		if len(data) == 0 || json.Unmarshal(data, &it) != nil || it.ID == "" {
			var in ItemInput
			if json.Unmarshal(p.Body, &in) != nil {
				return
			}
			id := p.PendingID
			if id == "" {
				id = pendingPrefix + uuid.NewString()
			}
			it = domain.ListItem{
				ID:                 id,
				CanonicalProductID: in.CanonicalProductID,
				FreeText:           in.FreeText,
				Quantity:           1,
				SortOrder:          len(full.Items) + 1,
				CreatedAt:          m.TS,
			}
			if in.Quantity != nil {
				it.Quantity = *in.Quantity
			}
		}
		full.Items = append(full.Items, it)
		o.Cache.SaveList(full)
	case MutationUpdateItem:
		full, ok := o.Cache.List(p.ListID)
		if !ok {
			return
		}
		var patch ItemPatch
		if json.Unmarshal(p.Body, &patch) != nil {
			return
		}
		for i := range full.Items {
			if full.Items[i].ID != p.ItemID {
				continue
			}
			if patch.Checked != nil {
				full.Items[i].Checked = *patch.Checked
			}
			if patch.Quantity != nil {
				full.Items[i].Quantity = *patch.Quantity
			}
		}
		o.Cache.SaveList(full)
	case MutationDeleteItem:
		full, ok := o.Cache.List(p.ListID)
		if !ok {
			return
		}
		kept := full.Items[:0]
		for _, it := range full.Items {
			if it.ID != p.ItemID {
				kept = append(kept, it)
			}
		}
		full.Items = kept
		o.Cache.SaveList(full)
	}
}

// pendingList is the snapshot stand-in for a list created offline, with the
// same defaults the server applies.
func pendingList(id string, body json.RawMessage, ts string) domain.List {
	var in ListInput
	_ = json.Unmarshal(body, &in)
	l := domain.List{
		ID:        id,
		Name:      strings.TrimSpace(in.Name),
		ListType:  in.ListType,
		WeekStart: in.WeekStart,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if l.Name == "" {
		l.Name = defaultListName
	}
	switch l.ListType {
	case domain.ListCurrentWeek, domain.ListNextOrder, domain.ListCustom:
	default:
		l.ListType = domain.ListCustom
	}
	return l
}

func (o *OfflineLists) replaceList(l domain.List) {
	if lists := o.Cache.Lists(); lists != nil {
		for i := range lists {
			if lists[i].ID == l.ID {
				lists[i] = l
			}
		}
		o.Cache.SaveLists(lists)
	}
	if full, ok := o.Cache.List(l.ID); ok {
		full.List = l
		o.Cache.SaveList(full)
	}
}

func dedupeLists(in []domain.List) []domain.List {
	seen := make(map[string]bool, len(in))
	out := make([]domain.List, 0, len(in))
	for _, l := range in {
		if seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		out = append(out, l)
	}
	return out
}

func dedupeItems(in []domain.ListItem) []domain.ListItem {
	seen := make(map[string]bool, len(in))
	out := make([]domain.ListItem, 0, len(in))
	for _, it := range in {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}
