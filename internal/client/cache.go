package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"sync"

	"github.com/spf13/afero"

	"cartscout/internal/domain"
)

// ErrQueueCorrupt means queue.json could not be decoded.
var ErrQueueCorrupt = errors.New("mutation queue unreadable")

const (
	listsFile = "lists.json"
	queueFile = "queue.json"
)

// Cache holds JSON snapshots of the last successful fetches. Snapshot reads
// and writes never fail loudly: a broken or missing file is a cache miss.
type Cache struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
}

func NewCache(fs afero.Fs, dir string) *Cache {
	return &Cache{fs: fs, dir: dir}
}

// Lists returns the lists snapshot, or nil when there is none.
func (c *Cache) Lists() []domain.List {
	var out []domain.List
	if !c.read(listsFile, &out) {
		return nil
	}
	return out
}

func (c *Cache) SaveLists(lists []domain.List) {
	c.write(listsFile, lists)
}

// List returns the snapshot of one list with items.
func (c *Cache) List(id string) (domain.ListWithItems, bool) {
	var out domain.ListWithItems
	ok := c.read(listFile(id), &out)
	return out, ok && out.ID != ""
}

func (c *Cache) SaveList(l domain.ListWithItems) {
	c.write(listFile(l.ID), l)
}

// DropList removes a list from both snapshots.
func (c *Cache) DropList(id string) {
	if lists := c.Lists(); lists != nil {
		kept := lists[:0]
		for _, l := range lists {
			if l.ID != id {
				kept = append(kept, l)
			}
		}
		c.SaveLists(kept)
	}
	c.mu.Lock()
	_ = c.fs.Remove(path.Join(c.dir, listFile(id)))
	c.mu.Unlock()
}

// Pending returns the queued mutations in order. An unreadable queue reads
// as empty; see LoadPending.
func (c *Cache) Pending() []Mutation {
	q, _ := c.LoadPending()
	return q
}

// LoadPending returns the queued mutations in order. A queue file that
// cannot be decoded is moved to queue.json.bad and reported with
// ErrQueueCorrupt, so it is never overwritten.
func (c *Cache) LoadPending() ([]Mutation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, _, err := c.loadPendingLocked()
	return q, err
}

// loadPendingLocked reads the queue. setAside is true when a corrupt file was
// moved out of the way, leaving no queue behind.
func (c *Cache) loadPendingLocked() (q []Mutation, setAside bool, err error) {
	full := path.Join(c.dir, queueFile)
	raw, err := afero.ReadFile(c.fs, full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if derr := json.Unmarshal(raw, &q); derr != nil {
		if rerr := c.fs.Rename(full, full+".bad"); rerr != nil {
			return nil, false, fmt.Errorf("%w: %v (set aside: %v)", ErrQueueCorrupt, derr, rerr)
		}
		return nil, true, fmt.Errorf("%w: moved to %s.bad: %v", ErrQueueCorrupt, queueFile, derr)
	}
	return q, false, nil
}

// Enqueue appends a mutation to the queue. Unlike snapshots a lost mutation
// is lost work, so this one reports failure. A corrupt queue file is set
// aside first and a new queue is started.
func (c *Cache) Enqueue(m Mutation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, setAside, err := c.loadPendingLocked()
	if err != nil && !setAside {
		return err
	}
	q = append(q, m)
	return c.writeLocked(queueFile, q)
}

// SetPending replaces the queue. An empty queue removes the file.
func (c *Cache) SetPending(q []Mutation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(q) == 0 {
		err := c.fs.Remove(path.Join(c.dir, queueFile))
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return c.writeLocked(queueFile, q)
}

func (c *Cache) read(name string, v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := afero.ReadFile(c.fs, path.Join(c.dir, name))
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func (c *Cache) write(name string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.writeLocked(name, v)
}

// writeLocked writes through a temp file so a crash never leaves half a
// snapshot behind.
func (c *Cache) writeLocked(name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := c.fs.MkdirAll(c.dir, 0o700); err != nil {
		return err
	}
	full := path.Join(c.dir, name)
	tmp := full + ".tmp"
	if err := afero.WriteFile(c.fs, tmp, raw, 0o600); err != nil {
		return err
	}
	return c.fs.Rename(tmp, full)
}

func listFile(id string) string {
	return "list_" + url.PathEscape(id) + ".json"
}
