package feed

import (
	"sync"
)


// An immutable, ordered view of the feed.
// Every store mutation builds a new snapshot, so a reader holding one never sees a partial update.
type FeedSnapshot struct {
	order   []string
	entries map[string]*StatusEntry
}

func newFeedSnapshot(entries []*StatusEntry) *FeedSnapshot {
	snapshot := &FeedSnapshot{
		order:   make([]string, 0, len(entries)),
		entries: make(map[string]*StatusEntry, len(entries)),
	}
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		if _, ok := snapshot.entries[entry.Id]; !ok {
			snapshot.order = append(snapshot.order, entry.Id)
		}
		// a later duplicate replaces the value and keeps the first position
		snapshot.entries[entry.Id] = entry
	}
	return snapshot
}

func (self *FeedSnapshot) Len() int {
	return len(self.order)
}

func (self *FeedSnapshot) Get(id string) (*StatusEntry, bool) {
	entry, ok := self.entries[id]
	return entry, ok
}

func (self *FeedSnapshot) IndexOf(id string) int {
	for i, entryId := range self.order {
		if entryId == id {
			return i
		}
	}
	return -1
}

func (self *FeedSnapshot) Entries() []*StatusEntry {
	return self.Slice(len(self.order))
}

// the first `n` entries
func (self *FeedSnapshot) Slice(n int) []*StatusEntry {
	n = max(0, min(n, len(self.order)))
	entries := make([]*StatusEntry, n)
	for i := 0; i < n; i += 1 {
		entries[i] = self.entries[self.order[i]]
	}
	return entries
}

func (self *FeedSnapshot) with(order []string, entries map[string]*StatusEntry) *FeedSnapshot {
	return &FeedSnapshot{
		order:   order,
		entries: entries,
	}
}

func (self *FeedSnapshot) cloneEntries() map[string]*StatusEntry {
	entries := make(map[string]*StatusEntry, len(self.entries))
	for id, entry := range self.entries {
		entries[id] = entry
	}
	return entries
}


// The single owner of status entries.
type FeedStore struct {
	stateLock sync.Mutex
	snapshot  *FeedSnapshot
}

func NewFeedStore() *FeedStore {
	return &FeedStore{
		snapshot: newFeedSnapshot(nil),
	}
}

func (self *FeedStore) Snapshot() *FeedSnapshot {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.snapshot
}

// keeps the given order
func (self *FeedStore) ReplaceAll(entries []*StatusEntry) *FeedSnapshot {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.snapshot = newFeedSnapshot(entries)
	return self.snapshot
}

// replaces an existing entry in place, or prepends a new one
func (self *FeedStore) Upsert(entry *StatusEntry) *FeedSnapshot {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	entries := self.snapshot.cloneEntries()
	order := self.snapshot.order
	if _, ok := entries[entry.Id]; !ok {
		order = make([]string, 0, len(self.snapshot.order)+1)
		order = append(order, entry.Id)
		order = append(order, self.snapshot.order...)
	}
	entries[entry.Id] = entry
	self.snapshot = self.snapshot.with(order, entries)
	return self.snapshot
}

// inserts at `index` (clamped), or replaces in place when the id is already present
func (self *FeedStore) InsertAt(index int, entry *StatusEntry) *FeedSnapshot {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	entries := self.snapshot.cloneEntries()
	order := self.snapshot.order
	if _, ok := entries[entry.Id]; !ok {
		index = max(0, min(index, len(order)))
		nextOrder := make([]string, 0, len(order)+1)
		nextOrder = append(nextOrder, order[:index]...)
		nextOrder = append(nextOrder, entry.Id)
		nextOrder = append(nextOrder, order[index:]...)
		order = nextOrder
	}
	entries[entry.Id] = entry
	self.snapshot = self.snapshot.with(order, entries)
	return self.snapshot
}

// returns the removed entry and its index, or nil and -1
func (self *FeedStore) Remove(id string) (*FeedSnapshot, *StatusEntry, int) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	removed, ok := self.snapshot.entries[id]
	if !ok {
		return self.snapshot, nil, -1
	}
	index := self.snapshot.IndexOf(id)
	entries := self.snapshot.cloneEntries()
	delete(entries, id)
	order := make([]string, 0, len(self.snapshot.order)-1)
	order = append(order, self.snapshot.order[:index]...)
	order = append(order, self.snapshot.order[index+1:]...)
	self.snapshot = self.snapshot.with(order, entries)
	return self.snapshot, removed, index
}

// `update` returns the next value of the entry. Returns false when the id is not present.
func (self *FeedStore) Update(id string, update func(*StatusEntry) *StatusEntry) (*FeedSnapshot, bool) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	entry, ok := self.snapshot.entries[id]
	if !ok {
		return self.snapshot, false
	}
	next := update(entry)
	if next == entry {
		return self.snapshot, true
	}
	entries := self.snapshot.cloneEntries()
	entries[id] = next
	self.snapshot = self.snapshot.with(self.snapshot.order, entries)
	return self.snapshot, true
}

// applies `update` to every entry, in one new snapshot
func (self *FeedStore) UpdateAll(update func(*StatusEntry) *StatusEntry) *FeedSnapshot {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	changed := false
	entries := make(map[string]*StatusEntry, len(self.snapshot.entries))
	for id, entry := range self.snapshot.entries {
		next := update(entry)
		if next != entry {
			changed = true
		}
		entries[id] = next
	}
	if changed {
		self.snapshot = self.snapshot.with(self.snapshot.order, entries)
	}
	return self.snapshot
}
