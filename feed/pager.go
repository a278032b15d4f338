package feed

import (
	"slices"
	"sync"
)


// Reveal pagination: the whole feed is already resident, and the window only controls
// how much of it is exposed. Growing the window never fetches.


func DefaultRevealPagerSettings() *RevealPagerSettings {
	return &RevealPagerSettings{
		InitialSize: 10,
		Increment:   10,
	}
}

type RevealPagerSettings struct {
	InitialSize int
	Increment   int
}


// `Visible <= Total`
type FeedWindow struct {
	Total   int
	Visible int
}

func (self FeedWindow) HasMore() bool {
	return self.Visible < self.Total
}


type RevealPager struct {
	settings *RevealPagerSettings

	stateLock sync.Mutex
	// the logical reveal size. May exceed the total
	revealed int
	window   FeedWindow
}

func NewRevealPagerWithDefaults() *RevealPager {
	return NewRevealPager(DefaultRevealPagerSettings())
}

func NewRevealPager(settings *RevealPagerSettings) *RevealPager {
	return &RevealPager{
		settings: settings,
	}
}

func (self *RevealPager) Window() FeedWindow {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.window
}

// on a full refresh
func (self *RevealPager) Reset(total int) FeedWindow {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.revealed = self.settings.InitialSize
	return self.setTotalWithLock(total)
}

// the viewer reached the end of the visible slice
func (self *RevealPager) EndReached() FeedWindow {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.window.Visible < self.window.Total {
		self.revealed = self.window.Visible + self.settings.Increment
		self.window.Visible = min(self.revealed, self.window.Total)
	}
	return self.window
}

// The store length changed without a refresh.
// The window shows up to the revealed size, so it grows back after a shrink.
func (self *RevealPager) SetTotal(total int) FeedWindow {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.setTotalWithLock(total)
}

func (self *RevealPager) setTotalWithLock(total int) FeedWindow {
	total = max(0, total)
	self.window = FeedWindow{
		Total:   total,
		Visible: min(self.revealed, total),
	}
	return self.window
}


// Descending by creation time. Entries without a readable time sort as epoch 0.
// Stable, so equal times keep the server order.
func SortStatuses(entries []*StatusEntry) []*StatusEntry {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a *StatusEntry, b *StatusEntry) int {
		ta := sortTime(a)
		tb := sortTime(b)
		if tb < ta {
			return -1
		} else if ta < tb {
			return 1
		} else {
			return 0
		}
	})
	return sorted
}

func sortTime(entry *StatusEntry) int64 {
	if entry.CreatedAt.IsZero() {
		return 0
	}
	return entry.CreatedAt.UnixMilli()
}
