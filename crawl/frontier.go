package crawl

import (
	"strings"
	"sync"

	"github.com/fwojciec/sitechat/bloom"
)

// Entry is a frontier item: a URL and the depth at which it was discovered.
type Entry struct {
	URL   string
	Depth int
}

// Frontier is a FIFO crawl queue that admits each URL at most once.
// A Bloom filter answers the common "never seen" case and an exact set
// confirms possible hits, so no URL is ever dropped by a false positive.
// It is safe for concurrent use by multiple goroutines.
type Frontier struct {
	mu    sync.Mutex
	bloom *bloom.Filter
	seen  map[string]struct{}
	queue []Entry
	head  int
}

// NewFrontier creates a new Frontier sized for n expected URLs
// with the given false positive rate for the Bloom prefilter.
func NewFrontier(n uint, fpRate float64) *Frontier {
	return &Frontier{
		bloom: bloom.NewFilter(n, fpRate),
		seen:  make(map[string]struct{}),
	}
}

// Push appends an entry to the back of the queue.
// Returns false if the URL has already been pushed. URLs differing only by
// fragment are duplicates; the stored URL has no fragment.
func (f *Frontier) Push(e Entry) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	e.URL = stripFragment(e.URL)
	if f.bloom.TestAndAdd(e.URL) {
		if _, ok := f.seen[e.URL]; ok {
			return false
		}
	}
	f.seen[e.URL] = struct{}{}
	f.queue = append(f.queue, e)
	return true
}

// Pop removes and returns the oldest entry.
// The bool result is false if the frontier is empty.
func (f *Frontier) Pop() (Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.head == len(f.queue) {
		return Entry{}, false
	}
	e := f.queue[f.head]
	f.queue[f.head] = Entry{}
	f.head++
	if f.head == len(f.queue) {
		f.queue = f.queue[:0]
		f.head = 0
	}
	return e, true
}

// Len returns the number of queued entries.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue) - f.head
}

func stripFragment(rawURL string) string {
	u, _, _ := strings.Cut(rawURL, "#")
	return u
}
