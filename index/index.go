package index

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/sigmatch/core"
	"github.com/poiesic/sigmatch/extract"
)

// Version identifies the similarity metric the index is built with. Entries
// are only comparable within one metric; changing the metric requires a full
// rebuild under a new version string.
const Version = "cosine/v1"

// Metadata is the coarse per-signal information the index can pre-filter on.
type Metadata struct {
	Agency        string
	CategoryCodes []string
	ResponseDueAt time.Time // Zero means no response deadline
}

// Entry is one indexed signal.
type Entry struct {
	SignalId core.ID
	Vector   []float32
	Metadata Metadata
}

// Hit is a search result: a signal and its cosine similarity to the query.
type Hit struct {
	SignalId   core.ID
	Similarity float64
}

// SearchFilter narrows candidates before top-K selection.
type SearchFilter struct {
	Agency         string    // Exact match; empty matches any agency
	CategoryCodes  []string  // Any-of match; empty matches any code
	IncludeExpired bool      // Keep signals whose deadline has passed
	Now            time.Time // Expiry reference instant; zero means time.Now()
}

// snapshot is an immutable view of the index. Readers work against one
// snapshot for an entire search; writers publish a new snapshot atomically.
type snapshot struct {
	entries []Entry // sorted by SignalId
	byID    map[core.ID]int
}

var emptySnapshot = &snapshot{byID: map[core.ID]int{}}

// Index is an in-memory nearest-neighbor index over signal vectors using
// cosine similarity. Reads are lock-free against immutable snapshots; writes
// are serialized and publish via copy-on-swap, so a search never observes a
// half-updated index.
type Index struct {
	mu         sync.Mutex // serializes writers
	dimensions int        // fixed by the first vector; guarded by mu
	snap       atomic.Pointer[snapshot]
}

// New creates an empty index.
func New() *Index {
	idx := &Index{}
	idx.snap.Store(emptySnapshot)
	return idx
}

// Len returns the number of indexed signals.
func (idx *Index) Len() int {
	return len(idx.snap.Load().entries)
}

// Dimensions returns the vector size the index is locked to, or 0 while empty.
func (idx *Index) Dimensions() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.dimensions
}

// Upsert inserts or replaces the entry for a signal. The vector is copied
// and normalized to unit length. The first vector fixes the index dimension;
// mismatched vectors fail with core.ErrInvalidArgument.
func (idx *Index) Upsert(id core.ID, vector []float32, meta Metadata) error {
	if id == "" {
		return fmt.Errorf("%w: empty signal id", core.ErrInvalidArgument)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector", core.ErrInvalidArgument)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.checkDimensions(vector); err != nil {
		return err
	}

	entry := Entry{
		SignalId: id,
		Vector:   extract.NormalizeVector(vector),
		Metadata: meta,
	}

	old := idx.snap.Load()
	entries := make([]Entry, len(old.entries))
	copy(entries, old.entries)

	if pos, ok := old.byID[id]; ok {
		entries[pos] = entry
	} else {
		pos = sort.Search(len(entries), func(i int) bool { return entries[i].SignalId >= id })
		entries = append(entries, Entry{})
		copy(entries[pos+1:], entries[pos:])
		entries[pos] = entry
	}

	idx.publish(entries)
	return nil
}

// Remove deletes a signal from the index. Removing an absent id is a no-op.
func (idx *Index) Remove(id core.ID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	old := idx.snap.Load()
	pos, ok := old.byID[id]
	if !ok {
		return
	}

	entries := make([]Entry, 0, len(old.entries)-1)
	entries = append(entries, old.entries[:pos]...)
	entries = append(entries, old.entries[pos+1:]...)
	idx.publish(entries)
}

// Reload replaces the entire index contents in one swap. Used on startup and
// after bulk re-embedding. Entries with empty ids or mismatched dimensions
// fail the whole reload with core.ErrInvalidArgument; the previous snapshot
// stays live.
func (idx *Index) Reload(entries []Entry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	// A reload may change the vector dimension wholesale (model migration).
	idx.dimensions = 0

	fresh := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.SignalId == "" {
			return fmt.Errorf("%w: empty signal id", core.ErrInvalidArgument)
		}
		if len(e.Vector) == 0 {
			return fmt.Errorf("%w: empty vector for signal %s", core.ErrInvalidArgument, e.SignalId)
		}
		if err := idx.checkDimensions(e.Vector); err != nil {
			return err
		}
		fresh = append(fresh, Entry{
			SignalId: e.SignalId,
			Vector:   extract.NormalizeVector(e.Vector),
			Metadata: e.Metadata,
		})
	}

	sort.Slice(fresh, func(i, j int) bool { return fresh[i].SignalId < fresh[j].SignalId })
	idx.publish(fresh)
	return nil
}

// Search returns up to k eligible signals ordered by similarity descending.
// The filter applies before top-K selection, so k bounds eligible results,
// not raw candidates. Equal similarities order by lexicographically lower
// signal id. k <= 0 fails with core.ErrInvalidArgument; searching an empty
// index returns an empty slice.
func (idx *Index) Search(vector []float32, k int, filter SearchFilter) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", core.ErrInvalidArgument, k)
	}

	snap := idx.snap.Load()
	if len(snap.entries) == 0 {
		return []Hit{}, nil
	}

	if len(vector) != len(snap.entries[0].Vector) {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index has %d",
			core.ErrInvalidArgument, len(vector), len(snap.entries[0].Vector))
	}

	now := filter.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	hits := make([]Hit, 0, len(snap.entries))
	for _, entry := range snap.entries {
		if !eligible(&entry.Metadata, &filter, now) {
			continue
		}
		hits = append(hits, Hit{
			SignalId:   entry.SignalId,
			Similarity: dotProduct(vector, entry.Vector),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].SignalId < hits[j].SignalId
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// publish installs a new snapshot. Must be called with mu held.
func (idx *Index) publish(entries []Entry) {
	byID := make(map[core.ID]int, len(entries))
	for i, e := range entries {
		byID[e.SignalId] = i
	}
	idx.snap.Store(&snapshot{entries: entries, byID: byID})
}

// checkDimensions locks the index to the first observed vector size.
// Must be called with mu held.
func (idx *Index) checkDimensions(vector []float32) error {
	if idx.dimensions == 0 {
		idx.dimensions = len(vector)
		return nil
	}
	if len(vector) != idx.dimensions {
		return fmt.Errorf("%w: vector has %d dimensions, index has %d",
			core.ErrInvalidArgument, len(vector), idx.dimensions)
	}
	return nil
}

func eligible(meta *Metadata, filter *SearchFilter, now time.Time) bool {
	if filter.Agency != "" && meta.Agency != filter.Agency {
		return false
	}

	if len(filter.CategoryCodes) > 0 && !intersects(meta.CategoryCodes, filter.CategoryCodes) {
		return false
	}

	if !filter.IncludeExpired && !meta.ResponseDueAt.IsZero() && meta.ResponseDueAt.Before(now) {
		return false
	}

	return true
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// dotProduct calculates the dot product of two vectors. Both sides are unit
// length, so this equals cosine similarity.
func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
