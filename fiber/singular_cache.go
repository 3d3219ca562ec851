package fiber

import (
	"sync"

	"github.com/notargets/gobem/basis"
	"github.com/notargets/gobem/quadrature"
	"github.com/notargets/gobem/types"
)

// singularKey identifies a reference configuration of a touching pair.
// Pairs with equal keys share quadrature points and basis data.
type singularKey struct {
	testVariant, trialVariant types.ElementVariant
	adjacency                 quadrature.Adjacency
	shared                    [4]SharedCorner
	nShared                   int
	testOrder, trialOrder     int
	points                    int
}

// SingularRule is a quadrature over a touching element pair in element
// reference coordinates with the shape function data at its points
type SingularRule struct {
	TestPoints, TrialPoints [][2]float64
	Weights                 []float64
	TestBasis, TrialBasis   basis.Data
}

type cacheEntry struct {
	once sync.Once
	rule *SingularRule
	err  error
}

// SingularCache memoizes singular rules per reference configuration. Each
// entry is built once; concurrent readers of an entry under construction
// wait for it.
type SingularCache struct {
	mu      sync.Mutex
	entries map[singularKey]*cacheEntry
}

func NewSingularCache() *SingularCache {
	return &SingularCache{entries: make(map[singularKey]*cacheEntry)}
}

func (sc *SingularCache) get(key singularKey, build func() (*SingularRule, error)) (*SingularRule, error) {
	sc.mu.Lock()
	entry, ok := sc.entries[key]
	if !ok {
		entry = &cacheEntry{}
		sc.entries[key] = entry
	}
	sc.mu.Unlock()
	entry.once.Do(func() {
		entry.rule, entry.err = build()
	})
	return entry.rule, entry.err
}

// Len is the number of distinct configurations seen
func (sc *SingularCache) Len() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.entries)
}
