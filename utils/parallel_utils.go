package utils

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// AutoThreads requests one worker per schedulable CPU
const AutoThreads = -1

// ThreadCount resolves a requested thread count, AutoThreads or any value
// below one maps to GOMAXPROCS
func ThreadCount(requested int) int {
	if requested < 1 {
		return runtime.GOMAXPROCS(0)
	}
	return requested
}

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	if ParallelDegree < 1 {
		ParallelDegree = 1
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// This routine splits one dimension into c.ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

// RunBuckets calls fn once per non-empty bucket on its own goroutine and
// returns the first error. fn must only write to state owned by its bucket.
func (pm *PartitionMap) RunBuckets(fn func(bucketNum, kMin, kMax int) error) error {
	var eg errgroup.Group
	for bn := 0; bn < pm.ParallelDegree; bn++ {
		kMin, kMax := pm.GetBucketRange(bn)
		if kMax == kMin {
			continue
		}
		eg.Go(func() error { return fn(bn, kMin, kMax) })
	}
	return eg.Wait()
}

// ForEach runs fn(i) for i in [0,n) with at most threads concurrent calls,
// returning the first error. Later items are skipped after a failure.
func ForEach(threads, n int, fn func(i int) error) error {
	var (
		eg     errgroup.Group
		failed = make(chan struct{})
		once   = make(chan struct{}, 1)
	)
	eg.SetLimit(ThreadCount(threads))
	for i := 0; i < n; i++ {
		select {
		case <-failed:
			return eg.Wait()
		default:
		}
		eg.Go(func() error {
			if err := fn(i); err != nil {
				select {
				case once <- struct{}{}:
					close(failed)
				default:
				}
				return err
			}
			return nil
		})
	}
	return eg.Wait()
}
