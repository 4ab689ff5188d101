package bucketing

import (
	"hash"
	"sync"

	"github.com/spaolacci/murmur3"

	"mathmentor-api/internal/config"
)

// BucketingManager maps profile ids onto a fixed number of partition
// buckets so the profiles table spreads evenly across the cluster.
type BucketingManager struct {
	profileBuckets int
	hasherPool     sync.Pool
}

func NewBucketingManager(cfg *config.Config) *BucketingManager {
	bm := &BucketingManager{
		profileBuckets: cfg.Bucketing.ProfileBuckets,
	}

	// Pool the hash state to avoid per-request allocation.
	bm.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return bm
}

// GetProfileBucket returns the stable bucket for a profile id.
func (bm *BucketingManager) GetProfileBucket(profileID string) int {
	h := bm.hasherPool.Get().(hash.Hash64)
	defer bm.hasherPool.Put(h)

	h.Reset()
	_, _ = h.Write([]byte(profileID))

	return int(h.Sum64() % uint64(bm.profileBuckets))
}

// Buckets returns the configured bucket count.
func (bm *BucketingManager) Buckets() int {
	return bm.profileBuckets
}
