package ports

import "github.com/network-observability/network-observability-lab/internal/domain"

type WALEntryID uint64

// WAL is the append-only durability layer between intake and the
// normalization loop. Entries survive restarts until committed.
type WAL interface {
	Append(s *domain.Sample) (WALEntryID, error)
	Iterate(from WALEntryID, fn func(id WALEntryID, s *domain.Sample) error) error
	Commit(upto WALEntryID) error
	TruncateCommitted() error
	Stats() WALStats
}

type WALStats struct {
	OldestUncommitted WALEntryID
	LatestAppended    WALEntryID
	SizeBytes         int64
}
