package pooltypes

import (
	"strings"

	"github.com/cuemby/poolfs/pkg/poolerr"
	"github.com/google/uuid"
)

// PoolID is the 128-bit identifier shared by every volume in a pool.
type PoolID struct {
	value uuid.UUID
}

// NewPoolID generates a fresh random pool identifier.
func NewPoolID() PoolID {
	return PoolID{value: uuid.New()}
}

// ParsePoolID parses the canonical textual form of a 128-bit identifier.
func ParsePoolID(s string) (PoolID, error) {
	s = strings.Trim(s, "{}")
	id, err := uuid.Parse(s)
	if err != nil {
		return PoolID{}, poolerr.Wrap(poolerr.InvalidArgument, "ParsePoolID", err)
	}
	return PoolID{value: id}, nil
}

// String renders the canonical lowercase hyphenated form, e.g.
// "a1b2c3d4-0000-0000-0000-000000000000".
func (p PoolID) String() string { return p.value.String() }

// DirName renders the on-disk pool root directory name: the canonical
// identifier wrapped in literal braces, e.g. "{a1b2c3d4-...}".
func (p PoolID) DirName() string { return "{" + p.value.String() + "}" }

func (p PoolID) Equal(other PoolID) bool { return p.value == other.value }

func (p PoolID) IsZero() bool { return p.value == uuid.Nil }

// Volume is a single physical directory tree under a mount root, holding
// a descriptor declaring pool membership.
type Volume struct {
	Label       string
	Description string
	PoolID      PoolID
	MountRoot   DrivePath // the mount root the descriptor file lives under
	Root        string    // absolute path to <mount>/{<pool-id>}

	BytesTotal ByteSize
	BytesFree  ByteSize
}

// BytesUsed derives used space from total and free.
func (v *Volume) BytesUsed() ByteSize {
	if v.BytesFree > v.BytesTotal {
		return 0
	}
	return v.BytesTotal - v.BytesFree
}

// Pool is a named aggregation of volumes sharing one PoolID. Volumes are
// kept in detection order; that order is the stable tie-break used
// throughout the engine (§5 of the specification).
type Pool struct {
	ID      PoolID
	Volumes []*Volume
}

// BytesTotal sums BytesTotal across all volumes.
func (p *Pool) BytesTotal() ByteSize {
	var total ByteSize
	for _, v := range p.Volumes {
		total += v.BytesTotal
	}
	return total
}

// BytesFree sums BytesFree across all volumes.
func (p *Pool) BytesFree() ByteSize {
	var total ByteSize
	for _, v := range p.Volumes {
		total += v.BytesFree
	}
	return total
}

// BytesUsed sums BytesUsed across all volumes.
func (p *Pool) BytesUsed() ByteSize {
	var total ByteSize
	for _, v := range p.Volumes {
		total += v.BytesUsed()
	}
	return total
}

// VolumeByRoot finds a volume by its on-disk pool-root path, the natural
// identity for a volume (a directory tree, not an independently issued
// id — only the pool as a whole carries a 128-bit identifier).
func (p *Pool) VolumeByRoot(root string) *Volume {
	for _, v := range p.Volumes {
		if v.Root == root {
			return v
		}
	}
	return nil
}
