package pooltypes

import "github.com/cuemby/poolfs/pkg/poolerr"

// DuplicationLevel is the number of shadow copies expected for each file
// under a folder, beyond its single primary. 0 means duplication is
// disabled for that folder.
type DuplicationLevel int

const (
	Disabled DuplicationLevel = 0
	Single   DuplicationLevel = 1
	Double   DuplicationLevel = 2
	Triple   DuplicationLevel = 3

	MaxDuplicationLevel = 10
)

// Validate checks level against [0, min(10, volumeCount)].
func (l DuplicationLevel) Validate(volumeCount int) error {
	if l < 0 {
		return poolerr.New(poolerr.InvalidArgument, "DuplicationLevel.Validate", "duplication level must not be negative")
	}
	max := MaxDuplicationLevel
	if volumeCount < max {
		max = volumeCount
	}
	if int(l) > max {
		return poolerr.New(poolerr.InvalidArgument, "DuplicationLevel.Validate", "duplication level exceeds available volumes")
	}
	return nil
}

// Achievable reports whether a level N>0 can actually be realized given
// volumeCount volumes (requires at least N+1 distinct volumes).
func (l DuplicationLevel) Achievable(volumeCount int) bool {
	if l == Disabled {
		return true
	}
	return volumeCount >= int(l)+1
}
