// Package integrity implements the Integrity Checker (§4.8): shallow and
// deep scans over a pool's logical files, the issue taxonomy they
// produce, and repair dispatch with optional timestamped backups.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cuemby/poolfs/pkg/duplication"
	"github.com/cuemby/poolfs/pkg/events"
	"github.com/cuemby/poolfs/pkg/fileops"
	"github.com/cuemby/poolfs/pkg/overlay"
	"github.com/cuemby/poolfs/pkg/poolerr"
	"github.com/cuemby/poolfs/pkg/pooltypes"
	"github.com/cuemby/poolfs/pkg/repair"
)

// Checker scans a pool's logical files for inconsistencies and dispatches
// repairs for the ones that are automatically fixable.
type Checker struct {
	Pool        *pooltypes.Pool
	Overlay     *overlay.Overlay
	Duplication *duplication.Engine
	Repair      *repair.Engine
	Sink        events.Sink

	// BackupDir is where repair(createBackup=true) copies affected
	// locations before mutating them. Defaults to an os.TempDir subpath.
	BackupDir string
}

// New constructs a Checker for pool.
func New(pool *pooltypes.Pool, sink events.Sink) *Checker {
	if sink == nil {
		sink = events.NoopSink{}
	}
	return &Checker{
		Pool:        pool,
		Overlay:     overlay.New(pool),
		Duplication: duplication.New(pool, sink),
		Repair:      repair.New(pool, sink),
		Sink:        sink,
		BackupDir:   filepath.Join(os.TempDir(), "poolfs-backups"),
	}
}

// Check scans every logical file in the pool and returns the issues
// found. When deepScan is true it additionally hashes every location
// with SHA-256 to detect silent corruption.
func (c *Checker) Check(deepScan bool) ([]pooltypes.IntegrityIssue, error) {
	c.Sink.Emit(events.Event{Kind: events.KindScanStarted, PoolID: c.Pool.ID.String()})

	items, err := c.Overlay.GetItems(pooltypes.RootFolder, true)
	if err != nil {
		return nil, err
	}

	var issues []pooltypes.IntegrityIssue
	for _, it := range items {
		if it.Kind != overlay.ItemFile {
			continue
		}
		fileIssues, err := c.checkFile(it.File, deepScan)
		if err != nil {
			return nil, err
		}
		issues = append(issues, fileIssues...)
	}

	for _, issue := range issues {
		c.Sink.Emit(events.Event{Kind: events.KindIssueFound, PoolID: c.Pool.ID.String(), Message: string(issue.Kind)})
	}
	c.Sink.Emit(events.Event{Kind: events.KindScanCompleted, PoolID: c.Pool.ID.String()})
	return issues, nil
}

func (c *Checker) checkFile(file pooltypes.LogicalFile, deepScan bool) ([]pooltypes.IntegrityIssue, error) {
	var issues []pooltypes.IntegrityIssue
	folder := file.FullPath.Parent()
	level, err := c.Duplication.GetLevel(folder)
	if err != nil {
		return nil, err
	}

	primaries, shadows := len(file.Primaries), len(file.Shadows)

	if primaries == 0 && shadows > 0 {
		issues = append(issues, pooltypes.IntegrityIssue{
			Kind: pooltypes.MissingPrimary, File: file.FullPath, Folder: folder, Locations: file.Shadows,
		})
	}
	if primaries > 1 {
		issues = append(issues, pooltypes.IntegrityIssue{
			Kind: pooltypes.DuplicatePrimary, File: file.FullPath, Folder: folder, Locations: file.Primaries,
		})
	}
	if level > 0 && shadows < level {
		issues = append(issues, pooltypes.IntegrityIssue{
			Kind: pooltypes.MissingShadowCopy, File: file.FullPath, Folder: folder, Locations: file.Shadows,
		})
	}
	if level > 0 && shadows > level {
		issues = append(issues, pooltypes.IntegrityIssue{
			Kind: pooltypes.DuplicateShadowCopy, File: file.FullPath, Folder: folder, Locations: file.Shadows[level:],
		})
	}
	if level == 0 && shadows > 0 {
		issues = append(issues, pooltypes.IntegrityIssue{
			Kind: pooltypes.OrphanedShadowCopy, File: file.FullPath, Folder: folder, Locations: file.Shadows,
		})
	}

	if !deepScan {
		return issues, nil
	}

	deepIssues, err := c.deepScanFile(file, folder)
	if err != nil {
		return nil, err
	}
	return append(issues, deepIssues...), nil
}

func (c *Checker) deepScanFile(file pooltypes.LogicalFile, folder pooltypes.FolderPath) ([]pooltypes.IntegrityIssue, error) {
	all := append(append([]pooltypes.Location{}, file.Primaries...), file.Shadows...)
	if len(all) < 1 {
		return nil, nil
	}

	digestGroups := make(map[string][]pooltypes.Location)
	var issues []pooltypes.IntegrityIssue
	for _, loc := range all {
		digest, err := hashFile(loc.DiskPath)
		if err != nil {
			if poolerr.Is(err, poolerr.AccessDenied) {
				issues = append(issues, pooltypes.IntegrityIssue{
					Kind: pooltypes.AccessDeniedIssue, File: file.FullPath, Folder: folder, Locations: []pooltypes.Location{loc},
				})
				continue
			}
			issues = append(issues, pooltypes.IntegrityIssue{
				Kind: pooltypes.CorruptedFile, File: file.FullPath, Folder: folder, Locations: []pooltypes.Location{loc},
			})
			continue
		}
		digestGroups[digest] = append(digestGroups[digest], loc)
	}

	if len(digestGroups) > 1 {
		issues = append(issues, pooltypes.IntegrityIssue{
			Kind: pooltypes.HashMismatch, File: file.FullPath, Folder: folder, Locations: all,
		})
	}
	return issues, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return "", poolerr.Wrap(poolerr.AccessDenied, "hashFile", err)
		}
		return "", poolerr.Wrap(poolerr.Io, "hashFile", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", poolerr.Wrap(poolerr.Io, "hashFile", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Repair dispatches a single issue for repair. dryRun reports success
// without touching disk. createBackup copies every affected location to
// a timestamped backup directory first. Returns false, nil for issue
// kinds that are never auto-repairable (HashMismatch, AccessDenied).
func (c *Checker) Repair(issue pooltypes.IntegrityIssue, dryRun, createBackup bool) (bool, error) {
	if !issue.Kind.Repairable() {
		return false, nil
	}
	if dryRun {
		return true, nil
	}
	if createBackup {
		if err := c.backup(issue); err != nil {
			return false, err
		}
	}

	switch issue.Kind {
	case pooltypes.MissingPrimary:
		return c.repairMissingPrimary(issue)
	case pooltypes.MissingShadowCopy:
		return c.repairMissingShadow(issue)
	case pooltypes.DuplicatePrimary, pooltypes.DuplicateShadowCopy:
		return c.repairDuplicate(issue)
	case pooltypes.OrphanedShadowCopy:
		return c.repairOrphan(issue)
	case pooltypes.CorruptedFile:
		return c.repairCorrupted(issue)
	default:
		return false, nil
	}
}

func (c *Checker) repairMissingPrimary(issue pooltypes.IntegrityIssue) (bool, error) {
	file, err := c.Overlay.GetFile(issue.File)
	if err != nil {
		return false, err
	}
	if len(file.Shadows) == 0 {
		return false, poolerr.New(poolerr.NotFound, "repairMissingPrimary", "no shadow available to promote")
	}
	if err := c.Repair.SetPrimary(file, file.Shadows[0].Volume); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Checker) repairMissingShadow(issue pooltypes.IntegrityIssue) (bool, error) {
	file, err := c.Overlay.GetFile(issue.File)
	if err != nil {
		return false, err
	}
	target := c.pickFreestExcludingPrimaries(file)
	if target == nil {
		return false, poolerr.New(poolerr.CapacityExceeded, "repairMissingShadow", "no eligible volume for a new shadow")
	}
	if err := c.Repair.SetShadow(file, target); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Checker) pickFreestExcludingPrimaries(file pooltypes.LogicalFile) *pooltypes.Volume {
	primary := make(map[*pooltypes.Volume]bool)
	for _, v := range file.PrimaryVolumes() {
		primary[v] = true
	}
	var best *pooltypes.Volume
	for _, v := range c.Pool.Volumes {
		if primary[v] {
			continue
		}
		if best == nil || v.BytesFree > best.BytesFree {
			best = v
		}
	}
	return best
}

// repairDuplicate deletes every location in issue.Locations except the
// most recently modified one.
func (c *Checker) repairDuplicate(issue pooltypes.IntegrityIssue) (bool, error) {
	if len(issue.Locations) < 2 {
		return true, nil
	}
	locs := append([]pooltypes.Location{}, issue.Locations...)
	sort.Slice(locs, func(i, j int) bool { return locs[i].ModTime.After(locs[j].ModTime) })
	for _, loc := range locs[1:] {
		if err := fileops.Delete(loc.DiskPath); err != nil {
			return false, err
		}
	}
	return true, nil
}

// repairOrphan deletes every shadow location for a file whose folder has
// duplication disabled.
func (c *Checker) repairOrphan(issue pooltypes.IntegrityIssue) (bool, error) {
	for _, loc := range issue.Locations {
		if err := fileops.Delete(loc.DiskPath); err != nil {
			return false, err
		}
	}
	return true, nil
}

// repairCorrupted re-materializes the bad location from any other
// location of the same file that still hashes cleanly.
func (c *Checker) repairCorrupted(issue pooltypes.IntegrityIssue) (bool, error) {
	if len(issue.Locations) != 1 {
		return false, poolerr.New(poolerr.InvalidArgument, "repairCorrupted", "expected exactly one bad location")
	}
	bad := issue.Locations[0]
	file, err := c.Overlay.GetFile(issue.File)
	if err != nil {
		return false, err
	}
	var good string
	for _, loc := range append(append([]pooltypes.Location{}, file.Primaries...), file.Shadows...) {
		if loc.DiskPath == bad.DiskPath {
			continue
		}
		if _, err := hashFile(loc.DiskPath); err == nil {
			good = loc.DiskPath
			break
		}
	}
	if good == "" {
		return false, poolerr.New(poolerr.NotFound, "repairCorrupted", "no good copy available to re-materialize from")
	}
	if err := fileops.AtomicCopy(good, bad.DiskPath); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Checker) backup(issue pooltypes.IntegrityIssue) error {
	stamp := time.Now().UTC().Format("20060102T150405.000000000Z")
	for _, loc := range issue.Locations {
		rel, err := filepath.Rel(loc.Volume.Root, loc.DiskPath)
		if err != nil {
			rel = filepath.Base(loc.DiskPath)
		}
		dst := filepath.Join(c.BackupDir, stamp, loc.Volume.Label, rel)
		if err := fileops.AtomicCopy(loc.DiskPath, dst); err != nil {
			return err
		}
	}
	return nil
}
