// Package descriptor implements the Volume Detector (§4.2): it scans
// candidate mount roots for *.MP.$DRIVEBENDER descriptor files, parses
// them, and groups the resulting volumes into pools by pool id.
package descriptor

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/cuemby/poolfs/pkg/capability"
	"github.com/cuemby/poolfs/pkg/events"
	"github.com/cuemby/poolfs/pkg/poolerr"
	"github.com/cuemby/poolfs/pkg/pooltypes"
)

// DescriptorSuffix is the required suffix of a volume descriptor file
// name, matched case-insensitively directly under a mount root.
const DescriptorSuffix = ".MP.$DRIVEBENDER"

// Fields is the parsed key:value body of a descriptor file, keys
// lower-cased.
type Fields map[string]string

// Parse reads a descriptor's body, splitting each non-blank line on its
// first ':' into key:value. Keys are case-insensitive; duplicate keys:
// last wins; malformed lines (no ':') are ignored.
func Parse(body []byte) Fields {
	fields := make(Fields)
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		if key == "" {
			continue
		}
		fields[key] = value
	}
	return fields
}

// Detector scans mount roots for volume descriptors and groups them into
// pools.
type Detector struct {
	Mounts capability.MountEnumerator
	Sink   events.Sink
}

// New constructs a Detector, defaulting Sink to events.NoopSink.
func New(mounts capability.MountEnumerator, sink events.Sink) *Detector {
	if sink == nil {
		sink = events.NoopSink{}
	}
	return &Detector{Mounts: mounts, Sink: sink}
}

// Detect implements the algorithm of §4.2: enumerate mount roots, parse
// every descriptor found, skip any whose pool root directory is absent,
// and group the rest by pool id. Volumes are appended in scan order,
// which callers rely on as the stable tie-break order (§5). Never fails
// for "no pools found" — returns an empty slice.
func (d *Detector) Detect() ([]*pooltypes.Pool, error) {
	roots, err := d.Mounts.EnumerateMountRoots()
	if err != nil {
		return nil, poolerr.Wrap(poolerr.Io, "Detect", err)
	}

	order := make([]string, 0)
	pools := make(map[string]*pooltypes.Pool)

	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			// IO errors on a single mount (missing, access denied) are
			// swallowed for that mount only.
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if !hasDescriptorSuffix(entry.Name()) {
				continue
			}
			path := filepath.Join(root, entry.Name())
			body, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			vol, ok := d.buildVolume(root, body)
			if !ok {
				continue
			}
			key := vol.PoolID.String()
			pool, exists := pools[key]
			if !exists {
				pool = &pooltypes.Pool{ID: vol.PoolID}
				pools[key] = pool
				order = append(order, key)
			}
			pool.Volumes = append(pool.Volumes, vol)
			d.Sink.Emit(events.Event{
				Kind:    events.KindPoolDetected,
				PoolID:  key,
				Message: "volume detected: " + vol.Label,
			})
		}
	}

	out := make([]*pooltypes.Pool, 0, len(order))
	for _, key := range order {
		out = append(out, pools[key])
	}
	return out, nil
}

func hasDescriptorSuffix(name string) bool {
	if len(name) <= len(DescriptorSuffix) {
		return false
	}
	return strings.EqualFold(name[len(name)-len(DescriptorSuffix):], DescriptorSuffix)
}

// buildVolume validates and constructs a Volume from a descriptor found
// under root; ok is false if the descriptor is invalid per §3's volume
// validity rules.
func (d *Detector) buildVolume(root string, body []byte) (*pooltypes.Volume, bool) {
	fields := Parse(body)

	rawID, hasID := fields["id"]
	label, hasLabel := fields["volumelabel"]
	if !hasID || !hasLabel || strings.TrimSpace(label) == "" {
		return nil, false
	}

	poolID, err := pooltypes.ParsePoolID(rawID)
	if err != nil {
		return nil, false
	}

	poolRoot := filepath.Join(root, poolID.DirName())
	info, err := os.Stat(poolRoot)
	if err != nil || !info.IsDir() {
		return nil, false
	}

	drive, err := pooltypes.NewDrivePath(root)
	if err != nil {
		return nil, false
	}

	return &pooltypes.Volume{
		PoolID:      poolID,
		Label:       label,
		Description: fields["description"],
		MountRoot:   drive,
		Root:        poolRoot,
	}, true
}
