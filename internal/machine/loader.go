package machine

import (
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
)

// MediaKind tags a MediaSpec with how LoadMediaFiles' caller should
// interpret its bytes once loaded.
type MediaKind int

const (
	MediaDisk MediaKind = iota
	MediaTape
	MediaSnapshot
)

// MediaSpec names one file to read at startup, tagged with the slot
// the CLI resolved it to from its file extension (spec §6's
// load_media(path) operation, generalized to accept a whole command
// line's worth of arguments at once).
type MediaSpec struct {
	Path string
	Kind MediaKind
}

// LoadMediaFiles reads every file in specs concurrently and returns
// their raw bytes in the same order, grounded on the teacher's
// MediaLoader (media_loader.go) which owns all disc/tape/snapshot
// ingestion for a machine. Decoding a WAV/CSW tape image or a large
// extended-DSK can take long enough that reading several startup
// media files one at a time is the visible bottleneck; errgroup
// supervises the fan-out and Wait returns the first read error, rather
// than the teacher's single-file synchronous path. A failed read does
// not cancel the others: every read runs to completion.
func LoadMediaFiles(specs []MediaSpec) ([][]byte, error) {
	results := make([][]byte, len(specs))
	var g errgroup.Group
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			data, err := os.ReadFile(spec.Path)
			if err != nil {
				return fmt.Errorf("machine: load %s: %w", spec.Path, err)
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
