package graph

import "github.com/camnode/camnode/internal/catalog"

// Topology identifies the shape of a capture graph.
type Topology string

const (
	// TopologyPreviewOnly delivers frames to the observer with no file
	// branch.
	TopologyPreviewOnly Topology = "preview_only"

	// TopologyDirectFile wires the observer leg and the file leg as
	// two independent connections off the source. No splitter element
	// is ever inserted.
	TopologyDirectFile Topology = "direct_file"

	// TopologyTeeFile routes the source through an explicit splitter
	// whose outputs feed the observer leg and the file leg. A splitter
	// is always inserted: these compressors accept only a single
	// connected output per source.
	TopologyTeeFile Topology = "tee_file"
)

// SelectTopology picks the graph shape for a build. Uncompressed and
// DV record directly off the source; every other codec records behind
// a splitter.
func SelectTopology(recording bool, kind catalog.CodecKind) Topology {
	if !recording {
		return TopologyPreviewOnly
	}
	switch kind {
	case catalog.KindUncompressed, catalog.KindDV:
		return TopologyDirectFile
	default:
		return TopologyTeeFile
	}
}
