package audio

import (
	"github.com/rs/zerolog/log"
)

// MergeShortSegments absorbs every segment shorter than minChunkMS into a
// neighbour without changing total coverage. The first segment merges
// forward, any other merges backward, and the enlarged segment is examined
// again. A lone segment is returned as is whatever its length. The input
// slice is not modified.
func MergeShortSegments(segments []Segment, minChunkMS int) []Segment {
	segs := make([]Segment, len(segments))
	copy(segs, segments)

	merges := 0
	i := 0
	for i < len(segs) {
		if segs[i].DurationMS() >= minChunkMS || len(segs) == 1 {
			i++
			continue
		}

		merges++
		if i == 0 {
			segs[1].StartMS = segs[0].StartMS
			segs = append(segs[:0], segs[1:]...)
			continue
		}

		segs[i-1].EndMS = segs[i].EndMS
		segs = append(segs[:i], segs[i+1:]...)
		i--
	}

	log.Debug().
		Int("input", len(segments)).
		Int("output", len(segs)).
		Int("merges", merges).
		Int("min_chunk_ms", minChunkMS).
		Msg("Merged short segments")

	return segs
}
