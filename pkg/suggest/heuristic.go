package suggest

import "math"

// MaxQueueSize bounds the search queue regardless of corpus size.
const MaxQueueSize = 5000

// LiveDocsRatio returns numDocs/maxDoc, or -1 when no document is live.
func LiveDocsRatio(numDocs, maxDoc int) float64 {
	if numDocs <= 0 {
		return -1
	}
	if maxDoc < numDocs {
		return 1
	}
	return float64(numDocs) / float64(maxDoc)
}

// QueueSize sizes the search queue for topN results. Deleted and filtered documents are
// only rejected after the automaton ranks them, so the queue grows with the inverse of the
// live ratio, and by half the documents when an extra filter is active.
func QueueSize(topN, maxFanout, totalDocs int, liveRatio float64, filtered bool) int {
	if maxFanout < 1 {
		maxFanout = 1
	}
	if liveRatio <= 0 || liveRatio > 1 {
		liveRatio = 1
	}
	size := math.Ceil(float64(topN) * float64(maxFanout) / liveRatio)
	if filtered {
		size += float64(totalDocs / 2)
	}
	if size > MaxQueueSize {
		return MaxQueueSize
	}
	return int(size)
}
