package overlap

import (
	"time"

	"karachart/internal/subtitle"
)

// Cluster is a maximal group of lines whose intervals intersect, directly
// or transitively through a shared member. Members keep their original
// line identity; a cluster never has fewer than two members.
type Cluster struct {
	Members []subtitle.Line
}

// start time of the cluster's earliest member
func (c Cluster) EarliestStart() time.Duration {
	if len(c.Members) == 0 {
		return 0
	}
	earliest := c.Members[0].Start
	for _, line := range c.Members[1:] {
		if line.Start < earliest {
			earliest = line.Start
		}
	}
	return earliest
}

// original indices of the cluster's members, in member order
func (c Cluster) Indices() []int {
	indices := make([]int, len(c.Members))
	for i, line := range c.Members {
		indices[i] = line.Index
	}
	return indices
}

// Detect finds every overlap cluster in lines.
//
// Overlap is half-open: a line ending exactly where another begins does
// not overlap it. The input is sorted defensively (start time, ties by
// original index); a single sweep then chains each line into the current
// cluster while it begins before the cluster's maximum end time. A line
// fully contained in another joins through the same max-end test. The
// returned clusters are disjoint and ordered by earliest start; lines in
// no cluster overlap nothing. The common, overlap-free case allocates no
// clusters at all.
func Detect(lines []subtitle.Line) []Cluster {
	if len(lines) < 2 {
		return nil
	}

	sorted := make([]subtitle.Line, len(lines))
	copy(sorted, lines)
	subtitle.SortByStart(sorted)

	var clusters []Cluster
	current := []subtitle.Line{sorted[0]}
	maxEnd := sorted[0].End

	for _, line := range sorted[1:] {
		if line.Start < maxEnd {
			current = append(current, line)
			if line.End > maxEnd {
				maxEnd = line.End
			}
			continue
		}

		if len(current) > 1 {
			clusters = append(clusters, Cluster{Members: current})
		}
		current = []subtitle.Line{line}
		maxEnd = line.End
	}
	if len(current) > 1 {
		clusters = append(clusters, Cluster{Members: current})
	}

	return clusters
}
