package overlap

import (
	"errors"
	"fmt"

	"karachart/internal/subtitle"
)

// Policy selects how overlap clusters are dealt with.
type Policy int

const (
	// IgnoreAll retains every line; overlaps pass through to the chart
	// as-is.
	IgnoreAll Policy = iota
	// Interactive asks the caller's Decider to discard lines, one per
	// round, until no overlap remains.
	Interactive
)

// Decider is the synchronous decision channel for interactive resolution.
// Given the members of one cluster (ordered by start time) it returns the
// original index of exactly one member to discard. Returning an error
// aborts the whole run. Any front end can implement it: an interactive
// prompt, a GUI, or a test double.
type Decider interface {
	Discard(members []subtitle.Line) (int, error)
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(members []subtitle.Line) (int, error)

func (f DeciderFunc) Discard(members []subtitle.Line) (int, error) {
	return f(members)
}

// Decision records how one cluster was resolved: its original membership
// and every index that was discarded from it.
type Decision struct {
	Cluster   []int
	Discarded []int
}

// ErrResolutionAborted is returned when the decision channel gives up
// before every cluster is resolved. No partial output is produced.
var ErrResolutionAborted = errors.New("overlap resolution aborted")

// Resolve applies the overlap policy to the working sequence.
//
// Under IgnoreAll the sequence is returned untouched and no decisions are
// made. Under Interactive, clusters are resolved strictly in ascending
// order of earliest start time. A single discard only guarantees
// clearance for two-member clusters, so after each discard detection is
// re-run over the cluster's survivors and every remaining sub-cluster is
// resolved in turn until at most one member is left overlapping nothing.
//
// A Decider answer naming an index outside the current cluster is
// rejected and the Decider is asked again; it is never silently mapped to
// another line. A Decider error is fatal: the run yields no lines and no
// decisions. Surviving lines keep their original order; nothing is
// renumbered.
func Resolve(
	lines []subtitle.Line,
	clusters []Cluster,
	policy Policy,
	decider Decider,
) ([]subtitle.Line, []Decision, error) {
	if policy == IgnoreAll || len(clusters) == 0 {
		clean := make([]subtitle.Line, len(lines))
		copy(clean, lines)
		return clean, nil, nil
	}
	if decider == nil {
		return nil, nil, fmt.Errorf("interactive resolution requires a decider")
	}

	discarded := make(map[int]bool)
	decisions := make([]Decision, 0, len(clusters))

	// Clusters are disjoint and separated in time, so fully resolving
	// each one before moving on preserves the earliest-start ordering of
	// every prompt.
	for _, cluster := range clusters {
		decision, err := resolveCluster(cluster, decider, discarded)
		if err != nil {
			return nil, nil, err
		}
		decisions = append(decisions, decision)
	}

	var clean []subtitle.Line
	for _, line := range lines {
		if !discarded[line.Index] {
			clean = append(clean, line)
		}
	}
	return clean, decisions, nil
}

// drives one cluster to its terminal state, re-detecting after every
// discard until zero or one member remains in any overlap
func resolveCluster(
	cluster Cluster,
	decider Decider,
	discarded map[int]bool,
) (Decision, error) {
	decision := Decision{Cluster: cluster.Indices()}
	remaining := make([]subtitle.Line, len(cluster.Members))
	copy(remaining, cluster.Members)

	for {
		sub := Detect(remaining)
		if len(sub) == 0 {
			return decision, nil
		}

		// a discard can split the cluster; the earliest sub-cluster is
		// always presented first
		index, err := askValid(decider, sub[0].Members)
		if err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrResolutionAborted, err)
		}

		discarded[index] = true
		decision.Discarded = append(decision.Discarded, index)
		remaining = removeIndex(remaining, index)
	}
}

// asks the decider until it names a current member
func askValid(decider Decider, members []subtitle.Line) (int, error) {
	for {
		index, err := decider.Discard(members)
		if err != nil {
			return 0, err
		}
		for _, line := range members {
			if line.Index == index {
				return index, nil
			}
		}
		// invalid selection: recovered locally by asking again
	}
}

func removeIndex(lines []subtitle.Line, index int) []subtitle.Line {
	kept := lines[:0]
	for _, line := range lines {
		if line.Index != index {
			kept = append(kept, line)
		}
	}
	return kept
}
