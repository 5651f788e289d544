package overlap

import (
	"testing"
	"time"

	"karachart/internal/subtitle"
)

func line(index int, startSec, endSec float64) subtitle.Line {
	return subtitle.Line{
		Index: index,
		Start: time.Duration(startSec * float64(time.Second)),
		End:   time.Duration(endSec * float64(time.Second)),
		Style: "Default",
		Text:  "text",
	}
}

func TestDetectNoOverlaps(t *testing.T) {
	lines := []subtitle.Line{
		line(0, 0, 2),
		line(1, 3, 5),
		line(2, 6, 9),
	}

	if clusters := Detect(lines); len(clusters) != 0 {
		t.Errorf("expected no clusters, got %d", len(clusters))
	}
}

func TestDetectSimplePair(t *testing.T) {
	// L1[0,5] and L2[3,8] overlap; L3[10,12] stands alone
	lines := []subtitle.Line{
		line(0, 0, 5),
		line(1, 3, 8),
		line(2, 10, 12),
	}

	clusters := Detect(lines)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if got := clusters[0].Indices(); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("expected cluster {0,1}, got %v", got)
	}
}

func TestDetectTransitiveChain(t *testing.T) {
	// L1-L2 overlap and L2-L3 overlap, so all three chain into one cluster
	lines := []subtitle.Line{
		line(0, 0, 5),
		line(1, 3, 8),
		line(2, 7, 10),
	}

	clusters := Detect(lines)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if got := clusters[0].Indices(); len(got) != 3 {
		t.Errorf("expected 3 members, got %v", got)
	}
}

func TestDetectContainedLine(t *testing.T) {
	// a line fully inside another still joins through the max-end test
	lines := []subtitle.Line{
		line(0, 0, 10),
		line(1, 2, 4),
		line(2, 6, 8),
	}

	clusters := Detect(lines)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if got := clusters[0].Indices(); len(got) != 3 {
		t.Errorf("expected all 3 lines clustered, got %v", got)
	}
}

func TestDetectTouchingEndpointsDoNotOverlap(t *testing.T) {
	// half-open intervals: a.end == b.start is not an overlap
	lines := []subtitle.Line{
		line(0, 0, 5),
		line(1, 5, 8),
	}

	if clusters := Detect(lines); len(clusters) != 0 {
		t.Errorf("touching endpoints must not cluster, got %d clusters", len(clusters))
	}
}

func TestDetectUnsortedInput(t *testing.T) {
	lines := []subtitle.Line{
		line(2, 10, 12),
		line(1, 3, 8),
		line(0, 0, 5),
	}

	clusters := Detect(lines)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster from unsorted input, got %d", len(clusters))
	}
	if clusters[0].EarliestStart() != 0 {
		t.Errorf("expected earliest start 0, got %v", clusters[0].EarliestStart())
	}
}

func TestDetectMultipleDisjointClusters(t *testing.T) {
	lines := []subtitle.Line{
		line(0, 0, 3),
		line(1, 2, 4),
		line(2, 10, 14),
		line(3, 12, 13),
		line(4, 20, 22),
	}

	clusters := Detect(lines)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}

	// membership is pairwise disjoint
	seen := make(map[int]bool)
	for _, cluster := range clusters {
		if len(cluster.Members) < 2 {
			t.Errorf("cluster with %d members violates size invariant", len(cluster.Members))
		}
		for _, index := range cluster.Indices() {
			if seen[index] {
				t.Errorf("line %d appears in more than one cluster", index)
			}
			seen[index] = true
		}
	}
	if seen[4] {
		t.Error("non-overlapping line 4 must not appear in any cluster")
	}

	// clusters come out ordered by earliest start
	if clusters[0].EarliestStart() > clusters[1].EarliestStart() {
		t.Error("clusters not ordered by earliest start")
	}
}

func TestDetectChainOverlapWithinCluster(t *testing.T) {
	lines := []subtitle.Line{
		line(0, 0, 5),
		line(1, 4, 9),
		line(2, 8, 12),
		line(3, 11, 15),
	}

	clusters := Detect(lines)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}

	// every member overlaps at least one other member
	members := clusters[0].Members
	for i, a := range members {
		connected := false
		for j, b := range members {
			if i != j && a.Overlaps(b) {
				connected = true
				break
			}
		}
		if !connected {
			t.Errorf("member %d overlaps no other member", a.Index)
		}
	}
}

func TestDetectEmptyAndSingle(t *testing.T) {
	if clusters := Detect(nil); clusters != nil {
		t.Errorf("expected nil for empty input, got %v", clusters)
	}
	if clusters := Detect([]subtitle.Line{line(0, 0, 5)}); clusters != nil {
		t.Errorf("expected nil for single line, got %v", clusters)
	}
}
