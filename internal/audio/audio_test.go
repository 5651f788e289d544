package audio

import (
	"strconv"
	"testing"
)

func histograms(pairs ...[2]int) [][]string {
	out := make([][]string, len(pairs))
	for i, p := range pairs {
		out[i] = []string{"", strconv.Itoa(p[0]), strconv.Itoa(p[1])}
	}
	return out
}

func TestWalkHistogramLoudTrackNearPeak(t *testing.T) {
	// loudest bucket already significant: leave 1 dB of headroom
	if got := walkHistogram(histograms([2]int{3, 120})); got != 2 {
		t.Errorf("expected gain 2, got %d", got)
	}
}

func TestWalkHistogramAlreadyAtZero(t *testing.T) {
	if got := walkHistogram(histograms([2]int{0, 500})); got != 0 {
		t.Errorf("expected gain 0, got %d", got)
	}
}

func TestWalkHistogramSingleQuietBucket(t *testing.T) {
	if got := walkHistogram(histograms([2]int{5, 10})); got != 5 {
		t.Errorf("expected gain 5, got %d", got)
	}
}

func TestWalkHistogramWalksToSignificantBucket(t *testing.T) {
	// quiet buckets at 2 and 3 dB, significant content at 4 dB: the
	// last quiet bucket wins
	got := walkHistogram(histograms(
		[2]int{2, 5},
		[2]int{3, 12},
		[2]int{4, 300},
	))
	if got != 3 {
		t.Errorf("expected gain 3, got %d", got)
	}
}

func TestWalkHistogramAllQuiet(t *testing.T) {
	got := walkHistogram(histograms(
		[2]int{1, 2},
		[2]int{2, 3},
		[2]int{3, 4},
	))
	if got != 3 {
		t.Errorf("expected gain 3, got %d", got)
	}
}

func TestHistogramPattern(t *testing.T) {
	stderr := "[Parsed_volumedetect_0 @ 0x1] histogram_0db: 87\n" +
		"[Parsed_volumedetect_0 @ 0x1] histogram_1db: 431\n"
	matches := histogramPattern.FindAllStringSubmatch(stderr, -1)
	if len(matches) != 2 {
		t.Fatalf("expected 2 histogram lines, got %d", len(matches))
	}
	if matches[0][1] != "0" || matches[0][2] != "87" {
		t.Errorf("unexpected first match %v", matches[0])
	}
}

func TestIsAudioFile(t *testing.T) {
	if !IsAudioFile("song.MP3") {
		t.Error("mp3 must be audio")
	}
	if IsAudioFile("movie.mp4") {
		t.Error("mp4 is not bare audio")
	}
}
