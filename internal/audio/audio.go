package audio

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// counts below this are treated as clipping noise when walking the
// loudness histogram
const histogramThreshold = 50

// volumedetect histogram lines, e.g. "histogram_3db: 123"
var histogramPattern = regexp.MustCompile(`histogram_([0-9]+)db:\s*([0-9]+)`)

// ExtractOptions control media-to-audio extraction.
type ExtractOptions struct {
	// path to the ffmpeg binary
	FFmpegPath string
	// loudness gain in dB applied during extraction; 0 means none
	GainDB int
}

// Extract converts a media file to a 320k mp3 at outputPath. A non-zero
// gain is applied as a volume filter in the same pass.
func Extract(mediaPath, outputPath string, opts ExtractOptions) error {
	kwargs := ffmpeg.KwArgs{"b:a": "320k"}
	if opts.GainDB != 0 {
		kwargs["filter:a"] = fmt.Sprintf("volume=%ddB", opts.GainDB)
	}

	stream := ffmpeg.Input(mediaPath).
		Output(outputPath, kwargs).
		OverWriteOutput().
		Silent(true)
	if opts.FFmpegPath != "" {
		stream = stream.SetFfmpegPath(opts.FFmpegPath)
	}

	if err := stream.Run(); err != nil {
		return fmt.Errorf("failed to extract audio from %s: %w",
			filepath.Base(mediaPath), err)
	}
	return nil
}

// DetectGain finds the loudness gain (in dB) that brings the media's
// audio as close to 0 dB as possible without significantly degrading
// quality. A zero result means the audio is already normalised or that
// detection failed; the returned error distinguishes the two.
func DetectGain(mediaPath, ffmpegPath string) (int, error) {
	var stderr bytes.Buffer

	stream := ffmpeg.Input(mediaPath).
		Output("-", ffmpeg.KwArgs{
			"af": "volumedetect",
			"vn": "",
			"sn": "",
			"dn": "",
			"f":  "null",
		}).
		WithErrorOutput(&stderr).
		Silent(true)
	if ffmpegPath != "" {
		stream = stream.SetFfmpegPath(ffmpegPath)
	}

	if err := stream.Run(); err != nil {
		return 0, fmt.Errorf("loudness detection failed: %w", err)
	}

	histograms := histogramPattern.FindAllStringSubmatch(stderr.String(), -1)
	if len(histograms) == 0 {
		return 0, fmt.Errorf("no loudness information in ffmpeg output")
	}

	return walkHistogram(histograms), nil
}

// The histogram buckets arrive loudest-first. When the loudest bucket
// already holds a significant sample count the track is close to peak
// and only the remaining headroom minus one dB is safe; otherwise walk
// down until a significant bucket is found.
func walkHistogram(histograms [][]string) int {
	firstDB, firstCount := bucket(histograms[0])

	if firstCount > histogramThreshold {
		if firstDB == 0 {
			return 0
		}
		return firstDB - 1
	}

	if len(histograms) == 1 {
		return firstDB
	}

	highest := firstDB
	for _, histogram := range histograms[1:] {
		db, count := bucket(histogram)
		if count < histogramThreshold {
			highest = db
			continue
		}
		return highest
	}
	return highest
}

func bucket(match []string) (db, count int) {
	db, _ = strconv.Atoi(match[1])
	count, _ = strconv.Atoi(match[2])
	return db, count
}

// IsAudioFile reports whether the path already holds bare audio that
// needs no extraction pass.
func IsAudioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".ogg", ".flac", ".wav", ".m4a", ".aac", ".opus":
		return true
	}
	return false
}
