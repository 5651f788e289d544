package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// OverlapMode selects how overlapping subtitle lines are handled.
type OverlapMode string

const (
	// keep overlaps as-is; the chart may need manual editing
	OverlapIgnore OverlapMode = "ignore"
	// resolve overlap clusters one discarded line at a time
	OverlapIndividual OverlapMode = "individual"
	// discard whole styles until one remains
	OverlapStyle OverlapMode = "style"
	// split two surviving styles into duet parts
	OverlapDuet OverlapMode = "duet"
)

// shape of a kara song page URL
var karaURLPattern = regexp.MustCompile(`^https://kara\.moe/kara/[\w-]+/[\w-]+$`)

// Raw is the unvalidated bundle of user-supplied paths and flags, as
// collected by whatever front end is in use (CLI flags here; any GUI
// would fill the same struct).
type Raw struct {
	KaraURL      string
	SubtitlePath string

	CoverPath      string
	BackgroundPath string
	VideoPath      string
	AudioPath      string
	OffVocal       string
	Vocals         string

	TVSized         bool
	ForceDialogue   bool
	GeneratePitches bool
	Normalize       bool

	OverlapMode string

	KaraokeBPM float64
	SongBPM    float64

	OutputDir string
}

// RunConfig is the validated, immutable run configuration. It is
// assembled exactly once per run and handed read-only to the downstream
// stages; nothing mutates it afterwards.
type RunConfig struct {
	KaraURL      string
	SubtitlePath string

	CoverPath      string
	BackgroundPath string
	VideoPath      string
	AudioPath      string
	OffVocal       string
	Vocals         string

	TVSized         bool
	ForceDialogue   bool
	GeneratePitches bool
	Normalize       bool

	Mode OverlapMode

	KaraokeBPM    float64
	SongBPM       float64
	BPMMultiplier int

	OutputDir string
}

// true when the run takes its subtitles from the remote source
func (c *RunConfig) Remote() bool {
	return c.KaraURL != ""
}

// true when overlapping lines pass through unresolved
func (c *RunConfig) IgnoreOverlaps() bool {
	return c.Mode == OverlapIgnore
}

// reports whether the value is a kara song URL rather than a local path
func IsKaraURL(value string) bool {
	return karaURLPattern.MatchString(value)
}

// Assemble validates raw inputs into a RunConfig. It fails with a
// *ValidationError naming the violated precondition rather than ever
// returning a partially valid configuration. Path checks verify
// existence and readability only; no file content is read.
func Assemble(raw Raw) (*RunConfig, error) {
	if raw.KaraURL != "" && raw.SubtitlePath != "" {
		return nil, &ValidationError{
			Field:  "subtitle source",
			Reason: "kara URL and subtitle file are mutually exclusive; supply exactly one",
		}
	}
	if raw.KaraURL == "" && raw.SubtitlePath == "" {
		return nil, &ValidationError{
			Field:  "subtitle source",
			Reason: "one of kara URL or subtitle file is required",
		}
	}

	if raw.KaraURL != "" && !IsKaraURL(raw.KaraURL) {
		return nil, &ValidationError{
			Field:  "kara URL",
			Reason: fmt.Sprintf("%q is not a valid kara song URL", raw.KaraURL),
		}
	}

	if raw.SubtitlePath != "" {
		if !strings.EqualFold(filepath.Ext(raw.SubtitlePath), ".ass") {
			return nil, &ValidationError{
				Field:  "subtitle file",
				Reason: "must be a .ass file",
			}
		}
		if err := checkReadable("subtitle file", raw.SubtitlePath); err != nil {
			return nil, err
		}
	}

	if raw.CoverPath == "" {
		return nil, &ValidationError{
			Field:  "cover image",
			Reason: "a cover image is required",
		}
	}
	if err := checkReadable("cover image", raw.CoverPath); err != nil {
		return nil, err
	}

	optional := []struct {
		field string
		path  string
	}{
		{"background image", raw.BackgroundPath},
		{"background video", raw.VideoPath},
		{"audio file", raw.AudioPath},
	}
	for _, opt := range optional {
		if opt.path == "" {
			continue
		}
		if err := checkReadable(opt.field, opt.path); err != nil {
			return nil, err
		}
	}

	// off-vocal and vocal tracks may be either a local file or another
	// kara song URL to pull the track from
	for _, opt := range []struct {
		field string
		value string
	}{
		{"off-vocal track", raw.OffVocal},
		{"vocals track", raw.Vocals},
	} {
		if opt.value == "" || IsKaraURL(opt.value) {
			continue
		}
		if err := checkReadable(opt.field, opt.value); err != nil {
			return nil, err
		}
	}

	mode := OverlapMode(raw.OverlapMode)
	if raw.OverlapMode == "" {
		mode = OverlapIgnore
	}
	switch mode {
	case OverlapIgnore, OverlapIndividual, OverlapStyle, OverlapDuet:
	default:
		return nil, &ValidationError{
			Field:  "overlap mode",
			Reason: fmt.Sprintf("unknown mode %q", raw.OverlapMode),
		}
	}

	karaokeBPM := raw.KaraokeBPM
	if karaokeBPM == 0 {
		karaokeBPM = DefaultKaraokeBPM
	}
	if karaokeBPM <= 0 {
		return nil, &ValidationError{
			Field:  "karaoke BPM",
			Reason: "must be positive",
		}
	}

	songBPM := raw.SongBPM
	if songBPM == 0 {
		songBPM = karaokeBPM
	}
	multiplier, err := bpmMultiplier(karaokeBPM, songBPM)
	if err != nil {
		return nil, err
	}

	outputDir := raw.OutputDir
	if outputDir == "" {
		outputDir = "output"
	}

	return &RunConfig{
		KaraURL:         raw.KaraURL,
		SubtitlePath:    raw.SubtitlePath,
		CoverPath:       raw.CoverPath,
		BackgroundPath:  raw.BackgroundPath,
		VideoPath:       raw.VideoPath,
		AudioPath:       raw.AudioPath,
		OffVocal:        raw.OffVocal,
		Vocals:          raw.Vocals,
		TVSized:         raw.TVSized,
		ForceDialogue:   raw.ForceDialogue,
		GeneratePitches: raw.GeneratePitches,
		Normalize:       raw.Normalize,
		Mode:            mode,
		KaraokeBPM:      karaokeBPM,
		SongBPM:         songBPM,
		BPMMultiplier:   multiplier,
		OutputDir:       outputDir,
	}, nil
}

// the karaoke BPM must be an integer multiple of the song BPM; the
// multiplier is what note timings get rescaled by
func bpmMultiplier(karaokeBPM, songBPM float64) (int, error) {
	if songBPM <= 0 {
		return 0, &ValidationError{Field: "song BPM", Reason: "must be positive"}
	}
	ratio := karaokeBPM / songBPM
	if math.Abs(ratio-math.Round(ratio)) > 1e-5 || ratio < 1 {
		return 0, &ValidationError{
			Field: "song BPM",
			Reason: fmt.Sprintf(
				"karaoke BPM must be an integer multiple of the song BPM (ratio %.4f)", ratio),
		}
	}
	return int(math.Round(ratio)), nil
}

// existence and readability only: open and close, never read
func checkReadable(field, path string) *ValidationError {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ValidationError{
				Field:  field,
				Reason: fmt.Sprintf("file not found: %s", path),
			}
		}
		return &ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("file not readable: %v", err),
		}
	}
	_ = file.Close()
	return nil
}
