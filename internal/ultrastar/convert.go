package ultrastar

import (
	"math"
	"regexp"
	"strconv"

	"karachart/internal/config"
	"karachart/internal/subtitle"
)

// default pitch for unpitched notes; pitch generation can rewrite it later
const DefaultPitch = 19

// reference BPM the fixed 100 beats/sec timebase corresponds to
const referenceBPM = 1500

// Karaoke syllables, in order of preference: a karaoke tag possibly
// followed by extra override tags and then sung text; a bare karaoke tag
// with no sound (advances the beat only); extra override tags before the
// karaoke tag, then sung text.
var syllablePattern = regexp.MustCompile(
	`(\{\\(?:kf|ko|k|K)[0-9.]+(?:\\[0-9A-Za-z&]+)*\}[A-Za-zÀ-ÿ _.\-,!"']+\s*)` +
		`|(\{\\(?:kf|ko|k|K)[0-9.]+[^}]*\})` +
		`|(\{(?:\\[0-9A-Za-z&(), ]+?)*\\(?:kf|ko|k|K)[0-9.]+(?:\\[0-9A-Za-z&]+)*\}[A-Za-zÀ-ÿ _.\-,!"']+\s*)`)

// the centisecond timing inside a karaoke tag
var timingPattern = regexp.MustCompile(`\\(?:kf|ko|k|K)([0-9.]+)`)

// Syllable is one sung fragment of a line: its karaoke duration in
// centiseconds and its text. Empty text is a rest that only advances the
// beat cursor.
type Syllable struct {
	DurationCS int
	Text       string
}

// ExtractSyllables pulls the karaoke-timed syllables out of a raw ASS
// line text. Tags it cannot interpret are skipped.
func ExtractSyllables(text string) []Syllable {
	matches := syllablePattern.FindAllStringSubmatch(text, -1)
	syllables := make([]Syllable, 0, len(matches))

	for _, match := range matches {
		var fragment, sung string
		switch {
		case match[1] != "":
			fragment = match[1]
			sung = fragment[indexAfterTags(fragment):]
		case match[2] != "":
			fragment = match[2]
		case match[3] != "":
			fragment = match[3]
			sung = fragment[indexAfterTags(fragment):]
		}

		timing := timingPattern.FindStringSubmatch(fragment)
		if timing == nil {
			continue
		}
		centis, err := strconv.ParseFloat(timing[1], 64)
		if err != nil {
			continue
		}

		syllables = append(syllables, Syllable{
			DurationCS: int(math.Round(centis)),
			Text:       sung,
		})
	}

	return syllables
}

// byte offset just past the closing brace of the leading tag block
func indexAfterTags(fragment string) int {
	for i := 0; i < len(fragment); i++ {
		if fragment[i] == '}' {
			return i + 1
		}
	}
	return 0
}

// Converter turns resolved subtitle lines into chart notes on a song.
type Converter struct {
	Song *Song
	// BPM is the karaoke BPM written to the chart; note timings are
	// rescaled from the fixed reference timebase by BPM/1500.
	BPM float64
}

// AppendLines converts each line's syllables into notes for the given
// player, ending every line with a linebreak marker.
//
// The timebase is 100 beats per second, so the centisecond karaoke
// durations map to beats one to one. Sung notes are shortened by one
// beat (never below one) to leave a breathing gap that makes them easier
// to hit.
func (c *Converter) AppendLines(lines []subtitle.Line, player Player) {
	for _, line := range lines {
		beat := int(math.Round(line.Start.Seconds() * config.BeatsPerSecond))

		for _, syllable := range ExtractSyllables(line.Text) {
			duration := syllable.DurationCS

			if syllable.Text == "" {
				beat += duration
				continue
			}

			tweaked := duration
			if tweaked > 1 {
				tweaked--
			}

			c.Song.AddNote(player, Note{
				Type:     ":",
				Start:    c.scale(beat),
				Duration: c.scale(tweaked),
				Pitch:    DefaultPitch,
				Text:     syllable.Text,
			})

			beat += duration
		}

		c.Song.AddLineBreak(player, c.scale(beat))
	}
}

func (c *Converter) scale(beat int) int {
	return int(math.Round(float64(beat) * c.BPM / referenceBPM))
}
