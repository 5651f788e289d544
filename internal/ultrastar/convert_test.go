package ultrastar

import (
	"strings"
	"testing"
	"time"

	"karachart/internal/subtitle"
)

func TestExtractSyllablesBasic(t *testing.T) {
	syllables := ExtractSyllables(`{\k50}la{\k30}la {\k20}la`)
	if len(syllables) != 3 {
		t.Fatalf("expected 3 syllables, got %d: %+v", len(syllables), syllables)
	}
	if syllables[0].DurationCS != 50 || syllables[0].Text != "la" {
		t.Errorf("unexpected first syllable: %+v", syllables[0])
	}
	if syllables[1].Text != "la " {
		t.Errorf("expected trailing space kept on %q", syllables[1].Text)
	}
}

func TestExtractSyllablesTimingOnly(t *testing.T) {
	// a karaoke tag with no following text is a rest
	syllables := ExtractSyllables(`{\k100}{\k50}la`)
	if len(syllables) != 2 {
		t.Fatalf("expected 2 syllables, got %d: %+v", len(syllables), syllables)
	}
	if syllables[0].Text != "" || syllables[0].DurationCS != 100 {
		t.Errorf("expected a 100cs rest, got %+v", syllables[0])
	}
}

func TestExtractSyllablesExtraTags(t *testing.T) {
	// override tags may ride along after the karaoke tag
	syllables := ExtractSyllables(`{\k23\2c&H3AE2FA&}syl`)
	if len(syllables) != 1 {
		t.Fatalf("expected 1 syllable, got %d: %+v", len(syllables), syllables)
	}
	if syllables[0].DurationCS != 23 || syllables[0].Text != "syl" {
		t.Errorf("unexpected syllable: %+v", syllables[0])
	}
}

func TestExtractSyllablesTagBeforeKaraoke(t *testing.T) {
	syllables := ExtractSyllables(`{\c&HFF&\k40}word`)
	if len(syllables) != 1 {
		t.Fatalf("expected 1 syllable, got %d: %+v", len(syllables), syllables)
	}
	if syllables[0].DurationCS != 40 || syllables[0].Text != "word" {
		t.Errorf("unexpected syllable: %+v", syllables[0])
	}
}

func TestExtractSyllablesKfAndKoVariants(t *testing.T) {
	syllables := ExtractSyllables(`{\kf25}fill{\ko15}out`)
	if len(syllables) != 2 {
		t.Fatalf("expected 2 syllables, got %d: %+v", len(syllables), syllables)
	}
	if syllables[0].DurationCS != 25 || syllables[1].DurationCS != 15 {
		t.Errorf("unexpected durations: %+v", syllables)
	}
}

func TestExtractSyllablesFractionalTiming(t *testing.T) {
	syllables := ExtractSyllables(`{\k12.6}la`)
	if len(syllables) != 1 || syllables[0].DurationCS != 13 {
		t.Fatalf("expected rounded 13cs, got %+v", syllables)
	}
}

func TestExtractSyllablesPlainTextYieldsNothing(t *testing.T) {
	if syllables := ExtractSyllables("no karaoke tags here"); len(syllables) != 0 {
		t.Errorf("expected no syllables, got %+v", syllables)
	}
}

func TestAppendLinesBeatMath(t *testing.T) {
	song := NewSong()
	converter := &Converter{Song: song, BPM: 1500}

	lines := []subtitle.Line{{
		Index: 0,
		Start: 2 * time.Second,
		End:   4 * time.Second,
		Style: "Default",
		Text:  `{\k50}la{\k100}{\k30}li`,
	}}
	converter.AppendLines(lines, P1)

	// 100 beats per second: line starts at beat 200; the 100cs rest
	// advances the cursor without a note; durations shorten by one
	want := ": 200 49 19 la\n: 350 29 19 li\n- 380\nE\n"
	if got := song.String(); got != want {
		t.Errorf("unexpected chart body:\n%s\nwant:\n%s", got, want)
	}
}

func TestAppendLinesScalesByBPM(t *testing.T) {
	song := NewSong()
	converter := &Converter{Song: song, BPM: 300}

	lines := []subtitle.Line{{
		Index: 0,
		Start: 5 * time.Second,
		End:   6 * time.Second,
		Text:  `{\k100}la`,
	}}
	converter.AppendLines(lines, P1)

	// 300/1500 scaling: beat 500 becomes 100, duration 99 becomes 20
	got := song.String()
	if !strings.Contains(got, ": 100 20 19 la") {
		t.Errorf("expected scaled note ': 100 20 19 la' in:\n%s", got)
	}
}

func TestAppendLinesDuetParts(t *testing.T) {
	song := NewSong()
	converter := &Converter{Song: song, BPM: 1500}

	converter.AppendLines([]subtitle.Line{{
		Start: 0, End: time.Second, Text: `{\k40}one`,
	}}, P1)
	converter.AppendLines([]subtitle.Line{{
		Start: 2 * time.Second, End: 3 * time.Second, Text: `{\k40}two`,
	}}, P2)

	if !song.Duet() {
		t.Error("expected a duet song")
	}
}

func TestFolderNameSanitized(t *testing.T) {
	got := FolderName("Mémé & Söhne", "Chanson: d'été?")
	if got != "Meme  Sohne - Chanson dete" {
		t.Errorf("unexpected folder name %q", got)
	}
}
