package ultrastar

import (
	"strings"
	"testing"
)

func TestSongSerializationSoloLayout(t *testing.T) {
	song := NewSong()
	song.SetMeta("TITLE", "Test Song")
	song.SetMeta("ARTIST", "Tester")
	song.SetMeta("BPM", "1500")
	song.AddNote(P1, Note{Type: ":", Start: 0, Duration: 4, Pitch: 19, Text: "la"})
	song.AddNote(P1, Note{Type: ":", Start: 5, Duration: 3, Pitch: 19, Text: "laa"})
	song.AddLineBreak(P1, 9)

	want := "#ARTIST:Tester\n" +
		"#BPM:1500\n" +
		"#TITLE:Test Song\n" +
		": 0 4 19 la\n" +
		": 5 3 19 laa\n" +
		"- 9\n" +
		"E\n"
	if got := song.String(); got != want {
		t.Errorf("unexpected serialization:\n%s\nwant:\n%s", got, want)
	}
}

func TestSongSerializationDuetSections(t *testing.T) {
	song := NewSong()
	song.SetMeta("TITLE", "Duet")
	song.AddNote(P1, Note{Type: ":", Start: 0, Duration: 2, Pitch: 19, Text: "one"})
	song.AddNote(P2, Note{Type: ":", Start: 4, Duration: 2, Pitch: 19, Text: "two"})

	if !song.Duet() {
		t.Fatal("song with P2 notes must be a duet")
	}

	got := song.String()
	p1 := strings.Index(got, "P1\n")
	p2 := strings.Index(got, "P2\n")
	if p1 == -1 || p2 == -1 || p2 < p1 {
		t.Fatalf("expected P1 section before P2 section:\n%s", got)
	}
	if strings.Count(got, "E\n") != 2 {
		t.Errorf("each duet part must close with E:\n%s", got)
	}
}

func TestSongNotesSortedByStart(t *testing.T) {
	song := NewSong()
	song.AddNote(P1, Note{Type: ":", Start: 10, Duration: 2, Pitch: 19, Text: "late"})
	song.AddNote(P1, Note{Type: ":", Start: 2, Duration: 2, Pitch: 19, Text: "early"})

	got := song.String()
	if strings.Index(got, "early") > strings.Index(got, "late") {
		t.Errorf("notes must serialize in beat order:\n%s", got)
	}
}

func TestMetaOverwrite(t *testing.T) {
	song := NewSong()
	song.SetMeta("TITLE", "first")
	song.SetMeta("TITLE", "second")
	if song.Meta("TITLE") != "second" {
		t.Errorf("expected overwritten value, got %q", song.Meta("TITLE"))
	}
}

func TestAdjustNotesSnapsToGrid(t *testing.T) {
	song := NewSong()
	song.AddNote(P1, Note{Type: ":", Start: 101, Duration: 7, Pitch: 19, Text: "la"})
	song.AddLineBreak(P1, 110)

	song.AdjustNotes(4, P1)

	notes := sortedNotes(song.notes[P1])
	if notes[0].Start != 100 || notes[0].Duration != 8 {
		t.Errorf("expected snapped note 100/8, got %d/%d", notes[0].Start, notes[0].Duration)
	}
	if notes[1].Start != 112 {
		t.Errorf("expected snapped linebreak 112, got %d", notes[1].Start)
	}
}

func TestAdjustNotesKeepsMinimumDuration(t *testing.T) {
	song := NewSong()
	song.AddNote(P1, Note{Type: ":", Start: 0, Duration: 1, Pitch: 19, Text: "la"})

	song.AdjustNotes(4, P1)

	if d := song.notes[P1][0].Duration; d < 1 {
		t.Errorf("snapped duration fell below 1: %d", d)
	}
}
