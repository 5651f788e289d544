package ultrastar

import (
	"fmt"
	"sort"
	"strings"
)

// Player names a duet part. Songs with any P2 notes serialize as duets.
type Player string

const (
	P1 Player = "P1"
	P2 Player = "P2"
)

// Note is one line of the chart body. Type ":" is a sung note; "-" is a
// linebreak carrying only its beat. "*", "R" and "F" exist in the format
// but are never produced here.
type Note struct {
	Type     string
	Start    int
	Duration int
	Pitch    int
	Text     string
}

func (n Note) String() string {
	if n.Type == "-" {
		return fmt.Sprintf("%s %d", n.Type, n.Start)
	}
	return fmt.Sprintf("%s %d %d %d %s", n.Type, n.Start, n.Duration, n.Pitch, n.Text)
}

// Song is an UltraStar chart under construction: metadata tags plus the
// per-player note lists.
type Song struct {
	meta  map[string]string
	notes map[Player][]Note
}

func NewSong() *Song {
	return &Song{
		meta: make(map[string]string),
		notes: map[Player][]Note{
			P1: nil,
			P2: nil,
		},
	}
}

// sets a metadata tag, overwriting any previous value. Tags serialize as
// "#TAG:VALUE" lines, alphabetically.
func (s *Song) SetMeta(tag, value string) {
	s.meta[tag] = value
}

func (s *Song) Meta(tag string) string {
	return s.meta[tag]
}

func (s *Song) AddNote(player Player, note Note) {
	s.notes[player] = append(s.notes[player], note)
}

// appends a linebreak marker at the given beat
func (s *Song) AddLineBreak(player Player, beat int) {
	s.notes[player] = append(s.notes[player], Note{Type: "-", Start: beat})
}

// true when the song has a second part
func (s *Song) Duet() bool {
	return len(s.notes[P2]) > 0
}

// AdjustNotes snaps a player's note starts and durations onto the beat
// grid implied by the BPM multiplier, keeping timings aligned with the
// song's real beat when the karaoke BPM is a multiple of it.
func (s *Song) AdjustNotes(multiplier int, player Player) {
	if multiplier <= 1 {
		return
	}
	notes := s.notes[player]
	for i, note := range notes {
		notes[i].Start = snap(note.Start, multiplier)
		if note.Type != "-" {
			duration := snap(note.Duration, multiplier)
			if duration < 1 {
				duration = 1
			}
			notes[i].Duration = duration
		}
	}
}

func snap(beat, grid int) int {
	return (beat + grid/2) / grid * grid
}

// String renders the complete chart file: sorted metadata, then the note
// body. Duets carry explicit P1/P2 sections, each closed with E.
func (s *Song) String() string {
	tags := make([]string, 0, len(s.meta))
	for tag := range s.meta {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	var sb strings.Builder
	for _, tag := range tags {
		sb.WriteString(fmt.Sprintf("#%s:%s\n", tag, s.meta[tag]))
	}

	p1 := sortedNotes(s.notes[P1])
	p2 := sortedNotes(s.notes[P2])

	if len(p2) > 0 {
		sb.WriteString("P1\n")
		writeNotes(&sb, p1)
		sb.WriteString("E\n")
		sb.WriteString("P2\n")
		writeNotes(&sb, p2)
		sb.WriteString("E\n")
	} else {
		writeNotes(&sb, p1)
		sb.WriteString("E\n")
	}

	return sb.String()
}

func sortedNotes(notes []Note) []Note {
	out := make([]Note, len(notes))
	copy(out, notes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})
	return out
}

func writeNotes(sb *strings.Builder, notes []Note) {
	for _, note := range notes {
		sb.WriteString(note.String())
		sb.WriteByte('\n')
	}
}
