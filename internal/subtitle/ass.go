package subtitle

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// event kinds we care about inside [Events]
const (
	eventComment  = "Comment:"
	eventDialogue = "Dialogue:"
)

type assEvents struct {
	columns   []string
	textIdx   int
	startIdx  int
	endIdx    int
	styleIdx  int
	comments  []Line
	dialogues []Line
}

// Load reads the karaoke lines from an ASS subtitle file.
//
// Karaoke files from kara-style sources carry the sung timing on Comment
// events, so those are preferred when present; Dialogue events are the
// fallback, or the forced choice when forceDialogue is set (useful for
// hand-made subtitle files). Returned lines keep their raw text, inline
// {...} tags included, and are ordered by start time.
func Load(path string, forceDialogue bool) ([]Line, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subtitle file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	events := &assEvents{textIdx: -1, startIdx: -1, endIdx: -1, styleIdx: -1}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	inEvents := false
	lineNum := 0

	for scanner.Scan() {
		raw := scanner.Text()
		lineNum++

		if lineNum == 1 {
			raw = strings.TrimPrefix(raw, "\ufeff")
		}

		trimmed := strings.TrimSpace(raw)

		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			section := strings.ToLower(strings.Trim(trimmed, "[]"))
			inEvents = section == "events"
			continue
		}
		if !inEvents {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "Format:"):
			events.setFormat(trimmed)
		case strings.HasPrefix(trimmed, eventComment):
			if err := events.addEvent(trimmed, eventComment); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
		case strings.HasPrefix(trimmed, eventDialogue):
			if err := events.addEvent(trimmed, eventDialogue); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading subtitle file: %w", err)
	}
	if events.columns == nil {
		return nil, fmt.Errorf("subtitle file missing Format line in [Events] section")
	}

	lines := events.comments
	if len(lines) == 0 || forceDialogue {
		lines = events.dialogues
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("subtitle file contains no usable events")
	}

	// Events appear in file order, which is not always chronological.
	SortByStart(lines)
	return lines, nil
}

func (e *assEvents) setFormat(trimmed string) {
	cols := strings.Split(strings.TrimPrefix(trimmed, "Format:"), ",")
	for i, col := range cols {
		cols[i] = strings.TrimSpace(col)
	}
	e.columns = cols
	for i, col := range cols {
		switch strings.ToLower(col) {
		case "text":
			e.textIdx = i
		case "start":
			e.startIdx = i
		case "end":
			e.endIdx = i
		case "style":
			e.styleIdx = i
		}
	}
}

func (e *assEvents) addEvent(trimmed, kind string) error {
	if e.columns == nil {
		return fmt.Errorf("event before Format line")
	}
	if e.textIdx < 0 || e.startIdx < 0 || e.endIdx < 0 || e.styleIdx < 0 {
		return fmt.Errorf("Format line missing Start, End, Style or Text column")
	}

	content := strings.TrimSpace(strings.TrimPrefix(trimmed, kind))
	fields := splitEventFields(content, len(e.columns))
	if len(fields) < len(e.columns) {
		return fmt.Errorf("expected %d fields, got %d", len(e.columns), len(fields))
	}

	start, err := parseTimestamp(fields[e.startIdx])
	if err != nil {
		return fmt.Errorf("bad start time: %w", err)
	}
	end, err := parseTimestamp(fields[e.endIdx])
	if err != nil {
		return fmt.Errorf("bad end time: %w", err)
	}

	line := Line{
		Start: start,
		End:   end,
		Style: strings.TrimSpace(fields[e.styleIdx]),
		Text:  fields[e.textIdx],
	}

	if kind == eventComment {
		line.Index = len(e.comments)
		e.comments = append(e.comments, line)
	} else {
		line.Index = len(e.dialogues)
		e.dialogues = append(e.dialogues, line)
	}
	return nil
}

// splits an event's fields on commas; the text column is last and may
// itself contain commas, so only numFields-1 splits are made
func splitEventFields(content string, numFields int) []string {
	if numFields <= 0 {
		return nil
	}

	parts := make([]string, 0, numFields)
	remaining := content
	for i := 0; i < numFields-1; i++ {
		idx := strings.Index(remaining, ",")
		if idx == -1 {
			parts = append(parts, remaining)
			remaining = ""
			break
		}
		parts = append(parts, remaining[:idx])
		remaining = remaining[idx+1:]
	}
	parts = append(parts, remaining)
	return parts
}

// parses an ASS H:MM:SS.CC timestamp
func parseTimestamp(ts string) (time.Duration, error) {
	ts = strings.TrimSpace(ts)
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed timestamp %q", ts)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed timestamp %q", ts)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed timestamp %q", ts)
	}

	secParts := strings.Split(parts[2], ".")
	if len(secParts) != 2 {
		return 0, fmt.Errorf("malformed timestamp %q", ts)
	}
	seconds, err := strconv.Atoi(secParts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed timestamp %q", ts)
	}
	centis, err := strconv.Atoi(secParts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed timestamp %q", ts)
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(centis)*10*time.Millisecond, nil
}
