package overlap

import (
	"fmt"

	"karachart/internal/subtitle"
)

// StylePicker is the decision channel for style-based filtering. Given
// the styles still in play it returns the name of one style to discard
// outright. Returning an error aborts the run.
type StylePicker interface {
	DiscardStyle(styles []subtitle.StyleCount) (string, error)
}

// StylePickerFunc adapts a function to the StylePicker interface.
type StylePickerFunc func(styles []subtitle.StyleCount) (string, error)

func (f StylePickerFunc) DiscardStyle(styles []subtitle.StyleCount) (string, error) {
	return f(styles)
}

// FilterByStyle discards whole styles until a single one remains and
// returns only that style's lines. It does not guarantee the surviving
// style is overlap-free. A single-style input is returned unchanged; the
// second return reports whether any filtering happened at all.
func FilterByStyle(
	lines []subtitle.Line,
	picker StylePicker,
) ([]subtitle.Line, bool, error) {
	styles := subtitle.Styles(lines)
	if len(styles) <= 1 {
		return lines, false, nil
	}

	for len(styles) > 1 {
		name, err := pickValid(picker, styles)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrResolutionAborted, err)
		}
		styles = removeStyle(styles, name)
	}

	return subtitle.InStyle(styles[0].Name, lines), true, nil
}

// SplitDuet discards whole styles until exactly two remain and splits the
// lines into the two duet parts, in the surviving styles' census order.
// When the input has only one style no duet is possible: the original
// lines come back as a single part and ok is false.
func SplitDuet(
	lines []subtitle.Line,
	picker StylePicker,
) (parts [][]subtitle.Line, names []string, ok bool, err error) {
	styles := subtitle.Styles(lines)
	if len(styles) < 2 {
		return [][]subtitle.Line{lines}, nil, false, nil
	}

	for len(styles) > 2 {
		name, err := pickValid(picker, styles)
		if err != nil {
			return nil, nil, false, fmt.Errorf("%w: %v", ErrResolutionAborted, err)
		}
		styles = removeStyle(styles, name)
	}

	parts = [][]subtitle.Line{
		subtitle.InStyle(styles[0].Name, lines),
		subtitle.InStyle(styles[1].Name, lines),
	}
	names = []string{styles[0].Name, styles[1].Name}
	return parts, names, true, nil
}

// asks the picker until it names a style still in play
func pickValid(picker StylePicker, styles []subtitle.StyleCount) (string, error) {
	for {
		name, err := picker.DiscardStyle(styles)
		if err != nil {
			return "", err
		}
		for _, style := range styles {
			if style.Name == name {
				return name, nil
			}
		}
	}
}

func removeStyle(styles []subtitle.StyleCount, name string) []subtitle.StyleCount {
	kept := styles[:0]
	for _, style := range styles {
		if style.Name != name {
			kept = append(kept, style)
		}
	}
	return kept
}
