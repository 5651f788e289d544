package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"

	"karachart/internal/subtitle"
)

// Prompter implements the interactive decision channels on a terminal:
// it renders the candidates as a table and reads numbered selections
// from the input stream. Closing the input (Ctrl-D) aborts the run.
type Prompter struct {
	in    *bufio.Reader
	out   io.Writer
	fancy bool
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	fancy := false
	if file, ok := out.(*os.File); ok {
		fancy = isatty.IsTerminal(file.Fd())
	}
	return &Prompter{
		in:    bufio.NewReader(in),
		out:   out,
		fancy: fancy,
	}
}

// Discard presents one overlap cluster and returns the original index of
// the line the user wants to drop.
func (p *Prompter) Discard(members []subtitle.Line) (int, error) {
	tw := p.newTable()
	tw.AppendHeader(table.Row{"#", "Start", "End", "Style", "Text"})
	for _, line := range members {
		tw.AppendRow(table.Row{
			line.Index,
			formatTimestamp(line.Start),
			formatTimestamp(line.End),
			line.Style,
			line.PlainText(),
		})
	}
	fmt.Fprintln(p.out, "The following lines overlap; the chart can keep only one voice at a time.")
	fmt.Fprintln(p.out, tw.Render())
	fmt.Fprintln(p.out, "Enter the # of the line to DISCARD.")

	for {
		answer, err := p.readLine()
		if err != nil {
			return 0, err
		}
		selection, err := strconv.Atoi(answer)
		if err != nil {
			fmt.Fprintln(p.out, "Please enter a valid integer.")
			continue
		}
		for _, line := range members {
			if line.Index == selection {
				return selection, nil
			}
		}
		fmt.Fprintln(p.out, "Please enter one of the listed line numbers.")
	}
}

// DiscardStyle presents the styles still in play and returns the name of
// the one the user wants to drop wholesale.
func (p *Prompter) DiscardStyle(styles []subtitle.StyleCount) (string, error) {
	tw := p.newTable()
	tw.AppendHeader(table.Row{"#", "Style", "Lines"})
	for i, style := range styles {
		tw.AppendRow(table.Row{i, style.Name, style.Count})
	}
	fmt.Fprintln(p.out, tw.Render())
	fmt.Fprintln(p.out, "Enter the # of the style to DISCARD. All of its lines will be dropped.")

	for {
		answer, err := p.readLine()
		if err != nil {
			return "", err
		}
		selection, err := strconv.Atoi(answer)
		if err != nil {
			fmt.Fprintln(p.out, "Please enter a valid integer.")
			continue
		}
		if selection < 0 || selection >= len(styles) {
			fmt.Fprintln(p.out, "Please enter one of the listed style numbers.")
			continue
		}
		return styles[selection].Name, nil
	}
}

func (p *Prompter) newTable() table.Writer {
	tw := table.NewWriter()
	if p.fancy {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}
	return tw
}

func (p *Prompter) readLine() (string, error) {
	fmt.Fprint(p.out, ":> ")
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("input closed: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// renders a duration the way subtitle timestamps read, H:MM:SS.CC
func formatTimestamp(d time.Duration) string {
	centis := d.Milliseconds() / 10
	hours := centis / 360000
	centis -= hours * 360000
	minutes := centis / 6000
	centis -= minutes * 6000
	seconds := centis / 100
	centis -= seconds * 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, seconds, centis)
}
