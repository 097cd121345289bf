package main

import (
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/bft-labs/volumetrize/pkg/state"
	"github.com/bft-labs/volumetrize/pkg/volumetrize"
)

func newTable(out io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	return tw
}

func renderFrames(out io.Writer, frames []volumetrize.Frame) {
	tw := newTable(out)
	tw.AppendHeader(table.Row{"Index", "Frame", "Path", "Role"})
	for _, f := range frames {
		role := ""
		if f.IsReference() {
			role = "reference"
		}
		tw.AppendRow(table.Row{f.Index, f.Name, f.Path, role})
	}
	tw.AppendFooter(table.Row{"", len(frames), "", ""})
	tw.Render()
}

func renderPlan(out io.Writer, frames []volumetrize.Frame, order []int) {
	tw := newTable(out)
	tw.AppendHeader(table.Row{"#", "Index", "Frame", "Role"})
	for i, idx := range order {
		role := "propagate"
		if frames[idx].IsReference() {
			role = "reference"
		}
		tw.AppendRow(table.Row{i + 1, idx, frames[idx].Name, role})
	}
	tw.Render()
}

func renderStatus(out io.Writer, st state.State) {
	tw := newTable(out)
	if st.RunID != "" {
		tw.SetTitle("run " + st.RunID + " (" + st.Tool + ")")
	}
	tw.AppendHeader(table.Row{"Index", "Frame", "State", "Attempts", "Updated", "Error"})
	for _, name := range st.Names() {
		fs := st.Frames[name]
		tw.AppendRow(table.Row{fs.Index, name, fs.State, fs.Attempts, formatTime(fs.UpdatedAt), fs.Error})
	}
	counts := st.Counts()
	tw.AppendFooter(table.Row{"", "", "done " + strconv.Itoa(counts[state.StateDone]), "", "", ""})
	tw.Render()
}

func renderSummary(out io.Writer, sum volumetrize.Summary) {
	tw := newTable(out)
	tw.SetTitle(sum.Stage + " with " + sum.Tool + ", run " + sum.RunID)
	tw.AppendHeader(table.Row{"Frame", "State", "Attempts", "Duration", "Error"})
	for _, r := range sum.Results {
		st := r.Frame.State.String()
		if r.Skipped {
			st += " (skipped)"
		}
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		tw.AppendRow(table.Row{r.Frame.Name, st, r.Attempts, r.Duration.Round(time.Second), errText})
	}
	tw.AppendFooter(table.Row{
		"completed " + strconv.Itoa(sum.Completed()),
		"failed " + strconv.Itoa(len(sum.Failed())),
		"", "", "",
	})
	tw.Render()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(time.DateTime)
}
