package pipeline

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Summary aggregates the counters of one run.
type Summary struct {
	Games        int64
	Failed       int64
	Provisioned  int64
	MediaWritten int64
	MediaSkipped int64
	MediaMissing int64
}

func (p *Pipeline) summary() Summary {
	return Summary{
		Games:        p.games.Load(),
		Failed:       p.failed.Load(),
		Provisioned:  p.provisioned.Load(),
		MediaWritten: p.mediaWritten.Load(),
		MediaSkipped: p.mediaSkipped.Load(),
		MediaMissing: p.mediaMissing.Load(),
	}
}

// Render prints the run counters as a table.
func (s Summary) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Counter", "Value"})
	t.AppendRows([]table.Row{
		{"games", s.Games},
		{"failed", s.Failed},
		{"jigs provisioned", s.Provisioned},
		{"media written", s.MediaWritten},
		{"media up to date", s.MediaSkipped},
		{"media missing", s.MediaMissing},
	})
	t.Render()
}
