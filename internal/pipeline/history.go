package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"git.home.luguber.info/inful/gwcrelease/internal/config"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/journal"
)

// HistoryRuns is how many past runs history lists.
const HistoryRuns = 10

// HistoryCommand prints recent runs from the journal.
type HistoryCommand struct {
	BaseCommand
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *HistoryCommand {
	return &HistoryCommand{BaseCommand: NewBaseCommand(CommandMetadata{
		Name:        "history",
		Description: "List recent runs and the commands of the latest finished one",
		Requires:    []config.Key{config.KeyJournal},
	})}
}

func (c *HistoryCommand) Execute(ctx context.Context, env *Env) foundation.Result[Outcome, error] {
	if env.Journal == nil {
		return foundation.Err[Outcome, error](errors.ConfigError("journal not open").
			WithContext("journal", env.Options.Journal).
			Build())
	}
	runs, err := env.Journal.Runs(ctx, HistoryRuns+1)
	if err != nil {
		return foundation.Err[Outcome, error](err)
	}
	// The current run is journaled too; it is still in progress.
	past := make([]journal.Run, 0, len(runs))
	for _, r := range runs {
		if r.RunID != env.RunID {
			past = append(past, r)
		}
	}
	if len(past) > HistoryRuns {
		past = past[:HistoryRuns]
	}

	out := env.out()
	if len(past) == 0 {
		_, _ = fmt.Fprintln(out, "No runs recorded.")
		return foundation.Ok[Outcome, error](Outcome{Attrs: map[string]string{"runs": "0"}})
	}

	now := env.now()
	runTable := newHistoryTable(lipgloss.NormalBorder()).Headers("RUN", "STARTED", "DURATION", "COMMANDS", "RESULT")
	for _, r := range past {
		runTable.Row(
			r.RunID,
			humanize.RelTime(r.Started, now, "ago", "from now"),
			r.Finished.Sub(r.Started).Round(time.Millisecond).String(),
			strconv.Itoa(r.Commands),
			result(r.Failed))
	}
	_, _ = fmt.Fprintln(out, runTable.String())

	latest := past[0]
	entries, err := env.Journal.ByRun(ctx, latest.RunID)
	if err != nil {
		return foundation.Err[Outcome, error](err)
	}
	_, _ = fmt.Fprintf(out, "\nRun %s:\n", latest.RunID)
	entryTable := newHistoryTable(lipgloss.HiddenBorder()).BorderTop(false).BorderBottom(false)
	for _, e := range entries {
		if e.Command == "" {
			continue
		}
		entryTable.Row(e.Time.Format("15:04:05"), e.Command, phaseLabel(e.Phase), e.Error)
	}
	_, _ = fmt.Fprintln(out, entryTable.String())
	return foundation.Ok[Outcome, error](Outcome{Attrs: map[string]string{"runs": strconv.Itoa(len(past))}})
}

var (
	historyHeader = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	historyCell   = lipgloss.NewStyle().Padding(0, 1)
)

func newHistoryTable(border lipgloss.Border) *table.Table {
	return table.New().Border(border).StyleFunc(func(row, _ int) lipgloss.Style {
		if row == table.HeaderRow {
			return historyHeader
		}
		return historyCell
	})
}

func result(failed bool) string {
	if failed {
		return color.RedString("failed")
	}
	return color.GreenString("ok")
}

func phaseLabel(phase string) string {
	switch Phase(phase) {
	case PhaseFailed:
		return color.RedString(phase)
	case PhaseSkipped:
		return color.YellowString(phase)
	case PhaseCompleted:
		return color.GreenString(phase)
	default:
		return phase
	}
}
