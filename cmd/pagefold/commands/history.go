package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" default:"10" help:"Number of records to list per table"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	store, err := history.OpenDefault(cfg.Output.StateDir)
	if err != nil {
		return err
	}
	defer closeHistory(store)

	ctx := context.Background()
	builds, err := store.RecentBuilds(ctx, h.Limit)
	if err != nil {
		return err
	}
	deployments, err := store.RecentDeployments(ctx, h.Limit)
	if err != nil {
		return err
	}

	if len(builds) == 0 && len(deployments) == 0 {
		fmt.Println("no builds recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if len(builds) > 0 {
		fmt.Fprintln(w, "BUILD\tSTARTED\tDURATION\tDOCS\tPAGES\tISSUES\tOUTCOME")
		for _, b := range builds {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				shortID(b.BuildID),
				b.StartedAt.Local().Format(time.DateTime),
				b.Duration.Round(time.Millisecond),
				b.Documents, b.RenderedPages, b.Issues, b.Outcome)
		}
	}
	if len(deployments) > 0 {
		if len(builds) > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, "DEPLOY\tBUILD\tPROJECT\tCREATED\tURL")
		for _, d := range deployments {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				shortID(d.DeployID),
				shortID(d.BuildID),
				d.Project,
				d.CreatedAt.Local().Format(time.DateTime),
				d.URL)
		}
	}
	return w.Flush()
}

// shortID truncates uuid-length identifiers for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
