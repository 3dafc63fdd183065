package commands

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/obscura-io/obscura/audit"
	"github.com/obscura-io/obscura/errors"
	"github.com/obscura-io/obscura/logger"
)

// RunsCmd lists persisted pipeline runs.
var RunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs",
	Long:  `Show run records from the audit database, newest first. Requires audit.db_path to be configured.`,
	RunE:  runRuns,
}

var runsLimit int

func init() {
	RunsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "Maximum number of runs to show")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Audit.DBPath == "" {
		return errors.New("no run database configured: set audit.db_path")
	}

	store, err := audit.OpenRunStore(cfg.Audit.DBPath, logger.Nop())
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListRecent(runsLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		pterm.Info.Println("No runs recorded yet")
		return nil
	}

	rows := pterm.TableData{
		{"Run ID", "File", "Type", "Status", "Entities", "Findings", "Started"},
	}
	for _, rec := range records {
		id := rec.RunID
		if len(id) > 8 {
			id = id[:8]
		}
		rows = append(rows, []string{
			id,
			rec.FileName,
			orNA(rec.DocumentType),
			rec.Status,
			fmt.Sprintf("%d", rec.Entities),
			fmt.Sprintf("%d", rec.Findings),
			rec.StartedAt.Format(time.DateTime),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
