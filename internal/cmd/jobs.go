package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/glosskit/gloss/pkg/progress"
)

var (
	jobsDir  string
	jobsJSON bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect translation job progress records",
	Long: `Inspect the progress records translation runs leave next to their
output files. Records show how far a run got, whether it finished, and
whether re-running would resume or start over.`,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List progress records in a directory",
	Args:  cobra.NoArgs,
	RunE:  runJobsList,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one job's progress record",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsShow,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)

	jobsCmd.PersistentFlags().StringVar(&jobsDir, "dir", ".", "Directory scanned for progress records")
	jobsCmd.PersistentFlags().BoolVar(&jobsJSON, "json", false, "Output as JSON")
}

// jobView is the listing row for one progress record.
type jobView struct {
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	TotalChunks int       `json:"total_chunks"`
	Completed   int       `json:"completed"`
	LastUpdated time.Time `json:"last_updated"`
	Path        string    `json:"path"`
}

func runJobsList(_ *cobra.Command, _ []string) error {
	views, err := collectJobs(jobsDir)
	if err != nil {
		return err
	}

	if jobsJSON {
		return printJSON(views)
	}

	if len(views) == 0 {
		stdout("No progress records found in %s\n", jobsDir)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tPROGRESS\tLAST UPDATED")
	for _, v := range views {
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\n",
			v.Name, v.Status, v.Completed, v.TotalChunks,
			formatRecordTime(v.LastUpdated))
	}
	return w.Flush()
}

func runJobsShow(_ *cobra.Command, args []string) error {
	name := args[0]

	views, err := collectJobs(jobsDir)
	if err != nil {
		return err
	}

	for _, v := range views {
		if v.Name != name {
			continue
		}
		rec, err := progress.ReadRecord(v.Path)
		if err != nil {
			return exitError(foundry.ExitFileReadError, "failed to read progress record", err)
		}

		if jobsJSON {
			return printJSON(map[string]any{
				"name":               v.Name,
				"status":             rec.Status,
				"total_chunks":       rec.TotalChunks,
				"completed":          len(rec.TranslatedChunks),
				"last_updated":       rec.LastUpdated,
				"config_fingerprint": rec.ConfigFingerprint,
				"path":               v.Path,
			})
		}

		stdout("Name:         %s\n", v.Name)
		stdout("Status:       %s\n", rec.Status)
		stdout("Progress:     %d/%d chunks\n", len(rec.TranslatedChunks), rec.TotalChunks)
		stdout("Last updated: %s\n", formatRecordTime(rec.LastUpdated))
		stdout("Fingerprint:  %s\n", rec.ConfigFingerprint)
		stdout("Record:       %s\n", v.Path)
		return nil
	}

	return exitError(foundry.ExitFileNotFound,
		fmt.Sprintf("no progress record named %q in %s", name, jobsDir), nil)
}

// collectJobs reads every progress record in dir. Unreadable records are
// reported as rows with an error status instead of hiding the rest.
func collectJobs(dir string) ([]jobView, error) {
	paths, err := progress.ListRecords(dir)
	if err != nil {
		return nil, exitError(foundry.ExitFileReadError, "failed to scan for progress records", err)
	}

	views := make([]jobView, 0, len(paths))
	for _, path := range paths {
		v := jobView{Name: progress.JobName(path), Path: path}
		rec, err := progress.ReadRecord(path)
		if err != nil {
			v.Status = "unreadable"
		} else {
			v.Status = rec.Status
			v.TotalChunks = rec.TotalChunks
			v.Completed = len(rec.TranslatedChunks)
			v.LastUpdated = rec.LastUpdated
		}
		views = append(views, v)
	}
	return views, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatRecordTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
