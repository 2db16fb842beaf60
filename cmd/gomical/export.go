package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gomical/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <job-id>",
	Short: "Write a completed job's extracted schedule as an .ics file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		job, err := st.GetJob(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if job.DocumentHash == "" {
			return fmt.Errorf("job %s has no extracted schedule yet (status %s)", job.ID, job.Status)
		}

		res, hit, err := st.LookupParse(cmd.Context(), job.DocumentHash, job.Language, job.Mode)
		if err != nil {
			return err
		}
		if !hit {
			return fmt.Errorf("no extraction cached for job %s", job.ID)
		}

		body, err := export.BuildICS(res.Title, res.Events)
		if err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = job.ID + ".ics"
		}
		if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
			return err
		}

		fmt.Printf("wrote %s (%d events)\n", out, len(res.Events))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default <job-id>.ics)")
	rootCmd.AddCommand(exportCmd)
}
