package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"gomical/internal/model"
)

var runCmd = &cobra.Command{
	Use:   "run <job-id>",
	Short: "Process a single pending job and print the outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID := args[0]

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		docs, _, err := openDocs()
		if err != nil {
			return err
		}

		runErr := newOrchestrator(st, docs).Run(cmd.Context(), jobID)

		job, err := st.GetJob(cmd.Context(), jobID)
		if err != nil {
			if runErr != nil {
				return runErr
			}
			return err
		}

		switch job.Status {
		case model.JobCompleted:
			fmt.Printf("job %s completed: %d inserted, %d skipped\n",
				job.ID, job.Result.Inserted, job.Result.Skipped)
		case model.JobError:
			fmt.Printf("job %s failed: %s\n", job.ID, job.ErrorMessage)
		default:
			fmt.Printf("job %s is %s\n", job.ID, job.Status)
		}

		if runErr != nil {
			return errors.New("job run failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
