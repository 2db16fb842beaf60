package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"gomical/internal/model"
	"gomical/internal/storage"
)

var (
	enqueueUser     string
	enqueueLanguage string
	enqueueMode     string
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <pdf-path>",
	Short: "Store a PDF in the upload directory and create a pending job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return fmt.Errorf("%s is empty", args[0])
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		uploads, err := storage.NewDirStore(cfg.Storage.Dir)
		if err != nil {
			return err
		}

		ext := filepath.Ext(args[0])
		if ext == "" {
			ext = ".pdf"
		}
		key, err := uploads.Put("uploads/"+uuid.NewString()+ext, data)
		if err != nil {
			return err
		}

		language := enqueueLanguage
		if language == "" {
			language = cfg.Extract.Language
		}
		mode := enqueueMode
		if mode == "" {
			mode = cfg.Extract.Mode
		}

		job, err := st.CreateJob(cmd.Context(), model.Job{
			UserID:    enqueueUser,
			ObjectKey: key,
			Language:  language,
			Mode:      mode,
		})
		if err != nil {
			return err
		}

		fmt.Printf("job %s enqueued (%s, %d bytes)\n", job.ID, key, len(data))
		return nil
	},
}

func init() {
	enqueueCmd.Flags().StringVarP(&enqueueUser, "user", "u", "", "user the job belongs to")
	enqueueCmd.Flags().StringVar(&enqueueLanguage, "language", "", "document language (default from config)")
	enqueueCmd.Flags().StringVar(&enqueueMode, "mode", "", "extraction mode: garbage or general (default from config)")
	_ = enqueueCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(enqueueCmd)
}
