package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/loanocr/internal/extract"
	"github.com/sells-group/loanocr/internal/model"
)

var (
	extractApp     string
	extractDocType string
	extractTrigger string
)

var extractCmd = &cobra.Command{
	Use:   "extract [text files...]",
	Short: "Extract fields from pre-OCR'd document text files",
	Long: `Runs field extraction for one or more documents of a single application.

Each file is one document; its ID is the file name without extension.
Pages are separated by form-feed characters (pdftotext convention).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "extract"))

		trigger := model.Trigger(extractTrigger)
		if !trigger.Valid() {
			return eris.Errorf("unknown trigger %q", extractTrigger)
		}

		registry, err := initRegistry()
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		ex := extract.New(registry, st)

		// Distinct documents may extract in parallel; the store
		// serializes versioning per document.
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Extract.MaxConcurrentDocuments)

		for _, path := range args {
			path := path
			g.Go(func() error {
				data, err := os.ReadFile(path)
				if err != nil {
					return eris.Wrapf(err, "read %s", path)
				}

				docID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				run, results, err := ex.Run(gctx, extract.Input{
					ApplicationID: extractApp,
					DocumentID:    docID,
					DocumentType:  extractDocType,
					Pages:         strings.Split(string(data), "\f"),
					Trigger:       trigger,
				})
				if err != nil {
					return err
				}

				log.Info("document extracted",
					zap.String("document_id", docID),
					zap.String("run_id", run.ID),
					zap.Int("fields", len(results)),
				)
				return nil
			})
		}

		return g.Wait()
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractApp, "app", "", "application ID (required)")
	extractCmd.Flags().StringVar(&extractDocType, "type", "", "document type, e.g. \"Bank Statement\" (required)")
	extractCmd.Flags().StringVar(&extractTrigger, "trigger", string(model.TriggerUpload), "extraction trigger (upload or reprocess)")
	extractCmd.MarkFlagRequired("app")  //nolint:errcheck
	extractCmd.MarkFlagRequired("type") //nolint:errcheck
	rootCmd.AddCommand(extractCmd)
}
