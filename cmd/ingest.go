package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tradecheck/internal/ingest"
)

var (
	ingestCSVPath     string
	ingestEncoding    string
	ingestBatchSize   int
	ingestConcurrency int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Embed a restriction CSV and replace the catalog with it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("ingest"); err != nil {
			return err
		}

		emb, err := initEmbedder(ctx)
		if err != nil {
			return err
		}
		cat, err := initCatalog(ctx, emb)
		if err != nil {
			return err
		}
		defer cat.Close() //nolint:errcheck

		if err := cat.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate catalog")
		}

		encoding := ingestEncoding
		if encoding == "" {
			encoding = cfg.Batch.Encoding
		}
		batchSize := ingestBatchSize
		if batchSize <= 0 {
			batchSize = cfg.Embedding.BatchSize
		}

		stats, err := ingest.Load(ctx, ingestCSVPath, emb, cat, ingest.Options{
			Encoding:    encoding,
			BatchSize:   batchSize,
			Concurrency: ingestConcurrency,
		})
		if err != nil {
			return eris.Wrap(err, "ingest restrictions")
		}

		zap.L().Info("ingest complete",
			zap.String("csv", ingestCSVPath),
			zap.Int("records", stats.Records),
			zap.Int("skipped", stats.Skipped),
			zap.Int64("stored", stats.Stored),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCSVPath, "csv", "", "path to restriction CSV with hs_code, item and restriction columns (required)")
	ingestCmd.Flags().StringVar(&ingestEncoding, "encoding", "", "CSV encoding (default from config)")
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 0, "labels per embedding request (default from config)")
	ingestCmd.Flags().IntVar(&ingestConcurrency, "concurrency", 2, "embedding requests in flight")
	_ = ingestCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(ingestCmd)
}
