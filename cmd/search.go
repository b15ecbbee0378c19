package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/tradecheck/internal/hscode"
	"github.com/sells-group/tradecheck/internal/model"
)

var (
	searchCode string
	searchText string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Show the catalog candidates for one item without arbitration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "search")
		if err != nil {
			return err
		}
		defer env.Close()

		code := hscode.Normalize(searchCode)
		candidates, err := env.Retriever.Retrieve(ctx, searchText, code)
		if err != nil {
			return eris.Wrap(err, "search")
		}
		return writeSearch(cmd.OutOrStdout(), code, candidates)
	},
}

type searchOutput struct {
	HSCode     string            `json:"hs_code"`
	Filter     string            `json:"filter"`
	Candidates []model.Candidate `json:"candidates"`
}

func writeSearch(w io.Writer, code hscode.Code, candidates []model.Candidate) error {
	if candidates == nil {
		candidates = []model.Candidate{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(searchOutput{
		HSCode:     string(code),
		Filter:     hscode.BuildFilter(code).String(),
		Candidates: candidates,
	})
}

func init() {
	searchCmd.Flags().StringVar(&searchCode, "code", "", "HS code of the item; empty searches the whole catalog")
	searchCmd.Flags().StringVar(&searchText, "text", "", "item description (required)")
	_ = searchCmd.MarkFlagRequired("text")
	rootCmd.AddCommand(searchCmd)
}
