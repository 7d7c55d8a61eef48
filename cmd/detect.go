package cmd

import (
	"context"
	"fmt"
	"runtime"

	"sniffstore/core/detect"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// detectResult is one line of detect output.
type detectResult struct {
	Path        string `json:"path"`
	ContentType string `json:"content_type,omitempty"`
	Error       string `json:"error,omitempty"`
}

// detectCmd represents the detect command
var detectCmd = &cobra.Command{
	Use:   "detect <path>...",
	Short: "Print the detected media type of local files",
	Long:  `Reads the leading bytes of every file and resolves them against the signature table. Nothing is uploaded.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		_, _, matcher, err := loadMatcher()
		if err != nil {
			return err
		}

		results, err := detectPaths(cmd.Context(), matcher, args, concurrency)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), results)
		}
		for _, r := range results {
			if r.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: error: %s\n", r.Path, r.Error)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", r.Path, r.ContentType)
		}
		return nil
	},
}

// detectPaths resolves paths with at most concurrency files open at once.
// Results keep the order of paths; per-file read errors are reported inline.
func detectPaths(ctx context.Context, matcher *detect.Matcher, paths []string, concurrency int) ([]detectResult, error) {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	results := make([]detectResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i].Path = p
			ct, err := matcher.Detect(detect.Path(p))
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].ContentType = ct
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func init() {
	detectCmd.Flags().Bool("json", false, "Print results as JSON")
	detectCmd.Flags().IntP("concurrency", "c", 8, "Number of files read in parallel")
	RootCmd.AddCommand(detectCmd)
}
