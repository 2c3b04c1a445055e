// Package cli provides output helpers for the clausefind command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/clausefind/internal/chunker"
	"github.com/hyperjump/clausefind/internal/models"
	"github.com/hyperjump/clausefind/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact prints one result per line.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (SearchOutputFormat, error) {
	switch f := SearchOutputFormat(s); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

// WriteResults writes a retrieval response to w in the given format.
func WriteResults(w io.Writer, response *models.RetrieveResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		for _, r := range response.Results {
			fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n", r.Rank, r.BoostedScore, source(r), utils.TruncateWords(r.Text, 20))
		}
		return nil
	default:
		writeResultsText(w, response)
		return nil
	}
}

func writeResultsText(w io.Writer, response *models.RetrieveResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms\n", len(response.Results), response.QueryTime)
	if response.ExpandedQuery != "" && response.ExpandedQuery != response.Query {
		fmt.Fprintf(w, "Expanded query: %s\n", response.ExpandedQuery)
	}
	fmt.Fprintln(w)
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f (Distance: %.4f, Heading: %.4f)\n",
		result.Rank, result.BoostedScore, result.Distance, result.HeadingScore)
	if src := source(result); src != "" {
		fmt.Fprintf(w, "Source: %s\n", src)
	}
	if headings := models.HeadingsFrom(result.Metadata); len(headings) > 0 {
		fmt.Fprintf(w, "Section: %s\n", strings.Join(headings, " > "))
	}
	fmt.Fprintf(w, "\n%s\n", utils.Truncate(result.Text, 300))
	fmt.Fprintln(w)
}

func source(r *models.SearchResult) string {
	s, _ := r.Metadata[chunker.SourceKey].(string)
	return s
}
