package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alnah/go-simplify/internal/pipeline"
)

// writeFileAtomic writes content to path atomically.
// It fails if the file already exists (O_EXCL), preventing accidental overwrites.
// On write failure, the partial file is removed.
func writeFileAtomic(path, content string) error {
	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("output file already exists: %s: %w", path, ErrOutputExists)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		if _, err := f.WriteString(content); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}()

	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}

	return nil
}

// resultsCSV renders one row per output fragment.
// With showOriginal, rewritten rows carry their source sentence and method.
func resultsCSV(results []pipeline.Result, showOriginal bool) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := []string{"Row", "Sentence"}
	if showOriginal {
		header = append(header, "Original", "Method")
	}
	header = append(header, "Word_Count")
	_ = w.Write(header)

	rowNum := 1
	for _, r := range results {
		for _, fragment := range r.Fragments {
			row := []string{strconv.Itoa(rowNum), fragment}
			if showOriginal {
				if r.Status == pipeline.StatusDirect {
					row = append(row, "", "")
				} else {
					row = append(row, r.Original, r.Method())
				}
			}
			row = append(row, strconv.Itoa(len(strings.Fields(fragment))))
			_ = w.Write(row)
			rowNum++
		}
	}

	w.Flush()
	return sb.String()
}

// logCSV renders the processing log: one row per sentence that was not a
// direct pass-through, with its full fragment list.
func logCSV(results []pipeline.Result) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	_ = w.Write([]string{
		"Sentence_Number", "Original", "Original_Word_Count",
		"Method", "Output_Sentences", "Accepted", "Note",
	})

	for _, r := range results {
		if r.Status == pipeline.StatusDirect {
			continue
		}
		_ = w.Write([]string{
			strconv.Itoa(r.Index + 1),
			r.Original,
			strconv.Itoa(r.WordCount),
			r.Method(),
			strings.Join(r.Fragments, " | "),
			strconv.FormatBool(r.Accepted),
			r.Note,
		})
	}

	w.Flush()
	return sb.String()
}

// simplifiedText renders the plain-text output: one fragment per line.
func simplifiedText(results []pipeline.Result) string {
	var sb strings.Builder
	for _, r := range results {
		for _, fragment := range r.Fragments {
			sb.WriteString(fragment)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
