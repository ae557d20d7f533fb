package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/editionfetch/pkg/decoy"
)

// Writer handles writing run reports
type Writer struct {
	outputDir string
}

// NewWriter creates a writer for outputDir
func NewWriter(outputDir string) *Writer {
	return &Writer{
		outputDir: outputDir,
	}
}

// WriteAll writes run.json and summary.md
func (w *Writer) WriteAll(summary *Summary) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := w.WriteJSON(summary); err != nil {
		return err
	}

	return w.WriteMarkdown(summary)
}

// WriteJSON writes the full summary as JSON
func (w *Writer) WriteJSON(summary *Summary) error {
	path := filepath.Join(w.outputDir, "run.json")

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write run JSON: %w", writeErr)
	}

	return nil
}

// WriteMarkdown writes a human-readable summary
func (w *Writer) WriteMarkdown(summary *Summary) error {
	path := filepath.Join(w.outputDir, "summary.md")

	var md strings.Builder

	md.WriteString("# Edition Fetch Summary\n\n")
	md.WriteString(fmt.Sprintf("**Command:** %s\n\n", summary.Command))
	md.WriteString(fmt.Sprintf("**Run:** %s\n\n", summary.RunID))
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", summary.Status))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", summary.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Completed:** %s\n\n", summary.EndTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", summary.Duration.Round(time.Millisecond)))

	md.WriteString("## Result\n\n")
	switch summary.Status {
	case StatusSuccess:
		md.WriteString("✅ **Success**\n\n")
	case StatusNotReady:
		md.WriteString(fmt.Sprintf("⏳ **Not ready:** %s\n\n", summary.Error))
	default:
		md.WriteString(fmt.Sprintf("❌ **Error (%s):** %s\n\n", summary.ErrorKind, summary.Error))
	}
	if summary.Attempts > 1 {
		md.WriteString(fmt.Sprintf("Attempts: %d\n\n", summary.Attempts))
	}

	if summary.Strategy != "" {
		md.WriteString("## Session\n\n")
		md.WriteString(fmt.Sprintf("- **Strategy:** %s\n", summary.Strategy))
		if len(summary.Decoy) > 0 {
			md.WriteString("- **Decoy browsing:**\n")
			for _, step := range summary.Decoy {
				md.WriteString(fmt.Sprintf("  - %s `%s`", outcomeIcon(step.Outcome), step.Target))
				if step.Error != "" {
					md.WriteString(fmt.Sprintf(" (%s)", step.Error))
				}
				md.WriteString("\n")
			}
		}
		md.WriteString("\n")
	}

	if summary.Artifact != nil {
		md.WriteString("## Artifact\n\n")
		md.WriteString(fmt.Sprintf("- **File:** `%s`\n", summary.Artifact.Name))
		md.WriteString(fmt.Sprintf("- **Size:** %d bytes\n", summary.Artifact.Size))
		md.WriteString(fmt.Sprintf("- **Created:** %s\n\n", summary.Artifact.CreatedAt.Format(time.RFC3339)))
	}

	if summary.Upload != nil {
		md.WriteString("## Upload\n\n")
		md.WriteString(fmt.Sprintf("- **Stored as:** `%s`\n", summary.Upload.Filename))
	}

	if writeErr := os.WriteFile(path, []byte(md.String()), 0600); writeErr != nil {
		return fmt.Errorf("failed to write summary markdown: %w", writeErr)
	}

	return nil
}

func outcomeIcon(outcome decoy.Outcome) string {
	switch outcome {
	case decoy.OutcomeSucceeded:
		return "✅"
	case decoy.OutcomeFailed:
		return "❌"
	default:
		return "⏭"
	}
}
