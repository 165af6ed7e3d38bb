package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// CliFilter classifies one message and prints the outcome
type CliFilter struct {
	service *core.ClassificationService
	logger  *zap.Logger
	verbose bool
	json    bool
	out     io.Writer
}

// NewCliFilter creates a new CLI filter writing to stdout
func NewCliFilter(service *core.ClassificationService, logger *zap.Logger, verbose, jsonOutput bool) *CliFilter {
	return &CliFilter{
		service: service,
		logger:  logger,
		verbose: verbose,
		json:    jsonOutput,
		out:     os.Stdout,
	}
}

// WithOutput redirects the report
func (f *CliFilter) WithOutput(w io.Writer) *CliFilter {
	f.out = w
	return f
}

type cliResult struct {
	From     string `json:"from"`
	Subject  string `json:"subject"`
	Label    string `json:"label"`
	Duration string `json:"duration"`
}

// ProcessEmail classifies msg and displays the result
func (f *CliFilter) ProcessEmail(ctx context.Context, msg core.Message) (core.Label, error) {
	f.logger.Debug("Processing email", zap.String("sender", msg.From))

	start := time.Now()
	label, err := f.service.Classify(ctx, msg)
	if err != nil {
		f.logger.Error("Failed to classify email", zap.Error(err))
		return "", err
	}
	duration := time.Since(start)

	if f.json {
		enc := json.NewEncoder(f.out)
		enc.SetIndent("", "  ")
		return label, enc.Encode(cliResult{
			From:     msg.From,
			Subject:  msg.Subject,
			Label:    string(label),
			Duration: duration.String(),
		})
	}

	fmt.Fprintf(f.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(f.out, "From: %s\n", msg.From)
	fmt.Fprintf(f.out, "Subject: %s\n", msg.Subject)
	if !msg.Date.IsZero() {
		fmt.Fprintf(f.out, "Date: %s\n", msg.Date.Format(time.RFC1123Z))
	}
	fmt.Fprintf(f.out, "Body length: %d bytes\n", len(msg.Body))

	if f.verbose {
		preview := []rune(msg.Body)
		if len(preview) > 500 {
			preview = append(preview[:500], []rune("...")...)
		}
		fmt.Fprintf(f.out, "\nBody preview:\n%s\n", string(preview))
	}

	fmt.Fprintf(f.out, "\n=== Result ===\n")
	fmt.Fprintf(f.out, "Label: %s\n", label)
	fmt.Fprintf(f.out, "Processing time: %v\n", duration)
	return label, nil
}
