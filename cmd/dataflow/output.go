package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/processing"
	"github.com/systemstart/many-dataflow/pkg/quality"
	"github.com/systemstart/many-dataflow/pkg/record"
)

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// outputStems returns one file name stem per pipeline, derived from its name.
// Repeated stems get a numeric suffix.
func outputStems(pipelines []*api.Pipeline) []string {
	stems := make([]string, len(pipelines))
	seen := make(map[string]int, len(pipelines))
	for i, p := range pipelines {
		stem := slug(p.Name)
		if stem == "" {
			stem = "pipeline"
		}
		seen[stem]++
		if n := seen[stem]; n > 1 {
			stem = fmt.Sprintf("%s-%d", stem, n)
		}
		stems[i] = stem
	}
	return stems
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// writeResult writes the trace of res and, for a successful run, its
// post-processed output and optional quality report.
func writeResult(stem string, res processing.Result, opts quality.Options, rules []quality.Rule) error {
	if err := writeJSONFile(stem+".trace.json", res.Trace); err != nil {
		return err
	}
	if res.Err != nil {
		return nil
	}

	output, err := postProcess(res.Output, opts)
	if err != nil {
		return err
	}
	if err := writeJSONFile(stem+".json", output); err != nil {
		return err
	}

	if !analyze {
		return nil
	}
	report, err := quality.Analyze(output, rules)
	if err != nil {
		return fmt.Errorf("analyzing output: %w", err)
	}
	slog.Info("quality report", "pipeline", res.Pipeline.Name, "score", report.Score,
		"invalid", report.InvalidRecords, "duplicates", report.Duplicates)
	return writeJSONFile(stem+".quality.json", report)
}

// postProcess cleans the batch, then normalizes and standardizes the
// requested fields.
func postProcess(batch record.Batch, opts quality.Options) (record.Batch, error) {
	out, err := quality.Clean(batch, opts)
	if err != nil {
		return nil, fmt.Errorf("cleaning output: %w", err)
	}
	for _, f := range normalizeFields {
		out = quality.Normalize(out, f)
	}
	for _, f := range standardizeFields {
		out = quality.Standardize(out, f)
	}
	return out, nil
}

func writeJSONFile(name string, v any) error {
	filename := filepath.Join(outputDirectory, name)
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filename, err)
	}
	defer f.Close()

	if err := record.WriteJSON(f, v); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	slog.Debug("wrote file", "filename", filename)
	return f.Close()
}
