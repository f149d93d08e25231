package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/logging"
	"github.com/systemstart/many-dataflow/pkg/processing"
	"github.com/systemstart/many-dataflow/pkg/quality"
	"github.com/systemstart/many-dataflow/pkg/record"
	"github.com/systemstart/many-dataflow/pkg/store"
)

var version = "dev"

const (
	_ = iota
	exitLoggingSetupFailed
	exitDotenvError
	exitNoPipelineSource
	exitInputNotSpecified
	exitLoadInputFailed
	exitOutputDirectoryNotSpecified
	exitOutputDirectoryCheckFailed
	exitOutputDirectoryCleanFailed
	exitOutputDirectoryCreateFailed
	exitLoadContextFailed
	exitLoadPipelinesFailed
	exitLoadRulesFailed
	exitInvalidCleanOptions
	exitStoreFailed
	exitPipelineErrors
	exitWriteOutputFailed
)

var (
	pipelineDirectory        string
	pipelinePattern          string
	templateName             string
	inputFile                string
	outputDirectory          string
	overwriteOutputDirectory bool
	contextFile              string
	assignments              stringList
	rulesFile                string
	analyze                  bool
	cleanDuplicates          bool
	cleanOutliers            bool
	fillMissing              string
	fillValue                string
	normalizeFields          stringList
	standardizeFields        stringList
	storePath                string
	concurrency              int
	loggingType              string
	logLevel                 string
	showVersion              bool
)

func init() {
	flag.StringVar(
		&pipelineDirectory,
		"pipeline-dir",
		"",
		"directory searched for pipeline files")
	flag.StringVar(
		&pipelinePattern,
		"pipelines",
		api.DefaultPipelinePattern,
		"glob for pipeline files below -pipeline-dir")
	flag.StringVar(
		&templateName,
		"template",
		"",
		"built-in pipeline template to run: aggregation, data-quality or transformation")
	flag.StringVar(
		&inputFile,
		"input",
		"",
		"JSON file holding the input batch (an array of objects)")
	flag.StringVar(
		&outputDirectory,
		"output-directory",
		"",
		"output directory")
	flag.BoolVar(
		&overwriteOutputDirectory,
		"overwrite-output-directory",
		false,
		"delete and recreate output directory")
	flag.StringVar(
		&contextFile,
		"context-file",
		"",
		"YAML file with template variables")
	flag.Var(
		&assignments,
		"set",
		"template variable key=value, repeatable; overrides -context-file")
	flag.StringVar(
		&rulesFile,
		"rules",
		"",
		"YAML file with validation rules for -analyze")
	flag.BoolVar(
		&analyze,
		"analyze",
		false,
		"write a quality report for every pipeline output")
	flag.BoolVar(
		&cleanDuplicates,
		"clean-duplicates",
		false,
		"remove duplicate records from pipeline outputs")
	flag.BoolVar(
		&cleanOutliers,
		"clean-outliers",
		false,
		"remove records holding statistical outliers from pipeline outputs")
	flag.StringVar(
		&fillMissing,
		"fill-missing",
		"",
		"missing value strategy: remove, mean, median, mode or value")
	flag.StringVar(
		&fillValue,
		"fill-value",
		"",
		"literal used by -fill-missing=value")
	flag.Var(
		&normalizeFields,
		"normalize",
		"field to min-max scale into [0,1], repeatable")
	flag.Var(
		&standardizeFields,
		"standardize",
		"field to replace by z-scores, repeatable")
	flag.StringVar(
		&storePath,
		"store",
		"",
		"SQLite file the loaded pipelines are saved to")
	flag.IntVar(
		&concurrency,
		"concurrency",
		0,
		"pipelines run at once (0 = GOMAXPROCS)")
	flag.StringVar(
		&loggingType,
		"logging-type",
		"tint",
		"logging type: json, text or tint")
	flag.StringVar(
		&logLevel,
		"log-level",
		"info",
		"logging level: debug, info, warn, error")
	flag.BoolVar(
		&showVersion,
		"version",
		false,
		"print version and exit")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := logging.Initialize(os.Stderr, loggingType, logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitLoggingSetupFailed)
	}

	includeEnv()
	checkPipelineSource()
	input := loadInput()
	ensureOutputDirectory()

	vars := loadVars()
	pipelines := loadPipelines(vars)
	rules := loadRules()
	cleanOpts := cleanOptions()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	savePipelines(ctx, pipelines)

	runner := &processing.Runner{Concurrency: concurrency}
	results, runErr := runner.RunAll(ctx, pipelines, input)

	stems := outputStems(pipelines)
	writeErr := false
	for i, res := range results {
		if err := writeResult(stems[i], res, cleanOpts, rules); err != nil {
			slog.Error("failed to write result", "pipeline", res.Pipeline.Name, "error", err)
			writeErr = true
		}
	}

	if runErr != nil {
		slog.Error("processing failed", "error", runErr)
		stop()
		os.Exit(exitPipelineErrors)
	}
	if writeErr {
		stop()
		os.Exit(exitWriteOutputFailed)
	}

	slog.Info("done", "pipelines", len(results))
}

func includeEnv() {
	err := godotenv.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load .env", "error", err)
			os.Exit(exitDotenvError)
		}
		slog.Info("no .env file found")
	} else {
		slog.Info("using .env file")
	}
}

func checkPipelineSource() {
	if pipelineDirectory == "" && templateName == "" {
		slog.Error("neither -pipeline-dir nor -template set")
		os.Exit(exitNoPipelineSource)
	}
}

func loadInput() record.Batch {
	if inputFile == "" {
		slog.Error("-input not set")
		os.Exit(exitInputNotSpecified)
	}

	batch, err := record.ReadJSONFile(inputFile)
	if err != nil {
		slog.Error("failed to load input batch", "filename", inputFile, "error", err)
		os.Exit(exitLoadInputFailed)
	}
	slog.Info("loaded input batch", "filename", inputFile, "records", len(batch))
	return batch
}

func ensureOutputDirectory() {
	if outputDirectory == "" {
		slog.Error("-output-directory not set")
		os.Exit(exitOutputDirectoryNotSpecified)
	}

	_, err := os.Stat(outputDirectory)
	if !os.IsNotExist(err) {
		if err != nil {
			slog.Error("failed to check output directory", "directory", outputDirectory, "error", err)
			os.Exit(exitOutputDirectoryCheckFailed)
		}

		if overwriteOutputDirectory {
			err = os.RemoveAll(outputDirectory)
			if err != nil {
				slog.Error("failed to clean output directory", "directory", outputDirectory, "error", err)
				os.Exit(exitOutputDirectoryCleanFailed)
			}
		}
	}

	err = os.MkdirAll(outputDirectory, 0750)
	if err != nil {
		slog.Error("failed to create output directory", "directory", outputDirectory, "error", err)
		os.Exit(exitOutputDirectoryCreateFailed)
	}
}

func loadVars() map[string]any {
	var global map[string]any
	if contextFile != "" {
		ctx, err := processing.LoadContextFile(contextFile)
		if err != nil {
			slog.Error("failed to load context file", "filename", contextFile, "error", err)
			os.Exit(exitLoadContextFailed)
		}
		global = ctx
	}

	local, err := processing.ParseAssignments(assignments)
	if err != nil {
		slog.Error("failed to parse -set", "error", err)
		os.Exit(exitLoadContextFailed)
	}
	return processing.MergeContext(global, local)
}

func loadPipelines(vars map[string]any) []*api.Pipeline {
	var pipelines []*api.Pipeline

	if templateName != "" {
		p, err := api.RenderTemplate(templateName, vars)
		if err != nil {
			slog.Error("failed to render template", "template", templateName, "error", err)
			os.Exit(exitLoadPipelinesFailed)
		}
		pipelines = append(pipelines, p)
	}

	if pipelineDirectory != "" {
		found, err := processing.DiscoverPipelines(pipelineDirectory, pipelinePattern, vars)
		if err != nil {
			slog.Error("failed to load pipelines", "directory", pipelineDirectory, "error", err)
			os.Exit(exitLoadPipelinesFailed)
		}
		pipelines = append(pipelines, found...)
	}

	if len(pipelines) == 0 {
		slog.Error("no pipelines found", "directory", pipelineDirectory, "pattern", pipelinePattern)
		os.Exit(exitLoadPipelinesFailed)
	}
	return pipelines
}

func loadRules() []quality.Rule {
	if rulesFile == "" {
		return nil
	}
	if !analyze {
		slog.Warn("-rules has no effect without -analyze")
	}

	rules, err := quality.LoadRules(rulesFile)
	if err != nil {
		slog.Error("failed to load rules", "filename", rulesFile, "error", err)
		os.Exit(exitLoadRulesFailed)
	}
	return rules
}

func cleanOptions() quality.Options {
	opts := quality.Options{
		RemoveDuplicates: cleanDuplicates,
		RemoveOutliers:   cleanOutliers,
		Fill:             quality.FillPolicy{Strategy: fillMissing},
	}
	if fillMissing == quality.FillValue {
		opts.Fill.Value = fillValue
	}

	// a dry run over no records reports an unknown strategy up front
	if _, err := quality.Clean(nil, opts); err != nil {
		slog.Error("invalid cleaning options", "error", err)
		os.Exit(exitInvalidCleanOptions)
	}
	return opts
}

func savePipelines(ctx context.Context, pipelines []*api.Pipeline) {
	if storePath == "" {
		return
	}

	repo, err := store.OpenSQLite(ctx, storePath)
	if err != nil {
		slog.Error("failed to open store", "filename", storePath, "error", err)
		os.Exit(exitStoreFailed)
	}
	defer repo.Close()

	for _, p := range pipelines {
		id, err := repo.Save(ctx, p)
		if err != nil {
			slog.Error("failed to save pipeline", "pipeline", p.Name, "error", err)
			os.Exit(exitStoreFailed)
		}
		slog.Info("saved pipeline", "pipeline", p.Name, "id", id)
	}
}
