package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kzn-tools/kaizen/engine"
	"github.com/kzn-tools/kaizen/jsast"
	"github.com/kzn-tools/kaizen/model"
	"github.com/kzn-tools/kaizen/output"
	"github.com/kzn-tools/kaizen/ruleset"
)

// analyzeCmd is the CLI driver: it discovers files, calls the engine
// once per file, and hands the aggregated diagnostics to a formatter.
// None of this logic lives in the engine itself.
var analyzeCmd = &cobra.Command{
	Use:   "analyze [paths...]",
	Short: "Analyze JavaScript/TypeScript files for quality and security issues",
	Long: `Analyze scans one or more files or directories for JavaScript/TypeScript
source and runs the kaizen core engine over each file found.

Examples:
  kaizen analyze src/
  kaizen analyze app.js util.ts --output json --output-file results.json
  kaizen analyze . --tier pro --fail-on error,warning
  kaizen analyze . --rule-pack extra-rules.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("output", "text", "Output format: text, json, sarif, or csv")
	analyzeCmd.Flags().String("output-file", "", "Write output to this file instead of stdout")
	analyzeCmd.Flags().String("fail-on", "", "Comma-separated severities that make analyze exit non-zero (e.g. error,warning)")
	analyzeCmd.Flags().String("tier", "free", "Activation tier: free, pro, or enterprise")
	analyzeCmd.Flags().String("rule-pack", "", "Path to a YAML rule pack of additional severity presets and taint patterns")
	analyzeCmd.Flags().String("ruleset", "", "Remote rule pack spec to download and apply (channel/name)")
	analyzeCmd.Flags().String("ruleset-registry", "", "Base URL of the rule pack registry (required with --ruleset)")
	analyzeCmd.Flags().StringArray("disable", nil, "Rule identifier or display name to disable (repeatable)")
	analyzeCmd.Flags().StringSlice("changed-files", nil, "Limit output to diagnostics in these files (diff-aware scanning)")
	analyzeCmd.Flags().Bool("debug", false, "Debug-level logging")
	analyzeCmd.Flags().Bool("no-snippets", false, "Omit source code snippets from text/JSON output")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	outputFormat, _ := cmd.Flags().GetString("output")
	outputFile, _ := cmd.Flags().GetString("output-file")
	failOnStr, _ := cmd.Flags().GetString("fail-on")
	tierStr, _ := cmd.Flags().GetString("tier")
	rulePackPath, _ := cmd.Flags().GetString("rule-pack")
	rulesetSpec, _ := cmd.Flags().GetString("ruleset")
	rulesetRegistry, _ := cmd.Flags().GetString("ruleset-registry")
	disabled, _ := cmd.Flags().GetStringArray("disable")
	changedFiles, _ := cmd.Flags().GetStringSlice("changed-files")
	verbose, _ := cmd.Flags().GetBool("verbose")
	debug, _ := cmd.Flags().GetBool("debug")
	noSnippets, _ := cmd.Flags().GetBool("no-snippets")

	if outputFormat != "text" && outputFormat != "json" && outputFormat != "sarif" && outputFormat != "csv" {
		return fmt.Errorf("--output must be 'text', 'json', 'sarif', or 'csv'")
	}

	tier, err := parseTier(tierStr)
	if err != nil {
		return err
	}

	failOn := output.ParseFailOn(failOnStr)
	if len(failOn) > 0 {
		if err := output.ValidateSeverities(failOn); err != nil {
			return err
		}
	}

	verbosity := output.VerbosityDefault
	switch {
	case debug:
		verbosity = output.VerbosityDebug
	case verbose:
		verbosity = output.VerbosityVerbose
	}
	logger := output.NewLogger(verbosity)

	noBanner, _ := cmd.Flags().GetBool("no-banner")
	if output.ShouldShowBanner(logger.IsTTY(), noBanner) {
		output.PrintBanner(logger.GetWriter(), Version)
	} else if !noBanner {
		fmt.Fprintln(logger.GetWriter(), output.CompactBanner(Version))
	}

	config := model.DefaultConfiguration()
	for _, name := range disabled {
		config.DisabledRules[name] = struct{}{}
	}
	if rulePackPath != "" {
		pack, err := ruleset.LoadRulePack(rulePackPath)
		if err != nil {
			return fmt.Errorf("failed to load rule pack: %w", err)
		}
		config, err = pack.Apply(config)
		if err != nil {
			return fmt.Errorf("failed to apply rule pack: %w", err)
		}
	}
	if rulesetSpec != "" {
		config, err = applyRemoteRuleset(rulesetSpec, rulesetRegistry, config, logger)
		if err != nil {
			return err
		}
	}

	doneDiscover := logger.Stage("discover")
	files, err := discoverSourceFiles(args)
	doneDiscover()
	if err != nil {
		return fmt.Errorf("failed to discover source files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no JavaScript/TypeScript files found in %s", strings.Join(args, ", "))
	}

	eng := engine.New()

	logger.StartProgress("Analyzing files", len(files))
	doneAnalyze := logger.Stage("analyze")
	var (
		allDiagnostics []model.Diagnostic
		scanErrors     []string
	)
	for _, path := range files {
		diags, err := analyzeOneFile(eng, path, config, tier)
		if err != nil {
			scanErrors = append(scanErrors, fmt.Sprintf("%s: %v", path, err))
			logger.Debug("failed to analyze %s: %v", path, err)
		} else {
			allDiagnostics = append(allDiagnostics, diags...)
		}
		_ = logger.UpdateProgress(1)
	}
	_ = logger.FinishProgress()
	doneAnalyze()

	if len(changedFiles) > 0 {
		diffFilter := output.NewDiffFilter(changedFiles)
		logger.Debug("diff filter dropped %d diagnostics outside %d changed files",
			diffFilter.FilteredCount(allDiagnostics), diffFilter.ChangedFileCount())
		allDiagnostics = diffFilter.Filter(allDiagnostics)
	}

	opts := output.NewDefaultOptions()
	opts.Verbosity = verbosity
	opts.ShowSnippets = !noSnippets

	writer := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	summary := output.BuildSummary(allDiagnostics, len(eng.Registry().Rules()))
	summary.FilesScanned = len(files)
	summary.Duration = time.Since(startTime).Round(time.Millisecond).String()

	scanInfo := output.ScanInfo{
		Target:        strings.Join(args, ", "),
		Version:       Version,
		Duration:      time.Since(startTime),
		RulesExecuted: len(eng.Registry().Rules()),
		Errors:        scanErrors,
	}

	doneFormat := logger.Stage("format")
	err = writeFormatted(outputFormat, writer, opts, allDiagnostics, summary, scanInfo)
	doneFormat()
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	logger.WriteStageSummary()

	exitCode := output.DetermineExitCode(allDiagnostics, failOn, len(scanErrors) > 0)
	if exitCode != output.ExitCodeSuccess {
		os.Exit(int(exitCode))
	}
	return nil
}

func writeFormatted(
	format string,
	w *os.File,
	opts *output.OutputOptions,
	diags []model.Diagnostic,
	summary *output.Summary,
	scanInfo output.ScanInfo,
) error {
	enricher := output.NewEnricher(opts)
	enriched := enricher.EnrichAll(diags)

	switch format {
	case "json":
		return output.NewJSONFormatterWithWriter(w, opts).Format(enriched, summary, scanInfo)
	case "sarif":
		return output.NewSARIFFormatterWithWriter(w, opts).Format(enriched, scanInfo)
	case "csv":
		return output.NewCSVFormatterWithWriter(w, opts).Format(diags)
	default:
		return output.NewTextFormatterWithWriter(w, opts).Format(enriched, summary)
	}
}

// applyRemoteRuleset downloads (or reuses from cache) a remote pack and
// merges its contents into config. The engine only ever sees the merged
// Configuration; the network never gets closer to the core than this.
func applyRemoteRuleset(spec, registry string, config model.Configuration, logger *output.Logger) (model.Configuration, error) {
	if registry == "" {
		return config, fmt.Errorf("--ruleset requires --ruleset-registry")
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	downloader, err := ruleset.NewDownloader(&ruleset.DownloadConfig{
		BaseURL:       registry,
		CacheDir:      filepath.Join(cacheDir, "kaizen", "rulesets"),
		CacheTTL:      24 * time.Hour,
		HTTPTimeout:   30 * time.Second,
		RetryAttempts: 3,
	}, logger.GetWriter())
	if err != nil {
		return config, fmt.Errorf("failed to initialize ruleset downloader: %w", err)
	}

	packDir, err := downloader.Download(spec)
	if err != nil {
		return config, fmt.Errorf("failed to download ruleset %s: %w", spec, err)
	}

	config, err = ruleset.ApplyPackDir(packDir, config)
	if err != nil {
		return config, fmt.Errorf("failed to apply ruleset %s: %w", spec, err)
	}
	return config, nil
}

func parseTier(s string) (model.ActivationTier, error) {
	switch strings.ToLower(s) {
	case "free", "":
		return model.TierFree, nil
	case "pro":
		return model.TierPro, nil
	case "enterprise":
		return model.TierEnterprise, nil
	default:
		return model.TierFree, fmt.Errorf("--tier must be 'free', 'pro', or 'enterprise', got %q", s)
	}
}

var sourceExtensions = map[string]bool{
	".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".ts": true, ".tsx": true,
}

// discoverSourceFiles expands args (files or directories) into a list
// of JS/TS file paths, skipping node_modules and .git entirely.
// Directories walk in lexical order; this
// function does not itself sort across multiple top-level args.
func discoverSourceFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if info.Name() == "node_modules" || info.Name() == ".git" {
					return filepath.SkipDir
				}
				return nil
			}
			if sourceExtensions[filepath.Ext(path)] {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func analyzeOneFile(eng *engine.Engine, path string, config model.Configuration, tier model.ActivationTier) ([]model.Diagnostic, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	file, err := jsast.Parse(path, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}
	defer file.Close()

	return eng.Analyze(file, config, tier), nil
}
