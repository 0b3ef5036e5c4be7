package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"

	"adjpeg/pkg/analyzer"
	jpeganalyzer "adjpeg/pkg/analyzer/image/jpeg"
	"adjpeg/pkg/config"
	"adjpeg/pkg/console"
	"adjpeg/pkg/filehandler"
	"adjpeg/pkg/models"
)

var (
	// Color printers for the summary table
	successColor = color.New(color.FgGreen).SprintFunc()
	warningColor = color.New(color.FgYellow).SprintFunc()
	alertColor   = color.New(color.FgRed, color.Bold).SprintFunc()
)

// options is the parsed command line
type options struct {
	cfg         config.Config
	inputs      []string
	listFile    string
	outputDir   string
	outputPath  string
	reportPath  string
	noColor     bool
	listFormats bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("adjpeg", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{cfg: config.Default()}
	var (
		rangeText string
		rangeEnd  string
		quiet     bool
		debug     bool
		noMixture bool
	)

	fs.StringVar(&rangeText, "dct-range", opts.cfg.Range.String(), "Zigzag DCT coefficient range to analyze, 'start-end'")
	fs.StringVar(&rangeText, "r", opts.cfg.Range.String(), "Shorthand for -dct-range")
	fs.StringVar(&rangeEnd, "range-end", opts.cfg.RangeEnd.String(), "Whether the range end is 'exclusive' or 'inclusive'")
	fs.StringVar(&opts.outputPath, "output", "", "Path of the likelihood map (single input only)")
	fs.StringVar(&opts.outputPath, "o", "", "Shorthand for -output")
	fs.StringVar(&opts.outputDir, "outdir", "output", "Directory for likelihood maps named adjpeg_<input>")
	fs.StringVar(&opts.reportPath, "report", "", "Write a JSON report of all results to this path")
	fs.StringVar(&opts.listFile, "list", "", "File with one input image path per line")
	fs.BoolVar(&quiet, "quiet", false, "Only print errors and results")
	fs.BoolVar(&quiet, "q", false, "Shorthand for -quiet")
	fs.BoolVar(&debug, "debug", false, "Print per-coefficient estimates and timings")
	fs.BoolVar(&debug, "d", false, "Shorthand for -debug")
	fs.IntVar(&opts.cfg.MaxCandidateStep, "max-step", opts.cfg.MaxCandidateStep, "Largest primary quantization step searched")
	fs.IntVar(&opts.cfg.SymmetricRange, "dct-bound", opts.cfg.SymmetricRange, "Histogram range R, coefficients are counted over [-R, R]")
	fs.BoolVar(&noMixture, "no-mixture", false, "Compare against the simulated histogram only")
	fs.IntVar(&opts.cfg.Workers, "workers", opts.cfg.Workers, "Coefficient positions analyzed in parallel")
	fs.IntVar(&opts.cfg.OutputQuality, "quality", opts.cfg.OutputQuality, "JPEG quality of the likelihood map")
	fs.StringVar(&opts.cfg.TempDir, "tmpdir", "", "Parent directory for re-encoding scratch files")
	fs.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&opts.listFormats, "listformats", false, "List all supported file formats")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage:")
		fmt.Fprintln(stderr, "  adjpeg [flags] <image-or-directory>...")
		fmt.Fprintln(stderr, "  adjpeg [flags] -list <file-with-paths>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	r, err := config.ParseRange(rangeText)
	if err != nil {
		return nil, err
	}
	opts.cfg.Range = r
	if opts.cfg.RangeEnd, err = config.ParseRangeEnd(rangeEnd); err != nil {
		return nil, err
	}
	if quiet && debug {
		return nil, models.NewError(models.ConfigError, "-quiet and -debug are mutually exclusive")
	}
	switch {
	case quiet:
		opts.cfg.Verbosity = config.Quiet
	case debug:
		opts.cfg.Verbosity = config.Debug
	}
	opts.cfg.UseMixture = !noMixture
	if err := opts.cfg.Validate(); err != nil {
		return nil, err
	}

	opts.inputs = fs.Args()
	if opts.listFile != "" {
		lines, err := filehandler.ReadLines(opts.listFile)
		if err != nil {
			return nil, models.WrapError(models.InputError, err, "reading input list")
		}
		opts.inputs = append(opts.inputs, lines...)
	}
	if len(opts.inputs) == 0 && !opts.listFormats {
		fs.Usage()
		return nil, models.NewError(models.ConfigError, "no input image given")
	}
	return opts, nil
}

// expandInputs replaces directories by the JPEG files they contain
func expandInputs(inputs []string, log *console.Logger) ([]string, error) {
	var files []string
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, models.WrapError(models.InputError, err, "input %s", in)
		}
		if !info.IsDir() {
			files = append(files, in)
			continue
		}
		log.Infof("Analyzing directory: %s", in)
		images, err := filehandler.GatherImages(in)
		if err != nil {
			return nil, models.WrapError(models.InputError, err, "reading directory %s", in)
		}
		log.Infof("Found %d files to analyze", len(images))
		files = append(files, images...)
	}
	return files, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err == flag.ErrHelp {
		return
	}
	if err != nil {
		console.Stdout(config.Normal, false).Errorf("%v", err)
		os.Exit(1)
	}

	log := console.Stdout(opts.cfg.Verbosity, opts.noColor)
	if opts.noColor {
		color.NoColor = true
	}

	// Create registry and register analyzers
	registry := analyzer.NewRegistry()
	registry.Register(jpeganalyzer.NewJPEGAnalyzer())

	if opts.listFormats {
		fmt.Println("Supported file formats:")
		for _, format := range registry.GetSupportedFormats() {
			analyzers := registry.GetAnalyzersForFormat(format)
			names := make([]string, 0, len(analyzers))
			for _, a := range analyzers {
				names = append(names, fmt.Sprintf("%s (%s)", a.Name(), a.Description()))
			}
			fmt.Printf("- %s: %s\n", format, strings.Join(names, ", "))
		}
		return
	}

	if opts.cfg.Verbosity != config.Quiet {
		fmt.Println("adjpeg v1.0.0")
		fmt.Println("Double JPEG compression forgery localization")
		fmt.Println("---------------------------------")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	files, err := expandInputs(opts.inputs, log)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
	if opts.outputPath != "" && len(files) > 1 {
		log.Errorf("-output names a single file but %d inputs were given, use -outdir", len(files))
		os.Exit(1)
	}

	printParameters(log, opts)

	var (
		results []models.LocalizationResult
		failed  int
	)
	for _, file := range files {
		result, err := analyzeFile(ctx, file, registry, opts, log)
		if err != nil {
			log.Errorf("Analysis of %s failed: %v", file, err)
			failed++
			if ctx.Err() != nil {
				break
			}
			continue
		}
		displayResult(log, result)
		results = append(results, *result)
	}

	if len(files) > 1 {
		printSummary(results, failed)
	}

	if opts.reportPath != "" {
		if err := filehandler.SaveReport(opts.reportPath, results); err != nil {
			log.Errorf("%v", err)
			os.Exit(1)
		}
		log.Successf("Report written to %s", opts.reportPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func printParameters(log *console.Logger, opts *options) {
	cfg := opts.cfg
	log.Infof("DCT coefficient range: %s (%s end)", cfg.Range, cfg.RangeEnd)
	log.Infof("Max candidate step: %d, symmetric range: %d", cfg.MaxCandidateStep, cfg.SymmetricRange)
	log.Infof("Mixture estimator: %t, workers: %d", cfg.UseMixture, cfg.WorkerCount())
	log.Debugf("Output directory: %s, map quality: %d", opts.outputDir, cfg.OutputQuality)
}

func analyzeFile(ctx context.Context, filePath string, registry *analyzer.Registry, opts *options, log *console.Logger) (*models.LocalizationResult, error) {
	format, err := filehandler.DetectFileFormat(filePath)
	if err != nil {
		return nil, models.WrapError(models.InputError, err, "detecting file format")
	}

	a, err := registry.AnalyzerFor(format)
	if err != nil {
		return nil, err
	}

	output := opts.outputPath
	if output == "" {
		output = filehandler.OutputPath(opts.outputDir, filePath)
	}

	log.Infof("Analyzing %s as %s format", filePath, format)
	if size, err := filehandler.GetFileSize(filePath); err == nil {
		log.Debugf("File size: %d bytes", size)
	}
	startTime := time.Now()

	log.Infof("Running %s", a.Name())
	result, err := a.Analyze(ctx, filePath, analyzer.AnalysisOptions{
		Config:     opts.cfg,
		Log:        log,
		OutputPath: output,
	})
	if err != nil {
		return nil, err
	}

	log.Infof("Analysis completed in %v", time.Since(startTime))
	return result, nil
}

func displayResult(log *console.Logger, result *models.LocalizationResult) {
	w := log.Writer()
	fmt.Fprintln(w, "\n--- Localization Results ---")
	fmt.Fprintf(w, "File: %s (%dx%d, %dx%d blocks)\n", result.Filename, result.Width, result.Height, result.BlocksX, result.BlocksY)
	fmt.Fprintf(w, "Likelihood ratio: min %.4g, max %.4g, mean %.4g\n",
		result.Likelihood.Min, result.Likelihood.Max, result.Likelihood.Mean)

	if result.MismatchedPositions() > 0 {
		log.Alertf("Double compression detected, %.0f%% of blocks inconsistent with it", result.DetectionScore*100)
	} else {
		log.Successf("No double compression detected (%.2f)", result.DetectionScore)
	}

	if log.DebugEnabled() {
		fmt.Fprintln(w, "Estimated primary quantization:")
		for _, row := range result.PrimaryQuantization {
			fmt.Fprintf(w, "  %3d\n", row)
		}
	}

	if len(result.Findings) > 0 {
		fmt.Fprintln(w, "\nFindings:")
		for i, finding := range result.Findings {
			fmt.Fprintf(w, "%d. %s (Confidence: %.2f)\n", i+1, finding.Description, finding.Confidence)
			if log.DebugEnabled() && finding.Details != "" {
				fmt.Fprintf(w, "   Details: %s\n", finding.Details)
			}
		}
	}

	if len(result.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for i, rec := range result.Recommendations {
			fmt.Fprintf(w, "%d. %s\n", i+1, rec)
		}
	}

	if result.OutputPath != "" {
		fmt.Fprintf(w, "Likelihood map: %s\n", result.OutputPath)
	}
	fmt.Fprintln(w, "-------------------------")
}

func printSummary(results []models.LocalizationResult, failed int) {
	var single, double int
	for _, result := range results {
		if result.MismatchedPositions() > 0 {
			double++
		} else {
			single++
		}
	}

	fmt.Println("\n=== Analysis Summary ===")
	fmt.Printf("Total files analyzed: %d\n", len(results)+failed)
	fmt.Printf("%s No double compression: %d\n", successColor("[+]"), single)
	if failed > 0 {
		fmt.Printf("%s Failed: %d\n", warningColor("[!]"), failed)
	}
	if double > 0 {
		fmt.Printf("%s Double compressed: %d\n", alertColor("[!!!]"), double)

		fmt.Println("\nFiles with double compression:")
		for _, result := range results {
			if result.MismatchedPositions() > 0 {
				fmt.Printf("- %s (Score: %.2f, map: %s)\n", result.Filename, result.DetectionScore, result.OutputPath)
			}
		}
	}
}
