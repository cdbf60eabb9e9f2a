package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/graphhelper"
	"github.com/poiesic/graphhelper/config"
	"github.com/poiesic/graphhelper/core"
	"github.com/poiesic/graphhelper/ingestion"
	"github.com/urfave/cli/v2"
)

// indexInspector is the part of the Assistant the empty-index warning needs.
type indexInspector interface {
	IndexStats(ctx context.Context) (graphhelper.IndexStats, error)
}

func commandContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

// resolveMode returns the --mode flag when given, else the configured default.
func resolveMode(c *cli.Context, cfg *config.Config) (core.Mode, error) {
	if c.IsSet("mode") {
		return core.ParseMode(c.String("mode"))
	}
	return cfg.DefaultMode(), nil
}

// warnIfEmpty tells the user when answers cannot be grounded in local docs.
func warnIfEmpty(ctx context.Context, a indexInspector, w io.Writer) {
	stats, err := a.IndexStats(ctx)
	if err != nil {
		fmt.Fprintf(w, "Warning: could not inspect the documentation index: %v\n", err)
		return
	}
	if stats.Missing || stats.Empty() {
		fmt.Fprintf(w, "Warning: the documentation index at %s is empty; run 'graphhelper index' to build it.\n", stats.Path)
	}
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	a, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer a.Close()

	mode, err := resolveMode(c, a.Config())
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(c)
	defer cancel()
	warnIfEmpty(ctx, a, c.App.ErrWriter)

	result, err := a.Answer(ctx, question, mode, nil)
	if err != nil {
		return err
	}
	printResult(c.App.Writer, result, c.Bool("verbose"))
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query is required")
	}
	qt, err := core.ParseQueryType(c.String("type"))
	if err != nil {
		return err
	}

	a, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(c)
	defer cancel()
	warnIfEmpty(ctx, a, c.App.ErrWriter)

	chunks, record, err := a.Search(ctx, query, qt)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Found %d hits (%s)\n", len(chunks), record)
	for i, chunk := range chunks {
		fmt.Fprintf(w, "%d: [%0.3f] %s (%d)\n%s\n\n", i, chunk.Score, chunk.Source, chunk.ID, preview(chunk.Text, 300))
	}
	return nil
}

func batchCommand(c *cli.Context) error {
	questions, err := readQuestions(c.String("file"), c.App.Reader)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return fmt.Errorf("no questions in %s", c.String("file"))
	}

	a, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer a.Close()

	mode, err := resolveMode(c, a.Config())
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(c)
	defer cancel()
	warnIfEmpty(ctx, a, c.App.ErrWriter)

	results, err := a.AnswerBatch(ctx, questions, mode)
	w := c.App.Writer
	for i, result := range results {
		if result == nil {
			continue
		}
		fmt.Fprintf(w, "=== [%d] %s\n", i+1, questions[i])
		printResult(w, result, true)
		fmt.Fprintln(w)
	}
	return err
}

// readQuestions reads one question per line. Blank lines and lines starting
// with # are skipped. The name - reads from stdin.
func readQuestions(name string, stdin io.Reader) ([]string, error) {
	var r io.Reader = stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var questions []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		questions = append(questions, line)
	}
	return questions, scanner.Err()
}

func indexCommand(c *cli.Context) error {
	sources := ingestion.DefaultSources()
	if specs := c.StringSlice("source"); len(specs) > 0 {
		sources = sources[:0:0]
		for _, spec := range specs {
			src, err := ingestion.ParseSource(spec)
			if err != nil {
				return err
			}
			sources = append(sources, src)
		}
	}

	a, err := openAssistant(c, graphhelper.WithWritableIndex())
	if err != nil {
		return err
	}
	defer a.Close()

	opts := []ingestion.Option{
		ingestion.WithForce(c.Bool("force")),
		ingestion.WithPreprocess(!c.Bool("no-preprocess")),
		ingestion.WithProgress(c.App.ErrWriter),
	}
	if n := c.Int("workers"); n > 0 {
		opts = append(opts, ingestion.WithPoolSize(n))
	}
	pipeline, err := a.NewPipeline(opts...)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	ctx, cancel := commandContext(c)
	defer cancel()

	fmt.Fprintf(c.App.ErrWriter, "Index: %s\n", a.Config().Store.Path)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n\n", a.Config().LLM.EmbeddingModel)

	reports, err := pipeline.Index(ctx, sources...)
	printReports(c.App.Writer, reports)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	stats, statErr := a.IndexStats(ctx)
	if statErr == nil {
		fmt.Fprintf(c.App.Writer, "Index holds %d chunks from %d sources\n", stats.Chunks, len(stats.Sources))
	}
	return nil
}

func printReports(w io.Writer, reports []ingestion.Report) {
	for _, rep := range reports {
		switch {
		case rep.Err != nil:
			fmt.Fprintf(w, "%s: failed: %v\n", rep.Source, rep.Err)
		case rep.Skipped:
			fmt.Fprintf(w, "%s: unchanged, skipped\n", rep.Source)
		case rep.Removed > 0:
			fmt.Fprintf(w, "%s: %d chunks (replaced %d)\n", rep.Source, rep.Chunks, rep.Removed)
		default:
			fmt.Fprintf(w, "%s: %d chunks\n", rep.Source, rep.Chunks)
		}
	}
}

func configCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(c.String("config")); errors.Is(statErr, os.ErrNotExist) {
		fmt.Fprintf(c.App.ErrWriter, "# %s not found, showing defaults\n", c.String("config"))
	}
	return cfg.Write(c.App.Writer)
}

// printResult writes the answer, and with verbose the trace and evidence.
func printResult(w io.Writer, result *core.Result, verbose bool) {
	fmt.Fprintln(w, result.Answer)
	if !verbose {
		return
	}
	fmt.Fprintf(w, "\nType: %s | Mode: %s | Steps: %s\n", result.QueryType, result.Mode, result.Trace)
	if len(result.Evidence) == 0 {
		fmt.Fprintln(w, "Evidence: none")
		return
	}
	fmt.Fprintln(w, "Evidence:")
	for i, ev := range result.Evidence {
		fmt.Fprintf(w, "  [%d] %s %s (%0.3f)\n", i+1, ev.Provenance, ev.Source, ev.Score)
	}
}

func preview(text string, n int) string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}
