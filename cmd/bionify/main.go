// Command bionify converts documents to bionic-reading HTML files.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dgallion1/bionic/internal/bionic"
	"github.com/dgallion1/bionic/internal/bootstrap"
	"github.com/dgallion1/bionic/internal/engine"
	"github.com/dgallion1/bionic/internal/page"
	"github.com/dgallion1/bionic/internal/source"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type options struct {
	ratio   int
	outDir  string
	jobs    int
	pdfText bool
	verbose bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "bionify [file...]",
		Short: "Render documents as bionic-reading HTML",
		Long: `Loads each file (html, md, txt, csv, pdf, docx), bolds the leading part
of every word and writes <name>.bionic.html into the output directory.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return run(cmd.Context(), args, opts, log)
		},
	}
	cmd.Flags().IntVarP(&opts.ratio, "ratio", "r", bionic.DefaultRatio, "percentage of each word to bold (1-100)")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", ".", "output directory")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", runtime.NumCPU(), "files converted in parallel")
	cmd.Flags().BoolVar(&opts.pdfText, "pdftotext", true, "fall back to pdftotext for unreadable PDFs")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log engine activity")
	return cmd
}

func run(ctx context.Context, files []string, opts options, log *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.ratio < bionic.MinRatio || opts.ratio > bionic.MaxRatio {
		return fmt.Errorf("--ratio must be between %d and %d, got %d", bionic.MinRatio, bionic.MaxRatio, opts.ratio)
	}
	if opts.jobs <= 0 {
		opts.jobs = 1
	}
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.jobs)
	for _, path := range files {
		g.Go(func() error {
			out, err := convertFile(gctx, path, opts, log)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			log.Info("converted", "input", path, "output", out)
			return nil
		})
	}
	return g.Wait()
}

// convertFile loads path into a page, applies the engine at the requested
// ratio and writes the rendered page. It returns the output path.
func convertFile(ctx context.Context, path string, opts options, log *slog.Logger) (string, error) {
	p, err := source.ForFile(path, source.Options{PDFFallbackPdftotext: opts.pdfText})
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	doc, err := p.Parse(f, filepath.Base(path))
	f.Close()
	if err != nil {
		return "", err
	}

	sess := page.NewSession(doc, path, page.Options{}, log)
	defer sess.Close()

	if err := sess.Inject(ctx, bootstrap.Stylesheet); err != nil {
		return "", err
	}
	resp, err := sess.Send(ctx, engine.Toggle(true, opts.ratio))
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("apply: %s", resp.Error)
	}
	html, err := sess.HTML(ctx)
	if err != nil {
		return "", err
	}

	base := filepath.Base(path)
	out := filepath.Join(opts.outDir, strings.TrimSuffix(base, filepath.Ext(base))+".bionic.html")
	if err := os.WriteFile(out, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	return out, nil
}
