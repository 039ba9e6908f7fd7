package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/wxcrawl/config"
	"github.com/use-agent/wxcrawl/models"
	"github.com/use-agent/wxcrawl/output"
)

var (
	formatFlag   string
	outDirFlag   string
	headlessFlag bool
	urlsFileFlag string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <url>",
	Short: "Crawl one article and save it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formats, err := prepare(cmd)
		if err != nil {
			return err
		}
		cr, _, err := newCrawler(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rec, err := cr.CrawlOne(ctx, args[0])
		if err != nil {
			return describe(err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s · %s\n%s\n\n", rec.Title, rec.Author, rec.PublishTime, rec.Summary)
		return save(cmd, []*models.ArticleRecord{rec}, formats)
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch -f urls.txt",
	Short: "Crawl every article URL listed in a file, one per line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formats, err := prepare(cmd)
		if err != nil {
			return err
		}
		urls, err := readURLs(urlsFileFlag)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return fmt.Errorf("no URLs in %s", urlsFileFlag)
		}

		cr, _, err := newCrawler(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := cr.CrawlMany(ctx, urls)
		if err != nil {
			// Keep what was crawled before the interrupt.
			fmt.Fprintf(cmd.ErrOrStderr(), "batch interrupted: %v\n", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "total %d, success %d, failed %d\n",
			result.Stats.Total, result.Stats.Success, result.Stats.Failed)
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  %s  %s\n", e.Kind, e.URL)
		}
		if len(result.Records) == 0 {
			return err
		}
		if saveErr := save(cmd, result.Records, formats); saveErr != nil {
			return saveErr
		}
		return err
	},
}

func init() {
	for _, cmd := range []*cobra.Command{crawlCmd, batchCmd} {
		cmd.Flags().StringVar(&formatFlag, "format", "json", "output format: json, csv, both or md")
		cmd.Flags().StringVarP(&outDirFlag, "out", "o", "", "output directory (default $WXCRAWL_OUTPUT_DIR or ./output)")
		cmd.Flags().BoolVar(&headlessFlag, "headless", true, "run browser strategies without a window")
	}
	batchCmd.Flags().StringVarP(&urlsFileFlag, "file", "f", "", "file with one article URL per line")
	batchCmd.MarkFlagRequired("file")
}

// prepare applies command flags on top of the loaded configuration.
func prepare(cmd *cobra.Command) ([]output.Format, error) {
	formats, err := output.ParseFormats(formatFlag)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg, cmd.Flags().Changed("headless"), headlessFlag, outDirFlag)
	return formats, nil
}

func applyFlags(cfg *config.Config, headlessSet, headless bool, outDir string) {
	if headlessSet {
		cfg.Browser.Headless = headless
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
}

func save(cmd *cobra.Command, records []*models.ArticleRecord, formats []output.Format) error {
	paths, err := output.Save(cfg.Output.Dir, output.DefaultFileName(time.Now()), records, formats...)
	for _, p := range paths {
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", p)
	}
	return err
}

// readURLs returns the non-blank lines of path, skipping # comments.
func readURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}

// describe points at the diagnostics directory when every attempt failed.
func describe(err error) error {
	if models.IsKind(err, models.KindExhausted) {
		return fmt.Errorf("%w; screenshots of failed attempts are in %s", err, cfg.Crawler.DiagnosticsDir)
	}
	return err
}
