package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/youtube"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type extractor interface {
	Extract(ctx context.Context, rawURL, language string) (*youtube.Result, error)
}

type options struct {
	urls     []string
	language string
	file     string
	json     bool
	segments bool
	parallel int
	config   string
	retries  int
	timeout  time.Duration
	verbose  bool
}

// result is one URL's outcome; exactly one of res and err is set.
type result struct {
	url string
	res *youtube.Result
	err error
}

func run(cmd *cobra.Command, opts options, factory extractorFactory) error {
	if opts.verbose {
		engine.SetupLogging("debug")
	} else {
		engine.SetupLogging(env.Str("LOG_LEVEL", "warn"))
	}

	urls, err := collectURLs(opts, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return errors.New("no URLs given; pass them as arguments or use --file")
	}

	cfg, err := buildConfig(cmd, opts)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ex, err := factory(cfg)
	if err != nil {
		return err
	}

	results := extractAll(cmd.Context(), ex, urls, opts.language, opts.parallel)

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if opts.json {
		if err := writeJSON(stdout, results); err != nil {
			return err
		}
	} else {
		writeText(stdout, stderr, results, opts.segments)
	}

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
		}
	}
	if len(results) > 1 {
		writeSummary(stderr, len(results)-failed, failed)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d extractions failed", failed, len(results))
	}
	return nil
}

// buildConfig layers --config and flag overrides on top of the environment.
func buildConfig(cmd *cobra.Command, opts options) (engine.Config, error) {
	cfg, err := engine.ConfigFromEnv()
	if err != nil {
		return cfg, err
	}
	if opts.config != "" {
		if cfg, err = engine.LoadConfigFile(opts.config, cfg); err != nil {
			return cfg, err
		}
	}
	if opts.retries >= 0 {
		cfg.Transport.Retries = opts.retries
	}
	if opts.timeout > 0 {
		cfg.Transport.Timeout = opts.timeout
	}
	if tls, _ := cmd.Flags().GetBool("browser-tls"); tls {
		cfg.Transport.BrowserTLS = true
	}
	return cfg, cfg.Validate()
}

// collectURLs returns argument URLs followed by those read from --file.
func collectURLs(opts options, stdin io.Reader) ([]string, error) {
	urls := make([]string, 0, len(opts.urls))
	for _, u := range opts.urls {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if opts.file == "" {
		return urls, nil
	}

	r := stdin
	if opts.file != "-" {
		f, err := os.Open(opts.file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	fromFile, err := readURLs(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", opts.file, err)
	}
	return append(urls, fromFile...), nil
}

// readURLs reads one URL per line, skipping blanks and # comments.
func readURLs(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}

func extractAll(ctx context.Context, ex extractor, urls []string, language string, parallel int) []result {
	results := make([]result, len(urls))
	var g errgroup.Group
	g.SetLimit(max(parallel, 1))
	for i, u := range urls {
		g.Go(func() error {
			res, err := ex.Extract(ctx, u, language)
			results[i] = result{url: u, res: res, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
