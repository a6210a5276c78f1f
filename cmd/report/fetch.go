// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sirseerhq/sirseer-report/internal/cache"
	"github.com/sirseerhq/sirseer-report/internal/config"
	reporterrors "github.com/sirseerhq/sirseer-report/internal/errors"
	"github.com/sirseerhq/sirseer-report/internal/fetcher"
	"github.com/sirseerhq/sirseer-report/internal/github"
	"github.com/sirseerhq/sirseer-report/internal/logger"
	"github.com/sirseerhq/sirseer-report/internal/metadata"
	"github.com/sirseerhq/sirseer-report/internal/output"
	"github.com/sirseerhq/sirseer-report/internal/window"
	"github.com/sirseerhq/sirseer-report/pkg/version"
)

// fetchOptions holds the flags of the fetch command.
type fetchOptions struct {
	since        string
	until        string
	resourceType string
	outputFile   string
	configPath   string
	cacheDir     string
	noCache      bool
	refresh      bool
	token        string
	chunkSize    int
	metadata     string
	quiet        bool
}

// streams are the destinations for report output and human-facing output.
type streams struct {
	out io.Writer
	err io.Writer
}

func newFetchCommand() *cobra.Command {
	var opts fetchOptions

	cmd := &cobra.Command{
		Use:   "fetch <owner>/<repo>",
		Short: "Fetch issues and pull requests relevant to a date window",
		Long: `Fetch the issue and pull request history of a GitHub repository and
output the records relevant to a date window in NDJSON format.

The repository must be specified in the format: <owner>/<repo>
For example: golang/go, kubernetes/kubernetes

A record is relevant when it was created within the window and was not
already closed on or before the window's first day. Records that were
created before the window and are still open are not included.

The full history is cached under the cache directory, so later runs for
other windows reuse it. Use --refresh to discard the cached history.

Authentication is resolved in order:
  - --token flag
  - the environment variable named by github.token_env (GITHUB_TOKEN)
  - the token stored by 'gh auth login'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd.Context(), args[0], opts, streams{
				out: cmd.OutOrStdout(),
				err: cmd.ErrOrStderr(),
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.since, "since", "", "First day of the report window (YYYY-MM-DD or RFC 3339)")
	flags.StringVar(&opts.until, "until", "", "Last day of the report window (default: today)")
	flags.StringVar(&opts.resourceType, "type", "all", "Records to fetch: issues, pulls or all")
	flags.StringVar(&opts.outputFile, "output", "", "Output file path (default: stdout)")
	flags.StringVar(&opts.configPath, "config", "", "Configuration file (YAML or TOML)")
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "Cache directory (overrides defaults.cache_dir)")
	flags.BoolVar(&opts.noCache, "no-cache", false, "Do not read or write the persistent cache")
	flags.BoolVar(&opts.refresh, "refresh", false, "Discard cached history before fetching")
	flags.StringVar(&opts.token, "token", "", "GitHub personal access token (overrides GITHUB_TOKEN env var)")
	flags.IntVar(&opts.chunkSize, "chunk-size", 0, "Records per page, 1-100 (overrides defaults.chunk_size)")
	flags.StringVar(&opts.metadata, "metadata", "", "Record fetch metadata: bare flag saves to the cache directory, =- writes to stderr, =DIR saves to DIR")
	flags.Lookup("metadata").NoOptDefVal = metadataToCache
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress progress markers")
	_ = cmd.MarkFlagRequired("since")

	return cmd
}

// runFetch executes the fetch command
func runFetch(ctx context.Context, repoArg string, opts fetchOptions, std streams) error {
	owner, repo, err := parseRepository(repoArg)
	if err != nil {
		return err
	}
	fullName := owner + "/" + repo

	resources, err := parseResourceTypes(opts.resourceType)
	if err != nil {
		return err
	}

	w, err := parseWindow(opts.since, opts.until, time.Now())
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfigForRepo(opts.configPath, fullName)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Writer: std.err,
	})
	log := logger.Named("cli")

	token, source, err := cfg.ResolveToken(opts.token)
	if err != nil {
		return err
	}
	log.Debug().Str("source", string(source)).Msg("resolved GitHub token")

	if cfg.Defaults.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Defaults.Timeout)
		defer cancel()
	}

	tracker := metadata.New()
	client := github.NewRetryClient(
		tracker.Client(github.NewGraphQLClient(token, cfg.GitHub.GraphQLEndpoint)),
		cfg.RetryPolicy(),
		github.WithRetryLogger(*logger.Named("retry")),
	)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	var observer fetcher.Observer = tracker
	if !opts.quiet {
		observer = fetcher.MultiObserver{fetcher.NewProgressObserver(std.err), tracker}
	}

	fetchers := make([]*fetcher.Fetcher, 0, len(resources))
	for _, resource := range resources {
		f, err := fetcher.New(client, store, fetcher.Options{
			Owner:      owner,
			Repo:       repo,
			Resource:   resource,
			Window:     w,
			ChunkSize:  cfg.Defaults.ChunkSize,
			CacheScope: cfg.Cache.Namespace,
			Observer:   observer,
			Logger:     logger.Get(),
		})
		if err != nil {
			return err
		}
		if opts.refresh {
			if err := cache.Invalidate(store, f.Key()); err != nil {
				return fmt.Errorf("failed to refresh cache: %w", err)
			}
		}
		fetchers = append(fetchers, f)
	}

	log.Info().
		Str("repository", fullName).
		Str("window", w.String()).
		Int("days", w.Days()).
		Int("chunk_size", cfg.Defaults.ChunkSize).
		Bool("cache", !cfg.Cache.Disabled).
		Msg("fetch started")

	results, err := fetcher.FetchAll(ctx, fetchers...)
	if err != nil {
		return err
	}

	sections := make([]output.Section, len(fetchers))
	for i, f := range fetchers {
		stats := f.Stats()
		tracker.RecordResult(f.Resource(), stats.Fetched, stats.CacheHit, results[i])
		sections[i] = output.Section{Resource: f.Resource(), Records: results[i]}
	}

	if err := writeReport(opts.outputFile, std.out, output.Report{
		Repository: fullName,
		Window:     w,
		FetchID:    tracker.FetchID(),
	}, sections); err != nil {
		return err
	}

	if opts.metadata != "" {
		if err := saveMetadata(cfg, opts.metadata, std.err, tracker, owner, repo, w, resources, log); err != nil {
			return err
		}
	}

	for _, s := range sections {
		result := tracker.Result(s.Resource)
		log.Info().
			Str("resource", s.Resource.CacheName()).
			Int("fetched", result.Fetched).
			Int("relevant", result.Relevant).
			Bool("cache_hit", result.CacheHit).
			Msg("fetch finished")
	}
	return nil
}

// applyFlagOverrides applies command-line flags, the highest precedence
// configuration source.
func applyFlagOverrides(cfg *config.Config, opts fetchOptions) {
	if opts.chunkSize != 0 {
		cfg.Defaults.ChunkSize = opts.chunkSize
	}
	if opts.cacheDir != "" {
		cfg.Defaults.CacheDir = opts.cacheDir
	}
	if opts.noCache {
		cfg.Cache.Disabled = true
	}
}

// openStore returns the persistent cache, or an in-memory store when
// caching is disabled.
func openStore(cfg *config.Config) (cache.Store, error) {
	if cfg.Cache.Disabled {
		return cache.NewMemoryStore(), nil
	}

	var opts []cache.FileStoreOption
	if cfg.Cache.MaxAge > 0 {
		opts = append(opts, cache.WithMaxAge(cfg.Cache.MaxAge))
	}
	store, err := cache.NewFileStore(cfg.Defaults.CacheDir, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return store, nil
}

func writeReport(outputFile string, stdout io.Writer, header output.Report, sections []output.Section) error {
	var writer output.RecordWriter
	if outputFile == "" {
		writer = output.NewWriter(stdout)
	} else {
		fileWriter, err := output.NewFileWriter(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		writer = fileWriter
	}

	if err := output.WriteReport(writer, header, sections...); err != nil {
		_ = writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	return nil
}

// Destinations accepted by --metadata besides a directory path.
const (
	metadataToCache  = "cache"
	metadataToStderr = "-"
)

// saveMetadata records the fetch. dest is metadataToCache, metadataToStderr
// or a directory.
func saveMetadata(cfg *config.Config, dest string, stderr io.Writer, tracker *metadata.Tracker, owner, repo string, w window.Window, resources []github.ResourceType, log *logger.Logger) error {
	dir := dest
	if dest == metadataToCache || dest == metadataToStderr {
		dir = cfg.Defaults.CacheDir
	}

	previous, err := metadata.LoadLatestMetadata(dir, owner+"/"+repo)
	if err != nil {
		log.Warn().Err(err).Msg("could not read previous fetch metadata")
	}

	names := make([]string, len(resources))
	for i, r := range resources {
		names[i] = r.CacheName()
	}

	m := tracker.GenerateMetadata(version.Version, metadata.FetchParams{
		Organization: owner,
		Repository:   repo,
		Since:        w.Start,
		Until:        w.End,
		Resources:    names,
		ChunkSize:    cfg.Defaults.ChunkSize,
		CacheEnabled: !cfg.Cache.Disabled,
	}, previous.Ref())

	if dest == metadataToStderr {
		if err := metadata.WriteMetadataToWriter(m, stderr); err != nil {
			return fmt.Errorf("failed to write fetch metadata: %w", err)
		}
		return nil
	}

	if err := metadata.SaveMetadata(m, dir); err != nil {
		return fmt.Errorf("failed to save fetch metadata: %w", err)
	}
	log.Debug().Str("fetch_id", m.FetchID).Str("dir", dir).Msg("saved fetch metadata")
	return nil
}

// parseRepository parses an owner/repo string into owner and repo components
func parseRepository(repoArg string) (owner, repo string, err error) {
	parts := strings.Split(repoArg, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid repository format. Expected: <owner>/<repo>, got: %s", repoArg)
	}

	owner = strings.TrimSpace(parts[0])
	repo = strings.TrimSpace(parts[1])

	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid repository format. Expected: <owner>/<repo>, got: %s", repoArg)
	}

	return owner, repo, nil
}

// parseResourceTypes expands the --type flag. "all" selects issues and
// pull requests, in that order.
func parseResourceTypes(s string) ([]github.ResourceType, error) {
	if strings.EqualFold(strings.TrimSpace(s), "all") || strings.TrimSpace(s) == "" {
		return []github.ResourceType{github.Issues, github.PullRequests}, nil
	}
	r, err := github.ParseResourceType(s)
	if err != nil {
		return nil, err
	}
	return []github.ResourceType{r}, nil
}

// parseWindow builds the report window. An empty until means today.
func parseWindow(since, until string, now time.Time) (window.Window, error) {
	if strings.TrimSpace(since) == "" {
		return window.Window{}, fmt.Errorf("--since is required")
	}
	if strings.TrimSpace(until) == "" {
		until = now.UTC().Format(window.DateLayout)
	}
	return window.Parse(since, until)
}

// mapErrorToExitCode maps internal errors to appropriate exit codes
func mapErrorToExitCode(err error) int {
	if err == nil {
		return 0
	}

	// Check for specific error types
	if errors.Is(err, reporterrors.ErrInvalidToken) ||
		errors.Is(err, reporterrors.ErrRepoNotFound) ||
		errors.Is(err, reporterrors.ErrRateLimit) {
		return 2 // Authentication/authorization errors
	}

	if errors.Is(err, reporterrors.ErrNetworkFailure) {
		return 3 // Network errors
	}

	return 1 // General error
}
