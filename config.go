package reportree

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/reportree/attachments"
	"github.com/ethereum-optimism/infra/reportree/filter"
	"github.com/ethereum-optimism/infra/reportree/flags"
	"github.com/ethereum-optimism/infra/reportree/reporting"
	"github.com/ethereum-optimism/infra/reportree/service"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

// AttachmentConfig selects where assertion attachments come from
type AttachmentConfig struct {
	Dir         string
	URL         string
	Timeout     time.Duration
	Concurrency int
	Strict      bool
}

// Enabled reports whether an attachment source is configured
func (c AttachmentConfig) Enabled() bool {
	return c.Dir != "" || c.URL != ""
}

// Fetcher builds the configured fetcher, nil when none is configured
func (c AttachmentConfig) Fetcher(logger log.Logger) (attachments.Fetcher, error) {
	switch {
	case c.URL != "":
		return attachments.NewClient(c.URL, c.Timeout, logger)
	case c.Dir != "":
		return attachments.NewDir(c.Dir), nil
	}
	return nil, nil
}

// Loader builds a loader around the configured fetcher, nil when none is configured
func (c AttachmentConfig) Loader(logger log.Logger) (*attachments.Loader, error) {
	fetcher, err := c.Fetcher(logger)
	if err != nil || fetcher == nil {
		return nil, err
	}
	return attachments.NewLoader(fetcher, attachments.LoaderConfig{
		Concurrency: c.Concurrency,
		Strict:      c.Strict,
	}, logger), nil
}

func readAttachmentConfig(ctx *cli.Context) AttachmentConfig {
	return AttachmentConfig{
		Dir:         ctx.String(flags.AttachmentsDir.Name),
		URL:         ctx.String(flags.AttachmentsURL.Name),
		Timeout:     ctx.Duration(flags.AttachmentsTimeout.Name),
		Concurrency: ctx.Int(flags.AttachmentsConcurrency.Name),
		Strict:      ctx.Bool(flags.AttachmentsStrict.Name),
	}
}

// ShowConfig holds the configuration of the show command
type ShowConfig struct {
	ReportPath        string
	ReportUID         string // defaults to the uid of the report root
	Merge             bool
	AllowPartial      bool
	PendingAssertions bool
	Expression        filter.Expression
	Status            *filter.StatusFilter
	Format            string
	Output            reporting.Options
	Attachments       AttachmentConfig
	Log               log.Logger
}

// reportPath returns the report flag, or the first argument when unset
func reportPath(ctx *cli.Context) (string, error) {
	if err := flags.CheckReport(ctx); err != nil {
		return "", err
	}
	path := ctx.String(flags.Report.Name)
	if path == "" {
		path = ctx.Args().First()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for report '%s': %w", path, err)
	}
	return abs, nil
}

// NewShowConfig creates a ShowConfig from cli context
func NewShowConfig(ctx *cli.Context, log log.Logger) (*ShowConfig, error) {
	path, err := reportPath(ctx)
	if err != nil {
		return nil, err
	}
	cfg := &ShowConfig{
		ReportPath:        path,
		ReportUID:         ctx.String(flags.ReportUID.Name),
		Merge:             ctx.Bool(flags.Merge.Name),
		AllowPartial:      ctx.Bool(flags.AllowPartial.Name),
		PendingAssertions: ctx.Bool(flags.PendingAssertions.Name),
		Format:            ctx.String(flags.Format.Name),
		Output: reporting.Options{
			Testcases:  ctx.Bool(flags.Testcases.Name),
			Assertions: ctx.Bool(flags.Assertions.Name),
			Color:      ctx.Bool(flags.Color.Name),
			Indent:     true,
		},
		Attachments: readAttachmentConfig(ctx),
		Log:         log,
	}
	if ctx.IsSet(flags.Text.Name) {
		cfg.Expression = filter.Text(ctx.String(flags.Text.Name))
	}
	cfg.Expression.Tags = ctx.StringSlice(flags.Tags.Name)
	if _, err := filter.Compile(cfg.Expression); err != nil {
		return nil, err
	}
	if raw := ctx.String(flags.Status.Name); raw != "" {
		if cfg.Status, err = filter.ParseStatusFilter(raw); err != nil {
			return nil, err
		}
	}
	if _, err := reporting.NewFormatter(cfg.Format, cfg.Output); err != nil {
		return nil, err
	}
	if cfg.Attachments.Dir != "" && cfg.Attachments.URL != "" {
		return nil, errors.New("attachments.dir and attachments.url are mutually exclusive")
	}
	return cfg, nil
}

// SplitConfig holds the configuration of the split command
type SplitConfig struct {
	ReportPath string
	ReportUID  string
	OutDir     string
	Log        log.Logger
}

// NewSplitConfig creates a SplitConfig from cli context
func NewSplitConfig(ctx *cli.Context, log log.Logger) (*SplitConfig, error) {
	path, err := reportPath(ctx)
	if err != nil {
		return nil, err
	}
	outDir, err := filepath.Abs(ctx.String(flags.OutDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for output directory: %w", err)
	}
	return &SplitConfig{
		ReportPath: path,
		ReportUID:  ctx.String(flags.ReportUID.Name),
		OutDir:     outDir,
		Log:        log,
	}, nil
}

// NewServeConfig reads the server configuration from the config file, if
// any, and lets explicitly set flags override it
func NewServeConfig(ctx *cli.Context) (*service.Config, error) {
	cfg := service.DefaultConfig("")
	if file := ctx.String(flags.ConfigFile.Name); file != "" {
		var err error
		if cfg, err = service.ReadConfig(file); err != nil {
			return nil, err
		}
	}
	if ctx.IsSet(flags.ReportsDir.Name) {
		cfg.ReportsDir = ctx.String(flags.ReportsDir.Name)
	}
	if ctx.IsSet(flags.Host.Name) {
		cfg.Host = ctx.String(flags.Host.Name)
	}
	if ctx.IsSet(flags.Port.Name) {
		cfg.Port = ctx.Int(flags.Port.Name)
	}
	if ctx.IsSet(flags.CacheSize.Name) {
		cfg.CacheSize = ctx.Int(flags.CacheSize.Name)
	}
	if ctx.IsSet(flags.CORSOrigins.Name) {
		cfg.CORSOrigins = ctx.StringSlice(flags.CORSOrigins.Name)
	}
	if ctx.IsSet(flags.AllowPartial.Name) {
		cfg.AllowPartial = ctx.Bool(flags.AllowPartial.Name)
	}
	if ctx.IsSet(flags.PendingAssertions.Name) {
		cfg.PendingAssertions = ctx.Bool(flags.PendingAssertions.Name)
	}
	attachmentsCfg := readAttachmentConfig(ctx)
	if attachmentsCfg.URL != "" {
		cfg.Attachments.URL = attachmentsCfg.URL
	}
	if ctx.IsSet(flags.AttachmentsTimeout.Name) {
		cfg.Attachments.Timeout = attachmentsCfg.Timeout
	}
	if ctx.IsSet(flags.AttachmentsConcurrency.Name) {
		cfg.Attachments.Concurrency = attachmentsCfg.Concurrency
	}
	if ctx.IsSet(flags.AttachmentsStrict.Name) {
		cfg.Attachments.Strict = attachmentsCfg.Strict
	}

	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	if metricsCfg.Enabled {
		if err := metricsCfg.Check(); err != nil {
			return nil, fmt.Errorf("invalid metrics config: %w", err)
		}
		cfg.Metrics = service.MetricsConfig{
			Enabled: true,
			Host:    metricsCfg.ListenAddr,
			Port:    metricsCfg.ListenPort,
		}
	}

	if cfg.ReportsDir != "" {
		abs, err := filepath.Abs(cfg.ReportsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for reports directory '%s': %w", cfg.ReportsDir, err)
		}
		cfg.ReportsDir = abs
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
