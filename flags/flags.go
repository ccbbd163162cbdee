package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "REPORTREE"

func prefixEnvVars(name string) []string {
	return opservice.PrefixEnvVar(EnvVarPrefix, name)
}

// Report selection and presentation
var (
	Report = &cli.StringFlag{
		Name:    "report",
		Aliases: []string{"r"},
		EnvVars: prefixEnvVars("REPORT"),
		Usage:   "Path to the report document (eg. 'report.json')",
	}
	Merge = &cli.BoolFlag{
		Name:    "merge",
		EnvVars: prefixEnvVars("MERGE"),
		Usage:   "Merge the parts of split multitests into one entry each",
	}
	AllowPartial = &cli.BoolFlag{
		Name:    "allow-partial",
		EnvVars: prefixEnvVars("ALLOW_PARTIAL"),
		Usage:   "Merge multitests even when some of their parts are missing",
	}
	Text = &cli.StringFlag{
		Name:    "text",
		EnvVars: prefixEnvVars("TEXT"),
		Usage:   "Only show entries whose name contains this text, ignoring case",
	}
	Tags = &cli.StringSliceFlag{
		Name:    "tag",
		EnvVars: prefixEnvVars("TAG"),
		Usage:   "Only show entries carrying one of these tags ('name' or 'name=value')",
	}
	Status = &cli.StringFlag{
		Name:    "status",
		EnvVars: prefixEnvVars("STATUS"),
		Usage:   "Status letters to keep (upper case, eg. 'EF') or drop (lower case, eg. 'ps')",
	}
	Format = &cli.StringFlag{
		Name:    "format",
		Value:   "table",
		EnvVars: prefixEnvVars("FORMAT"),
		Usage:   "Output format: table, text, json or html",
	}
	Testcases = &cli.BoolFlag{
		Name:    "testcases",
		Value:   true,
		EnvVars: prefixEnvVars("TESTCASES"),
		Usage:   "Include testcases in table and text output",
	}
	Assertions = &cli.BoolFlag{
		Name:    "assertions",
		EnvVars: prefixEnvVars("ASSERTIONS"),
		Usage:   "Include assertions in table and text output",
	}
	Color = &cli.BoolFlag{
		Name:    "color",
		EnvVars: prefixEnvVars("COLOR"),
		Usage:   "Colorize table and text output",
	}
	PendingAssertions = &cli.BoolFlag{
		Name:    "pending-assertions",
		EnvVars: prefixEnvVars("PENDING_ASSERTIONS"),
		Usage:   "Treat testcases with an empty assertion list as not loaded",
	}
)

// Assertion attachments
var (
	AttachmentsDir = &cli.StringFlag{
		Name:    "attachments.dir",
		EnvVars: prefixEnvVars("ATTACHMENTS_DIR"),
		Usage:   "Directory holding <report_uid>/attachments/assertions_<part_uid>.json files",
	}
	AttachmentsURL = &cli.StringFlag{
		Name:    "attachments.url",
		EnvVars: prefixEnvVars("ATTACHMENTS_URL"),
		Usage:   "Base URL of a report server to fetch assertion attachments from",
	}
	AttachmentsTimeout = &cli.DurationFlag{
		Name:    "attachments.timeout",
		EnvVars: prefixEnvVars("ATTACHMENTS_TIMEOUT"),
		Usage:   "Timeout of a single attachment fetch (0 selects the default)",
	}
	AttachmentsConcurrency = &cli.IntFlag{
		Name:    "attachments.concurrency",
		Value:   4,
		EnvVars: prefixEnvVars("ATTACHMENTS_CONCURRENCY"),
		Usage:   "Number of attachments fetched at once",
	}
	AttachmentsStrict = &cli.BoolFlag{
		Name:    "attachments.strict",
		EnvVars: prefixEnvVars("ATTACHMENTS_STRICT"),
		Usage:   "Fail when an attachment cannot be fetched instead of marking its testcases",
	}
	ReportUID = &cli.StringFlag{
		Name:    "report-uid",
		EnvVars: prefixEnvVars("REPORT_UID"),
		Usage:   "Uid of the report under the attachment store (defaults to the report's own uid)",
	}
)

// Server
var (
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		EnvVars: prefixEnvVars("CONFIG"),
		Usage:   "Path to a YAML or TOML server config file",
	}
	ReportsDir = &cli.StringFlag{
		Name:    "reports-dir",
		EnvVars: prefixEnvVars("REPORTS_DIR"),
		Usage:   "Directory holding one <report_uid>/report.json per report",
	}
	Host = &cli.StringFlag{
		Name:    "host",
		Value:   "0.0.0.0",
		EnvVars: prefixEnvVars("HOST"),
		Usage:   "Address the report server listens on",
	}
	Port = &cli.IntFlag{
		Name:    "port",
		Value:   8080,
		EnvVars: prefixEnvVars("PORT"),
		Usage:   "Port the report server listens on",
	}
	CacheSize = &cli.IntFlag{
		Name:    "cache-size",
		Value:   64,
		EnvVars: prefixEnvVars("CACHE_SIZE"),
		Usage:   "Number of decoded reports kept in memory",
	}
	CORSOrigins = &cli.StringSliceFlag{
		Name:    "cors-origins",
		Value:   cli.NewStringSlice("*"),
		EnvVars: prefixEnvVars("CORS_ORIGINS"),
		Usage:   "Origins allowed to query the report server",
	}
)

// Split
var (
	OutDir = &cli.StringFlag{
		Name:    "out-dir",
		Value:   ".",
		EnvVars: prefixEnvVars("OUT_DIR"),
		Usage:   "Directory to write <report_uid>/report.json and its attachments to",
	}
)

var attachmentFlags = []cli.Flag{
	AttachmentsDir,
	AttachmentsURL,
	AttachmentsTimeout,
	AttachmentsConcurrency,
	AttachmentsStrict,
}

// ShowFlags are the flags of the show command
var ShowFlags = append([]cli.Flag{
	Report,
	Merge,
	AllowPartial,
	Text,
	Tags,
	Status,
	Format,
	Testcases,
	Assertions,
	Color,
	PendingAssertions,
	ReportUID,
}, attachmentFlags...)

// ServeFlags are the flags of the serve command
var ServeFlags []cli.Flag

// SplitFlags are the flags of the split command
var SplitFlags = []cli.Flag{
	Report,
	OutDir,
	ReportUID,
}

// Flags are the global flags
var Flags []cli.Flag

func init() {
	ServeFlags = append([]cli.Flag{
		ConfigFile,
		ReportsDir,
		Host,
		Port,
		CacheSize,
		CORSOrigins,
		AllowPartial,
		PendingAssertions,
	}, attachmentFlags...)
	ServeFlags = append(ServeFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(Flags, oplog.CLIFlags(EnvVarPrefix)...)
}

// CheckReport fails unless the report flag is set
func CheckReport(ctx *cli.Context) error {
	if ctx.String(Report.Name) == "" && ctx.Args().First() == "" {
		return fmt.Errorf("flag %s is required", Report.Name)
	}
	return nil
}
