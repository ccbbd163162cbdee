package reportree

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ethereum-optimism/infra/reportree/exitcodes"
	"github.com/ethereum-optimism/infra/reportree/filter"
	"github.com/ethereum-optimism/infra/reportree/merge"
	"github.com/ethereum-optimism/infra/reportree/reporting"
	"github.com/ethereum-optimism/infra/reportree/types"
)

// readView decodes the report at path and wraps it in a view
func readView(path string, decode types.DecodeOptions, opts merge.Options) (*merge.View, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	root, err := types.DecodeReport(data, decode)
	if err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", path, err)
	}
	return merge.NewView(root, opts)
}

// Show renders the report described by cfg to w. It returns a
// ReportFailureError when the shown report failed and a RuntimeError when
// it could not be shown at all.
func Show(ctx context.Context, cfg *ShowConfig, w io.Writer) error {
	ctx, span := otel.Tracer("reportree").Start(ctx, "show")
	defer span.End()
	span.SetAttributes(
		attribute.String("report", cfg.ReportPath),
		attribute.Bool("merge", cfg.Merge),
	)

	view, err := readView(cfg.ReportPath,
		types.DecodeOptions{PendingAssertions: cfg.PendingAssertions},
		merge.Options{AllowPartial: cfg.AllowPartial})
	if err != nil {
		return NewRuntimeError(err)
	}
	if err := view.SetMerged(cfg.Merge); err != nil {
		return NewRuntimeError(err)
	}
	root := view.Root()

	loader, err := cfg.Attachments.Loader(cfg.Log)
	if err != nil {
		return NewRuntimeError(err)
	}
	if loader != nil {
		uid := cfg.ReportUID
		if uid == "" {
			uid = view.Unmerged().UID
		}
		if root, err = loader.Load(ctx, uid, root); err != nil {
			return NewRuntimeError(err)
		}
	}

	shown, err := filter.Apply(root, cfg.Expression)
	if err != nil {
		return NewRuntimeError(err)
	}
	if cfg.Status != nil {
		shown = cfg.Status.Apply(shown)
	}

	formatter, err := reporting.NewFormatter(cfg.Format, cfg.Output)
	if err != nil {
		return NewRuntimeError(err)
	}
	out, err := formatter.Format(shown)
	if err != nil {
		return NewRuntimeError(err)
	}
	if _, err := io.WriteString(w, out); err != nil {
		return NewRuntimeError(err)
	}

	cfg.Log.Debug("Report shown", "report", cfg.ReportPath, "merged", view.IsMerged(),
		"status", root.Status.Resolved(), "testcases", root.Counter.Total)
	if exitcodes.ForStatus(root.Status) == exitcodes.ReportFailure {
		return NewReportFailureError(root)
	}
	return nil
}
