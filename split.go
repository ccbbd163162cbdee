package reportree

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ethereum-optimism/infra/reportree/attachments"
	"github.com/ethereum-optimism/infra/reportree/merge"
	"github.com/ethereum-optimism/infra/reportree/types"
)

// SplitResult lists the files written by Split
type SplitResult struct {
	ReportUID   string
	Report      string
	Attachments []string
}

// Split writes the report described by cfg as a structure-only document
// plus one assertion attachment per multitest part, laid out the way a
// report server serves them.
func Split(cfg *SplitConfig) (*SplitResult, error) {
	view, err := readView(cfg.ReportPath, types.DecodeOptions{}, merge.Options{})
	if err != nil {
		return nil, NewRuntimeError(err)
	}
	root := view.Unmerged()
	uid := cfg.ReportUID
	if uid == "" {
		uid = root.UID
	}
	if err := attachments.ValidateName(uid); err != nil {
		return nil, NewRuntimeError(fmt.Errorf("report uid: %w", err))
	}

	structure, byPart, err := attachments.Split(root)
	if err != nil {
		return nil, NewRuntimeError(err)
	}
	data, err := types.EncodeReport(structure, true)
	if err != nil {
		return nil, NewRuntimeError(err)
	}

	dir := filepath.Join(cfg.OutDir, uid)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, NewRuntimeError(fmt.Errorf("failed to create report directory: %w", err))
	}
	result := &SplitResult{ReportUID: uid, Report: filepath.Join(dir, "report.json")}
	if err := os.WriteFile(result.Report, data, 0644); err != nil {
		return nil, NewRuntimeError(fmt.Errorf("failed to write report: %w", err))
	}

	parts := make([]string, 0, len(byPart))
	for part := range byPart {
		parts = append(parts, part)
	}
	sort.Strings(parts)
	store := attachments.NewDir(cfg.OutDir)
	for _, part := range parts {
		file, err := store.Save(uid, part, byPart[part])
		if err != nil {
			return nil, NewRuntimeError(err)
		}
		result.Attachments = append(result.Attachments, file)
		cfg.Log.Debug("Wrote attachment", "part", part, "testcases", len(byPart[part]), "file", file)
	}
	cfg.Log.Info("Split report", "uid", uid, "report", result.Report, "attachments", len(result.Attachments))
	return result, nil
}
