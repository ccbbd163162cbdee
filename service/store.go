package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"

	"github.com/ethereum-optimism/infra/reportree/attachments"
	"github.com/ethereum-optimism/infra/reportree/merge"
	"github.com/ethereum-optimism/infra/reportree/metrics"
	"github.com/ethereum-optimism/infra/reportree/tree"
	"github.com/ethereum-optimism/infra/reportree/types"
)

// ReportFile is the name of the report document inside a report directory
const ReportFile = "report.json"

// ErrReportNotFound is returned for report uids without a report document
var ErrReportNotFound = errors.New("report not found")

// Summary describes a stored report without its tree
type Summary struct {
	UID     string        `json:"uid"`
	Name    string        `json:"name"`
	Status  types.Status  `json:"status"`
	Counter types.Counter `json:"counter"`
	Tags    []string      `json:"tags,omitempty"`
}

// StoreConfig configures a Store
type StoreConfig struct {
	Dir               string
	CacheSize         int
	PendingAssertions bool
	Merge             merge.Options
}

// Store serves report trees from <dir>/<uid>/report.json and keeps the
// most recently used ones decoded in memory
type Store struct {
	config StoreConfig
	cache  *lru.Cache
	loader *attachments.Loader
	log    log.Logger
}

// cachedReport is a decoded report. Its view is guarded by mu.
type cachedReport struct {
	modTime time.Time
	mu      sync.Mutex
	view    *merge.View
}

// NewStore creates a store. A nil loader leaves pending testcases pending.
func NewStore(config StoreConfig, loader *attachments.Loader, logger log.Logger) (*Store, error) {
	if config.CacheSize <= 0 {
		config.CacheSize = DefaultCacheSize
	}
	cache, err := lru.New(config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create report cache: %w", err)
	}
	if logger == nil {
		logger = log.Root()
	}
	return &Store{config: config, cache: cache, loader: loader, log: logger}, nil
}

func (s *Store) path(uid string) (string, error) {
	if err := attachments.ValidateName(uid); err != nil {
		return "", fmt.Errorf("report uid: %w", err)
	}
	return filepath.Join(s.config.Dir, uid, ReportFile), nil
}

// List summarises every stored report, sorted by uid
func (s *Store) List() ([]Summary, error) {
	dirs, err := os.ReadDir(s.config.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	summaries := make([]Summary, 0, len(dirs))
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		report, err := s.get(d.Name())
		if errors.Is(err, ErrReportNotFound) {
			continue
		}
		if err != nil {
			s.log.Warn("Skipping unreadable report", "uid", d.Name(), "err", err)
			continue
		}
		report.mu.Lock()
		root := report.view.Unmerged()
		report.mu.Unlock()
		summaries = append(summaries, Summary{
			UID:     d.Name(),
			Name:    root.Name,
			Status:  root.Status.Resolved(),
			Counter: root.Counter,
			Tags:    tree.TagIndex(root)[types.Address{}.String()].Strings(),
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].UID < summaries[j].UID })
	return summaries, nil
}

// get returns the decoded report, reusing the cached copy while the file
// is unchanged
func (s *Store) get(uid string) (*cachedReport, error) {
	file, err := s.path(uid)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(file)
	if errors.Is(err, fs.ErrNotExist) {
		s.cache.Remove(uid)
		return nil, fmt.Errorf("%s: %w", uid, ErrReportNotFound)
	}
	if err != nil {
		return nil, err
	}
	var stale *cachedReport
	if cached, ok := s.cache.Get(uid); ok {
		report := cached.(*cachedReport)
		if report.modTime.Equal(info.ModTime()) {
			metrics.RecordCacheLookup(true)
			return report, nil
		}
		stale = report
	}
	metrics.RecordCacheLookup(false)

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	root, err := types.DecodeReport(data, types.DecodeOptions{PendingAssertions: s.config.PendingAssertions})
	if err != nil {
		metrics.RecordErrorDetails("decode", err)
		return nil, err
	}
	view, err := merge.NewView(root, s.config.Merge)
	if err != nil {
		return nil, err
	}
	metrics.RecordReport(uid, view.Unmerged().Counter)
	s.log.Debug("Decoded report", "uid", uid, "testcases", view.Unmerged().Counter.Total)
	if stale != nil {
		stale.mu.Lock()
		changed := tree.Diff(stale.view.Unmerged(), view.Unmerged())
		stale.mu.Unlock()
		s.log.Info("Report changed on disk", "uid", uid, "changed", len(changed))
	}

	report := &cachedReport{modTime: info.ModTime(), view: view}
	s.cache.Add(uid, report)
	return report, nil
}

// Tree returns the aggregated tree of a report, merged or not, together
// with its part lookup. With load set, pending testcases are filled from
// their assertion attachments first and the result is kept in the cache.
func (s *Store) Tree(ctx context.Context, uid string, merged, load bool) (*types.Entry, *merge.Provenance, error) {
	report, err := s.get(uid)
	if err != nil {
		return nil, nil, err
	}
	report.mu.Lock()
	defer report.mu.Unlock()

	if err := report.view.SetMerged(merged); err != nil {
		return nil, nil, err
	}
	root := report.view.Root()
	if load && s.loader != nil {
		loaded, err := s.loader.Load(ctx, uid, root)
		if err != nil {
			return nil, nil, err
		}
		report.view.Update(loaded)
		root = loaded
	}
	return root, report.view.Provenance(), nil
}

// AttachmentFile returns the path of a named attachment of a report
func (s *Store) AttachmentFile(uid, name string) (string, error) {
	return attachments.NewDir(s.config.Dir).File(uid, name)
}
