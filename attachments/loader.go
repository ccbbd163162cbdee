package attachments

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/ethereum-optimism/infra/reportree/merge"
	"github.com/ethereum-optimism/infra/reportree/metrics"
	"github.com/ethereum-optimism/infra/reportree/tree"
	"github.com/ethereum-optimism/infra/reportree/types"
)

const DefaultConcurrency = 4

// LoaderConfig configures a Loader
type LoaderConfig struct {
	// Concurrency bounds the number of attachments fetched at once
	Concurrency int
	// Strict fails the load when any attachment cannot be fetched, instead
	// of marking the affected testcases as failed to load
	Strict bool
}

// Loader fills pending testcases with assertions fetched per part
type Loader struct {
	fetcher Fetcher
	config  LoaderConfig
	log     log.Logger
}

func NewLoader(fetcher Fetcher, config LoaderConfig, logger log.Logger) *Loader {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = log.Root()
	}
	return &Loader{fetcher: fetcher, config: config, log: logger}
}

type fetchResult struct {
	part       string
	assertions Assertions
	err        error
}

// Load fetches the attachments of every part with pending testcases and
// loads them into root. Each attachment is fetched once no matter how many
// testcases need it. A failed fetch marks that part's testcases as failed
// to load unless the loader is strict.
func (l *Loader) Load(ctx context.Context, reportUID string, root *types.Entry) (*types.Entry, error) {
	pending := pendingTestcases(root)
	if len(pending) == 0 {
		return root, nil
	}
	prov := merge.ProvenanceOf(root)
	byPart := make(map[string][]tree.Located)
	for _, loc := range pending {
		part, ok := prov.PartAt(loc.Address)
		if !ok {
			l.log.Debug("Pending testcase outside any part", "uid", loc.Entry.UID, "address", loc.Address)
			continue
		}
		byPart[part] = append(byPart[part], loc)
	}

	parts := make([]string, 0, len(byPart))
	for part := range byPart {
		parts = append(parts, part)
	}
	sort.Strings(parts)
	results := make([]fetchResult, len(parts))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(l.config.Concurrency)
	for i, part := range parts {
		group.Go(func() error {
			start := time.Now()
			assertions, err := l.fetcher.Fetch(gctx, reportUID, part)
			metrics.RecordAttachmentFetch(time.Since(start), err)
			if err != nil {
				if l.config.Strict || gctx.Err() != nil {
					return fmt.Errorf("part %s: %w", part, err)
				}
				l.log.Warn("Failed to fetch attachment", "report", reportUID, "part", part, "err", err)
			}
			results[i] = fetchResult{part: part, assertions: assertions, err: err}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := Keys(root)
	var patches []tree.Located
	for _, res := range results {
		for _, loc := range byPart[res.part] {
			if res.err != nil {
				patches = append(patches, tree.Located{
					Entry:   loc.Entry.WithEntries(types.FailedLoad(res.err)),
					Address: loc.Address,
				})
				continue
			}
			filled, err := load(loc, res.assertions[keys[loc.Address.String()]])
			if err != nil {
				if l.config.Strict {
					return nil, err
				}
				filled = loc.Entry.WithEntries(types.FailedLoad(err))
			}
			patches = append(patches, tree.Located{Entry: filled, Address: loc.Address})
		}
	}
	l.log.Info("Loaded assertions", "report", reportUID, "parts", len(parts), "testcases", len(patches))
	return tree.Patch(root, patches)
}

// IsNotFound reports whether err says an attachment does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
