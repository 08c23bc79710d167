package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds how many documents of a batch run at once
const DefaultBatchConcurrency = 4

// BatchItem is the outcome for one request of a batch. Exactly one of Report and Error is set.
type BatchItem struct {
	ID     string  `json:"id"`
	Report *Report `json:"report,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// BatchResult keeps items in request order
type BatchResult struct {
	Items     []BatchItem `json:"items"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// ProcessBatch runs requests with at most concurrency in flight. A failed document
// is recorded on its item and does not stop the others; only cancellation of ctx
// is returned as an error.
func (p *Processor) ProcessBatch(ctx context.Context, reqs []Request, concurrency int) (*BatchResult, error) {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}

	items := make([]BatchItem, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			items[i].ID = req.ID
			if err := gctx.Err(); err != nil {
				items[i].Error = err.Error()
				return err
			}
			rep, err := p.Process(gctx, req)
			if err != nil {
				items[i].Error = err.Error()
				p.logger.Warn("batch item failed", "id", req.ID, "error", err)
				return nil
			}
			items[i].Report = rep
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &BatchResult{Items: items}
	for _, it := range items {
		if it.Report != nil {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}
	return res, nil
}
