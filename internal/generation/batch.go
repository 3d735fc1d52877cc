package generation

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchResult pairs a batch slot with its outcome; exactly one of Result and
// Err is meaningful.
type BatchResult struct {
	Index  int
	Result VideoResult
	Err    error
}

// GenerateVideoBatch runs a set of video requests with bounded concurrency.
// Individual failures are captured per slot rather than aborting the batch;
// only context cancellation stops remaining work early.
func GenerateVideoBatch(ctx context.Context, provider VideoProvider, requests []VideoRequest, concurrency int) []BatchResult {
	if concurrency <= 0 {
		concurrency = 2
	}
	results := make([]BatchResult, len(requests))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for index, request := range requests {
		index, request := index, request
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				results[index] = BatchResult{Index: index, Err: err}
				return nil
			}
			result, err := provider.GenerateVideo(groupCtx, request)
			results[index] = BatchResult{Index: index, Result: result, Err: err}
			return nil
		})
	}
	_ = group.Wait()
	return results
}
