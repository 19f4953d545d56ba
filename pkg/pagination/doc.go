// Package pagination implements bidirectional cursor pagination with an
// in-process page window cache.
//
// A Fetcher returns pages addressed by opaque forward and backward cursors
// (keyset pagination). The Controller keeps every page it fetched for the
// active search partition in a Window and steps through cached pages before it
// ever fetches, so paging back and forth never repeats a request:
//
//	ctrl := pagination.NewController[records.Prompt](
//		pagination.ResourceKind(records.KindPrompts),
//		apiClient.Prompts(),
//		pagination.Options[records.Prompt]{OwnerID: userID, Limit: 10},
//	)
//	defer ctrl.Close()
//
//	view, err := ctrl.Load(ctx)    // first page, cursor null
//	view, err = ctrl.GoNext(ctx)   // fetches with the page's next cursor
//	view, err = ctrl.GoPrev(ctx)   // pure step, no request
//
// Search terms are debounced (SetSearchTerm) and select a disjoint partition
// per normalized term. After a create, update or delete the partitions of the
// affected kind are invalidated, either directly (Controller.Invalidate) or for
// every registered view through a Hub:
//
//	err := hub.Mutate(ctx, kind, func(ctx context.Context) error {
//		_, err := apiClient.CreatePrompt(ctx, prompt)
//		return err
//	})
//
// Concurrency:
//   - At most one request is in flight per partition; navigation during that
//     window returns ErrBusy.
//   - Responses for a partition that is no longer active, or that was
//     invalidated while the request was outstanding, are discarded.
//   - The controller never holds its lock across a fetch.
//   - A failed fetch leaves the cache untouched and is returned as is; the
//     controller does not retry.
package pagination
