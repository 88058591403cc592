// Package pagination provides bounded parallel collection of paginated point pages.
//
// The points API reports total_pages on its first response and serves each page
// independently under ?page=n. This package fans the page indices out across a
// worker pool and fans the results back in through a single consumer, so the
// aggregate report is never mutated concurrently.
//
// Example usage:
//
//	collector := pagination.NewCollector(pagination.DefaultConfig())
//	report, err := collector.Collect(ctx, totalPages, apiClient.FetchPage)
//
// The collector:
//   - Sizes the pool to min(MaxConcurrency, 32, totalPages)
//   - Schedules every page index in [1, totalPages] exactly once
//   - Counts Success pages as completed and every other outcome as failed
//   - Recovers a panicking fetch and records it as a failed page
//   - Logs progress every ProgressInterval completions and on the last one
//   - Waits for every page to reach a terminal outcome before returning
package pagination
