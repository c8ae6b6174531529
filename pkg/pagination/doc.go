// Package pagination walks the withdraw detail endpoint page by page.
//
// Pages are fetched strictly one after another. Before each page the paginator
// sleeps for a random duration and sends the tracking event; after each page it
// sleeps for a short fixed delay. Those sleeps are the only throttling.
//
// Example usage:
//
//	cfg := pagination.DefaultConfig()
//	cfg.MaxPages = 10
//	p, err := pagination.New(detailClient, notifier, cfg)
//	result, err := p.Run(ctx)
//
// The paginator:
//   - Starts at page 1 and stops after MaxPages pages
//   - Stops early at the first page that returns an empty record list
//   - Skips pages that fail (transport error, HTTP status, malformed body)
//     without retrying them and without stopping
//   - Returns every record in page order with a per-page outcome
package pagination
