// Package pager drives paginated retrieval of a country's enriched trends.
//
// A Controller accumulates pages fetched from the enriched trends endpoint,
// deduplicating records by keyword, and exposes LoadMore and Refresh as the
// only ways to request data. At most one fetch is in flight per controller:
// triggers issued while a fetch is running are dropped, not queued.
//
//	fetcher := pager.NewHTTPFetcher(pager.HTTPConfig{BaseURL: "http://localhost:8080", Token: token})
//	ctrl := pager.New(fetcher, country.Argentina, pager.DefaultConfig())
//	_ = ctrl.AutoLoad(ctx)
//	for ctrl.HasMore() {
//		if err := ctrl.LoadMore(ctx); err != nil {
//			break
//		}
//	}
//	records := ctrl.Snapshot().Records
//
// Every fetch runs under Config.FetchTimeout; a fetch that times out fails
// like any other fetch and releases the in-flight guard.
package pager
