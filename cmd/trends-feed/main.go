// Command trends-feed pages through a country's enriched trends on a
// trends server and prints every record once.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/Sternrassler/meli-trends/pkg/country"
	"github.com/Sternrassler/meli-trends/pkg/logging"
	"github.com/Sternrassler/meli-trends/pkg/pager"
	"github.com/Sternrassler/meli-trends/pkg/trends"
)

// options are the command line flags.
type options struct {
	serverURL string
	country   string
	token     string
	sessionID string
	limit     int
	maxPages  int
	timeout   time.Duration
	asJSON    bool
	refresh   bool
}

func main() {
	opts := options{}
	flag.StringVar(&opts.serverURL, "server", "http://localhost:8080", "trends server base URL")
	flag.StringVar(&opts.country, "country", "", "site id (MLA, MLB, ...); default from $LANG")
	flag.StringVar(&opts.token, "token", os.Getenv("MELI_ACCESS_TOKEN"), "MercadoLibre access token")
	flag.StringVar(&opts.sessionID, "session", "", "session id from POST /session (used when -token is empty)")
	flag.IntVar(&opts.limit, "limit", 20, "page size")
	flag.IntVar(&opts.maxPages, "pages", 0, "stop after this many pages (0 = all)")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-page timeout")
	flag.BoolVar(&opts.asJSON, "json", false, "print one JSON record per line")
	flag.BoolVar(&opts.refresh, "refresh", false, "discard the first page and fetch it again before paging")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := logging.LevelWarn
	if *verbose {
		level = logging.LevelDebug
	}
	logging.Setup(logging.Config{Level: level, Pretty: true, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run drives a controller until every page is loaded or maxPages is reached.
func run(ctx context.Context, opts options, out io.Writer) error {
	code, err := resolveCountry(opts.country)
	if err != nil {
		return err
	}

	fetcher := pager.NewHTTPFetcher(pager.HTTPConfig{
		BaseURL:   opts.serverURL,
		Token:     opts.token,
		SessionID: opts.sessionID,
	})
	ctrl := pager.New(fetcher, code, pager.Config{
		Limit:        opts.limit,
		AutoLoad:     true,
		FetchTimeout: opts.timeout,
	})

	if err := ctrl.AutoLoad(ctx); err != nil {
		return fmt.Errorf("%s: %s", code, ctrl.Snapshot().Error)
	}
	if opts.refresh {
		if err := ctrl.Refresh(ctx); err != nil {
			return fmt.Errorf("%s: %s", code, ctrl.Snapshot().Error)
		}
	}

	for pages := 1; ctrl.HasMore(); pages++ {
		if opts.maxPages > 0 && pages >= opts.maxPages {
			break
		}
		before := ctrl.Snapshot().Offset
		if err := ctrl.LoadMore(ctx); err != nil {
			return fmt.Errorf("%s: %s", code, ctrl.Snapshot().Error)
		}
		// A short page that adds nothing would loop forever.
		if ctrl.Snapshot().Offset == before {
			break
		}
	}

	state := ctrl.Snapshot()
	if opts.asJSON {
		return writeJSONLines(out, state.Records)
	}
	return writeTable(out, state)
}

// resolveCountry parses s, or picks a site from the locale environment when s is empty.
func resolveCountry(s string) (country.Code, error) {
	if s != "" {
		code, err := country.Parse(s)
		if err != nil {
			return "", fmt.Errorf("%w: %q", err, s)
		}
		return code, nil
	}
	for _, env := range []string{"LC_ALL", "LANG"} {
		if v := os.Getenv(env); v != "" {
			return country.Match(localeToTag(v)), nil
		}
	}
	return country.Default, nil
}

// localeToTag turns a POSIX locale such as es_MX.UTF-8 into es-MX.
func localeToTag(locale string) string {
	for i, r := range locale {
		if r == '.' || r == '@' {
			locale = locale[:i]
			break
		}
	}
	tag := []byte(locale)
	for i, b := range tag {
		if b == '_' {
			tag[i] = '-'
		}
	}
	return string(tag)
}

func writeJSONLines(out io.Writer, records []trends.Record) error {
	enc := json.NewEncoder(out)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	return nil
}

func writeTable(out io.Writer, state pager.FetchState) error {
	if len(state.Records) == 0 {
		_, err := fmt.Fprintf(out, "No trends for %s\n", state.Country)
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tKEYWORD\tRESULTS\tAVG PRICE\tFREE SHIPPING")
	for i, r := range state.Records {
		if !r.Enriched {
			fmt.Fprintf(tw, "%d\t%s\t-\t-\t-\n", i+1, r.Keyword)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.2f %s\t%.0f%%\n",
			i+1, r.Keyword, r.TotalResults, r.AvgPrice, r.CurrencyID, r.FreeShippingRatio*100)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	_, err := fmt.Fprintf(out, "\n%d of %d trends for %s (cache %s)\n",
		len(state.Records), state.Total, state.Country, cacheLabel(state))
	return err
}

func cacheLabel(state pager.FetchState) string {
	if state.CacheStatus == "" {
		return "unknown"
	}
	if state.CacheAge > 0 {
		return fmt.Sprintf("%s, %s old", state.CacheStatus, state.CacheAge.Round(time.Second))
	}
	return state.CacheStatus
}
