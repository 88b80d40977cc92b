// Package paginate drains cursor-paginated GraphQL connections.
//
// The page envelope is vendor specific, so callers supply two functions: one
// that builds the query for a cursor and one that extracts a Page from the
// raw "data" object. CollectAll only knows about cursors.
package paginate

import (
	"context"
	"fmt"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/graphql"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/metrics"
)

// DefaultMaxPages bounds a single CollectAll call unless WithMaxPages says otherwise.
const DefaultMaxPages = 1000

// Page is one response worth of items.
type Page[T any] struct {
	Items      []T
	NextCursor *string
	HasMore    bool
}

// BuildFunc returns the query and variables for the page after cursor.
// cursor is nil for the first page.
type BuildFunc func(cursor *string) (query string, variables map[string]any)

// ExtractFunc decodes one page from the raw GraphQL "data" object.
type ExtractFunc[T any] func(data []byte) (Page[T], error)

// PageInfo describes the progress after a page has been appended.
type PageInfo struct {
	Number    int
	Collected int
	Cursor    string
	HasMore   bool
}

// ProtocolError is returned when the server breaks the cursor contract.
type ProtocolError struct {
	Page   int
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("paginate: page %d: %s", e.Page, e.Reason)
}

type options struct {
	maxPages   int
	collection string
	hook       func(PageInfo)
	metrics    *metrics.Recorder
}

// Option customises CollectAll.
type Option func(*options)

// WithMaxPages stops with a ProtocolError after n pages. Non-positive values
// keep the default.
func WithMaxPages(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPages = n
		}
	}
}

// WithPageHook calls fn after each page is appended.
func WithPageHook(fn func(PageInfo)) Option {
	return func(o *options) { o.hook = fn }
}

// WithMetrics counts fetched pages under the given collection label.
func WithMetrics(m *metrics.Recorder, collection string) Option {
	return func(o *options) {
		o.metrics = m
		o.collection = collection
	}
}

// CollectAll requests pages until the server reports no more, returning every
// item in arrival order. A page that claims more results without a cursor, a
// cursor that was already used, or more than the allowed number of pages is a
// *ProtocolError. Transport errors are returned unchanged (wrapped).
func CollectAll[T any](ctx context.Context, client graphql.Client, build BuildFunc, extract ExtractFunc[T], opts ...Option) ([]T, error) {
	o := options{maxPages: DefaultMaxPages}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		items  = []T{}
		cursor *string
		seen   = map[string]struct{}{}
	)

	for page := 1; ; page++ {
		if page > o.maxPages {
			return nil, &ProtocolError{Page: page, Reason: fmt.Sprintf("exceeded maximum of %d pages", o.maxPages)}
		}

		query, vars := build(cursor)
		data, err := client.Execute(ctx, query, vars)
		if err != nil {
			return nil, fmt.Errorf("paginate: page %d: %w", page, err)
		}
		o.metrics.ObservePage(o.collection)

		p, err := extract(data)
		if err != nil {
			return nil, fmt.Errorf("paginate: page %d: extract: %w", page, err)
		}
		items = append(items, p.Items...)

		info := PageInfo{Number: page, Collected: len(items), HasMore: p.HasMore}
		if p.NextCursor != nil {
			info.Cursor = *p.NextCursor
		}
		if o.hook != nil {
			o.hook(info)
		}

		if !p.HasMore {
			return items, nil
		}
		if p.NextCursor == nil || *p.NextCursor == "" {
			return nil, &ProtocolError{Page: page, Reason: "server reported more pages without a cursor"}
		}
		if _, dup := seen[*p.NextCursor]; dup {
			return nil, &ProtocolError{Page: page, Reason: fmt.Sprintf("cursor %q was already visited", *p.NextCursor)}
		}
		seen[*p.NextCursor] = struct{}{}

		next := *p.NextCursor
		cursor = &next
	}
}
