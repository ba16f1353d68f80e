package health

import "context"

// DBPinger checks primary store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// SearchEngine reports whether the search engine answers its ping.
type SearchEngine interface {
	Healthy(ctx context.Context) bool
}

// IndexQueue reports queued index operations.
type IndexQueue interface {
	Pending() int
}
