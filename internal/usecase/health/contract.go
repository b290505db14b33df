package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// SchemaVerifier checks that the collection indexes exist.
type SchemaVerifier interface {
	Verify(ctx context.Context) error
}
