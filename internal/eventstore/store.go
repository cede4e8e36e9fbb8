package eventstore

import "context"

// Store persists journaled records.
type Store interface {
	// Append journals r for sessionID. A zero r.At is stamped by the store.
	Append(ctx context.Context, sessionID string, r Record) error

	// All returns every entry in journal order.
	All(ctx context.Context) ([]Entry, error)

	// Recent returns up to limit entries for tagID, newest first.
	Recent(ctx context.Context, tagID string, limit int) ([]Entry, error)

	// Close closes the store and releases resources.
	Close() error
}
