package eventstore

// Entry is a Record as stored in the journal.
type Entry struct {
	ID        int64
	SessionID string
	Record
}
