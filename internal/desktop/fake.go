package desktop

import "sync"

// Notification is one recorded Notify call.
type Notification struct {
	Title   string
	Message string
}

// RecordingNotifier stores notifications for assertions.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *RecordingNotifier) Notify(title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Notification{Title: title, Message: message})
}

// Sent returns a copy of every notification.
func (r *RecordingNotifier) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

// RecordingEditor stores opened tag ids and returns Err from Open.
type RecordingEditor struct {
	mu     sync.Mutex
	Err    error
	opened []string
}

func (r *RecordingEditor) Open(tagID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, tagID)
	return r.Err
}

// Opened returns the tag ids passed to Open.
func (r *RecordingEditor) Opened() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.opened...)
}
