package gateway

// Session is the durable identity that makes reconnection lossless. A
// session with both fields present is eligible for resume; an absent ID
// forces a fresh identify.
type Session struct {
	ID      string
	LastSeq *int64
}

// CanResume reports whether the session carries enough state to resume.
func (s Session) CanResume() bool {
	return s.ID != "" && s.LastSeq != nil
}

// Advance moves the sequence high-water mark forward. Stale or duplicate
// sequences are ignored; the mark never rewinds. Returns whether the stored
// value changed.
func (s *Session) Advance(seq int64) bool {
	if s.LastSeq != nil && seq < *s.LastSeq {
		return false
	}
	if s.LastSeq != nil && seq == *s.LastSeq {
		return false
	}
	v := seq
	s.LastSeq = &v
	return true
}

// Clear invalidates the session. The next connection attempt must identify
// fresh.
func (s *Session) Clear() {
	s.ID = ""
	s.LastSeq = nil
}

// Cache persists the session across process restarts. Load returns a
// Session with absent fields (not an error) when no prior state exists;
// Store must be durable before it returns.
type Cache interface {
	Load() (Session, error)
	Store(Session) error
}
