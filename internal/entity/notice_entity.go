package entity

import "time"

type NoticeKind string

const (
	NoticePersistFailed     NoticeKind = "PERSIST_FAILED"
	NoticeFallbackUsed      NoticeKind = "FALLBACK_USED"
	NoticeRemoteUnavailable NoticeKind = "REMOTE_UNAVAILABLE"
	NoticeCacheFailed       NoticeKind = "CACHE_FAILED"
)

// Notice is a dismissable, user-visible report of a transient failure.
type Notice struct {
	Id        string
	Owner     string
	Kind      NoticeKind
	Message   string
	ClientId  string
	CreatedAt time.Time
}
