package errcode

// Codes carried in the response envelope. 0 is success.
const (
	ErrUnknown = 10000000 + iota
	ErrInvalid
	ErrTooMany
	ErrInternal
	ErrStoreUnavailable
	ErrEmbeddingFailure
	ErrUpstream
)
