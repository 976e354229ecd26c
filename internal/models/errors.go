package models

// ErrorCode is the machine-readable code carried by error events
type ErrorCode string

const (
	ErrCodeInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrCodeInvalidToken    ErrorCode = "INVALID_TOKEN"
	ErrCodeJoinFailed      ErrorCode = "JOIN_FAILED"
	ErrCodeNoRoom          ErrorCode = "NO_ROOM"
	ErrCodePresenterExists ErrorCode = "PRESENTER_EXISTS"
	ErrCodeInvalidOffer    ErrorCode = "INVALID_OFFER"
	ErrCodeInvalidAnswer   ErrorCode = "INVALID_ANSWER"
	ErrCodeInvalidICE      ErrorCode = "INVALID_ICE"
	ErrCodeUnknownEvent    ErrorCode = "UNKNOWN_EVENT"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)
