package social

import "errors"

// Domain errors returned by the social graph operations. Callers compare
// with errors.Is and map them to user-facing messages; anything else is a
// storage failure and is surfaced as-is.
var (
	ErrUserNotFound    = errors.New("social: user not found")
	ErrSelfRequest     = errors.New("social: cannot send a friend request to yourself")
	ErrAlreadyFriends  = errors.New("social: already friends")
	ErrRequestPending  = errors.New("social: friend request already sent")
	ErrRequestNotFound = errors.New("social: friend request not found")
	ErrRequestResolved = errors.New("social: friend request already responded to")
)
