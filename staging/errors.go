package staging

import "errors"

var (
	// ErrEmptyRoot is returned when a staging area is created without a root directory.
	ErrEmptyRoot = errors.New("staging root required")

	// ErrEmptyItemID is returned when allocating staging space without an item ID.
	ErrEmptyItemID = errors.New("item id required")

	// ErrInvalidDir is returned when clearing a directory outside the staging area.
	ErrInvalidDir = errors.New("invalid staging directory")

	// ErrPersistFailed indicates a payload could not be written atomically.
	ErrPersistFailed = errors.New("staging persist failed")

	// ErrPayloadNotFound indicates the requested stream payload was never staged.
	ErrPayloadNotFound = errors.New("staged payload not found")

	// ErrCorruptPayload indicates a staged payload could not be decoded.
	ErrCorruptPayload = errors.New("corrupt staged payload")
)
