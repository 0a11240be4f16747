package domain

import "errors"

// ErrMissingPublishingContext is returned when a node or publish request cannot name its destination.
// It is fatal to the node execution that triggered it.
var ErrMissingPublishingContext = errors.New("missing publishing context")

// ErrSessionNotFound is returned when a conversation snapshot cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")
