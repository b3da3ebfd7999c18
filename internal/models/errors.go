package models

import "errors"

var (
	// ErrEmptyContent: comment text is empty after trimming.
	ErrEmptyContent = errors.New("add some text before posting")
	// ErrUnauthenticated: no acting profile.
	ErrUnauthenticated = errors.New("please sign in first")

	ErrNotFound       = errors.New("record not found")
	ErrPostNotFound   = errors.New("post not found")
	ErrParentNotFound = errors.New("parent comment not found in this post")
)
