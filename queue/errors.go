package queue

import "errors"

// ErrQueueFull is returned by Submit when the target class's waiting
// queue is already at MaxQueuedPackages and no active slot is free,
// spec.md §4.7 / §7's QueueFull.
var ErrQueueFull = errors.New("queue: full")

// ErrStopped is returned by Submit once Stop has been called; no further
// admission is accepted.
var ErrStopped = errors.New("queue: stopped")

// ErrAlreadyActive is returned by Submit for a package id already tracked
// as active or waiting.
var ErrAlreadyActive = errors.New("queue: package already scheduled")
