// Copyright 2025 Certen Protocol
//
// Package noop provides the default anchorqueue.Queue used when no external
// anchoring transport is configured: enqueue is accepted and discarded, and
// on_anchor_complete is never invoked. Grounded on the "none" branch of the
// source's dynamic fallback chain (§9's "Dynamic fallback chain" redesign
// note), generalized here into an explicit, selectable queue implementation
// rather than an implicit absence.
package noop

import "github.com/certen/poj-chain/pkg/anchorqueue"

// Queue discards every enqueued item and never calls back.
type Queue struct{}

// New returns a no-op anchor queue.
func New() *Queue { return &Queue{} }

func (Queue) Enqueue(id string, payload anchorqueue.Payload) error { return nil }

func (Queue) OnComplete(handler anchorqueue.CompletionHandler) {}
