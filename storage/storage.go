// Package storage loads the pantry inventory and meal history artifacts
// the recommendation pipeline snapshots from. Backends return raw bytes;
// decoding lives with the snapshot builder.
package storage

import (
	"context"
	"errors"
)

type InventoryState interface {
	Load(ctx context.Context) ([]byte, error)
}

type HistoryState interface {
	Load(ctx context.Context) ([]byte, error)
}

// TestInventoryState is a simple in-memory implementation for testing
type TestInventoryState struct {
	data []byte
	err  error
}

func NewTestInventoryState(data []byte) *TestInventoryState {
	return &TestInventoryState{data: data}
}

func NewTestInventoryStateWithError() *TestInventoryState {
	return &TestInventoryState{err: errors.New("not found")}
}

func (t *TestInventoryState) Load(ctx context.Context) ([]byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.data, nil
}

// TestHistoryState is a simple in-memory implementation for testing
type TestHistoryState struct {
	data []byte
	err  error
}

func NewTestHistoryState(data []byte) *TestHistoryState {
	return &TestHistoryState{data: data}
}

func NewTestHistoryStateWithError() *TestHistoryState {
	return &TestHistoryState{err: errors.New("not found")}
}

func (t *TestHistoryState) Load(ctx context.Context) ([]byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.data, nil
}
