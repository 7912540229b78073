// Package storage archives raw callback payloads to object storage.
package storage

import (
	"context"
	"io"
)

type PutInput struct {
	Prefix      string // e.g. ipn/<tran_id>
	Ext         string // e.g. .json
	ContentType string
}

type PutResult struct {
	Key string
	URL string
}

type Storage interface {
	Put(ctx context.Context, r io.Reader, in PutInput) (PutResult, error)
}

// Discard drops everything; used when archiving is disabled.
type Discard struct{}

func (Discard) Put(ctx context.Context, r io.Reader, in PutInput) (PutResult, error) {
	_, err := io.Copy(io.Discard, r)
	return PutResult{}, err
}

func (Discard) String() string { return "discard" }
