// Package store is the key-value persistence used for the device identity.
//
// Only the identity is ever persisted. Sessions, peers and messages live in
// memory and are never written through a KVStore.
package store

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrInvalidName     = errors.New("invalid store key")
	ErrWrongPassphrase = errors.New("wrong passphrase or corrupted value")
)

// KVStore is a string-keyed blob store. Get reports ok=false for a missing key.
type KVStore interface {
	Get(ctx context.Context, name string) (value []byte, ok bool, err error)
	Set(ctx context.Context, name string, value []byte) error
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return ErrInvalidName
	}
	return nil
}
