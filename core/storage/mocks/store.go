package mocks

import (
	"context"
	"io"

	"sniffstore/core/storage"

	"github.com/stretchr/testify/mock"
)

// Store is a mock implementation of storage.Store
type Store struct {
	mock.Mock
}

func (m *Store) Put(ctx context.Context, in storage.PutInput) (storage.ObjectInfo, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

func (m *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if rc, ok := args.Get(0).(io.ReadCloser); ok {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) Stat(ctx context.Context, key string) (storage.ObjectInfo, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

func (m *Store) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *Store) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *Store) GetACL(ctx context.Context, key string) (storage.ACLInfo, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(storage.ACLInfo), args.Error(1)
}

func (m *Store) PutACL(ctx context.Context, key string, acl storage.ACL) error {
	args := m.Called(ctx, key, acl)
	return args.Error(0)
}

func (m *Store) URL(ctx context.Context, key string, opts storage.URLOptions) (string, error) {
	args := m.Called(ctx, key, opts)
	return args.String(0), args.Error(1)
}

func (m *Store) List(ctx context.Context, opts storage.ListOptions) ([]storage.ObjectInfo, error) {
	args := m.Called(ctx, opts)
	if out, ok := args.Get(0).([]storage.ObjectInfo); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Store) Bucket() string {
	args := m.Called()
	return args.String(0)
}
