// file: store/mock_store.go
package store

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// ensure MockStore implements RemoteStore
var _ RemoteStore = (*MockStore)(nil)

// MockStore is a testify mock of RemoteStore.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListDocuments(ctx context.Context, collection string) ([]DocRef, error) {
	args := m.Called(ctx, collection)
	refs, _ := args.Get(0).([]DocRef)
	return refs, args.Error(1)
}

func (m *MockStore) GetDocs(ctx context.Context, q Query) ([]Document, error) {
	args := m.Called(ctx, q)
	docs, _ := args.Get(0).([]Document)
	return docs, args.Error(1)
}

func (m *MockStore) AddDoc(ctx context.Context, collection string, data Data) (DocRef, error) {
	args := m.Called(ctx, collection, data)
	return args.Get(0).(DocRef), args.Error(1)
}

func (m *MockStore) UpdateDoc(ctx context.Context, collection, id string, data Data) error {
	args := m.Called(ctx, collection, id, data)
	return args.Error(0)
}

func (m *MockStore) DeleteDoc(ctx context.Context, collection, id string) error {
	args := m.Called(ctx, collection, id)
	return args.Error(0)
}

func (m *MockStore) OnSnapshot(ctx context.Context, q Query, fn func(Snapshot)) (Unsubscribe, error) {
	args := m.Called(ctx, q, fn)
	unsub, _ := args.Get(0).(Unsubscribe)
	return unsub, args.Error(1)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
