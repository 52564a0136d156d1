// Package mocks holds testify doubles shared across package tests.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sudarma/go-commerce-bus/internal/bus"
	"github.com/sudarma/go-commerce-bus/internal/orders"
	"github.com/sudarma/go-commerce-bus/internal/outbox"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, msg bus.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) CreateOrder(ctx context.Context, o *orders.Order, evt outbox.Entry) error {
	args := m.Called(ctx, o, evt)
	return args.Error(0)
}

type MockOutboxStore struct {
	mock.Mock
}

func (m *MockOutboxStore) NextBatch(ctx context.Context, limit int) ([]outbox.Entry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]outbox.Entry), args.Error(1)
}

func (m *MockOutboxStore) MarkSent(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
