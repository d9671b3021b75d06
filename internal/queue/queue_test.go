package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
)

func TestEnqueueWithRetrySucceedsFirstTry(t *testing.T) {
	q := new(MockQueue)
	q.On("Enqueue", mock.Anything, mock.Anything).Return(nil).Once()

	err := EnqueueWithRetry(context.Background(), q, Task{Type: TaskTypeIngest}, 3, time.Millisecond)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	q.AssertExpectations(t)
}

func TestEnqueueWithRetryRetriesThenSucceeds(t *testing.T) {
	q := new(MockQueue)
	q.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("nats down")).Twice()
	q.On("Enqueue", mock.Anything, mock.Anything).Return(nil).Once()

	err := EnqueueWithRetry(context.Background(), q, Task{Type: TaskTypeIngest}, 3, time.Millisecond)
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	q.AssertExpectations(t)
}

func TestEnqueueWithRetryExhaustsAttempts(t *testing.T) {
	q := new(MockQueue)
	q.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("nats down")).Times(3)

	err := EnqueueWithRetry(context.Background(), q, Task{Type: TaskTypeIngest}, 3, time.Millisecond)
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	q.AssertExpectations(t)
}

func TestEnqueueWithRetryRespectsContext(t *testing.T) {
	q := new(MockQueue)
	q.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("nats down"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := EnqueueWithRetry(ctx, q, Task{Type: TaskTypeIngest}, 5, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
