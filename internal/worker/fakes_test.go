package worker

import (
	"context"
	"sync"

	"github.com/golang-sql/civil"
	"github.com/jmehdipour/reminder-dispatch/internal/model"
	"github.com/jmehdipour/reminder-dispatch/internal/push"
)

type updateCall struct {
	RecipientID string
	EventIDs    []string
	Date        civil.Date
}

type storeMock struct {
	UpdateFunc func(ctx context.Context, recipientID string, eventIDs []string, date civil.Date) error

	mu    sync.Mutex
	calls []updateCall
	trace *trace
}

func (m *storeMock) UpdateLastNotified(ctx context.Context, recipientID string, eventIDs []string, date civil.Date) error {
	m.mu.Lock()
	m.calls = append(m.calls, updateCall{recipientID, eventIDs, date})
	m.mu.Unlock()
	m.trace.add(recipientID, "store")
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, recipientID, eventIDs, date)
	}
	return nil
}

func (m *storeMock) Calls() []updateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]updateCall(nil), m.calls...)
}

type transportMock struct {
	SendFunc func(ctx context.Context, msg push.Message) (push.BatchResult, error)

	mu    sync.Mutex
	calls []push.Message
	trace *trace
}

func (m *transportMock) SendMulticast(ctx context.Context, msg push.Message) (push.BatchResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, msg)
	m.mu.Unlock()
	if len(msg.Tokens) > 0 {
		m.trace.add(msg.Tokens[0], "send")
	}
	return m.SendFunc(ctx, msg)
}

func (m *transportMock) Calls() []push.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]push.Message(nil), m.calls...)
}

type auditMock struct {
	SuccessErr error
	FailureErr error

	mu       sync.Mutex
	success  []model.AuditRecord
	failures []model.FailureRecord
	trace    *trace
}

func (m *auditMock) RecordSuccess(_ context.Context, rec model.AuditRecord) error {
	m.mu.Lock()
	m.success = append(m.success, rec)
	m.mu.Unlock()
	m.trace.add(rec.RecipientID, "audit")
	return m.SuccessErr
}

func (m *auditMock) RecordFailure(_ context.Context, rec model.FailureRecord) error {
	m.mu.Lock()
	m.failures = append(m.failures, rec)
	m.mu.Unlock()
	m.trace.add(rec.RecipientID, "failure")
	return m.FailureErr
}

func (m *auditMock) Successes() []model.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AuditRecord(nil), m.success...)
}

func (m *auditMock) Failures() []model.FailureRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.FailureRecord(nil), m.failures...)
}

// trace records the order of side effects per key. Nil-safe.
type trace struct {
	mu     sync.Mutex
	events map[string][]string
}

func newTrace() *trace { return &trace{events: map[string][]string{}} }

func (t *trace) add(key, what string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.events[key] = append(t.events[key], what)
	t.mu.Unlock()
}

func (t *trace) get(key string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events[key]...)
}
