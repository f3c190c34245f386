// Code generated by MockGen. DO NOT EDIT.
// Source: reminder_store.go
//
// Generated by this command:
//
//	mockgen -source=reminder_store.go -destination=reminder_store_mock.go -package=domain
//

// Package domain is a generated GoMock package.
package domain

import (
	context "context"
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"
)

// MockReminderStore is a mock of ReminderStore interface.
type MockReminderStore struct {
	ctrl     *gomock.Controller
	recorder *MockReminderStoreMockRecorder
	isgomock struct{}
}

// MockReminderStoreMockRecorder is the mock recorder for MockReminderStore.
type MockReminderStoreMockRecorder struct {
	mock *MockReminderStore
}

// NewMockReminderStore creates a new mock instance.
func NewMockReminderStore(ctrl *gomock.Controller) *MockReminderStore {
	mock := &MockReminderStore{ctrl: ctrl}
	mock.recorder = &MockReminderStoreMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockReminderStore) EXPECT() *MockReminderStoreMockRecorder {
	return m.recorder
}

// Delete mocks base method.
func (m *MockReminderStore) Delete(ctx context.Context, id string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Delete", ctx, id)
	ret0, _ := ret[0].(error)
	return ret0
}

// Delete indicates an expected call of Delete.
func (mr *MockReminderStoreMockRecorder) Delete(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Delete", reflect.TypeOf((*MockReminderStore)(nil).Delete), ctx, id)
}

// DeleteByRule mocks base method.
func (m *MockReminderStore) DeleteByRule(ctx context.Context, ruleID string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DeleteByRule", ctx, ruleID)
	ret0, _ := ret[0].(error)
	return ret0
}

// DeleteByRule indicates an expected call of DeleteByRule.
func (mr *MockReminderStoreMockRecorder) DeleteByRule(ctx, ruleID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DeleteByRule", reflect.TypeOf((*MockReminderStore)(nil).DeleteByRule), ctx, ruleID)
}

// Get mocks base method.
func (m *MockReminderStore) Get(ctx context.Context, id string) (*PendingReminder, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Get", ctx, id)
	ret0, _ := ret[0].(*PendingReminder)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Get indicates an expected call of Get.
func (mr *MockReminderStoreMockRecorder) Get(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Get", reflect.TypeOf((*MockReminderStore)(nil).Get), ctx, id)
}

// GetAll mocks base method.
func (m *MockReminderStore) GetAll(ctx context.Context) ([]*PendingReminder, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetAll", ctx)
	ret0, _ := ret[0].([]*PendingReminder)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetAll indicates an expected call of GetAll.
func (mr *MockReminderStoreMockRecorder) GetAll(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetAll", reflect.TypeOf((*MockReminderStore)(nil).GetAll), ctx)
}

// GetByRule mocks base method.
func (m *MockReminderStore) GetByRule(ctx context.Context, ruleID string) ([]*PendingReminder, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByRule", ctx, ruleID)
	ret0, _ := ret[0].([]*PendingReminder)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByRule indicates an expected call of GetByRule.
func (mr *MockReminderStoreMockRecorder) GetByRule(ctx, ruleID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByRule", reflect.TypeOf((*MockReminderStore)(nil).GetByRule), ctx, ruleID)
}

// Put mocks base method.
func (m *MockReminderStore) Put(ctx context.Context, reminder *PendingReminder) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Put", ctx, reminder)
	ret0, _ := ret[0].(error)
	return ret0
}

// Put indicates an expected call of Put.
func (mr *MockReminderStoreMockRecorder) Put(ctx, reminder any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Put", reflect.TypeOf((*MockReminderStore)(nil).Put), ctx, reminder)
}
