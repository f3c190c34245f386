// Code generated by MockGen. DO NOT EDIT.
// Source: surface.go
//
// Generated by this command:
//
//	mockgen -source=surface.go -destination=mock.go -package=alertsurface
//

// Package alertsurface is a generated GoMock package.
package alertsurface

import (
	context "context"
	reflect "reflect"

	domain "github.com/medplan/reminder-engine/internal/domain"
	gomock "go.uber.org/mock/gomock"
)

// MockAlertSurface is a mock of AlertSurface interface.
type MockAlertSurface struct {
	ctrl     *gomock.Controller
	recorder *MockAlertSurfaceMockRecorder
	isgomock struct{}
}

// MockAlertSurfaceMockRecorder is the mock recorder for MockAlertSurface.
type MockAlertSurfaceMockRecorder struct {
	mock *MockAlertSurface
}

// NewMockAlertSurface creates a new mock instance.
func NewMockAlertSurface(ctrl *gomock.Controller) *MockAlertSurface {
	mock := &MockAlertSurface{ctrl: ctrl}
	mock.recorder = &MockAlertSurfaceMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockAlertSurface) EXPECT() *MockAlertSurfaceMockRecorder {
	return m.recorder
}

// Dismiss mocks base method.
func (m *MockAlertSurface) Dismiss(ctx context.Context, dedupTag string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Dismiss", ctx, dedupTag)
	ret0, _ := ret[0].(error)
	return ret0
}

// Dismiss indicates an expected call of Dismiss.
func (mr *MockAlertSurfaceMockRecorder) Dismiss(ctx, dedupTag any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Dismiss", reflect.TypeOf((*MockAlertSurface)(nil).Dismiss), ctx, dedupTag)
}

// Display mocks base method.
func (m *MockAlertSurface) Display(ctx context.Context, reminder *domain.PendingReminder) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Display", ctx, reminder)
	ret0, _ := ret[0].(error)
	return ret0
}

// Display indicates an expected call of Display.
func (mr *MockAlertSurfaceMockRecorder) Display(ctx, reminder any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Display", reflect.TypeOf((*MockAlertSurface)(nil).Display), ctx, reminder)
}
