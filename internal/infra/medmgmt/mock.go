// Code generated by MockGen. DO NOT EDIT.
// Source: repository.go
//
// Generated by this command:
//
//	mockgen -source=repository.go -destination=mock.go -package=medmgmt
//

// Package medmgmt is a generated GoMock package.
package medmgmt

import (
	context "context"
	reflect "reflect"
	time "time"

	domain "github.com/medplan/reminder-engine/internal/domain"
	gomock "go.uber.org/mock/gomock"
)

// MockMedicationRuleRepository is a mock of MedicationRuleRepository interface.
type MockMedicationRuleRepository struct {
	ctrl     *gomock.Controller
	recorder *MockMedicationRuleRepositoryMockRecorder
	isgomock struct{}
}

// MockMedicationRuleRepositoryMockRecorder is the mock recorder for MockMedicationRuleRepository.
type MockMedicationRuleRepositoryMockRecorder struct {
	mock *MockMedicationRuleRepository
}

// NewMockMedicationRuleRepository creates a new mock instance.
func NewMockMedicationRuleRepository(ctrl *gomock.Controller) *MockMedicationRuleRepository {
	mock := &MockMedicationRuleRepository{ctrl: ctrl}
	mock.recorder = &MockMedicationRuleRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockMedicationRuleRepository) EXPECT() *MockMedicationRuleRepositoryMockRecorder {
	return m.recorder
}

// GetActiveRules mocks base method.
func (m *MockMedicationRuleRepository) GetActiveRules(ctx context.Context, date time.Time) ([]domain.MedicationRule, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetActiveRules", ctx, date)
	ret0, _ := ret[0].([]domain.MedicationRule)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetActiveRules indicates an expected call of GetActiveRules.
func (mr *MockMedicationRuleRepositoryMockRecorder) GetActiveRules(ctx, date any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetActiveRules", reflect.TypeOf((*MockMedicationRuleRepository)(nil).GetActiveRules), ctx, date)
}

// MarkDoseTaken mocks base method.
func (m *MockMedicationRuleRepository) MarkDoseTaken(ctx context.Context, ruleID string, dose, takenAt time.Time, late bool) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "MarkDoseTaken", ctx, ruleID, dose, takenAt, late)
	ret0, _ := ret[0].(error)
	return ret0
}

// MarkDoseTaken indicates an expected call of MarkDoseTaken.
func (mr *MockMedicationRuleRepositoryMockRecorder) MarkDoseTaken(ctx, ruleID, dose, takenAt, late any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MarkDoseTaken", reflect.TypeOf((*MockMedicationRuleRepository)(nil).MarkDoseTaken), ctx, ruleID, dose, takenAt, late)
}
