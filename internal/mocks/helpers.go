package mocks

import (
	"testing"

	"go.uber.org/mock/gomock"
)

// NewAPIForTest creates a mock loyalty API wired to the test's lifecycle.
func NewAPIForTest(t *testing.T) *MockAPI {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return NewMockAPI(ctrl)
}
