package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docstore/internal/model"
	"docstore/internal/repository"
)

type MockUserFilePathRepository struct {
	mock.Mock
}

var _ repository.UserFilePathRepository = (*MockUserFilePathRepository)(nil)

func (m *MockUserFilePathRepository) Register(ctx context.Context, p *model.UserFilePath) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockUserFilePathRepository) ListByUser(ctx context.Context, userID string) ([]model.UserFilePath, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserFilePath), args.Error(1)
}
