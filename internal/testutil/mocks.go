package testutil

import (
	"context"

	"github.com/Freeeeeet/dorm_bot/internal/model"
	"github.com/stretchr/testify/mock"
)

// MockJoinRequestRepository is a mock for the join request repository
type MockJoinRequestRepository struct {
	mock.Mock
}

func (m *MockJoinRequestRepository) CreateOrReplaceRequest(ctx context.Context, userID, groupID int64, greetingMsgID int, lang string) (*model.JoinRequest, error) {
	args := m.Called(ctx, userID, groupID, greetingMsgID, lang)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.JoinRequest), args.Error(1)
}

func (m *MockJoinRequestRepository) PopUnprocessedRequestsOlderThan(ctx context.Context, hours int) ([]*model.JoinRequest, error) {
	args := m.Called(ctx, hours)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.JoinRequest), args.Error(1)
}

func (m *MockJoinRequestRepository) MarkRequestProcessed(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockJoinRequestRepository) GetByUserID(ctx context.Context, userID int64) (*model.JoinRequest, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.JoinRequest), args.Error(1)
}

// MockResidentRepository is a mock for the resident repository
type MockResidentRepository struct {
	mock.Mock
}

func (m *MockResidentRepository) AddResident(ctx context.Context, res *model.Resident) (int64, error) {
	args := m.Called(ctx, res)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockResidentRepository) GetResidentByID(ctx context.Context, id int64) (*model.Resident, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Resident), args.Error(1)
}

func (m *MockResidentRepository) GetLatestByUserID(ctx context.Context, userID int64) (*model.Resident, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Resident), args.Error(1)
}

func (m *MockResidentRepository) UpdateResidentFields(ctx context.Context, id int64, fields model.ResidentFields) (*model.Resident, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Resident), args.Error(1)
}

func (m *MockResidentRepository) DeleteResidentsByUserID(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}
