package service

import (
	"context"
	"github.com/shimmeringbee/cda/model"
	"github.com/stretchr/testify/mock"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) DeviceID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockGateway) IsOnline() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockGateway) GetStatus(ctx context.Context) (bool, model.DeviceStatus) {
	args := m.Called(ctx)
	return args.Bool(0), args.Get(1).(model.DeviceStatus)
}

func (m *MockGateway) SendCommands(ctx context.Context, c []model.Command) bool {
	args := m.Called(ctx, c)
	return args.Bool(0)
}

type MockPoller struct {
	mock.Mock
}

func (m *MockPoller) Add(s Service, p Poll) {
	m.Called(s, p)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Update(ctx context.Context, s Service, c string, v any) {
	m.Called(ctx, s, c, v)
}
