package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invoicegw/internal/invoice"
	"invoicegw/internal/model"
	"invoicegw/internal/service"
)

type MockConvertService struct {
	mock.Mock
}

func (m *MockConvertService) Validate(ctx context.Context, src *model.Upload, noNotices bool, logAppend string) (*invoice.ValidationResult, error) {
	args := m.Called(ctx, src, noNotices, logAppend)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.ValidationResult), args.Error(1)
}

func (m *MockConvertService) Extract(ctx context.Context, pdf *model.Upload) (*service.Result, error) {
	args := m.Called(ctx, pdf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Result), args.Error(1)
}

func (m *MockConvertService) A3Only(ctx context.Context, pdf *model.Upload) (*service.Result, error) {
	args := m.Called(ctx, pdf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Result), args.Error(1)
}

func (m *MockConvertService) Combine(ctx context.Context, pdf, xml *model.Upload, req invoice.CombineRequest) (*service.Result, error) {
	args := m.Called(ctx, pdf, xml, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Result), args.Error(1)
}

func (m *MockConvertService) Visualize(ctx context.Context, xml *model.Upload, format, language string) (*service.Result, error) {
	args := m.Called(ctx, xml, format, language)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Result), args.Error(1)
}

func (m *MockConvertService) Upgrade(ctx context.Context, xml *model.Upload) (*service.Result, error) {
	args := m.Called(ctx, xml)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Result), args.Error(1)
}

func (m *MockConvertService) ToUBL(ctx context.Context, xml *model.Upload) (*service.Result, error) {
	args := m.Called(ctx, xml)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Result), args.Error(1)
}

func (m *MockConvertService) RecentJobs(ctx context.Context, limit int) ([]model.Job, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Job), args.Error(1)
}
