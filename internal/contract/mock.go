package contract

import (
	"context"
	"time"

	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/schema"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/mock"
)

// MockCatalog is a mock implementation of Catalog for testing.
type MockCatalog struct {
	mock.Mock
}

var _ Catalog = &MockCatalog{} // Compile-time check

// Datasets implements the Catalog interface.
func (m *MockCatalog) Datasets(ctx context.Context) ([]schema.DatasetInfo, error) {
	args := m.Called(ctx)
	infos, _ := args.Get(0).([]schema.DatasetInfo)
	return infos, args.Error(1)
}

// Describe implements the Catalog interface.
func (m *MockCatalog) Describe(ctx context.Context, dataset string) (schema.DatasetInfo, error) {
	args := m.Called(ctx, dataset)
	return args.Get(0).(schema.DatasetInfo), args.Error(1)
}

// Grid implements the Catalog interface.
func (m *MockCatalog) Grid(ctx context.Context, dataset string, bound orb.Bound) (raster.Grid, error) {
	args := m.Called(ctx, dataset, bound)
	return args.Get(0).(raster.Grid), args.Error(1)
}

// Query implements the Catalog interface.
func (m *MockCatalog) Query(ctx context.Context, q CatalogQuery) ([]*raster.Slice, error) {
	args := m.Called(ctx, q)
	slices, _ := args.Get(0).([]*raster.Slice)
	return slices, args.Error(1)
}

// MockExportService is a mock implementation of ExportService for testing.
type MockExportService struct {
	mock.Mock
}

var _ ExportService = &MockExportService{} // Compile-time check

// Submit implements the ExportService interface.
func (m *MockExportService) Submit(ctx context.Context, job ExportJob) (schema.JobHandle, error) {
	args := m.Called(ctx, job)
	return args.Get(0).(schema.JobHandle), args.Error(1)
}

// Status implements the ExportService interface.
func (m *MockExportService) Status(ctx context.Context, id string) (schema.JobHandle, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(schema.JobHandle), args.Error(1)
}

// Wait implements the ExportService interface.
func (m *MockExportService) Wait(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockJobStore is a mock implementation of JobStore for testing.
type MockJobStore struct {
	mock.Mock
}

var _ JobStore = &MockJobStore{} // Compile-time check

// BeginRun implements the JobStore interface.
func (m *MockJobStore) BeginRun(recipe string, startTime time.Time, params map[string]any) (int64, error) {
	args := m.Called(recipe, startTime, params)
	return args.Get(0).(int64), args.Error(1)
}

// EndRun implements the JobStore interface.
func (m *MockJobStore) EndRun(runID int64, endTime time.Time, totalJobs int) error {
	args := m.Called(runID, endTime, totalJobs)
	return args.Error(0)
}

// RecordJob implements the JobStore interface.
func (m *MockJobStore) RecordJob(runID int64, handle schema.JobHandle) error {
	args := m.Called(runID, handle)
	return args.Error(0)
}

// UpdateJob implements the JobStore interface.
func (m *MockJobStore) UpdateJob(jobID string, status schema.JobStatus, errMsg, path string) error {
	args := m.Called(jobID, status, errMsg, path)
	return args.Error(0)
}

// GetStatus implements the JobStore interface.
func (m *MockJobStore) GetStatus() (schema.JobStoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.JobStoreStatus), args.Error(1)
}

// GetAllRuns implements the JobStore interface.
func (m *MockJobStore) GetAllRuns() ([]schema.RunRecord, error) {
	args := m.Called()
	runs, _ := args.Get(0).([]schema.RunRecord)
	return runs, args.Error(1)
}

// GetAllJobs implements the JobStore interface.
func (m *MockJobStore) GetAllJobs() ([]schema.JobRecord, error) {
	args := m.Called()
	jobs, _ := args.Get(0).([]schema.JobRecord)
	return jobs, args.Error(1)
}

// Close implements the JobStore interface.
func (m *MockJobStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockRenderer is a mock implementation of Renderer for testing.
type MockRenderer struct {
	mock.Mock
}

var _ Renderer = &MockRenderer{} // Compile-time check

// RenderLayer implements the Renderer interface.
func (m *MockRenderer) RenderLayer(ctx context.Context, s *raster.Slice, style schema.PreviewSpec, name string) (string, error) {
	args := m.Called(ctx, s, style, name)
	return args.String(0), args.Error(1)
}

// RenderChart implements the Renderer interface.
func (m *MockRenderer) RenderChart(ctx context.Context, result schema.SeriesResult, style schema.PreviewSpec, name string) (string, error) {
	args := m.Called(ctx, result, style, name)
	return args.String(0), args.Error(1)
}
