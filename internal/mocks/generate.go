// Package mocks provides mock implementations for testing the linkforge job system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

// Generate mock for JobRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/linkforge/linkforge-api/internal/core JobRepository

// Generate mock for ProjectRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=project_repository_mock.go github.com/linkforge/linkforge-api/internal/core ProjectRepository

// Generate mock for UserRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=user_repository_mock.go github.com/linkforge/linkforge-api/internal/core UserRepository

// Generate mock for PlanRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=plan_repository_mock.go github.com/linkforge/linkforge-api/internal/core PlanRepository

// Generate mock for UsageRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=usage_repository_mock.go github.com/linkforge/linkforge-api/internal/core UsageRepository

// Generate mock for OrgRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=org_repository_mock.go github.com/linkforge/linkforge-api/internal/core OrgRepository
