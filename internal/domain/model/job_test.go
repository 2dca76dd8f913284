package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_Valid(t *testing.T) {
	assert.True(t, JobStatusQueued.Valid())
	assert.True(t, JobStatusProcessing.Valid())
	assert.True(t, JobStatusDone.Valid())
	assert.True(t, JobStatusError.Valid())
	assert.False(t, JobStatus("paused").Valid())
	assert.False(t, JobStatus("").Valid())
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.False(t, JobStatusQueued.Terminal())
	assert.False(t, JobStatusProcessing.Terminal())
	assert.True(t, JobStatusDone.Terminal())
	assert.True(t, JobStatusError.Terminal())
}

func TestJobStatus_UnmarshalText(t *testing.T) {
	var js JobStatus
	err := js.UnmarshalText([]byte(" Processing "))
	require.NoError(t, err)
	assert.Equal(t, JobStatusProcessing, js)

	err = js.UnmarshalText([]byte("bogus"))
	assert.Error(t, err)
}

func TestCreateJobRequest_Validate(t *testing.T) {
	tests := []struct {
		name        string
		req         CreateJobRequest
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid request",
			req: CreateJobRequest{
				ProjectID:  "550e8400-e29b-41d4-a716-446655440000",
				Title:      "How to brew pour-over coffee",
				ArticleDoc: "https://docs.google.com/document/d/abc",
			},
			expectError: false,
		},
		{
			name: "missing project id",
			req: CreateJobRequest{
				Title:      "A title",
				ArticleDoc: "https://docs.google.com/document/d/abc",
			},
			expectError: true,
			errorMsg:    "project id is required",
		},
		{
			name: "blank title",
			req: CreateJobRequest{
				ProjectID:  "550e8400-e29b-41d4-a716-446655440000",
				Title:      "   ",
				ArticleDoc: "https://docs.google.com/document/d/abc",
			},
			expectError: true,
			errorMsg:    "title is required",
		},
		{
			name: "title too long",
			req: CreateJobRequest{
				ProjectID:  "550e8400-e29b-41d4-a716-446655440000",
				Title:      string(make([]byte, 201)),
				ArticleDoc: "https://docs.google.com/document/d/abc",
			},
			expectError: true,
			errorMsg:    "title must be at most 200 characters",
		},
		{
			name: "article doc not a URL",
			req: CreateJobRequest{
				ProjectID:  "550e8400-e29b-41d4-a716-446655440000",
				Title:      "A title",
				ArticleDoc: "not-a-url",
			},
			expectError: true,
			errorMsg:    "article doc must be a valid URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStatusOverrideRequest_Validate(t *testing.T) {
	req := &StatusOverrideRequest{Status: JobStatusError}
	assert.NoError(t, req.Validate())

	req = &StatusOverrideRequest{Status: JobStatus("stuck")}
	assert.Error(t, req.Validate())
}
