package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeNotFound,
				Message: "job not found",
			},
			want: "job not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to process",
				Cause:   errors.New("underlying error"),
			},
			want: "failed to process: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{
		Code:    ErrCodeInternal,
		Message: "wrapped error",
		Cause:   cause,
	}

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantCode ErrorCode
		wantMsg  string
	}{
		{"NotFound", NotFound("job not found"), ErrCodeNotFound, "job not found"},
		{"NotFoundf", NotFoundf("job %s not found", "abc"), ErrCodeNotFound, "job abc not found"},
		{"Conflict", Conflict("job is not queued"), ErrCodeConflict, "job is not queued"},
		{"Conflictf", Conflictf("job %s already completed", "abc"), ErrCodeConflict, "job abc already completed"},
		{"Validation", Validation("title is required"), ErrCodeValidation, "title is required"},
		{"Validationf", Validationf("invalid status %q", "paused"), ErrCodeValidation, `invalid status "paused"`},
		{"ForeignKey", ForeignKey("project is in use"), ErrCodeForeignKey, "project is in use"},
		{"Upstream", Upstream("engine returned 500"), ErrCodeUpstream, "engine returned 500"},
		{"Upstreamf", Upstreamf("engine returned %d", 502), ErrCodeUpstream, "engine returned 502"},
		{"Signature", Signature("invalid webhook signature"), ErrCodeSignature, "invalid webhook signature"},
		{"Storage", Storage("snapshot upload failed"), ErrCodeStorage, "snapshot upload failed"},
		{"Internal", Internal("unexpected failure"), ErrCodeInternal, "unexpected failure"},
		{"Internalf", Internalf("unexpected %s", "failure"), ErrCodeInternal, "unexpected failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("%s().Code = %v, want %v", tt.name, tt.err.Code, tt.wantCode)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("%s().Message = %v, want %v", tt.name, tt.err.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("article_doc", "must be a valid URL")
	if err.Code != ErrCodeValidation {
		t.Errorf("ValidationField().Code = %v, want %v", err.Code, ErrCodeValidation)
	}
	if err.Field != "article_doc" {
		t.Errorf("ValidationField().Field = %v, want %v", err.Field, "article_doc")
	}
	if err.Message != "must be a valid URL" {
		t.Errorf("ValidationField().Message = %v, want %v", err.Message, "must be a valid URL")
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, ErrCodeUpstream, "engine dispatch failed")

	if err.Code != ErrCodeUpstream {
		t.Errorf("Wrap().Code = %v, want %v", err.Code, ErrCodeUpstream)
	}
	if !errors.Is(err, cause) {
		t.Error("Wrap() should preserve the cause chain")
	}
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapf(t *testing.T) {
	cause := errors.New("boom")
	err := Wrapf(cause, ErrCodeStorage, "uploading %s snapshot", "original")

	if err.Message != "uploading original snapshot" {
		t.Errorf("Wrapf().Message = %v", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Error("Wrapf() should preserve the cause chain")
	}
	if Wrapf(nil, ErrCodeInternal, "x") != nil {
		t.Error("Wrapf(nil) should return nil")
	}
}

func TestCodePredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"IsNotFound", NotFound("x"), IsNotFound},
		{"IsConflict", Conflict("x"), IsConflict},
		{"IsValidation", Validation("x"), IsValidation},
		{"IsForeignKey", ForeignKey("x"), IsForeignKey},
		{"IsUpstream", Upstream("x"), IsUpstream},
		{"IsSignature", Signature("x"), IsSignature},
		{"IsStorage", Storage("x"), IsStorage},
		{"IsInternal", Internal("x"), IsInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.pred(tt.err) {
				t.Errorf("%s() = false, want true", tt.name)
			}
			if tt.pred(errors.New("plain")) {
				t.Errorf("%s(plain error) = true, want false", tt.name)
			}
		})
	}
}

func TestCodePredicates_WrappedChain(t *testing.T) {
	inner := Conflict("job already completed")
	outer := fmt.Errorf("ingesting result: %w", inner)

	if !IsConflict(outer) {
		t.Error("IsConflict should see through fmt.Errorf wrapping")
	}
	if GetCode(outer) != ErrCodeConflict {
		t.Errorf("GetCode() = %v, want %v", GetCode(outer), ErrCodeConflict)
	}
}

func TestGetCode_NonAppError(t *testing.T) {
	if code := GetCode(errors.New("plain")); code != "" {
		t.Errorf("GetCode(plain) = %v, want empty", code)
	}
}

func TestGetField(t *testing.T) {
	err := ValidationField("site_url", "must be a valid URL")
	if field := GetField(err); field != "site_url" {
		t.Errorf("GetField() = %v, want site_url", field)
	}
	if field := GetField(errors.New("plain")); field != "" {
		t.Errorf("GetField(plain) = %v, want empty", field)
	}
}
