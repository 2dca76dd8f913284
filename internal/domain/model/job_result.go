package model

import (
	"encoding/json"
	"errors"
	"strings"
)

// IngestResultRequest is the payload the workflow engine posts back when a job
// finishes. The engine omits fields it has nothing for, but a payload that
// carries nothing beyond job_id is rejected. Status defaults to done.
type IngestResultRequest struct {
	JobID        string          `json:"job_id"`
	Status       *JobStatus      `json:"status,omitempty"`
	AnchorsAdded *int            `json:"anchors_added,omitempty"`
	AnchorsLog   json.RawMessage `json:"anchors_log,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	OriginalHTML *string         `json:"original_html,omitempty"`
	UpdatedHTML  *string         `json:"updated_html,omitempty"`
}

// Validate validates the IngestResultRequest fields.
func (r *IngestResultRequest) Validate() error {
	if strings.TrimSpace(r.JobID) == "" {
		return errors.New("job id is required")
	}
	if r.Status != nil && *r.Status != JobStatusDone && *r.Status != JobStatusError {
		return errors.New("status must be done or error")
	}
	if r.Status == nil && r.AnchorsAdded == nil && len(r.AnchorsLog) == 0 &&
		r.ErrorMessage == nil && r.OriginalHTML == nil && r.UpdatedHTML == nil {
		return errors.New("at least one result field is required")
	}
	return nil
}

// FinalStatus returns the terminal status the request asks for, defaulting to done.
func (r *IngestResultRequest) FinalStatus() JobStatus {
	if r.Status != nil {
		return *r.Status
	}
	return JobStatusDone
}

// HasSnapshots reports whether the request carries both HTML snapshots.
// The engine either captures the document before and after linking or not at
// all; a lone snapshot is treated as absent.
func (r *IngestResultRequest) HasSnapshots() bool {
	return r.OriginalHTML != nil && *r.OriginalHTML != "" &&
		r.UpdatedHTML != nil && *r.UpdatedHTML != ""
}
