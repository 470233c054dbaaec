package services

import (
	"errors"

	"github.com/adpilot/backend/internal/apperr"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Mirrored resources
const (
	ResourceCampaign = "campaign"
	ResourceAdSet    = "ad_set"
	ResourceCreative = "ad_creative"
	ResourceAd       = "ad"
)

type MirrorStatus string

const (
	MirrorSucceeded MirrorStatus = "succeeded"
	MirrorFailed    MirrorStatus = "failed"
	MirrorSkipped   MirrorStatus = "skipped"
)

type MirrorAttempt struct {
	Resource   string       `json:"resource"`
	LocalID    uuid.UUID    `json:"local_id"`
	Status     MirrorStatus `json:"status"`
	ExternalID string       `json:"external_id,omitempty"`
	Error      string       `json:"error,omitempty"`
	err        error
}

// MirrorReport lists what happened on the ad platform for each local row an
// operation touched. Local state is already committed when it is returned.
type MirrorReport struct {
	Attempts []MirrorAttempt `json:"attempts"`
}

func (r *MirrorReport) succeeded(resource string, id uuid.UUID, externalID string) {
	r.Attempts = append(r.Attempts, MirrorAttempt{Resource: resource, LocalID: id, Status: MirrorSucceeded, ExternalID: externalID})
}

func (r *MirrorReport) failed(resource string, id uuid.UUID, err error) {
	r.Attempts = append(r.Attempts, MirrorAttempt{Resource: resource, LocalID: id, Status: MirrorFailed, Error: err.Error(), err: err})
}

func (r *MirrorReport) skipped(resource string, id uuid.UUID, reason string) {
	r.Attempts = append(r.Attempts, MirrorAttempt{Resource: resource, LocalID: id, Status: MirrorSkipped, Error: reason, err: errors.New(reason)})
}

// Failures returns one error per attempt that did not succeed, skipped ones included.
func (r MirrorReport) Failures() []*apperr.PlatformMirrorError {
	var out []*apperr.PlatformMirrorError
	for _, a := range r.Attempts {
		if a.Status == MirrorSucceeded {
			continue
		}
		err := a.err
		if err == nil {
			err = errors.New(a.Error)
		}
		out = append(out, &apperr.PlatformMirrorError{
			Resource: a.Resource,
			LocalID:  a.LocalID.String(),
			Skipped:  a.Status == MirrorSkipped,
			Err:      err,
		})
	}
	return out
}

func (r MirrorReport) Err() error {
	var err error
	for _, f := range r.Failures() {
		err = multierr.Append(err, f)
	}
	return err
}

func (r MirrorReport) OK() bool {
	for _, a := range r.Attempts {
		if a.Status != MirrorSucceeded {
			return false
		}
	}
	return true
}
