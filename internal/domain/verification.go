package domain

import (
	"fmt"
	"strings"
	"time"
)

// VerificationStatus is the KYC state of an artist.
type VerificationStatus string

const (
	StatusNotSubmitted VerificationStatus = "not_submitted"
	StatusPending      VerificationStatus = "pending"
	StatusApproved     VerificationStatus = "approved"
	StatusRejected     VerificationStatus = "rejected"
)

// Statuses lists every status in lifecycle order.
var Statuses = []VerificationStatus{StatusNotSubmitted, StatusPending, StatusApproved, StatusRejected}

func (s VerificationStatus) Valid() bool {
	switch s {
	case StatusNotSubmitted, StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ParseVerificationStatus accepts the wire form of a status.
func ParseVerificationStatus(s string) (VerificationStatus, error) {
	st := VerificationStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown verification status %q: %w", s, ErrBadRequest)
	}
	return st, nil
}

// VerificationEvent is an input to the status machine.
type VerificationEvent string

const (
	EventSubmit  VerificationEvent = "submit"
	EventApprove VerificationEvent = "approve"
	EventReject  VerificationEvent = "reject"
)

// VerificationRecord is one user's KYC state.
// PK: user_id. Version increases by one on every accepted transition.
type VerificationRecord struct {
	UserID              string             `json:"user_id" dynamodbav:"user_id"`
	Status              VerificationStatus `json:"status" dynamodbav:"status"`
	IdentityDocumentRef string             `json:"identity_document_ref,omitempty" dynamodbav:"identity_document_ref,omitempty"`
	FaceVerificationRef string             `json:"face_verification_ref,omitempty" dynamodbav:"face_verification_ref,omitempty"`
	SubmittedAt         *time.Time         `json:"submitted_at,omitempty" dynamodbav:"submitted_at,omitempty"`
	ReviewedAt          *time.Time         `json:"reviewed_at,omitempty" dynamodbav:"reviewed_at,omitempty"`
	ReviewedBy          string             `json:"reviewed_by,omitempty" dynamodbav:"reviewed_by,omitempty"`
	RejectionReason     string             `json:"rejection_reason,omitempty" dynamodbav:"rejection_reason,omitempty"`
	Version             int64              `json:"version" dynamodbav:"version"`
	UpdatedAt           *time.Time         `json:"updated_at,omitempty" dynamodbav:"updated_at,omitempty"`
}

// NotSubmittedRecord is the implicit record of a user who never submitted.
func NotSubmittedRecord(userID string) VerificationRecord {
	return VerificationRecord{UserID: userID, Status: StatusNotSubmitted}
}

// Clone returns a copy that shares no pointers with r.
func (r VerificationRecord) Clone() VerificationRecord {
	r.SubmittedAt = cloneTime(r.SubmittedAt)
	r.ReviewedAt = cloneTime(r.ReviewedAt)
	r.UpdatedAt = cloneTime(r.UpdatedAt)
	return r
}

// CheckInvariants reports the first record invariant r violates.
func (r VerificationRecord) CheckInvariants() error {
	if !r.Status.Valid() {
		return fmt.Errorf("record %s: unknown status %q", r.UserID, r.Status)
	}
	if r.Status == StatusNotSubmitted {
		return nil
	}
	if r.IdentityDocumentRef == "" || r.FaceVerificationRef == "" {
		return fmt.Errorf("record %s: %s without document refs", r.UserID, r.Status)
	}
	if r.SubmittedAt == nil {
		return fmt.Errorf("record %s: %s without submitted_at", r.UserID, r.Status)
	}
	switch r.Status {
	case StatusPending:
		if r.ReviewedAt != nil || r.ReviewedBy != "" || r.RejectionReason != "" {
			return fmt.Errorf("record %s: pending with review fields", r.UserID)
		}
	case StatusApproved:
		if r.ReviewedAt == nil || r.ReviewedBy == "" {
			return fmt.Errorf("record %s: approved without reviewer", r.UserID)
		}
	case StatusRejected:
		if r.ReviewedAt == nil || r.ReviewedBy == "" || r.RejectionReason == "" {
			return fmt.Errorf("record %s: rejected without reviewer or reason", r.UserID)
		}
	}
	return nil
}

// TransitionInput carries the event and its arguments.
type TransitionInput struct {
	Event       VerificationEvent
	IdentityRef string
	FaceRef     string
	ReviewerID  string
	Reason      string
}

// Transition computes the record that results from applying in to r at now.
// It never modifies r. Input errors (ErrMissingDocument, ErrEmptyReason) are
// reported before state errors (ErrInvalidTransition).
//
//	not_submitted --submit--> pending
//	rejected      --submit--> pending
//	pending       --approve-> approved
//	pending       --reject--> rejected
func Transition(r VerificationRecord, in TransitionInput, now time.Time) (VerificationRecord, error) {
	switch in.Event {
	case EventSubmit:
		if strings.TrimSpace(in.IdentityRef) == "" || strings.TrimSpace(in.FaceRef) == "" {
			return r, ErrMissingDocument
		}
		switch r.Status {
		case StatusNotSubmitted, StatusRejected:
			next := r.Clone()
			next.Status = StatusPending
			next.IdentityDocumentRef = in.IdentityRef
			next.FaceVerificationRef = in.FaceRef
			next.SubmittedAt = timePtr(now)
			next.ReviewedAt = nil
			next.ReviewedBy = ""
			next.RejectionReason = ""
			return stamp(next, now), nil
		case StatusPending, StatusApproved:
			return r, illegal(r.Status, in.Event)
		}

	case EventApprove:
		switch r.Status {
		case StatusPending:
			next := r.Clone()
			next.Status = StatusApproved
			next.ReviewedAt = timePtr(now)
			next.ReviewedBy = in.ReviewerID
			return stamp(next, now), nil
		case StatusNotSubmitted, StatusApproved, StatusRejected:
			return r, illegal(r.Status, in.Event)
		}

	case EventReject:
		reason := strings.TrimSpace(in.Reason)
		if reason == "" {
			return r, ErrEmptyReason
		}
		switch r.Status {
		case StatusPending:
			next := r.Clone()
			next.Status = StatusRejected
			next.ReviewedAt = timePtr(now)
			next.ReviewedBy = in.ReviewerID
			next.RejectionReason = reason
			return stamp(next, now), nil
		case StatusNotSubmitted, StatusApproved, StatusRejected:
			return r, illegal(r.Status, in.Event)
		}

	default:
		return r, fmt.Errorf("unknown event %q: %w", in.Event, ErrInvalidTransition)
	}
	return r, illegal(r.Status, in.Event)
}

func stamp(r VerificationRecord, now time.Time) VerificationRecord {
	r.Version++
	r.UpdatedAt = timePtr(now)
	return r
}

func illegal(from VerificationStatus, ev VerificationEvent) error {
	return fmt.Errorf("cannot %s a %s record: %w", ev, from, ErrInvalidTransition)
}

func timePtr(t time.Time) *time.Time { return &t }

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// SubmitRefsRequest submits documents that were uploaded out of band.
// Empty refs are reported by the ledger as a missing document.
type SubmitRefsRequest struct {
	IdentityDocumentRef string `json:"identity_document_ref"`
	FaceVerificationRef string `json:"face_verification_ref"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}
