package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func recordIn(status VerificationStatus) VerificationRecord {
	r := NotSubmittedRecord("u1")
	if status == StatusNotSubmitted {
		return r
	}
	sub := t0.Add(-2 * time.Hour)
	r.Status = status
	r.IdentityDocumentRef = "id-doc-0"
	r.FaceVerificationRef = "face-0"
	r.SubmittedAt = &sub
	r.Version = 1
	switch status {
	case StatusApproved:
		rev := t0.Add(-time.Hour)
		r.ReviewedAt, r.ReviewedBy, r.Version = &rev, "a0", 2
	case StatusRejected:
		rev := t0.Add(-time.Hour)
		r.ReviewedAt, r.ReviewedBy, r.RejectionReason, r.Version = &rev, "a0", "blurry", 2
	}
	return r
}

func inputFor(ev VerificationEvent) TransitionInput {
	return TransitionInput{Event: ev, IdentityRef: "id-doc-1", FaceRef: "face-1", ReviewerID: "a1", Reason: "blurry photo"}
}

func TestTransition_Grid(t *testing.T) {
	allowed := map[VerificationStatus]map[VerificationEvent]VerificationStatus{
		StatusNotSubmitted: {EventSubmit: StatusPending},
		StatusRejected:     {EventSubmit: StatusPending},
		StatusPending:      {EventApprove: StatusApproved, EventReject: StatusRejected},
	}
	for _, from := range Statuses {
		for _, ev := range []VerificationEvent{EventSubmit, EventApprove, EventReject} {
			t.Run(string(from)+"/"+string(ev), func(t *testing.T) {
				before := recordIn(from)
				next, err := Transition(before, inputFor(ev), t0)
				to, ok := allowed[from][ev]
				if !ok {
					require.Error(t, err)
					assert.True(t, errors.Is(err, ErrInvalidTransition))
					assert.Equal(t, before, next)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, to, next.Status)
				assert.Equal(t, before.Version+1, next.Version)
				assert.NoError(t, next.CheckInvariants())
			})
		}
	}
}

func TestTransition_SubmitMissingDocument(t *testing.T) {
	for _, in := range []TransitionInput{
		{Event: EventSubmit, IdentityRef: "", FaceRef: "face-1"},
		{Event: EventSubmit, IdentityRef: "id-doc-1", FaceRef: "  "},
	} {
		_, err := Transition(NotSubmittedRecord("u1"), in, t0)
		assert.ErrorIs(t, err, ErrMissingDocument)
		assert.ErrorIs(t, err, ErrBadRequest)
	}
}

func TestTransition_MissingDocumentReportedBeforeState(t *testing.T) {
	_, err := Transition(recordIn(StatusApproved), TransitionInput{Event: EventSubmit}, t0)
	assert.ErrorIs(t, err, ErrMissingDocument)
}

func TestTransition_RejectTrimsReason(t *testing.T) {
	in := inputFor(EventReject)
	in.Reason = "  blurry photo \n"
	next, err := Transition(recordIn(StatusPending), in, t0)
	require.NoError(t, err)
	assert.Equal(t, "blurry photo", next.RejectionReason)
}

func TestTransition_RejectEmptyReason(t *testing.T) {
	in := inputFor(EventReject)
	in.Reason = " \t "
	before := recordIn(StatusPending)
	next, err := Transition(before, in, t0)
	assert.ErrorIs(t, err, ErrEmptyReason)
	assert.Equal(t, before, next)
}

func TestTransition_ResubmitClearsReview(t *testing.T) {
	in := inputFor(EventSubmit)
	in.IdentityRef, in.FaceRef = "id-doc-2", "face-2"
	next, err := Transition(recordIn(StatusRejected), in, t0)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, next.Status)
	assert.Nil(t, next.ReviewedAt)
	assert.Empty(t, next.ReviewedBy)
	assert.Empty(t, next.RejectionReason)
	assert.Equal(t, "id-doc-2", next.IdentityDocumentRef)
	require.NotNil(t, next.SubmittedAt)
	assert.True(t, next.SubmittedAt.Equal(t0))
}

func TestTransition_DoesNotAliasInput(t *testing.T) {
	before := recordIn(StatusPending)
	next, err := Transition(before, inputFor(EventApprove), t0)
	require.NoError(t, err)
	*next.SubmittedAt = time.Time{}
	assert.False(t, before.SubmittedAt.IsZero())
}

func TestTransition_UnknownEvent(t *testing.T) {
	_, err := Transition(recordIn(StatusPending), TransitionInput{Event: "escalate"}, t0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestParseVerificationStatus(t *testing.T) {
	st, err := ParseVerificationStatus(" Pending ")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, st)

	_, err = ParseVerificationStatus("archived")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestErrorCode(t *testing.T) {
	wrapped := errors.Join(errors.New("ctx"), ErrEmptyReason)
	assert.Equal(t, "empty_reason", ErrorCode(wrapped))
	assert.Equal(t, "", ErrorCode(ErrNotFound))
	assert.True(t, errors.Is(ErrNotAnArtist, ErrForbidden))
	assert.True(t, errors.Is(ErrRecordNotFound, ErrNotFound))
	assert.False(t, errors.Is(ErrRecordNotFound, ErrUserNotFound))
}

func TestVerificationRecord_JSONMatchesStoredNames(t *testing.T) {
	rec, err := Transition(NotSubmittedRecord("u1"), inputFor(EventSubmit), t0)
	require.NoError(t, err)
	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Contains(t, fields, "updated_at")
	assert.Contains(t, fields, "submitted_at")
	assert.NotContains(t, fields, "updated")
}
