// Package ledger owns every user's verification record and is the only place
// records change state.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/kyc-ledger/internal/domain"
)

// UserDirectory answers who a user is. A user that does not exist is reported
// either as UserRef{Exists: false} or as an error wrapping domain.ErrNotFound.
type UserDirectory interface {
	ResolveUser(ctx context.Context, userID string) (domain.UserRef, error)
}

// RecordStore persists committed records. Put must fail with an error wrapping
// domain.ErrConflict when the stored version differs from expectedVersion
// (0 means the record must not exist yet). Get reports a missing record with
// an error wrapping domain.ErrNotFound.
type RecordStore interface {
	Put(ctx context.Context, rec *domain.VerificationRecord, expectedVersion int64) error
	Get(ctx context.Context, userID string) (*domain.VerificationRecord, error)
	All(ctx context.Context) ([]domain.VerificationRecord, error)
}

// Observer is told about every committed transition, after the user's lock
// has been released.
type Observer interface {
	Committed(ctx context.Context, prev, next domain.VerificationRecord, event domain.VerificationEvent)
}

type Option func(*Ledger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithStore makes every commit write through to store before it becomes visible.
func WithStore(store RecordStore) Option {
	return func(l *Ledger) { l.store = store }
}

func WithObserver(o Observer) Option {
	return func(l *Ledger) { l.observer = o }
}

func WithLogger(log *slog.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// Ledger is safe for concurrent use. Mutations of one user are serialized by
// that user's lock; different users proceed in parallel.
type Ledger struct {
	dir      UserDirectory
	store    RecordStore
	observer Observer
	now      func() time.Time
	log      *slog.Logger

	mu      sync.RWMutex
	records map[string]domain.VerificationRecord
	locks   map[string]*sync.Mutex
}

func New(dir UserDirectory, opts ...Option) *Ledger {
	l := &Ledger{
		dir:     dir,
		now:     time.Now,
		log:     slog.Default(),
		records: make(map[string]domain.VerificationRecord),
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Load replaces the in-memory records with the contents of the store.
// Records that break an invariant are skipped and logged.
func (l *Ledger) Load(ctx context.Context) (int, error) {
	if l.store == nil {
		return 0, nil
	}
	recs, err := l.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load verification records: %w", err)
	}
	loaded := make(map[string]domain.VerificationRecord, len(recs))
	for _, rec := range recs {
		if err := rec.CheckInvariants(); err != nil {
			l.log.Warn("skipping verification record", "user_id", rec.UserID, "err", err)
			continue
		}
		loaded[rec.UserID] = rec.Clone()
	}
	l.mu.Lock()
	l.records = loaded
	l.mu.Unlock()
	return len(loaded), nil
}

// Submit moves an artist's record to pending with fresh document refs.
func (l *Ledger) Submit(ctx context.Context, userID, identityRef, faceRef string) (domain.VerificationRecord, error) {
	if err := l.requireArtist(ctx, userID); err != nil {
		return domain.VerificationRecord{}, fmt.Errorf("submit %s: %w", userID, err)
	}
	return l.apply(ctx, userID, false, domain.TransitionInput{
		Event:       domain.EventSubmit,
		IdentityRef: identityRef,
		FaceRef:     faceRef,
	})
}

// Approve marks a pending record approved by reviewerID.
func (l *Ledger) Approve(ctx context.Context, userID, reviewerID string) (domain.VerificationRecord, error) {
	if err := l.requireReview(ctx, userID, reviewerID); err != nil {
		return domain.VerificationRecord{}, fmt.Errorf("approve %s: %w", userID, err)
	}
	return l.apply(ctx, userID, true, domain.TransitionInput{
		Event:      domain.EventApprove,
		ReviewerID: reviewerID,
	})
}

// Reject marks a pending record rejected by reviewerID. reason is stored trimmed.
func (l *Ledger) Reject(ctx context.Context, userID, reviewerID, reason string) (domain.VerificationRecord, error) {
	if err := l.requireReview(ctx, userID, reviewerID); err != nil {
		return domain.VerificationRecord{}, fmt.Errorf("reject %s: %w", userID, err)
	}
	return l.apply(ctx, userID, true, domain.TransitionInput{
		Event:      domain.EventReject,
		ReviewerID: reviewerID,
		Reason:     reason,
	})
}

// GetStatus returns the user's record, or an implicit not_submitted record
// when the user never submitted. Nothing is materialized by reading.
func (l *Ledger) GetStatus(ctx context.Context, userID string) (domain.VerificationRecord, error) {
	ref, err := l.resolve(ctx, userID)
	if err != nil {
		return domain.VerificationRecord{}, err
	}
	if !ref.Exists {
		return domain.VerificationRecord{}, fmt.Errorf("status %s: %w", userID, domain.ErrUserNotFound)
	}
	if rec, ok := l.lookup(userID); ok {
		return rec, nil
	}
	return domain.NotSubmittedRecord(userID), nil
}

// ListByStatus returns a snapshot of all records in status, oldest submission
// first, ties broken by user id.
func (l *Ledger) ListByStatus(_ context.Context, status domain.VerificationStatus) ([]domain.VerificationRecord, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown verification status %q: %w", status, domain.ErrBadRequest)
	}
	l.mu.RLock()
	out := make([]domain.VerificationRecord, 0)
	for _, rec := range l.records {
		if rec.Status == status {
			out = append(out, rec.Clone())
		}
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].SubmittedAt, out[j].SubmittedAt
		switch {
		case a == nil && b != nil:
			return true
		case a != nil && b == nil:
			return false
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// Summary counts materialized records per status.
func (l *Ledger) Summary(_ context.Context) map[domain.VerificationStatus]int {
	counts := make(map[domain.VerificationStatus]int, len(domain.Statuses))
	for _, st := range domain.Statuses {
		counts[st] = 0
	}
	l.mu.RLock()
	for _, rec := range l.records {
		counts[rec.Status]++
	}
	l.mu.RUnlock()
	return counts
}

// CanSell reports whether userID is an artist whose verification was approved.
func (l *Ledger) CanSell(ctx context.Context, userID string) (bool, error) {
	ref, err := l.resolve(ctx, userID)
	if err != nil {
		return false, err
	}
	if !ref.Exists {
		return false, fmt.Errorf("can sell %s: %w", userID, domain.ErrUserNotFound)
	}
	if ref.Role != domain.RoleArtist {
		return false, nil
	}
	rec, ok := l.lookup(userID)
	return ok && rec.Status == domain.StatusApproved, nil
}

// CanSubmit reports, without changing anything, the error Submit would return
// for userID given valid documents. Callers use it to avoid uploading
// documents that would be refused.
func (l *Ledger) CanSubmit(ctx context.Context, userID string) error {
	if err := l.requireArtist(ctx, userID); err != nil {
		return fmt.Errorf("submit %s: %w", userID, err)
	}
	rec, ok := l.lookup(userID)
	if !ok {
		return nil
	}
	switch rec.Status {
	case domain.StatusPending, domain.StatusApproved:
		return fmt.Errorf("cannot submit a %s record: %w", rec.Status, domain.ErrInvalidTransition)
	}
	return nil
}

func (l *Ledger) requireArtist(ctx context.Context, userID string) error {
	ref, err := l.resolve(ctx, userID)
	if err != nil {
		return err
	}
	if !ref.Exists {
		return domain.ErrUserNotFound
	}
	if ref.Role != domain.RoleArtist {
		return domain.ErrNotAnArtist
	}
	return nil
}

func (l *Ledger) requireReview(ctx context.Context, userID, reviewerID string) error {
	reviewer, err := l.resolve(ctx, reviewerID)
	if err != nil {
		return err
	}
	if !reviewer.Exists || reviewer.Role != domain.RoleAdmin {
		return domain.ErrNotAnAdmin
	}
	subject, err := l.resolve(ctx, userID)
	if err != nil {
		return err
	}
	if !subject.Exists {
		return domain.ErrUserNotFound
	}
	return nil
}

func (l *Ledger) resolve(ctx context.Context, userID string) (domain.UserRef, error) {
	if userID == "" {
		return domain.UserRef{}, nil
	}
	ref, err := l.dir.ResolveUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.UserRef{ID: userID}, nil
	}
	if err != nil {
		return domain.UserRef{}, fmt.Errorf("resolve user %s: %w", userID, err)
	}
	return ref, nil
}

// apply runs one transition under the user's lock. The store is written before
// memory, so a failed write leaves the ledger unchanged.
func (l *Ledger) apply(ctx context.Context, userID string, requireRecord bool, in domain.TransitionInput) (domain.VerificationRecord, error) {
	prev, next, err := l.commit(ctx, userID, requireRecord, in)
	if err != nil {
		return domain.VerificationRecord{}, fmt.Errorf("%s %s: %w", in.Event, userID, err)
	}
	if l.observer != nil {
		l.observer.Committed(ctx, prev, next.Clone(), in.Event)
	}
	return next, nil
}

func (l *Ledger) commit(ctx context.Context, userID string, requireRecord bool, in domain.TransitionInput) (prev, next domain.VerificationRecord, err error) {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	prev, ok := l.lookup(userID)
	if !ok {
		if requireRecord {
			return prev, next, domain.ErrRecordNotFound
		}
		prev = domain.NotSubmittedRecord(userID)
	}
	next, err = domain.Transition(prev, in, l.now().UTC())
	if err != nil {
		return prev, next, err
	}
	if l.store != nil {
		if err := l.store.Put(ctx, &next, prev.Version); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				l.refresh(ctx, userID)
			}
			return prev, next, fmt.Errorf("persist verification record: %w", err)
		}
	}

	l.mu.Lock()
	l.records[userID] = next
	l.mu.Unlock()
	return prev, next.Clone(), nil
}

// refresh replaces userID's record with the stored one after another writer
// moved it, so the next attempt starts from the current version. The caller
// holds the user's lock.
func (l *Ledger) refresh(ctx context.Context, userID string) {
	rec, err := l.store.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		l.mu.Lock()
		delete(l.records, userID)
		l.mu.Unlock()
		return
	}
	if err != nil {
		l.log.Warn("refresh verification record", "user_id", userID, "err", err)
		return
	}
	if err := rec.CheckInvariants(); err != nil {
		l.log.Warn("skipping verification record", "user_id", userID, "err", err)
		return
	}
	l.mu.Lock()
	l.records[userID] = rec.Clone()
	l.mu.Unlock()
}

func (l *Ledger) lookup(userID string) (domain.VerificationRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[userID]
	if !ok {
		return domain.VerificationRecord{}, false
	}
	return rec.Clone(), true
}

func (l *Ledger) userLock(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	return m
}
