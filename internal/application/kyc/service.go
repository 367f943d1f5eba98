// Package kyc wires the verification ledger to document storage, decision
// notices and metrics.
package kyc

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kyc-ledger/internal/domain"
	"github.com/kyc-ledger/internal/metrics"
	"github.com/kyc-ledger/internal/pkg/id"
)

// Upload is one document binary received from the artist.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (u Upload) missing() bool { return u.Body == nil || u.Size <= 0 }

type SubmitInput struct {
	UserID   string
	Identity Upload
	Face     Upload
}

// StatusView is a user's record together with what it unlocks.
type StatusView struct {
	Record  domain.VerificationRecord `json:"record"`
	CanSell bool                      `json:"can_sell"`
}

type Service interface {
	SubmitDocuments(ctx context.Context, in SubmitInput) (domain.VerificationRecord, error)
	SubmitRefs(ctx context.Context, userID, identityRef, faceRef string) (domain.VerificationRecord, error)
	Approve(ctx context.Context, userID, reviewerID string) (domain.VerificationRecord, error)
	Reject(ctx context.Context, userID, reviewerID, reason string) (domain.VerificationRecord, error)
	Status(ctx context.Context, userID string) (StatusView, error)
	Queue(ctx context.Context, status domain.VerificationStatus) ([]domain.VerificationRecord, error)
	Summary(ctx context.Context) map[domain.VerificationStatus]int
	DocumentURL(ctx context.Context, requesterID string, isAdmin bool, userID string, kind domain.DocumentKind) (string, error)
}

type verificationLedger interface {
	Submit(ctx context.Context, userID, identityRef, faceRef string) (domain.VerificationRecord, error)
	Approve(ctx context.Context, userID, reviewerID string) (domain.VerificationRecord, error)
	Reject(ctx context.Context, userID, reviewerID, reason string) (domain.VerificationRecord, error)
	GetStatus(ctx context.Context, userID string) (domain.VerificationRecord, error)
	ListByStatus(ctx context.Context, status domain.VerificationStatus) ([]domain.VerificationRecord, error)
	Summary(ctx context.Context) map[domain.VerificationStatus]int
	CanSell(ctx context.Context, userID string) (bool, error)
	CanSubmit(ctx context.Context, userID string) error
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type documentStore interface {
	Put(ctx context.Context, d *domain.Document) error
	Get(ctx context.Context, documentID string) (*domain.Document, error)
	Delete(ctx context.Context, documentID string) error
}

type service struct {
	ledger     verificationLedger
	objects    objectStore
	documents  documentStore
	metrics    *metrics.Metrics
	presignTTL time.Duration
	log        *slog.Logger
	now        func() time.Time
}

type ServiceDeps struct {
	Ledger     verificationLedger
	Objects    objectStore
	Documents  documentStore
	Metrics    *metrics.Metrics // optional
	PresignTTL time.Duration
	Logger     *slog.Logger
}

func NewService(deps ServiceDeps) Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	ttl := deps.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &service{
		ledger:     deps.Ledger,
		objects:    deps.Objects,
		documents:  deps.Documents,
		metrics:    deps.Metrics,
		presignTTL: ttl,
		log:        log,
		now:        time.Now,
	}
}

// SubmitDocuments stores both binaries and submits their document ids to the
// ledger. Authorization and state are checked before anything is uploaded;
// uploads the ledger refuses are removed again.
func (s *service) SubmitDocuments(ctx context.Context, in SubmitInput) (domain.VerificationRecord, error) {
	rec, err := s.submitDocuments(ctx, in)
	if err != nil {
		s.metrics.ObserveFailure(domain.EventSubmit, err)
	}
	return rec, err
}

func (s *service) submitDocuments(ctx context.Context, in SubmitInput) (domain.VerificationRecord, error) {
	precheck := s.ledger.CanSubmit(ctx, in.UserID)
	if precheck != nil && !errors.Is(precheck, domain.ErrInvalidTransition) {
		return domain.VerificationRecord{}, precheck
	}
	if in.Identity.missing() || in.Face.missing() {
		return domain.VerificationRecord{}, fmt.Errorf("submit %s: %w", in.UserID, domain.ErrMissingDocument)
	}
	if precheck != nil {
		return domain.VerificationRecord{}, precheck
	}

	var docs [2]*domain.Document
	g, gctx := errgroup.WithContext(ctx)
	for i, up := range []struct {
		kind domain.DocumentKind
		file Upload
	}{
		{domain.DocumentIdentity, in.Identity},
		{domain.DocumentFace, in.Face},
	} {
		g.Go(func() error {
			d, err := s.store(gctx, in.UserID, up.kind, up.file)
			docs[i] = d
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.discard(ctx, docs[:]...)
		return domain.VerificationRecord{}, fmt.Errorf("store documents: %w", err)
	}

	rec, err := s.ledger.Submit(ctx, in.UserID, docs[0].DocumentID, docs[1].DocumentID)
	if err != nil {
		s.discard(ctx, docs[:]...)
		return domain.VerificationRecord{}, err
	}
	return rec, nil
}

// store uploads one binary and records its metadata. The returned document is
// non-nil as soon as the object exists, even when the metadata write fails.
func (s *service) store(ctx context.Context, userID string, kind domain.DocumentKind, up Upload) (*domain.Document, error) {
	docID := id.New()
	d := &domain.Document{
		DocumentID: docID,
		UserID:     userID,
		Kind:       kind,
		Object:     fmt.Sprintf("kyc/%s/%s-%s", userID, docID, safeName(up.Name)),
		Type:       up.ContentType,
		Name:       up.Name,
		CreatedAt:  s.now().UTC(),
	}
	body, size, sum, err := digest(up.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s document: %w", kind, err)
	}
	if err := s.objects.Upload(ctx, d.Object, body, size, up.ContentType); err != nil {
		return nil, fmt.Errorf("upload %s document: %w", kind, err)
	}
	d.Size = size
	d.Hash = sum
	if err := s.documents.Put(ctx, d); err != nil {
		return d, fmt.Errorf("record %s document: %w", kind, err)
	}
	return d, nil
}

func (s *service) discard(ctx context.Context, docs ...*domain.Document) {
	ctx = context.WithoutCancel(ctx)
	for _, d := range docs {
		if d == nil {
			continue
		}
		if err := s.objects.Delete(ctx, d.Object); err != nil {
			s.log.Warn("orphaned kyc object", "key", d.Object, "err", err)
		}
		if err := s.documents.Delete(ctx, d.DocumentID); err != nil {
			s.log.Warn("orphaned kyc document", "document_id", d.DocumentID, "err", err)
		}
	}
}

func (s *service) SubmitRefs(ctx context.Context, userID, identityRef, faceRef string) (domain.VerificationRecord, error) {
	rec, err := s.ledger.Submit(ctx, userID, identityRef, faceRef)
	if err != nil {
		s.metrics.ObserveFailure(domain.EventSubmit, err)
	}
	return rec, err
}

func (s *service) Approve(ctx context.Context, userID, reviewerID string) (domain.VerificationRecord, error) {
	rec, err := s.ledger.Approve(ctx, userID, reviewerID)
	if err != nil {
		s.metrics.ObserveFailure(domain.EventApprove, err)
	}
	return rec, err
}

func (s *service) Reject(ctx context.Context, userID, reviewerID, reason string) (domain.VerificationRecord, error) {
	rec, err := s.ledger.Reject(ctx, userID, reviewerID, reason)
	if err != nil {
		s.metrics.ObserveFailure(domain.EventReject, err)
	}
	return rec, err
}

func (s *service) Status(ctx context.Context, userID string) (StatusView, error) {
	rec, err := s.ledger.GetStatus(ctx, userID)
	if err != nil {
		return StatusView{}, err
	}
	canSell, err := s.ledger.CanSell(ctx, userID)
	if err != nil {
		return StatusView{}, err
	}
	return StatusView{Record: rec, CanSell: canSell}, nil
}

func (s *service) Queue(ctx context.Context, status domain.VerificationStatus) ([]domain.VerificationRecord, error) {
	return s.ledger.ListByStatus(ctx, status)
}

func (s *service) Summary(ctx context.Context) map[domain.VerificationStatus]int {
	return s.ledger.Summary(ctx)
}

// DocumentURL returns a short-lived download link for one of userID's
// submitted documents. Only admins and the owner may ask.
func (s *service) DocumentURL(ctx context.Context, requesterID string, isAdmin bool, userID string, kind domain.DocumentKind) (string, error) {
	if !isAdmin && requesterID != userID {
		return "", fmt.Errorf("document of another user: %w", domain.ErrForbidden)
	}
	rec, err := s.ledger.GetStatus(ctx, userID)
	if err != nil {
		return "", err
	}
	ref := rec.IdentityDocumentRef
	if kind == domain.DocumentFace {
		ref = rec.FaceVerificationRef
	}
	if ref == "" {
		return "", fmt.Errorf("no %s document for %s: %w", kind, userID, domain.ErrNotFound)
	}
	d, err := s.documents.Get(ctx, ref)
	if err != nil {
		return "", err
	}
	if d.UserID != userID {
		return "", fmt.Errorf("document %s: %w", ref, domain.ErrNotFound)
	}
	return s.objects.PresignedURL(ctx, d.Object, s.presignTTL)
}

// digest hashes r and returns a body rewound to its start. The object store
// signs the payload by seeking it, so non-seekable readers are buffered.
func digest(r io.Reader) (io.ReadSeeker, int64, string, error) {
	h := sha256.New()
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		var buf bytes.Buffer
		if _, err := io.Copy(io.MultiWriter(&buf, h), r); err != nil {
			return nil, 0, "", err
		}
		return bytes.NewReader(buf.Bytes()), int64(buf.Len()), hex.EncodeToString(h.Sum(nil)), nil
	}
	n, err := io.Copy(h, rs)
	if err != nil {
		return nil, 0, "", err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, 0, "", fmt.Errorf("rewind: %w", err)
	}
	return rs, n, hex.EncodeToString(h.Sum(nil)), nil
}

// safeName keeps a recognizable, key-safe tail of the client file name.
func safeName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= 64 {
			break
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "document"
	}
	return out
}
