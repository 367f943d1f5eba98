package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kyc-ledger/internal/application/kyc"
	"github.com/kyc-ledger/internal/domain"
	"github.com/kyc-ledger/internal/transport/http/middleware"
)

// Multipart field names of a document submission.
const (
	fieldIdentityDocument = "identity_document"
	fieldFaceVerification = "face_verification"
)

// KYCHandler handles verification endpoints.
type KYCHandler struct {
	svc       kyc.Service
	maxUpload int64 // per file
}

func NewKYCHandler(svc kyc.Service, maxUploadBytes int64) *KYCHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &KYCHandler{svc: svc, maxUpload: maxUploadBytes}
}

// Me returns the caller's own record and whether it can sell.
func (h *KYCHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	view, err := h.svc.Status(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Submit accepts both documents as multipart files.
func (h *KYCHandler) Submit(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "documents too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var uploads [2]kyc.Upload
	for i, field := range []string{fieldIdentityDocument, fieldFaceVerification} {
		up, err := h.formUpload(r, field)
		if errors.Is(err, errUploadTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, field+" exceeds the upload limit")
			return
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable "+field)
			return
		}
		if c, ok := up.Body.(io.Closer); ok {
			defer c.Close()
		}
		uploads[i] = up
	}

	rec, err := h.svc.SubmitDocuments(r.Context(), kyc.SubmitInput{
		UserID:   claims.UserID,
		Identity: uploads[0],
		Face:     uploads[1],
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

var errUploadTooLarge = errors.New("upload too large")

// formUpload opens a multipart file. A missing field yields an empty Upload,
// which the service reports as a missing document.
func (h *KYCHandler) formUpload(r *http.Request, field string) (kyc.Upload, error) {
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return kyc.Upload{}, nil
	}
	fh := files[0]
	if fh.Size > h.maxUpload {
		return kyc.Upload{}, errUploadTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return kyc.Upload{}, err
	}
	return kyc.Upload{Name: fh.Filename, ContentType: contentType(fh), Size: fh.Size, Body: f}, nil
}

func contentType(fh *multipart.FileHeader) string {
	ct := fh.Header.Get("Content-Type")
	if ct == "application/octet-stream" {
		return ""
	}
	return ct
}

func (h *KYCHandler) SubmitRefs(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.SubmitRefsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.svc.SubmitRefs(r.Context(), claims.UserID, req.IdentityDocumentRef, req.FaceVerificationRef)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// List returns the moderation queue for ?status= (default pending).
func (h *KYCHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.StatusPending
	if q := r.URL.Query().Get("status"); q != "" {
		st, err := domain.ParseVerificationStatus(q)
		if err != nil {
			httpError(w, err)
			return
		}
		status = st
	}
	recs, err := h.svc.Queue(r.Context(), status)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordsEnvelope{Status: status, Count: len(recs), Data: recs})
}

func (h *KYCHandler) Summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Summary(r.Context()))
}

func (h *KYCHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Status(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *KYCHandler) Approve(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rec, err := h.svc.Approve(r.Context(), chi.URLParam(r, "userID"), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *KYCHandler) Reject(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.RejectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.svc.Reject(r.Context(), chi.URLParam(r, "userID"), claims.UserID, req.Reason)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DocumentURL returns a presigned link to one of the user's documents.
func (h *KYCHandler) DocumentURL(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	kind, ok := domain.ParseDocumentKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown document kind")
		return
	}
	url, err := h.svc.DocumentURL(r.Context(), claims.UserID, claims.Role == domain.RoleAdmin, chi.URLParam(r, "userID"), kind)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, URLEnvelope{URL: url})
}
