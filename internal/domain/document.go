package domain

import "time"

// DocumentKind names the two binaries a verification submission carries.
type DocumentKind string

const (
	DocumentIdentity DocumentKind = "identity"
	DocumentFace     DocumentKind = "face"
)

// ParseDocumentKind maps a path segment to a DocumentKind.
func ParseDocumentKind(s string) (DocumentKind, bool) {
	switch DocumentKind(s) {
	case DocumentIdentity, DocumentFace:
		return DocumentKind(s), true
	}
	return "", false
}

// Document is the metadata of an uploaded verification binary. The bytes live
// in the object store under Object; DocumentID is the opaque reference the
// ledger keeps.
type Document struct {
	DocumentID string       `json:"id" dynamodbav:"document_id"`
	UserID     string       `json:"user_id" dynamodbav:"user_id"`
	Kind       DocumentKind `json:"kind" dynamodbav:"kind"`
	Object     string       `json:"-" dynamodbav:"object"`
	Size       int64        `json:"size" dynamodbav:"size"`
	Type       string       `json:"type" dynamodbav:"type"`
	Name       string       `json:"name" dynamodbav:"name"`
	Hash       string       `json:"hash" dynamodbav:"hash"`
	CreatedAt  time.Time    `json:"created" dynamodbav:"created_at"`
}
