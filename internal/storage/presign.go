// Package storage issues pre-signed object store URLs and records an audit
// trail of the requested actions.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/common"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/logger"
)

const (
	ActionUpload = "upload"
	ActionDelete = "delete"

	MaxFileSize    = int64(4) << 30
	DefaultExpires = time.Hour
)

var disallowedExtensions = map[string]struct{}{
	".exe": {}, ".bat": {}, ".cmd": {}, ".sh": {}, ".bin": {}, ".js": {}, ".vbs": {},
	".ps1": {}, ".py": {}, ".rb": {}, ".pl": {}, ".html": {}, ".htm": {}, ".php": {},
	".asp": {}, ".aspx": {}, ".dll": {}, ".sys": {}, ".drv": {},
}

var allowedRoles = map[string]struct{}{"owner": {}, "subscriber": {}, "free": {}}

type Request struct {
	UserID   string `json:"user_id"`
	Filename string `json:"filename"`
	Action   string `json:"action"`
	FileSize int64  `json:"file_size"`
	Role     string `json:"role"`
}

type Result struct {
	PresignedURL string `json:"presigned_url"`
	ExpiresIn    int    `json:"expires_in"`
}

type Presigner interface {
	PresignPut(ctx context.Context, key string, size int64, expires time.Duration) (string, error)
	PresignDelete(ctx context.Context, key string, expires time.Duration) (string, error)
}

type Service struct {
	presigner Presigner
	audit     AuditSink
	expires   time.Duration
	log       logger.Interface
	now       func() time.Time
}

func NewService(presigner Presigner, audit AuditSink, expires time.Duration, log logger.Interface) *Service {
	if expires <= 0 {
		expires = DefaultExpires
	}
	return &Service{
		presigner: presigner,
		audit:     audit,
		expires:   expires,
		log:       log.Named("storage"),
		now:       time.Now,
	}
}

// ObjectKey is where a user's file lives in the bucket.
func ObjectKey(userID, filename string) string {
	return "UserData/" + userID + "/" + filename
}

func allowedFile(filename string) bool {
	_, blocked := disallowedExtensions[strings.ToLower(path.Ext(filename))]
	return !blocked
}

// Presign validates req, records the attempt and returns a time limited URL.
func (s *Service) Presign(ctx context.Context, req Request) (*Result, error) {
	if req.Action == "" {
		req.Action = ActionUpload
	}
	if req.Role == "" {
		req.Role = "free"
	}
	if req.UserID == "" || req.Filename == "" {
		return nil, common.BadRequest("Missing user_id or filename")
	}

	if !allowedFile(req.Filename) {
		return nil, common.BadRequest("File type not allowed.")
	}
	if _, ok := allowedRoles[req.Role]; !ok {
		return nil, common.Forbidden("Forbidden: Invalid user role")
	}
	if req.Action == ActionUpload && req.FileSize > MaxFileSize {
		return nil, common.BadRequest("File size exceeds the 4GB limit.")
	}

	entry := AuditEntry{
		UserID:    req.UserID,
		Action:    req.Action,
		Filename:  req.Filename,
		Timestamp: s.now().UTC(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.Warnw("audit record failed", "user_id", req.UserID, "action", req.Action, "error", err)
	}

	key := ObjectKey(req.UserID, req.Filename)
	var (
		url string
		err error
	)
	switch req.Action {
	case ActionUpload:
		url, err = s.presigner.PresignPut(ctx, key, req.FileSize, s.expires)
	case ActionDelete:
		url, err = s.presigner.PresignDelete(ctx, key, s.expires)
	default:
		return nil, common.BadRequest("Invalid action specified.")
	}
	if err != nil {
		return nil, common.Upstream(fmt.Errorf("presign %s %s: %w", req.Action, key, err))
	}

	return &Result{PresignedURL: url, ExpiresIn: int(s.expires / time.Second)}, nil
}
