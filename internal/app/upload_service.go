package app

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"permit-agent/internal/model"
	"permit-agent/internal/repository"
)

// MaxUploadSize caps uploaded documents at 25 MB.
const MaxUploadSize = 25 << 20

const maxStoredBaseLen = 60

var (
	pathSegmentPattern = regexp.MustCompile(`[^a-zA-Z0-9-_]`)
	fileBasePattern    = regexp.MustCompile(`[^a-zA-Z0-9-_]`)
)

// UploadService stores uploaded files under a per-session directory inside
// the public root and records their metadata. Files that fail validation
// after being written are removed again.
type UploadService struct {
	sessionRepo  *repository.SessionRepository
	documentRepo *repository.DocumentRepository
	publicDir    string
}

func NewUploadService(
	sessionRepo *repository.SessionRepository,
	documentRepo *repository.DocumentRepository,
	publicDir string,
) *UploadService {
	return &UploadService{
		sessionRepo:  sessionRepo,
		documentRepo: documentRepo,
		publicDir:    publicDir,
	}
}

// UserFilesRoot is the directory all session upload directories live under.
func (s *UploadService) UserFilesRoot() string {
	return filepath.Join(s.publicDir, "users")
}

type StoreDocumentInput struct {
	SessionID    string
	DocumentType string
	OriginalName string
	MimeType     string
	Size         int64
	Content      io.Reader
}

// Store validates the upload, writes the file, and records its metadata. The
// field checks run before anything touches disk, so rejections cannot leave
// an orphan; a failed metadata insert removes the file it just wrote.
func (s *UploadService) Store(in StoreDocumentInput) (*model.Document, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	documentType := strings.TrimSpace(in.DocumentType)

	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	if documentType == "" {
		return nil, ErrDocumentTypeRequired
	}
	if in.Content == nil {
		return nil, ErrFileRequired
	}
	if in.Size > MaxUploadSize {
		return nil, ErrFileTooLarge
	}

	sanitized := SanitizePathSegment(sessionID)
	if sanitized == "" {
		return nil, ErrSessionIDInvalid
	}

	session, err := s.sessionRepo.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	targetDir := filepath.Join(s.UserFilesRoot(), sanitized)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir failed: %w", err)
	}

	storedName := buildStoredName(in.OriginalName)
	absPath := filepath.Join(targetDir, storedName)

	dst, err := os.Create(absPath)
	if err != nil {
		return nil, fmt.Errorf("create upload file failed: %w", err)
	}
	written, copyErr := io.Copy(dst, io.LimitReader(in.Content, MaxUploadSize+1))
	closeErr := dst.Close()
	if copyErr != nil || closeErr != nil {
		removeFile(absPath)
		if copyErr != nil {
			return nil, fmt.Errorf("write upload file failed: %w", copyErr)
		}
		return nil, fmt.Errorf("write upload file failed: %w", closeErr)
	}
	if written > MaxUploadSize {
		removeFile(absPath)
		return nil, ErrFileTooLarge
	}

	originalName := strings.TrimSpace(in.OriginalName)
	if originalName == "" {
		originalName = storedName
	}

	document := &model.Document{
		SessionID:    sessionID,
		DocumentType: documentType,
		OriginalName: originalName,
		StoredName:   storedName,
		RelativePath: "users/" + sanitized + "/" + storedName,
		MimeType:     in.MimeType,
		SizeBytes:    written,
	}
	if err := s.documentRepo.Record(document); err != nil {
		removeFile(absPath)
		return nil, err
	}
	return document, nil
}

// ListDocuments returns the session's documents, newest first.
func (s *UploadService) ListDocuments(sessionID string) ([]model.Document, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	session, err := s.sessionRepo.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return s.documentRepo.ListBySession(sessionID)
}

// RemoveSessionFiles deletes the session's whole upload directory. An absent
// directory counts as success; other failures are logged and swallowed so a
// reset never fails over file cleanup.
func (s *UploadService) RemoveSessionFiles(sessionID string) {
	sanitized := SanitizePathSegment(sessionID)
	if sanitized == "" {
		return
	}
	dir := filepath.Join(s.UserFilesRoot(), sanitized)
	if err := os.RemoveAll(dir); err != nil {
		log.Printf("clean uploads for session %s failed: %v", sessionID, err)
	}
}

// SanitizePathSegment keeps only characters safe to use as a directory name.
func SanitizePathSegment(value string) string {
	return pathSegmentPattern.ReplaceAllString(value, "")
}

// buildStoredName derives a collision-free stored filename: sanitized,
// length-capped basename, millisecond timestamp, original extension.
func buildStoredName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	base = fileBasePattern.ReplaceAllString(base, "_")
	if base == "" {
		base = "document"
	}
	if len(base) > maxStoredBaseLen {
		base = base[:maxStoredBaseLen]
	}
	return fmt.Sprintf("%s-%d%s", base, time.Now().UnixMilli(), ext)
}

func removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("delete file %s failed: %v", path, err)
	}
}
