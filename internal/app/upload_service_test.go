package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permit-agent/internal/model"
)

func seedUploadSession(t *testing.T, env *testEnv, sessionID string) {
	t.Helper()
	require.NoError(t, env.sessionRepo.Upsert(&model.Session{
		SessionID:  sessionID,
		BaseURL:    "http://localhost:8321",
		VectorDBID: "permit-db-test",
	}))
}

func storedFileCount(t *testing.T, root string) int {
	t.Helper()
	count := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			count++
		}
		return nil
	})
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return count
}

func TestStoreWritesFileAndRecordsMetadata(t *testing.T) {
	env := newTestEnv(t, "http://localhost:8321")
	seedUploadSession(t, env, "session-1")

	content := "menu contents"
	document, err := env.uploads.Store(StoreDocumentInput{
		SessionID:    "session-1",
		DocumentType: "menu",
		OriginalName: "Taco Menu.pdf",
		MimeType:     "application/pdf",
		Size:         int64(len(content)),
		Content:      strings.NewReader(content),
	})
	require.NoError(t, err)

	assert.NotZero(t, document.ID)
	assert.Equal(t, "session-1", document.SessionID)
	assert.Equal(t, "menu", document.DocumentType)
	assert.Equal(t, "Taco Menu.pdf", document.OriginalName)
	assert.True(t, strings.HasPrefix(document.StoredName, "Taco_Menu-"))
	assert.True(t, strings.HasSuffix(document.StoredName, ".pdf"))
	assert.Equal(t, int64(len(content)), document.SizeBytes)
	assert.Equal(t, "users/session-1/"+document.StoredName, document.RelativePath)

	stored, err := os.ReadFile(filepath.Join(env.publicDir, filepath.FromSlash(document.RelativePath)))
	require.NoError(t, err)
	assert.Equal(t, content, string(stored))

	documents, err := env.uploads.ListDocuments("session-1")
	require.NoError(t, err)
	require.Len(t, documents, 1)
	assert.Equal(t, document.ID, documents[0].ID)
}

func TestStoreRejectionsLeaveNoFiles(t *testing.T) {
	env := newTestEnv(t, "http://localhost:8321")
	seedUploadSession(t, env, "session-1")

	cases := []struct {
		name  string
		input StoreDocumentInput
		want  error
	}{
		{
			"missing session id",
			StoreDocumentInput{DocumentType: "menu", Content: strings.NewReader("x")},
			ErrSessionIDRequired,
		},
		{
			"missing document type",
			StoreDocumentInput{SessionID: "session-1", Content: strings.NewReader("x")},
			ErrDocumentTypeRequired,
		},
		{
			"missing file",
			StoreDocumentInput{SessionID: "session-1", DocumentType: "menu"},
			ErrFileRequired,
		},
		{
			"declared size too large",
			StoreDocumentInput{
				SessionID:    "session-1",
				DocumentType: "menu",
				Size:         MaxUploadSize + 1,
				Content:      strings.NewReader("x"),
			},
			ErrFileTooLarge,
		},
		{
			"session id sanitizes to nothing",
			StoreDocumentInput{SessionID: "../..", DocumentType: "menu", Content: strings.NewReader("x")},
			ErrSessionIDInvalid,
		},
		{
			"unknown session",
			StoreDocumentInput{SessionID: "missing", DocumentType: "menu", Content: strings.NewReader("x")},
			ErrSessionNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.uploads.Store(tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.Equal(t, 0, storedFileCount(t, env.uploads.UserFilesRoot()))
}

func TestStoreRemovesFileWhenStreamExceedsLimit(t *testing.T) {
	env := newTestEnv(t, "http://localhost:8321")
	seedUploadSession(t, env, "session-1")

	// The declared size lies; the stream itself is over the cap.
	oversized := strings.NewReader(strings.Repeat("a", MaxUploadSize+2))
	_, err := env.uploads.Store(StoreDocumentInput{
		SessionID:    "session-1",
		DocumentType: "menu",
		OriginalName: "huge.bin",
		Size:         10,
		Content:      oversized,
	})
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, 0, storedFileCount(t, env.uploads.UserFilesRoot()))
}

func TestBuildStoredNameSanitizes(t *testing.T) {
	name := buildStoredName("../weird name!.PDF")
	assert.True(t, strings.HasSuffix(name, ".pdf"))
	assert.False(t, strings.ContainsAny(name, "/\\! "))

	fallback := buildStoredName(".pdf")
	assert.True(t, strings.HasPrefix(fallback, "document-"))

	long := buildStoredName(strings.Repeat("a", 200) + ".txt")
	base := strings.SplitN(long, "-", 2)[0]
	assert.LessOrEqual(t, len(base), 60)
}

func TestSanitizePathSegment(t *testing.T) {
	assert.Equal(t, "abc-123_X", SanitizePathSegment("abc-123_X"))
	assert.Equal(t, "abc", SanitizePathSegment("../a b/c"))
	assert.Equal(t, "", SanitizePathSegment("../../"))
}

func TestListDocumentsUnknownSession(t *testing.T) {
	env := newTestEnv(t, "http://localhost:8321")
	_, err := env.uploads.ListDocuments("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = env.uploads.ListDocuments("  ")
	assert.ErrorIs(t, err, ErrSessionIDRequired)
}

func TestRemoveSessionFilesIsIdempotent(t *testing.T) {
	env := newTestEnv(t, "http://localhost:8321")
	dir := filepath.Join(env.uploads.UserFilesRoot(), "session-1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "menu.pdf"), []byte("pdf"), 0o644))

	env.uploads.RemoveSessionFiles("session-1")
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	// A second pass on the now-missing directory is fine.
	env.uploads.RemoveSessionFiles("session-1")
}
