package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// ErrAccessDenied
// ---------------------------------------------------------------------------

func TestErrAccessDenied_WithMsg(t *testing.T) {
	err := &ErrAccessDenied{Repo: "org/repo", Msg: "custom error"}
	if err.Error() != "custom error" {
		t.Errorf("Error() = %q; want %q", err.Error(), "custom error")
	}
}

func TestErrAccessDenied_WithoutMsg(t *testing.T) {
	err := &ErrAccessDenied{Repo: "org/repo"}
	if !strings.Contains(err.Error(), "org/repo") {
		t.Errorf("Error() = %q; should mention repo", err.Error())
	}
}

// ---------------------------------------------------------------------------
// PinnedManifest
// ---------------------------------------------------------------------------

func TestPinnedManifest_KnownRepos(t *testing.T) {
	repos := []string{
		"julius-speech/dictation-kit-4.5",
		"julius-speech/grammar-kit-4.5",
	}
	for _, repo := range repos {
		t.Run(repo, func(t *testing.T) {
			m, err := PinnedManifest(repo)
			if err != nil {
				t.Fatalf("PinnedManifest(%q) error = %v", repo, err)
			}
			if m.Repo != repo {
				t.Errorf("Repo = %q; want %q", m.Repo, repo)
			}
			if len(m.Files) == 0 {
				t.Error("Files is empty")
			}
			for _, f := range m.Files {
				if f.Filename == "" {
					t.Error("File has empty Filename")
				}
				if f.Revision == "" {
					t.Error("File has empty Revision")
				}
			}
		})
	}
}

func TestPinnedManifest_UnknownRepo(t *testing.T) {
	_, err := PinnedManifest("unknown/repo")
	if err == nil {
		t.Error("PinnedManifest(unknown) = nil; want error")
	}
}

func TestPinnedManifest_DictationKit_HasChecksums(t *testing.T) {
	m, err := PinnedManifest("julius-speech/dictation-kit-4.5")
	if err != nil {
		t.Fatalf("PinnedManifest error = %v", err)
	}
	for _, f := range m.Files {
		if f.SHA256 == "" {
			t.Errorf("file %q has empty SHA256; expected pinned checksum", f.Filename)
		}
		if !isSHA256Hex(f.SHA256) {
			t.Errorf("file %q SHA256 %q is not valid hex", f.Filename, f.SHA256)
		}
	}
}

// ---------------------------------------------------------------------------
// existingMatches
// ---------------------------------------------------------------------------

func TestExistingMatches_NoFile(t *testing.T) {
	ok, err := existingMatches("/nonexistent/path/file.bin", "abc")
	if err != nil {
		t.Fatalf("existingMatches(missing) error = %v", err)
	}
	if ok {
		t.Error("existingMatches(missing) = true; want false")
	}
}

func TestExistingMatches_Directory(t *testing.T) {
	dir := t.TempDir()
	_, err := existingMatches(dir, "abc")
	if err == nil {
		t.Error("existingMatches(directory) = nil; want error")
	}
}

func TestExistingMatches_ChecksumMismatch(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "f.bin")
	if err := os.WriteFile(p, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ok, err := existingMatches(p, strings.Repeat("a", 64))
	if err != nil {
		t.Fatalf("existingMatches error = %v", err)
	}
	if ok {
		t.Error("existingMatches(mismatch) = true; want false")
	}
}

func TestExistingMatches_ChecksumMatch(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "f.bin")
	content := []byte("hello world")
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	h := sha256.Sum256(content)
	checksum := hex.EncodeToString(h[:])

	ok, err := existingMatches(p, checksum)
	if err != nil {
		t.Fatalf("existingMatches error = %v", err)
	}
	if !ok {
		t.Error("existingMatches(match) = false; want true")
	}
}

// ---------------------------------------------------------------------------
// fileSHA256
// ---------------------------------------------------------------------------

func TestFileSHA256_KnownContent(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "f.bin")
	content := []byte("test content")
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	h := sha256.Sum256(content)
	want := hex.EncodeToString(h[:])

	got, err := fileSHA256(p)
	if err != nil {
		t.Fatalf("fileSHA256 error = %v", err)
	}
	if got != want {
		t.Errorf("fileSHA256 = %q; want %q", got, want)
	}
}

func TestFileSHA256_MissingFile(t *testing.T) {
	_, err := fileSHA256("/nonexistent/file.bin")
	if err == nil {
		t.Error("fileSHA256(missing) = nil; want error")
	}
}

func TestFileSHA256_EmptyFile(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "empty.bin")
	if err := os.WriteFile(p, []byte{}, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	h := sha256.Sum256([]byte{})
	want := hex.EncodeToString(h[:])

	got, err := fileSHA256(p)
	if err != nil {
		t.Fatalf("fileSHA256(empty) error = %v", err)
	}
	if got != want {
		t.Errorf("fileSHA256(empty) = %q; want %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// readLockManifest / writeLockManifest
// ---------------------------------------------------------------------------

func TestReadLockManifest_MissingFile(t *testing.T) {
	// Missing file returns empty lockManifest without error.
	lock := readLockManifest("/nonexistent/lock.json")
	// Files may be nil on error path; caller is responsible for nil-checking.
	// Verify it does not panic.
	_ = lock.Repo
	_ = lock.Files
}

func TestReadLockManifest_InvalidJSON(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "lock.json")
	if err := os.WriteFile(p, []byte("{bad"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// Invalid JSON returns empty lockManifest without error.
	lock := readLockManifest(p)
	_ = lock.Repo
	_ = lock.Files
}

func TestReadLockManifest_ValidFile(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "lock.json")
	content := `{"repo":"org/repo","generated":"2026-01-01T00:00:00Z","files":{"a.bin":{"revision":"r1","sha256":"` + strings.Repeat("1", 64) + `"}}}`
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	lock := readLockManifest(p)
	if lock.Repo != "org/repo" {
		t.Errorf("Repo = %q; want org/repo", lock.Repo)
	}
	if lock.Files == nil {
		t.Fatal("Files is nil")
	}
	rec, ok := lock.Files["a.bin"]
	if !ok {
		t.Fatal("Files[a.bin] not found")
	}
	if rec.Revision != "r1" {
		t.Errorf("Revision = %q; want r1", rec.Revision)
	}
}

func TestWriteReadLockManifest_RoundTrip(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "lock.json")

	original := lockManifest{
		Repo:      "julius-speech/dictation-kit-4.5",
		Generated: "2026-01-01T00:00:00Z",
		Files: map[string]lockRecord{
			"hmmdefs.binhmm": {
				Revision: "abc123",
				SHA256:   strings.Repeat("a", 64),
			},
		},
	}

	if err := writeLockManifest(p, original); err != nil {
		t.Fatalf("writeLockManifest error = %v", err)
	}

	got := readLockManifest(p)
	if got.Repo != original.Repo {
		t.Errorf("Repo = %q; want %q", got.Repo, original.Repo)
	}
	if got.Generated != original.Generated {
		t.Errorf("Generated = %q; want %q", got.Generated, original.Generated)
	}
	rec, ok := got.Files["hmmdefs.binhmm"]
	if !ok {
		t.Fatal("Files[hmmdefs.binhmm] not found")
	}
	if rec.Revision != "abc123" {
		t.Errorf("Revision = %q; want abc123", rec.Revision)
	}
}

func TestWriteLockManifest_FailsWithoutParentDir(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "subdir", "lock.json")

	// Parent dir does not exist — expect failure (writeLockManifest doesn't mkdir).
	err := writeLockManifest(p, lockManifest{Files: map[string]lockRecord{}})
	if err == nil {
		t.Error("writeLockManifest(missing parent) = nil; want error")
	}
}

// ---------------------------------------------------------------------------
// resolveURL
// ---------------------------------------------------------------------------

func TestResolveURL(t *testing.T) {
	f := ModelFile{Filename: "hmmdefs.binhmm", Revision: "abc123"}
	got := resolveURL("org/repo", f)
	want := "https://huggingface.co/org/repo/resolve/abc123/hmmdefs.binhmm"
	if got != want {
		t.Errorf("resolveURL = %q; want %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// localName
// ---------------------------------------------------------------------------

func TestLocalName_UsesOverrideWhenSet(t *testing.T) {
	f := ModelFile{Filename: "hmmdefs.binhmm", LocalPath: "hmmdefs"}
	if got := localName(f); got != "hmmdefs" {
		t.Errorf("localName = %q; want hmmdefs", got)
	}
}

func TestLocalName_FallsBackToFilename(t *testing.T) {
	f := ModelFile{Filename: "sample.dfa"}
	if got := localName(f); got != "sample.dfa" {
		t.Errorf("localName = %q; want sample.dfa", got)
	}
}

// ---------------------------------------------------------------------------
// setAuth
// ---------------------------------------------------------------------------

func TestSetAuth_WithToken(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	setAuth(req, "mytoken")
	got := req.Header.Get("Authorization")
	if got != "Bearer mytoken" {
		t.Errorf("Authorization = %q; want %q", got, "Bearer mytoken")
	}
}

func TestSetAuth_EmptyToken(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	setAuth(req, "")
	got := req.Header.Get("Authorization")
	if got != "" {
		t.Errorf("Authorization = %q; want empty for empty token", got)
	}
}

// ---------------------------------------------------------------------------
// normalizeETag / isSHA256Hex
// ---------------------------------------------------------------------------

func TestNormalizeETag_Variants(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"abc"`, "abc"},
		{`W/"abc"`, "abc"},
		{`  abc  `, "abc"},
		{`W/"` + strings.Repeat("a", 64) + `"`, strings.Repeat("a", 64)},
		{"", ""},
	}
	for _, tt := range tests {
		got := normalizeETag(tt.input)
		if got != tt.want {
			t.Errorf("normalizeETag(%q) = %q; want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsSHA256Hex(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{strings.Repeat("a", 64), true},
		{strings.Repeat("A", 64), true},
		{"58aa704a88faad35f22c34ea1cb55c4c5629de8b8e035c6e4936e2673dc07617", true},
		{strings.Repeat("a", 63), false}, // too short
		{strings.Repeat("a", 65), false}, // too long
		{"", false},
		{strings.Repeat("g", 64), false}, // invalid hex char
	}
	for _, tt := range tests {
		got := isSHA256Hex(tt.input)
		if got != tt.want {
			t.Errorf("isSHA256Hex(%q) = %v; want %v", tt.input, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Download — validation path (no network)
// ---------------------------------------------------------------------------

func TestDownload_EmptyRepo(t *testing.T) {
	err := Download(DownloadOptions{OutDir: "/tmp"})
	if err == nil {
		t.Error("Download(empty repo) = nil; want error")
	}
}

func TestDownload_EmptyOutDir(t *testing.T) {
	err := Download(DownloadOptions{Repo: "julius-speech/dictation-kit-4.5"})
	if err == nil {
		t.Error("Download(empty outDir) = nil; want error")
	}
}

func TestDownload_UnknownRepo(t *testing.T) {
	err := Download(DownloadOptions{Repo: "not/a/known/repo", OutDir: t.TempDir()})
	if err == nil {
		t.Error("Download(unknown repo) = nil; want error")
	}
}

// ---------------------------------------------------------------------------
// Download — HTTP interactions via httptest
// ---------------------------------------------------------------------------

// sha256hex returns the lowercase hex SHA256 of data.
func sha256hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// withHFTransport temporarily replaces http.DefaultTransport with an
// hfTransport pointing at serverURL, restoring the original on cleanup.
// This makes Download (which creates its own http.Client{}) talk to the
// test server without modifying production code.
func withHFTransport(t *testing.T, serverURL string) {
	t.Helper()
	orig := http.DefaultTransport
	http.DefaultTransport = &hfTransport{target: serverURL, delegate: orig}
	t.Cleanup(func() { http.DefaultTransport = orig })
}

// ---------------------------------------------------------------------------
// Download — end-to-end via transport override
// ---------------------------------------------------------------------------

func TestDownload_FailsOnChecksumMismatch(t *testing.T) {
	// "julius-speech/dictation-kit-4.5" has pinned SHA256 checksums, so
	// Download compares each fetched file against them.
	manifest, err := PinnedManifest("julius-speech/dictation-kit-4.5")
	if err != nil {
		t.Fatalf("PinnedManifest: %v", err)
	}

	outDir := t.TempDir()
	var out strings.Builder

	// No file is pre-written, so existingMatches reports false for each one
	// and Download requests it through the transport override below.
	for _, f := range manifest.Files {
		_ = f
	}

	// Use a test server that serves the same dummy body for every file.
	// For the "dictation-kit" repo all checksums are pinned, so no HEAD
	// request is needed. We serve dummy content that won't match checksums,
	// which exercises the checksum-mismatch error path.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("wrong content"))
	}))
	defer srv.Close()
	withHFTransport(t, srv.URL)

	err = Download(DownloadOptions{
		Repo:   "julius-speech/dictation-kit-4.5",
		OutDir: outDir,
		Stdout: &out,
	})
	// Expect checksum mismatch error since we served wrong content.
	if err == nil {
		t.Error("Download with wrong content should fail checksum verification")
	}
	if !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("error %q should mention checksum mismatch", err.Error())
	}
}

func TestDownload_SkipExistingFile(t *testing.T) {
	// Pre-populate the output directory with a file that matches the checksum
	// recorded in the lock manifest — Download must skip it without any HTTP
	// request. The mirror repo pins no checksum, so Download takes the
	// expected checksum from the lock record.
	manifest, err := PinnedManifest("julius-speech/dictation-kit-4.5-mirror")
	if err != nil {
		t.Fatalf("PinnedManifest: %v", err)
	}
	if len(manifest.Files) == 0 {
		t.Skip("no files in manifest")
	}

	outDir := t.TempDir()

	// The first file is the one that will already exist on disk.
	firstFile := manifest.Files[0]
	localPath := filepath.Join(outDir, localName(firstFile))

	// Create a lock manifest entry for it, so the "skip" path is triggered
	// via the lock record.
	lock := lockManifest{
		Repo:      manifest.Repo,
		Generated: "2026-01-01T00:00:00Z",
		Files: map[string]lockRecord{
			firstFile.Filename: {Revision: firstFile.Revision, SHA256: firstFile.SHA256},
		},
	}
	lockPath := filepath.Join(outDir, "download-manifest.lock.json")
	if err := writeLockManifest(lockPath, lock); err != nil {
		t.Fatalf("writeLockManifest: %v", err)
	}

	// Write a file at localPath, compute its hash, then update the lock to match.
	fileContent := []byte("synthetic model data for test")
	if err := os.WriteFile(localPath, fileContent, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	realHash := sha256hex(fileContent)

	// Update the lock with the real hash so existingMatches returns true.
	lock.Files[firstFile.Filename] = lockRecord{Revision: firstFile.Revision, SHA256: realHash}
	if err := writeLockManifest(lockPath, lock); err != nil {
		t.Fatalf("writeLockManifest: %v", err)
	}

	// Use a server that returns 403 so the test fails fast if any download
	// is attempted.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	withHFTransport(t, srv.URL)

	var out strings.Builder
	err = Download(DownloadOptions{
		Repo:   "julius-speech/dictation-kit-4.5-mirror",
		OutDir: outDir,
		Stdout: &out,
	})

	// The only file is skipped, so no request reaches the 403 server.
	if err != nil {
		t.Fatalf("Download error = %v", err)
	}
	if !strings.Contains(out.String(), "skip "+localPath) {
		t.Errorf("output %q should report skipping %s", out.String(), localPath)
	}
}

func TestDownload_FullDownloadAndLockWrite(t *testing.T) {
	// Serve known content for each file and verify Download downloads it,
	// verifies the checksum, and writes the lock manifest.
	// Use the "julius-speech/dictation-kit-4.5-mirror" repo, whose file has
	// an empty pinned SHA256. This causes Download to resolve the checksum
	// via a HEAD (metadata) request first; we return a valid SHA256 from the
	// HEAD response, then serve matching content from the GET response.

	fileContent := []byte("synthetic acoustic model data for test")
	contentHash := sha256hex(fileContent)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("X-Linked-Etag", `"`+contentHash+`"`)
			w.WriteHeader(http.StatusOK)
			return
		}
		// GET: serve the file content
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(fileContent)
	}))
	defer srv.Close()
	withHFTransport(t, srv.URL)

	outDir := t.TempDir()
	var out strings.Builder

	err := Download(DownloadOptions{
		Repo:   "julius-speech/dictation-kit-4.5-mirror",
		OutDir: outDir,
		Stdout: &out,
	})
	if err != nil {
		t.Fatalf("Download error = %v", err)
	}

	// Lock manifest must have been written.
	lockPath := filepath.Join(outDir, "download-manifest.lock.json")
	if _, err := os.Stat(lockPath); err != nil {
		t.Errorf("lock manifest not written: %v", err)
	}
	if !strings.Contains(out.String(), "wrote lock manifest") {
		t.Errorf("output %q should mention lock manifest", out.String())
	}

	// Verify the downloaded file exists.
	manifest, _ := PinnedManifest("julius-speech/dictation-kit-4.5-mirror")
	for _, f := range manifest.Files {
		localPath := filepath.Join(outDir, localName(f))
		if _, err := os.Stat(localPath); err != nil {
			t.Errorf("downloaded file %q not found: %v", localName(f), err)
		}
	}
}

func TestDownloadWithProgress_Success(t *testing.T) {
	content := []byte("fake model weights")
	expectedSum := sha256hex(content)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(content)
	}))
	defer srv.Close()

	tmp := t.TempDir()
	outPath := filepath.Join(tmp, "model.bin")
	file := ModelFile{Filename: "model.bin", Revision: "rev1"}

	got, err := downloadWithProgress(newHFClient(srv.URL), "org/repo", file, "", outPath, &strings.Builder{})
	if err != nil {
		t.Fatalf("downloadWithProgress error = %v", err)
	}
	if got != expectedSum {
		t.Errorf("checksum = %q; want %q", got, expectedSum)
	}

	data, readErr := os.ReadFile(outPath)
	if readErr != nil {
		t.Fatalf("ReadFile: %v", readErr)
	}
	if string(data) != string(content) {
		t.Errorf("file content = %q; want %q", data, content)
	}
}

func TestDownloadWithProgress_AccessDenied(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(fmt.Sprintf("HTTP%d", code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(code)
			}))
			defer srv.Close()

			_, err := downloadWithProgress(newHFClient(srv.URL), "org/repo",
				ModelFile{Filename: "f.bin", Revision: "r1"}, "", filepath.Join(t.TempDir(), "f.bin"), &strings.Builder{})
			if err == nil {
				t.Errorf("HTTP %d should return error", code)
			}
			var denied *ErrAccessDenied
			if !isAccessDenied(err, &denied) {
				t.Errorf("expected ErrAccessDenied, got %T: %v", err, err)
			}
		})
	}
}

func TestDownloadWithProgress_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := downloadWithProgress(newHFClient(srv.URL), "org/repo",
		ModelFile{Filename: "f.bin", Revision: "r1"}, "", filepath.Join(t.TempDir(), "f.bin"), &strings.Builder{})
	if err == nil {
		t.Error("HTTP 500 should return error")
	}
}

// ---------------------------------------------------------------------------
// resolveChecksumFromMetadata — via httptest
// ---------------------------------------------------------------------------

func TestResolveChecksumFromMetadata_LinkedEtag(t *testing.T) {
	checksum := strings.Repeat("a", 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Linked-Etag", `"`+checksum+`"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	got, err := resolveChecksumFromMetadata(newHFClient(srv.URL), "org/repo",
		ModelFile{Filename: "f.bin", Revision: "r1"}, "")
	if err != nil {
		t.Fatalf("resolveChecksumFromMetadata error = %v", err)
	}
	if got != checksum {
		t.Errorf("checksum = %q; want %q", got, checksum)
	}
}

func TestResolveChecksumFromMetadata_EtagFallback(t *testing.T) {
	checksum := strings.Repeat("b", 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Etag", `"`+checksum+`"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	got, err := resolveChecksumFromMetadata(newHFClient(srv.URL), "org/repo",
		ModelFile{Filename: "f.bin", Revision: "r1"}, "")
	if err != nil {
		t.Fatalf("resolveChecksumFromMetadata error = %v", err)
	}
	if got != checksum {
		t.Errorf("checksum = %q; want %q", got, checksum)
	}
}

func TestResolveChecksumFromMetadata_NoUsableHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := resolveChecksumFromMetadata(newHFClient(srv.URL), "org/repo",
		ModelFile{Filename: "f.bin", Revision: "r1"}, "")
	if err == nil {
		t.Error("no usable header should return error")
	}
}

func TestResolveChecksumFromMetadata_AccessDenied(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(fmt.Sprintf("HTTP%d", code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(code)
			}))
			defer srv.Close()

			_, err := resolveChecksumFromMetadata(newHFClient(srv.URL), "org/repo",
				ModelFile{Filename: "f.bin", Revision: "r1"}, "")
			var denied *ErrAccessDenied
			if err == nil || !isAccessDenied(err, &denied) {
				t.Errorf("expected ErrAccessDenied for HTTP %d, got %v", code, err)
			}
		})
	}
}

func TestResolveChecksumFromMetadata_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := resolveChecksumFromMetadata(newHFClient(srv.URL), "org/repo",
		ModelFile{Filename: "f.bin", Revision: "r1"}, "")
	if err == nil {
		t.Error("HTTP 500 should return error")
	}
}

func TestResolveChecksumFromMetadata_WithToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("X-Linked-Etag", strings.Repeat("c", 64))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, _ = resolveChecksumFromMetadata(newHFClient(srv.URL), "org/repo",
		ModelFile{Filename: "f.bin", Revision: "r1"}, "my-token")

	if gotAuth != "Bearer my-token" {
		t.Errorf("Authorization = %q; want %q", gotAuth, "Bearer my-token")
	}
}

// ---------------------------------------------------------------------------

// hfTransport is a test RoundTripper that rewrites all requests to a local
// test server, enabling tests of the production HTTP code paths.
// delegate must be set to a non-nil transport; it must NOT be http.DefaultTransport
// when hfTransport itself is set as http.DefaultTransport (would recurse).
type hfTransport struct {
	target   string // e.g. "http://127.0.0.1:PORT"
	delegate http.RoundTripper
}

func (t *hfTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = "http"
	clone.URL.Host = strings.TrimPrefix(t.target, "http://")
	return t.delegate.RoundTrip(clone)
}

// newHFClient returns an *http.Client whose transport redirects
// all requests (including those to huggingface.co) to the given server.
func newHFClient(serverURL string) *http.Client {
	return &http.Client{Transport: &hfTransport{target: serverURL, delegate: http.DefaultTransport}}
}

// isAccessDenied checks whether err message contains "access denied".
func isAccessDenied(err error, target **ErrAccessDenied) bool {
	if err == nil {
		return false
	}
	if strings.Contains(err.Error(), "access denied") {
		e := &ErrAccessDenied{}
		*target = e
		return true
	}
	return false
}

// TestWriteLockManifest_ValidContent serialises to JSON and verifies round-trip.
func TestWriteLockManifest_ValidContent(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "lock.json")

	lock := lockManifest{
		Repo:      "test/repo",
		Generated: "2026-01-01T00:00:00Z",
		Files: map[string]lockRecord{
			"a.bin": {Revision: "rev1", SHA256: strings.Repeat("1", 64)},
		},
	}
	if err := writeLockManifest(p, lock); err != nil {
		t.Fatalf("writeLockManifest error = %v", err)
	}

	raw, _ := os.ReadFile(p)
	var got lockManifest
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if got.Repo != lock.Repo {
		t.Errorf("Repo = %q; want %q", got.Repo, lock.Repo)
	}
	if got.Files["a.bin"].Revision != "rev1" {
		t.Errorf("Revision = %q; want rev1", got.Files["a.bin"].Revision)
	}
}
