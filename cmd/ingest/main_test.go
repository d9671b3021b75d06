package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/bluo42/adu-chatbot/internal/app"
	"github.com/bluo42/adu-chatbot/internal/assistant"
	"github.com/bluo42/adu-chatbot/internal/config"
	"github.com/bluo42/adu-chatbot/internal/store"
)

func newTestDeps(st store.Store, a assistant.Client) app.IngestDeps {
	return app.IngestDeps{
		Store:     st,
		Assistant: a,
		Config: config.Config{
			MaxPDFSize: 1024 * 1024, // 1MB for tests
		},
		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// minimalPDF assembles a one-page PDF with a correct xref table.
func minimalPDF() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, 4)
	writeObj := func(n int, body string) {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, body)
	}
	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	writeObj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	xref := buf.Len()
	buf.WriteString("xref\n0 4\n")
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= 3; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

func TestHandleIngestSuccess(t *testing.T) {
	docID := uuid.New()
	dir := t.TempDir()
	path := filepath.Join(dir, "city_ordinance.pdf")
	if err := os.WriteFile(path, minimalPDF(), 0o644); err != nil {
		t.Fatal(err)
	}

	mockStore := new(store.MockStore)
	mockClient := new(assistant.MockClient)

	mockStore.On("UpdateCorpusDocument", mock.Anything, docID, mock.MatchedBy(func(u store.DocumentUpdate) bool {
		return u.Status == store.StatusUploading && u.Pages == 1
	})).Return(nil).Once()
	mockClient.On("UploadFile", mock.Anything, "vs_test", "city_ordinance.pdf", mock.Anything).
		Return("file_123", nil).Once()
	mockStore.On("UpdateCorpusDocument", mock.Anything, docID, mock.MatchedBy(func(u store.DocumentUpdate) bool {
		return u.Status == store.StatusIndexed && u.FileID == "file_123"
	})).Return(nil).Once()

	deps := newTestDeps(mockStore, mockClient)
	err := handleIngest(context.Background(), deps, "vs_test", ingestTaskPayload{
		DocumentID: docID,
		Filename:   "city_ordinance.pdf",
		Path:       path,
	})
	if err != nil {
		t.Fatalf("handleIngest failed: %v", err)
	}
	mockStore.AssertExpectations(t)
	mockClient.AssertExpectations(t)
}

func TestHandleIngestMissingFile(t *testing.T) {
	docID := uuid.New()

	mockStore := new(store.MockStore)
	mockStore.On("UpdateCorpusDocument", mock.Anything, docID, mock.MatchedBy(func(u store.DocumentUpdate) bool {
		return u.Status == store.StatusFailed && u.Error != ""
	})).Return(nil).Once()

	deps := newTestDeps(mockStore, new(assistant.MockClient))
	err := handleIngest(context.Background(), deps, "vs_test", ingestTaskPayload{
		DocumentID: docID,
		Filename:   "gone.pdf",
		Path:       filepath.Join(t.TempDir(), "gone.pdf"),
	})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	mockStore.AssertExpectations(t)
}

func TestHandleIngestRejectsGarbage(t *testing.T) {
	docID := uuid.New()
	path := filepath.Join(t.TempDir(), "bad.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	mockStore := new(store.MockStore)
	mockStore.On("UpdateCorpusDocument", mock.Anything, docID, mock.MatchedBy(func(u store.DocumentUpdate) bool {
		return u.Status == store.StatusFailed
	})).Return(nil).Once()

	deps := newTestDeps(mockStore, new(assistant.MockClient))
	err := handleIngest(context.Background(), deps, "vs_test", ingestTaskPayload{
		DocumentID: docID,
		Filename:   "bad.pdf",
		Path:       path,
	})
	if err == nil {
		t.Fatal("expected error for garbage PDF")
	}
	mockStore.AssertExpectations(t)
}

func TestHandleIngestUploadFailure(t *testing.T) {
	docID := uuid.New()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, minimalPDF(), 0o644); err != nil {
		t.Fatal(err)
	}

	mockStore := new(store.MockStore)
	mockClient := new(assistant.MockClient)

	mockStore.On("UpdateCorpusDocument", mock.Anything, docID, mock.MatchedBy(func(u store.DocumentUpdate) bool {
		return u.Status == store.StatusUploading
	})).Return(nil).Once()
	mockClient.On("UploadFile", mock.Anything, "vs_test", "doc.pdf", mock.Anything).
		Return("", errors.New("hosted indexing of doc.pdf ended with status failed")).Once()
	mockStore.On("UpdateCorpusDocument", mock.Anything, docID, mock.MatchedBy(func(u store.DocumentUpdate) bool {
		return u.Status == store.StatusFailed && u.Error != ""
	})).Return(nil).Once()

	deps := newTestDeps(mockStore, mockClient)
	err := handleIngest(context.Background(), deps, "vs_test", ingestTaskPayload{
		DocumentID: docID,
		Filename:   "doc.pdf",
		Path:       path,
	})
	if err == nil {
		t.Fatal("expected upload error to propagate for queue retry")
	}
	mockStore.AssertExpectations(t)
	mockClient.AssertExpectations(t)
}
