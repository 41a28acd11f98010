package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/ragdex/ragdex/internal/ai"
	"github.com/ragdex/ragdex/internal/filestore"
	"github.com/ragdex/ragdex/internal/ingest"
	"github.com/ragdex/ragdex/internal/model"
	"github.com/ragdex/ragdex/internal/vectorindex"
)

// ErrNoNewFiles means a batch produced zero indexable chunks. It is a client
// input problem, not a server fault.
var ErrNoNewFiles = errors.New("no new files to index")

type FileStatus string

const (
	FileIndexed          FileStatus = "indexed"
	FileSkippedDuplicate FileStatus = "skipped_duplicate"
	FileSkippedEmpty     FileStatus = "skipped_empty"
	FileFailed           FileStatus = "failed"
)

// FileResult is the per-file outcome of one upload batch. A failed file never
// aborts its siblings.
type FileResult struct {
	Filename string     `json:"filename"`
	Status   FileStatus `json:"status"`
	Reason   string     `json:"reason,omitempty"`
	Chunks   int        `json:"chunks"`
}

type IndexSummary struct {
	FilesProcessed  int
	NewFilesIndexed int
	ChunksIndexed   int
	Files           []FileResult
}

// DedupChecker reports whether a content hash is already represented in the
// index.
type DedupChecker interface {
	IsAlreadyIndexed(ctx context.Context, contentHash string) (bool, error)
}

type IndexService struct {
	embedder         ai.IEmbedder
	store            vectorindex.Store
	gate             DedupChecker
	archive          filestore.Store // optional
	policies         ingest.Policies
	maxMetadataChars int
}

func NewIndexService(
	embedder ai.IEmbedder,
	store vectorindex.Store,
	gate DedupChecker,
	archive filestore.Store,
	policies ingest.Policies,
	maxMetadataChars int,
) *IndexService {
	if maxMetadataChars <= 0 {
		maxMetadataChars = 1000
	}
	return &IndexService{
		embedder:         embedder,
		store:            store,
		gate:             gate,
		archive:          archive,
		policies:         policies,
		maxMetadataChars: maxMetadataChars,
	}
}

type pendingChunk struct {
	text     string
	filename string
	hash     string
}

// Index runs the upload pipeline: dedup-check, extract, chunk per file, then
// one batched embed plus one batched upsert for everything accumulated.
func (s *IndexService) Index(ctx context.Context, files []model.Document) (*IndexSummary, error) {
	logger := logutil.GetLogger(ctx).With(zap.Int("files", len(files)))
	logger.Info("upload batch started")

	summary := &IndexSummary{FilesProcessed: len(files)}
	var pending []pendingChunk
	var indexed []*model.Document

	for i := range files {
		file := &files[i]
		result := s.processFile(ctx, file, &pending)
		summary.Files = append(summary.Files, result)
		if result.Status == FileIndexed {
			indexed = append(indexed, file)
		}
	}

	if len(pending) == 0 {
		failed := 0
		for _, result := range summary.Files {
			if result.Status == FileFailed {
				failed++
			}
		}
		if failed > 0 {
			// Nothing succeeded and at least one file hit a real fault; that
			// is a server problem, not an empty batch.
			logger.Error("upload batch failed", zap.Int("failed_files", failed))
			return nil, fmt.Errorf("%d of %d files failed to index", failed, len(files))
		}
		logger.Info("upload batch produced no new chunks")
		return nil, ErrNoNewFiles
	}

	texts := make([]string, 0, len(pending))
	for _, chunk := range pending {
		texts = append(texts, chunk.text)
	}
	logger.Info("embedding new chunks", zap.Int("chunks", len(texts)))
	vectors, err := s.embedder.EmbedBatch(ctx, texts, "RETRIEVAL_DOCUMENT")
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	batchID := uuid.New().String()
	records := make([]vectorindex.Record, 0, len(pending))
	for i, chunk := range pending {
		records = append(records, vectorindex.Record{
			ID:     fmt.Sprintf("%s-%d", batchID, i),
			Vector: vectors[i],
			Metadata: map[string]string{
				"text":                 truncateRunes(chunk.text, s.maxMetadataChars),
				"source":               chunk.filename,
				ingest.MetadataFileID: chunk.hash,
			},
		})
	}
	if err := s.store.Upsert(ctx, records); err != nil {
		return nil, fmt.Errorf("upsert vectors: %w", err)
	}

	s.archiveFiles(ctx, indexed)

	// Identical files in one batch slip past the dedup gate together; count
	// distinct content, not entries.
	newHashes := make(map[string]struct{}, len(indexed))
	for _, chunk := range pending {
		newHashes[chunk.hash] = struct{}{}
	}
	summary.NewFilesIndexed = len(newHashes)
	summary.ChunksIndexed = len(records)
	logger.Info("upload batch indexed",
		zap.String("batch_id", batchID),
		zap.Int("new_files", summary.NewFilesIndexed),
		zap.Int("chunks", summary.ChunksIndexed),
	)
	return summary, nil
}

func (s *IndexService) processFile(ctx context.Context, file *model.Document, pending *[]pendingChunk) FileResult {
	logger := logutil.GetLogger(ctx).With(zap.String("filename", file.Filename))
	result := FileResult{Filename: file.Filename}

	hash := ingest.ContentHash(file.Data)
	exists, err := s.gate.IsAlreadyIndexed(ctx, hash)
	if err != nil {
		logger.Error("dedup check failed", zap.Error(err))
		result.Status = FileFailed
		result.Reason = err.Error()
		return result
	}
	if exists {
		logger.Info("skipping already indexed file")
		result.Status = FileSkippedDuplicate
		result.Reason = "identical content already indexed"
		return result
	}

	text := ingest.ExtractText(ctx, file.Data, file.ContentType, file.Filename)
	if strings.TrimSpace(text) == "" {
		logger.Warn("no text extracted")
		result.Status = FileSkippedEmpty
		result.Reason = "no extractable text"
		return result
	}

	policy := s.policies.For(file.Filename)
	chunks, err := ingest.Split(text, policy.Window, policy.Overlap)
	if err != nil {
		logger.Error("chunking failed", zap.Error(err))
		result.Status = FileFailed
		result.Reason = err.Error()
		return result
	}
	if len(chunks) == 0 {
		result.Status = FileSkippedEmpty
		result.Reason = "no extractable text"
		return result
	}
	for _, chunk := range chunks {
		*pending = append(*pending, pendingChunk{
			text:     ingest.Tag(file.Filename, chunk),
			filename: file.Filename,
			hash:     hash,
		})
	}
	logger.Info("file chunked", zap.Int("chunks", len(chunks)))
	result.Status = FileIndexed
	result.Chunks = len(chunks)
	return result
}

// archiveFiles is best effort; the vectors are already committed.
func (s *IndexService) archiveFiles(ctx context.Context, files []*model.Document) {
	if s.archive == nil {
		return
	}
	for _, file := range files {
		key := archiveKey(file)
		err := s.archive.Save(ctx, key, bytes.NewReader(file.Data), int64(len(file.Data)))
		if err != nil {
			logutil.GetLogger(ctx).Warn("archive upload failed",
				zap.String("filename", file.Filename),
				zap.Error(err),
			)
		}
	}
}

func archiveKey(file *model.Document) string {
	hash := ingest.ContentHash(file.Data)
	name := filepath.Base(file.Filename)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	return hash[:12] + "-" + name
}

func truncateRunes(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
