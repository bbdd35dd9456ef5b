package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"docrag/internal/chunker"
	"docrag/internal/extract"
	"docrag/internal/middleware"
	"docrag/internal/models"
	"docrag/internal/services/notify"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

/*
LEARNING: STAGED BATCH PIPELINE

Ingestion runs in two passes over two staging trees:

  docs_input/  --extract-->  texts_input/ (one sentence per line)
       |                          |
       v                          v
  docs_processed/            --embed--> store, then texts_processed/

A file only moves to its "processed" tree once its pass succeeded, so a
halted batch is resumed by simply running it again. Per-file extraction
problems are logged and skipped; a store failure stops the batch.

Only one batch runs at a time: the mutex serialises CLI and API callers,
and the job queue has exactly one worker.
*/

// StagingDirs are the four staging trees.
type StagingDirs struct {
	InputDir         string
	ProcessedDir     string
	TextDir          string
	TextProcessedDir string
}

// SkippedFile is a source file left in place.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// EmbeddedFile is a staged text file that reached the store.
type EmbeddedFile struct {
	Name       string `json:"name"`
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
}

// BatchReport summarises one run.
type BatchReport struct {
	RunID     string         `json:"run_id"`
	Extracted []string       `json:"extracted"`
	Skipped   []SkippedFile  `json:"skipped"`
	Embedded  []EmbeddedFile `json:"embedded"`
}

// ExtractedFile is the result of ExtractFile.
type ExtractedFile struct {
	Type      models.FileType `json:"type"`
	Sentences []string        `json:"sentences"`
}

// IngestJob is one queued batch.
type IngestJob struct {
	RunID string
}

// IngestServiceImpl runs the extraction and embedding passes.
type IngestServiceImpl struct {
	sniffer    FormatSniffer
	extractor  TextExtractor
	normalizer TextNormalizer
	splitter   SentenceSplitter
	chunker    *chunker.Chunker
	embedder   Embedder
	store      DocumentStore
	events     EventPublisher
	dirs       StagingDirs

	mu sync.Mutex

	// Single-worker queue for API-triggered batches
	jobs   chan IngestJob
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// IngestDeps groups the collaborators of the ingest service.
type IngestDeps struct {
	Sniffer    FormatSniffer
	Extractor  TextExtractor
	Normalizer TextNormalizer
	Splitter   SentenceSplitter
	Chunker    *chunker.Chunker
	Embedder   Embedder
	Store      DocumentStore
	Events     EventPublisher // optional
}

// NewIngestService creates the service. Returns concrete type.
func NewIngestService(deps IngestDeps, dirs StagingDirs, queueSize int) *IngestServiceImpl {
	events := deps.Events
	if events == nil {
		events = discardEvents{}
	}
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &IngestServiceImpl{
		sniffer:    deps.Sniffer,
		extractor:  deps.Extractor,
		normalizer: deps.Normalizer,
		splitter:   deps.Splitter,
		chunker:    deps.Chunker,
		embedder:   deps.Embedder,
		store:      deps.Store,
		events:     events,
		dirs:       dirs,
		jobs:       make(chan IngestJob, queueSize),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the queue worker.
func (s *IngestServiceImpl) Start() {
	s.wg.Add(1)
	go s.worker()
	log.Println("✓ Ingest worker started")
}

func (s *IngestServiceImpl) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			log.Printf("  Ingest worker running batch %s", job.RunID)
			if _, err := s.run(s.ctx, job.RunID); err != nil {
				log.Printf("❌ Batch %s failed: %v", job.RunID, err)
			}
		}
	}
}

// Submit queues a batch and returns its run id.
// Learning: blocks only when the queue is full (backpressure)
func (s *IngestServiceImpl) Submit(ctx context.Context) (string, error) {
	job := IngestJob{RunID: uuid.NewString()}
	select {
	case s.jobs <- job:
		return job.RunID, nil
	case <-s.ctx.Done():
		return "", errors.New("ingest service is shutting down")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// QueueLength returns current number of pending batches
func (s *IngestServiceImpl) QueueLength() int {
	return len(s.jobs)
}

// Shutdown stops the worker after the current batch step.
func (s *IngestServiceImpl) Shutdown() {
	log.Println("🛑 Shutting down ingest service...")
	s.cancel()
	s.wg.Wait()
	log.Println("✓ Ingest service shutdown complete")
}

// Run extracts every input file, then embeds every staged text file.
func (s *IngestServiceImpl) Run(ctx context.Context) (*BatchReport, error) {
	return s.run(ctx, uuid.NewString())
}

func (s *IngestServiceImpl) run(ctx context.Context, runID string) (*BatchReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := middleware.StartSpan(ctx, "Ingest.Run", attribute.String("run.id", runID))
	defer span.End()

	report := &BatchReport{RunID: runID}
	s.events.Publish(notify.Event{Type: notify.EventBatchStarted, RunID: runID})

	if err := s.extractDir(ctx, report); err != nil {
		return s.fail(ctx, report, err)
	}
	if err := s.embedDir(ctx, report); err != nil {
		return s.fail(ctx, report, err)
	}

	log.Printf("✓ Batch %s: %d extracted, %d skipped, %d embedded",
		runID, len(report.Extracted), len(report.Skipped), len(report.Embedded))
	s.events.Publish(notify.Event{Type: notify.EventBatchDone, RunID: runID, Chunks: report.totalChunks()})
	return report, nil
}

func (s *IngestServiceImpl) fail(ctx context.Context, report *BatchReport, err error) (*BatchReport, error) {
	middleware.AddSpanError(ctx, err)
	s.events.Publish(notify.Event{Type: notify.EventBatchFailed, RunID: report.RunID, Message: err.Error()})
	return report, err
}

func (r *BatchReport) totalChunks() int {
	n := 0
	for _, e := range r.Embedded {
		n += e.Chunks
	}
	return n
}

// ExtractDir runs the extraction pass alone.
func (s *IngestServiceImpl) ExtractDir(ctx context.Context) (*BatchReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &BatchReport{RunID: uuid.NewString()}
	return report, s.extractDir(ctx, report)
}

// EmbedDir runs the embedding pass alone.
func (s *IngestServiceImpl) EmbedDir(ctx context.Context) (*BatchReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &BatchReport{RunID: uuid.NewString()}
	return report, s.embedDir(ctx, report)
}

// ExtractFile resolves the file type, extracts, normalises and segments.
// Unknown and unsupported formats come back as models.ErrUnknownFormat and
// models.ErrUnsupportedFormat; extraction failures as *models.ExtractionError.
func (s *IngestServiceImpl) ExtractFile(ctx context.Context, path string) (*ExtractedFile, error) {
	ctx, span := middleware.StartSpan(ctx, "Ingest.ExtractFile", attribute.String("file.path", path))
	defer span.End()

	ft, ok := models.TypeFromName(path)
	if !ok {
		sniffed, err := s.sniffer.Sniff(path)
		if err != nil {
			middleware.AddSpanError(ctx, err)
			return nil, err
		}
		ft = sniffed
	}
	if !ft.IsSupported() {
		return nil, fmt.Errorf("%s (%s): %w", path, ft, models.ErrUnsupportedFormat)
	}
	span.SetAttributes(attribute.String("file.type", string(ft)))

	res, err := s.extractor.Extract(ctx, ft, path)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, err
	}

	text := s.normalizer.Normalize(res.Lines, res.Ignore...)
	sentences := s.splitter.Split(text)

	middleware.AddSpanEvent(ctx, "file_extracted", attribute.Int("sentences", len(sentences)))
	return &ExtractedFile{Type: ft, Sentences: sentences}, nil
}

// TextFileName is the staged name of a source file: dots become
// underscores and .txt is appended, so guide.docx becomes guide_docx.txt.
func TextFileName(name string) string {
	return strings.ReplaceAll(name, ".", "_") + ".txt"
}

func (s *IngestServiceImpl) extractDir(ctx context.Context, report *BatchReport) error {
	files, err := listFiles(s.dirs.InputDir)
	if err != nil {
		return err
	}

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		src := filepath.Join(s.dirs.InputDir, rel)
		extracted, err := s.ExtractFile(ctx, src)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("⚠️  Skipping %s: %v", src, err)
			report.Skipped = append(report.Skipped, SkippedFile{Path: rel, Reason: err.Error()})
			s.events.Publish(notify.Event{Type: notify.EventFileSkipped, RunID: report.RunID, File: rel, Message: err.Error()})
			continue
		}

		textRel := filepath.Join(filepath.Dir(rel), TextFileName(filepath.Base(rel)))
		if err := writeLines(filepath.Join(s.dirs.TextDir, textRel), extracted.Sentences); err != nil {
			return err
		}
		moveFile(src, filepath.Join(s.dirs.ProcessedDir, rel))

		log.Printf("✓ Extracted %s (%s, %d sentences)", rel, extracted.Type, len(extracted.Sentences))
		report.Extracted = append(report.Extracted, filepath.ToSlash(textRel))
		s.events.Publish(notify.Event{Type: notify.EventFileExtracted, RunID: report.RunID, File: rel})
	}

	removeDrainedDirs(s.dirs.InputDir)
	return nil
}

func (s *IngestServiceImpl) embedDir(ctx context.Context, report *BatchReport) error {
	files, err := listFiles(s.dirs.TextDir)
	if err != nil {
		return err
	}

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := filepath.Join(s.dirs.TextDir, rel)
		name := filepath.ToSlash(rel)

		doc, chunks, err := s.embedFile(ctx, path, name)
		if err != nil {
			return fmt.Errorf("failed to embed %s: %w", name, err)
		}
		moveFile(path, filepath.Join(s.dirs.TextProcessedDir, rel))

		report.Embedded = append(report.Embedded, EmbeddedFile{Name: name, DocumentID: doc.ID, Chunks: chunks})
		s.events.Publish(notify.Event{Type: notify.EventFileEmbedded, RunID: report.RunID, File: name, Chunks: chunks})
	}

	removeDrainedDirs(s.dirs.TextDir)
	return nil
}

// EmbedFile chunks a staged text file, embeds each chunk and replaces the
// document's chunk set in one transaction.
func (s *IngestServiceImpl) EmbedFile(ctx context.Context, path, name string) (*models.Document, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.embedFile(ctx, path, name)
}

func (s *IngestServiceImpl) embedFile(ctx context.Context, path, name string) (*models.Document, int, error) {
	ctx, span := middleware.StartSpan(ctx, "Ingest.EmbedFile", attribute.String("document.name", name))
	defer span.End()

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var (
		chunks  []models.NewChunk
		scanErr error
	)
	for chunk := range s.chunker.Chunk(scanLines(f, &scanErr)) {
		vec, err := s.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			middleware.AddSpanError(ctx, err)
			return nil, 0, fmt.Errorf("failed to embed chunk %d: %w", len(chunks), err)
		}
		chunks = append(chunks, models.NewChunk{Lines: chunk.Lines, Embedding: vec})
	}
	if scanErr != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", path, scanErr)
	}

	doc, err := s.store.ReplaceDocument(ctx, name, map[string]any{
		"text_path":  filepath.ToSlash(path),
		"max_tokens": s.chunker.MaxTokens(),
	}, chunks)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, 0, err
	}

	log.Printf("✓ Embedded %s (%d chunks)", name, len(chunks))
	return doc, len(chunks), nil
}

// scanLines yields the lines of f; a read error ends the sequence and is
// stored in errp.
func scanLines(f *os.File, errp *error) iter.Seq[string] {
	return func(yield func(string) bool) {
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), extract.MaxLineSize)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
		*errp = scanner.Err()
	}
}

// listFiles returns regular files under root, relative and sorted.
// A missing root is an empty batch.
func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func writeLines(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	for _, line := range lines {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// moveFile logs and ignores failures; the file is then simply processed
// again by the next batch.
func moveFile(src, dst string) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		log.Printf("⚠️  Could not create %s: %v", filepath.Dir(dst), err)
		return
	}
	if err := os.Rename(src, dst); err != nil {
		log.Printf("⚠️  Could not move %s to %s: %v", src, dst, err)
	}
}

// removeDrainedDirs deletes empty sub-directories of root, deepest first.
// root itself is kept.
func removeDrainedDirs(root string) {
	var dirs []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})

	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(dirs[i]); err != nil {
			log.Printf("⚠️  Could not remove %s: %v", dirs[i], err)
		}
	}
}
