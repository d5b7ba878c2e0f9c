// Package uploader executes concurrent, independent uploads of listing
// assets and feeds completed entries back into the draft. Each file is its
// own task with its own lifecycle; one file failing never touches its
// siblings. Task state changes travel as events over a channel drained by
// a single dispatcher, which is what serializes merges into the draft and
// makes "first image merged becomes cover" well-defined even when uploads
// finish in the same tick.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"listflow/config"
	"listflow/draft"
	"listflow/identity"
	"listflow/models"
)

// ErrRemoteDeleteFailed wraps storage failures during Remove. The draft
// entry is kept: local state must not claim an object is gone while the
// remote still has it.
var ErrRemoteDeleteFailed = errors.New("remote delete failed")

// ObjectStore is the remote storage collaborator. Objects must be written
// under a path whose first segment is the uploader's user id; the storage
// layer enforces that rule server-side.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, path string, data io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, bucket, path string) error
	PathFromURL(url string) string
}

type Orchestrator struct {
	store   ObjectStore
	ids     identity.Provider
	agg     *draft.Aggregator
	buckets config.BucketConfig
	sem     *semaphore.Weighted // nil: unbounded, as the original behaves

	mu       sync.Mutex
	cond     *sync.Cond
	tasks    map[uuid.UUID]*models.UploadTask
	inflight int
	closed   bool

	events    chan models.TaskEvent
	dispDone  chan struct{}
	listeners []chan models.TaskEvent
}

func NewOrchestrator(store ObjectStore, ids identity.Provider, agg *draft.Aggregator, buckets config.BucketConfig, concurrency int) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		ids:      ids,
		agg:      agg,
		buckets:  buckets,
		tasks:    make(map[uuid.UUID]*models.UploadTask),
		events:   make(chan models.TaskEvent, 64),
		dispDone: make(chan struct{}),
	}
	o.cond = sync.NewCond(&o.mu)
	if concurrency > 0 {
		o.sem = semaphore.NewWeighted(int64(concurrency))
	}
	go o.dispatch()
	return o
}

// Enqueue starts one upload per file. The whole batch is rejected when no
// identity is available; otherwise files proceed independently and in
// parallel, each merging into the draft on completion. Returns the task
// tokens in file order.
func (o *Orchestrator) Enqueue(ctx context.Context, files []models.FileRef, category models.UploadCategory) ([]uuid.UUID, error) {
	uid, err := o.ids.UserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("enqueue: %w", err)
	}
	if len(files) == 0 {
		return nil, nil
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, errors.New("orchestrator closed")
	}
	tokens := make([]uuid.UUID, 0, len(files))
	started := make([]*models.UploadTask, 0, len(files))
	for _, f := range files {
		task := &models.UploadTask{
			Token:    uuid.New(),
			File:     f,
			Category: category,
			Status:   models.TaskStatusQueued,
		}
		o.tasks[task.Token] = task
		tokens = append(tokens, task.Token)
		started = append(started, task)
	}
	// The flag flips under the same lock as the counter so overlapping
	// enqueues and resolves cannot publish it out of order.
	if o.inflight == 0 {
		o.agg.Apply(models.Patch{UploadsInFlight: models.Set(true)})
	}
	o.inflight += len(files)
	o.mu.Unlock()

	for _, task := range started {
		o.emit(models.TaskEvent{
			Token:    task.Token,
			Category: category,
			FileName: task.File.Name,
			Status:   models.TaskStatusQueued,
		})
		go o.run(ctx, uid, task)
	}
	return tokens, nil
}

func (o *Orchestrator) run(ctx context.Context, uid string, task *models.UploadTask) {
	if o.sem != nil {
		if err := o.sem.Acquire(ctx, 1); err != nil {
			o.events <- models.TaskEvent{
				Token: task.Token, Category: task.Category,
				FileName: task.File.Name, Status: models.TaskStatusError, Err: err,
			}
			return
		}
		defer o.sem.Release(1)
	}

	// Queued until here; a task parked on the semaphore moves no bytes.
	o.mu.Lock()
	task.Status = models.TaskStatusUploading
	o.mu.Unlock()
	o.events <- models.TaskEvent{
		Token: task.Token, Category: task.Category,
		FileName: task.File.Name, Status: models.TaskStatusUploading,
	}

	// Path is namespaced by the uploader's id: storage access control
	// requires the first segment to match the authenticated user.
	objPath := fmt.Sprintf("%s/%s/%s%s", uid, task.Category, task.Token, strings.ToLower(path.Ext(task.File.Name)))
	contentType := task.File.ContentType
	if contentType == "" {
		contentType = guessContentType(task.File.Name)
	}

	reader := task.File.Reader
	if task.File.Size > 0 {
		reader = &progressReader{r: reader, total: task.File.Size, o: o, task: task}
	}

	url, err := o.store.Upload(ctx, o.bucketFor(task.Category), objPath, reader, contentType)
	if closer, ok := task.File.Reader.(io.Closer); ok {
		closer.Close()
	}
	if err != nil {
		o.events <- models.TaskEvent{
			Token: task.Token, Category: task.Category,
			FileName: task.File.Name, Status: models.TaskStatusError, Err: err,
		}
		return
	}

	o.events <- models.TaskEvent{
		Token: task.Token, Category: task.Category,
		FileName: task.File.Name, Status: models.TaskStatusCompleted,
		Progress: 100, URL: url, Size: task.File.Size,
	}
}

// dispatch drains task events one at a time. Completion merges the new
// entry into the draft before the task counts as resolved, so the wizard
// gate cannot open between "upload finished" and "draft updated".
func (o *Orchestrator) dispatch() {
	defer close(o.dispDone)
	for ev := range o.events {
		switch ev.Status {
		case models.TaskStatusCompleted:
			o.mergeCompleted(ev)
			o.resolve(ev.Token, models.TaskStatusCompleted, ev.URL, nil)
		case models.TaskStatusError:
			log.Printf("upload failed: %s: %v", ev.FileName, ev.Err)
			o.resolve(ev.Token, models.TaskStatusError, "", ev.Err)
		}
		o.broadcast(ev)
	}
}

func (o *Orchestrator) mergeCompleted(ev models.TaskEvent) {
	switch ev.Category {
	case models.CategoryDocument:
		o.agg.Apply(models.Patch{AddDocument: &models.DocumentEntry{
			URL:  ev.URL,
			Name: ev.FileName,
			Size: ev.Size,
		}})
	case models.CategoryVideo:
		o.agg.Apply(models.Patch{AddMedia: &models.MediaEntry{URL: ev.URL, Type: models.MediaTypeVideo}})
	default:
		o.agg.Apply(models.Patch{AddMedia: &models.MediaEntry{URL: ev.URL, Type: models.MediaTypeImage}})
	}
}

// resolve removes the task from tracking. Tasks are never resurrected; a
// failed file is retried by re-selecting it, which makes a new task.
func (o *Orchestrator) resolve(token uuid.UUID, status, url string, err error) {
	o.mu.Lock()
	task, ok := o.tasks[token]
	if ok {
		task.Status = status
		task.URL = url
		task.Err = err
		if status == models.TaskStatusCompleted {
			task.Progress = 100
		}
		delete(o.tasks, token)
		o.inflight--
		if o.inflight == 0 {
			o.agg.Apply(models.Patch{UploadsInFlight: models.Set(false)})
		}
	}
	o.cond.Broadcast()
	o.mu.Unlock()
}

// Wait blocks until no uploads are in flight.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	for o.inflight > 0 {
		o.cond.Wait()
	}
	o.mu.Unlock()
}

// InFlight reports the number of unresolved tasks.
func (o *Orchestrator) InFlight() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inflight
}

// Remove deletes the remote object and, only on confirmed deletion, drops
// the matching entry from the draft. Remote existence is the source of
// truth: a failed delete leaves the entry in place.
func (o *Orchestrator) Remove(ctx context.Context, url string, kind models.UploadCategory) error {
	if err := o.store.Delete(ctx, o.bucketFor(kind), o.store.PathFromURL(url)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRemoteDeleteFailed, url, err)
	}
	if kind == models.CategoryDocument {
		o.agg.Apply(models.Patch{RemoveDocumentURL: models.Set(url)})
	} else {
		o.agg.Apply(models.Patch{RemoveMediaURL: models.Set(url)})
	}
	return nil
}

// Subscribe returns a channel of task events for progress rendering.
// Slow consumers drop events rather than stall uploads.
func (o *Orchestrator) Subscribe() <-chan models.TaskEvent {
	ch := make(chan models.TaskEvent, 64)
	o.mu.Lock()
	o.listeners = append(o.listeners, ch)
	o.mu.Unlock()
	return ch
}

func (o *Orchestrator) broadcast(ev models.TaskEvent) {
	o.mu.Lock()
	listeners := o.listeners
	o.mu.Unlock()
	for _, ch := range listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (o *Orchestrator) emit(ev models.TaskEvent) {
	o.events <- ev
}

// Close rejects further enqueues, waits for in-flight uploads to resolve
// and stops the dispatcher. The closed flag flips before the wait, under
// the same lock Enqueue checks it under, so no enqueue can slip in after
// the wait and send on the closing events channel.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	for o.inflight > 0 {
		o.cond.Wait()
	}
	o.mu.Unlock()

	close(o.events)
	<-o.dispDone

	o.mu.Lock()
	for _, ch := range o.listeners {
		close(ch)
	}
	o.listeners = nil
	o.mu.Unlock()
}

func (o *Orchestrator) bucketFor(category models.UploadCategory) string {
	switch category {
	case models.CategoryVideo:
		return o.buckets.Videos
	case models.CategoryDocument:
		return o.buckets.Documents
	default:
		return o.buckets.Images
	}
}

func guessContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// progressReader tracks bytes pushed to storage, updates the task's
// progress and emits an event per whole-percent change so subscribers
// can render per-file progress while the upload runs.
type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	last  int
	o     *Orchestrator
	task  *models.UploadTask
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	p.read += int64(n)
	pct := int(p.read * 100 / p.total)
	if pct > 100 {
		pct = 100
	}
	p.o.mu.Lock()
	p.task.Progress = pct
	p.o.mu.Unlock()
	if pct != p.last {
		p.last = pct
		p.o.events <- models.TaskEvent{
			Token: p.task.Token, Category: p.task.Category,
			FileName: p.task.File.Name, Status: models.TaskStatusProgress,
			Progress: pct,
		}
	}
	return n, err
}

// NoOpStore discards uploads, for dry runs.
type NoOpStore struct{}

func (NoOpStore) Upload(ctx context.Context, bucket, path string, data io.Reader, contentType string) (string, error) {
	io.Copy(io.Discard, data)
	return "noop://" + bucket + "/" + path, nil
}

func (NoOpStore) Delete(ctx context.Context, bucket, path string) error { return nil }

func (NoOpStore) PathFromURL(url string) string {
	return strings.TrimPrefix(url, "noop://")
}
