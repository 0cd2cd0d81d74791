package diagnostics

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DanielWillett/unturned-dat-language-server/internal/observability"
	"github.com/DanielWillett/unturned-dat-language-server/internal/workspace"
)

const (
	DefaultInlineLimit    = 3
	DefaultInlineInterval = 500 * time.Millisecond
	DefaultDebounce       = 500 * time.Millisecond
)

type Options struct {
	// InlineLimit is the largest queue the calling goroutine drains itself.
	InlineLimit int
	// InlineInterval is the least time between two inline drains.
	InlineInterval time.Duration
	// Debounce delays content changes so bursts of edits share one pass.
	Debounce time.Duration
	// Matcher selects the files DiscoverAll finds. Without one DiscoverAll
	// finds nothing.
	Matcher *workspace.Matcher
}

func (o *Options) applyDefaults() {
	if o.InlineLimit <= 0 {
		o.InlineLimit = DefaultInlineLimit
	}
	if o.InlineInterval <= 0 {
		o.InlineInterval = DefaultInlineInterval
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
}

// Stats is a snapshot of the scheduler.
type Stats struct {
	Queued         int
	Tracked        int
	Recalculations int64
	WorkerRunning  bool
}

// Scheduler turns file events into work items and runs them, either on the
// goroutine that reported the event or on a single background worker.
type Scheduler struct {
	env  Env
	reg  *Registry
	opts Options
	log  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	queueMu sync.Mutex
	queue   []WorkItem

	// mu guards running and lastInline.
	mu         sync.Mutex
	idle       *sync.Cond
	running    bool
	lastInline time.Time

	debounceMu sync.Mutex
	timers     map[string]*time.Timer

	waitingInit atomic.Bool
	closed      atomic.Bool
}

func NewScheduler(env Env, opts Options) *Scheduler {
	opts.applyDefaults()
	reg := NewRegistry(env)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		env:    reg.env,
		reg:    reg,
		opts:   opts,
		log:    reg.log,
		ctx:    ctx,
		cancel: cancel,
		timers: make(map[string]*time.Timer),
	}
	s.idle = sync.NewCond(&s.mu)
	return s
}

func (s *Scheduler) Registry() *Registry { return s.reg }

// Enqueue adds item and dispatches the queue.
func (s *Scheduler) Enqueue(item WorkItem) {
	s.push(item)
	s.dispatch(false)
}

// NotifyFolderAdded discovers a new workspace folder on the worker.
func (s *Scheduler) NotifyFolderAdded(path string) {
	s.push(WorkItem{Path: path, Kind: DiscoverAll})
	s.dispatch(true)
}

// NotifyFolderRemoved forgets a workspace folder's files on the worker.
func (s *Scheduler) NotifyFolderRemoved(path string) {
	s.push(WorkItem{Path: path, Kind: DeleteAll})
	s.dispatch(true)
}

func (s *Scheduler) NotifyFileCreated(path string) {
	s.Enqueue(WorkItem{Path: path, Kind: Recalculate})
}

func (s *Scheduler) NotifyFileUpdated(path string) {
	s.Enqueue(WorkItem{Path: path, Kind: Recalculate})
}

func (s *Scheduler) NotifyFileDeleted(path string) {
	s.Enqueue(WorkItem{Path: path, Kind: Delete})
}

func (s *Scheduler) NotifyFileRenamed(oldPath, newPath string) {
	s.Enqueue(WorkItem{Path: newPath, RenamedFrom: oldPath, Kind: Recalculate})
}

// NotifyContentChanged schedules a pass for buf once it has stopped changing.
// The pass is dropped if buf moved past version in the meantime.
func (s *Scheduler) NotifyContentChanged(buf Buffer, version int32) {
	if s.closed.Load() {
		return
	}
	key := workspace.NormalizePath(buf.Path())

	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(s.opts.Debounce, func() {
		s.debounceMu.Lock()
		if s.timers[key] != t {
			s.debounceMu.Unlock()
			return
		}
		delete(s.timers, key)
		s.debounceMu.Unlock()

		if buf.Version() != version {
			return
		}
		s.Enqueue(WorkItem{Path: buf.Path(), Kind: Recalculate})
	})
	s.timers[key] = t
}

// NotifyFileOpened attaches buf to its file and analyzes it.
func (s *Scheduler) NotifyFileOpened(buf Buffer) {
	s.reg.GetOrCreate(buf.Path()).SetOpenBuffer(buf)
	s.Enqueue(WorkItem{Path: buf.Path(), Kind: Recalculate})
}

// NotifyFileClosed detaches buf and reanalyzes the file from disk.
func (s *Scheduler) NotifyFileClosed(buf Buffer) {
	s.stopTimer(buf.Path())
	state := s.reg.Lookup(buf.Path())
	if state == nil || !state.ClearOpenBuffer(buf) {
		return
	}
	s.Enqueue(WorkItem{Path: buf.Path(), Kind: Recalculate})
}

func (s *Scheduler) stopTimer(path string) {
	key := workspace.NormalizePath(path)
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

// Wait blocks until the background worker is idle.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.running {
		s.idle.Wait()
	}
}

// Close stops pending debounce timers and waits for the worker to exit.
// Items still queued are dropped.
func (s *Scheduler) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.debounceMu.Lock()
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
	s.debounceMu.Unlock()
	s.cancel()
	s.Wait()
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	return Stats{
		Queued:         s.queueLen(),
		Tracked:        s.reg.Len(),
		Recalculations: s.reg.Recalculations(),
		WorkerRunning:  running,
	}
}

func (s *Scheduler) push(item WorkItem) {
	s.queueMu.Lock()
	s.queue = append(s.queue, item)
	depth := len(s.queue)
	s.queueMu.Unlock()
	observability.WorkItemsEnqueuedTotal.WithLabelValues(item.Kind.String()).Inc()
	observability.WorkQueueDepth.Set(float64(depth))
}

func (s *Scheduler) pop() (WorkItem, bool) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if len(s.queue) == 0 {
		return WorkItem{}, false
	}
	item := s.queue[0]
	s.queue[0] = WorkItem{}
	s.queue = s.queue[1:]
	if len(s.queue) == 0 {
		s.queue = nil
	}
	observability.WorkQueueDepth.Set(float64(len(s.queue)))
	return item, true
}

func (s *Scheduler) queueLen() int {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	return len(s.queue)
}

func (s *Scheduler) dispatch(background bool) {
	if s.closed.Load() {
		return
	}
	if db := s.env.Database; db != nil && !db.IsInitialized() {
		s.awaitInitialize()
		return
	}
	if !background {
		s.drainInline()
	}
	s.startWorker()
}

// awaitInitialize registers one callback that drains the queue once the
// database is ready.
func (s *Scheduler) awaitInitialize() {
	if !s.waitingInit.CompareAndSwap(false, true) {
		return
	}
	s.log.Debug("diagnostics waiting for the specification database")
	s.env.Database.OnInitialize(func() {
		s.waitingInit.Store(false)
		s.dispatch(true)
	})
}

func (s *Scheduler) drainInline() {
	n := s.queueLen()
	s.mu.Lock()
	if n == 0 || n > s.opts.InlineLimit || time.Since(s.lastInline) < s.opts.InlineInterval {
		s.mu.Unlock()
		return
	}
	s.lastInline = time.Now()
	s.mu.Unlock()

	// Processing may enqueue more items; those are left for the worker.
	for i := 0; i < n; i++ {
		item, ok := s.pop()
		if !ok {
			return
		}
		s.process(item, "inline")
	}
}

func (s *Scheduler) startWorker() {
	s.mu.Lock()
	if s.running || s.queueLen() == 0 {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	observability.WorkerStartsTotal.Inc()
	go s.work()
}

func (s *Scheduler) work() {
	s.log.Debug("diagnostics worker started")
	for {
		for !s.closed.Load() {
			item, ok := s.pop()
			if !ok {
				break
			}
			s.process(item, "worker")
		}

		// Items pushed after the drain but before running is cleared would
		// otherwise wait for the next event.
		s.mu.Lock()
		if s.closed.Load() || s.queueLen() == 0 {
			s.running = false
			s.idle.Broadcast()
			s.mu.Unlock()
			s.log.Debug("diagnostics worker exited")
			return
		}
		s.mu.Unlock()
	}
}

func (s *Scheduler) process(item WorkItem, mode string) {
	observability.WorkItemsProcessedTotal.WithLabelValues(item.Kind.String(), mode).Inc()
	s.log.Debug("processing work item", "kind", item.Kind, "path", item.Path, "renamedFrom", item.RenamedFrom, "mode", mode)

	switch item.Kind {
	case Delete:
		s.reg.Remove(item.Path)
	case DeleteAll:
		s.reg.RemoveUnder(item.Path)
	case DiscoverAll:
		s.discover(item.Path)
	case Recalculate:
		var state *FileState
		if item.RenamedFrom != "" {
			state = s.reg.Move(item.RenamedFrom, item.Path)
		} else {
			state = s.reg.GetOrCreate(item.Path)
		}
		err := state.Recalculate(s.ctx)
		switch {
		case errors.Is(err, ErrFileVanished):
			s.reg.Remove(item.Path)
		case err != nil:
			s.log.Debug("recalculation failed", "path", item.Path, "error", err)
		}
	}
}

// discover queues every selected file below dir. A directory that is gone
// or has no selected files is treated as DeleteAll.
func (s *Scheduler) discover(dir string) {
	var matches []string
	if s.opts.Matcher != nil {
		var err error
		matches, err = s.opts.Matcher.Match(dir)
		if err != nil {
			s.log.Debug("discovery failed", "dir", dir, "error", err)
			matches = nil
		}
	}
	if len(matches) == 0 {
		s.reg.RemoveUnder(dir)
		return
	}
	for _, rel := range matches {
		s.push(WorkItem{Path: filepath.Join(dir, rel), Kind: Recalculate})
	}
}
