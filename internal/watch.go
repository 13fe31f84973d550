package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	tt "github.com/gnolang/nodepat/internal/types"
)

// DefaultDebounce groups bursts of writes to one file into a single run.
const DefaultDebounce = 100 * time.Millisecond

// ReportFunc receives the result of each re-lint in watch mode.
type ReportFunc func(filename string, issues []tt.Issue, err error)

type watchState struct {
	watchMu    sync.Mutex
	watcher    *fsnotify.Watcher
	isWatching bool
	debounce   time.Duration
	report     ReportFunc
	timers     map[string]*time.Timer
	loopDone   chan struct{}
	pending    sync.WaitGroup
}

// OnReport replaces the default watch reporter, which logs.
func (e *Engine) OnReport(fn ReportFunc) {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	e.report = fn
}

// SetDebounce sets how long a file must stay quiet before it is linted.
func (e *Engine) SetDebounce(d time.Duration) {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	e.debounce = d
}

// StartWatching re-lints Go files below dirs whenever they are written.
func (e *Engine) StartWatching(dirs ...string) error {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()

	if e.isWatching {
		return errors.New("already watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}

	for _, dir := range dirs {
		err := afero.Walk(e.fs, dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return watcher.Add(path)
			}
			return nil
		})
		if err != nil {
			watcher.Close()
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}

	if e.debounce == 0 {
		e.debounce = DefaultDebounce
	}
	if e.report == nil {
		e.report = e.logIssues
	}
	e.watcher = watcher
	e.timers = make(map[string]*time.Timer)
	e.loopDone = make(chan struct{})
	e.isWatching = true

	go e.watchLoop(watcher, e.loopDone)
	e.logger.Info("watching", zap.Strings("dirs", dirs))
	return nil
}

// StopWatching stops the watcher and waits for runs in flight.
func (e *Engine) StopWatching() error {
	e.watchMu.Lock()
	if !e.isWatching {
		e.watchMu.Unlock()
		return errors.New("not watching")
	}
	e.isWatching = false
	for name, t := range e.timers {
		if t.Stop() {
			e.pending.Done()
		}
		delete(e.timers, name)
	}
	watcher, done := e.watcher, e.loopDone
	e.watchMu.Unlock()

	err := watcher.Close()
	<-done
	e.pending.Wait()
	return err
}

func (e *Engine) watchLoop(watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			e.handleFileEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			e.logger.Error("watch error", zap.Error(err))
		}
	}
}

func (e *Engine) handleFileEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Ext(event.Name) != ".go" {
		return
	}

	e.watchMu.Lock()
	defer e.watchMu.Unlock()

	if !e.isWatching {
		return
	}
	if t, ok := e.timers[event.Name]; ok {
		if !t.Reset(e.debounce) {
			e.pending.Add(1)
		}
		return
	}

	name := event.Name
	e.pending.Add(1)
	e.timers[name] = time.AfterFunc(e.debounce, func() {
		defer e.pending.Done()
		e.relint(name)
	})
}

func (e *Engine) relint(filename string) {
	e.watchMu.Lock()
	watching := e.isWatching
	delete(e.timers, filename)
	report := e.report
	e.watchMu.Unlock()

	if !watching {
		return
	}
	issues, err := e.Run(filename)
	report(filename, issues, err)
}

func (e *Engine) logIssues(filename string, issues []tt.Issue, err error) {
	if err != nil {
		e.logger.Error("lint failed", zap.String("file", filename), zap.Error(err))
		return
	}
	if len(issues) == 0 {
		e.logger.Info("no issues found", zap.String("file", filename))
		return
	}

	e.logger.Info("issues found", zap.String("file", filename), zap.Int("count", len(issues)))
	for _, issue := range issues {
		e.logger.Info(issue.Message,
			zap.String("rule", issue.Rule),
			zap.Stringer("severity", issue.Severity),
			zap.Int("line", issue.Start.Line),
		)
	}
}
