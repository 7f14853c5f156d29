package collector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tbrennan/chronicle/pkg/types"
)

// ignorePatterns are substrings of a path that mark it as noise: editor
// swap files, VCS internals, build caches. Any match anywhere in the path
// excludes the event.
var ignorePatterns = []string{
	".git/",
	"__pycache__/",
	".pyc",
	".pyo",
	".swp",
	".swo",
	"~",
	".DS_Store",
	"Thumbs.db",
	".idea/",
	".vscode/",
	"node_modules/",
	".pytest_cache/",
	".mypy_cache/",
}

func shouldIgnorePath(path string) bool {
	for _, p := range ignorePatterns {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// Filesystem watches a set of root directories recursively and emits
// file.create/modify/delete/move events, skipping editor and VCS noise.
type Filesystem struct {
	watchPaths []string
	log        zerolog.Logger
}

// NewFilesystem constructs a filesystem collector over the given roots.
func NewFilesystem(watchPaths []string, log zerolog.Logger) *Filesystem {
	return &Filesystem{watchPaths: watchPaths, log: log}
}

func (f *Filesystem) Name() string { return "filesystem" }

func (f *Filesystem) Run(ctx context.Context, sink Sink) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, root := range f.watchPaths {
		if err := f.addRecursive(watcher, root); err != nil {
			f.log.Warn().Err(err).Str("path", root).Msg("failed to watch path")
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			f.handle(event, sink)
			// A newly created directory needs its own watch registered so
			// descendants are observed too.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (f *Filesystem) addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if shouldIgnorePath(path + "/") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func (f *Filesystem) handle(event fsnotify.Event, sink Sink) {
	if shouldIgnorePath(event.Name) {
		return
	}
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		return
	}

	var eventType types.EventType
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = types.EventFileCreate
	case event.Op&fsnotify.Write != 0:
		eventType = types.EventFileModify
	case event.Op&fsnotify.Remove != 0:
		eventType = types.EventFileDelete
	case event.Op&fsnotify.Rename != 0:
		eventType = types.EventFileMove
	default:
		return
	}

	sink(f.createEvent(eventType, event.Name))
}

func (f *Filesystem) createEvent(eventType types.EventType, path string) types.Event {
	repo := findRepository(path)
	base := filepath.Base(path)

	var description string
	switch eventType {
	case types.EventFileCreate:
		description = "File create: " + base
	case types.EventFileModify:
		description = "File modify: " + base
	case types.EventFileDelete:
		description = "File delete: " + base
	case types.EventFileMove:
		description = "File moved: " + base
	}

	return types.Event{
		ID:          uuid.NewString(),
		EventType:   eventType,
		Timestamp:   time.Now(),
		Source:      f.Name(),
		Subject:     path,
		Description: description,
		Repository:  repo,
		Metadata: map[string]string{
			"extension":  filepath.Ext(path),
			"parent_dir": filepath.Dir(path),
		},
	}
}

// findRepository walks up from path looking for a .git directory,
// returning the repository root or "" if none is found before the
// filesystem root.
func findRepository(path string) string {
	dir := path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		dir = filepath.Dir(path)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
