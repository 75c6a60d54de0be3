// Package configwatch debounces reloads of a single configuration file,
// parsing it as YAML or TOML by extension and broadcasting the decoded
// value to subscribers. It watches the file's parent directory rather than
// the file itself, since editors commonly replace a config file by renaming
// a temp file over it — a watch on the original inode would miss that.
package configwatch

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/opencrust/opencrust/errors"
)

// ReloadFunc is called with the newly parsed value whenever the watched
// file changes. The zero value previously broadcast is left untouched on
// parse failure; the caller only ever sees successfully parsed configs.
type ReloadFunc func(v any) error

// Watcher watches one config file's parent directory and reloads v's
// concrete type (via a fresh zero value of the same type, see New) whenever
// the file is created or modified.
type Watcher struct {
	path     string
	newValue func() any

	fsw            *fsnotify.Watcher
	debouncePeriod time.Duration

	mu        sync.Mutex
	callbacks []ReloadFunc
	timer     *time.Timer

	done chan struct{}
}

// New creates a Watcher for the config file at path. newValue must return a
// fresh pointer to decode into on each reload (e.g. func() any { return
// &Config{} }).
func New(path string, newValue func() any) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapKind(err, errors.KindConfig, "create file watcher")
	}

	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, errors.WrapKind(err, errors.KindConfig, "watch config directory")
	}

	return &Watcher{
		path:           path,
		newValue:       newValue,
		fsw:            fsw,
		debouncePeriod: 500 * time.Millisecond,
		done:           make(chan struct{}),
	}, nil
}

// OnReload registers a callback invoked after every successful reload.
func (w *Watcher) OnReload(fn ReloadFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop closes the underlying directory watch and ends the background loop.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.scheduleReload()
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != filepath.Base(w.path) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create) != 0
}

// scheduleReload debounces bursts of events: the first event in a burst
// starts a 500ms timer; any event arriving before it fires resets the
// timer, so only the final, settled state of a multi-write save triggers
// one reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debouncePeriod, w.reload)
}

func (w *Watcher) reload() {
	v := w.newValue()
	if err := DecodeFile(w.path, v); err != nil {
		return
	}

	w.mu.Lock()
	callbacks := make([]ReloadFunc, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb(v)
	}
}

// DecodeFile parses path into v by extension: .yml/.yaml as YAML, .toml as
// TOML. Any other extension is rejected.
func DecodeFile(path string, v any) error {
	switch filepath.Ext(path) {
	case ".yml", ".yaml":
		return decodeYAML(path, v)
	case ".toml":
		return decodeTOML(path, v)
	default:
		return errors.NewKind(errors.KindConfig, "unsupported config extension: "+filepath.Ext(path))
	}
}

func decodeYAML(path string, v any) error {
	data, err := readFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return errors.WrapKind(err, errors.KindConfig, "parse yaml config")
	}
	return nil
}

func decodeTOML(path string, v any) error {
	data, err := readFile(path)
	if err != nil {
		return err
	}
	if err := toml.Unmarshal(data, v); err != nil {
		return errors.WrapKind(err, errors.KindConfig, "parse toml config")
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapKind(err, errors.KindConfig, "read config file")
	}
	return data, nil
}
