package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/syuvi-tf/syuvi/pkg/logx"
)

// Manager loads the config file and watches it for edits. Only a subset of
// the config is safe to change at runtime (logging); everything else needs
// a restart, so the reload callback receives the whole parsed config and
// decides what to apply.
type Manager struct {
	path string

	mu  sync.RWMutex
	cfg *Config

	log logx.Logger
}

func NewManager(path string, log logx.Logger) *Manager {
	return &Manager{path: path, log: log}
}

// Parse reads and strictly decodes the config file without committing it.
func (m *Manager) Parse() (*Config, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}
	jb, _, err := coerceToJSONBytes(m.path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load parses and commits the config.
func (m *Manager) Load() (*Config, error) {
	cfg, err := m.Parse()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return cfg, nil
}

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Watch re-parses the file on change and hands valid configs to onReload.
// Invalid edits are logged and ignored; the committed config stays as-is.
func (m *Manager) Watch(ctx context.Context, onReload func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(m.path)); err != nil {
		return err
	}

	// Debounce to avoid reloading on partial editor writes.
	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	reload := func() {
		cfg, err := m.Parse()
		if err != nil {
			m.log.Warn("config reload rejected", logx.String("path", m.path), logx.Err(err))
			return
		}
		m.mu.Lock()
		m.cfg = cfg
		m.mu.Unlock()
		m.log.Info("config reloaded", logx.String("path", m.path))
		if onReload != nil {
			onReload(cfg)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != filepath.Base(m.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(250*time.Millisecond, reload)
			timerMu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.log.Warn("config watch error", logx.Err(err))
		}
	}
}
