// Package credentials resolves and refreshes the API credential used to
// authorize inference endpoint calls.
package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// DefaultEnvVar holds the credential in the process environment.
const DefaultEnvVar = "COMPANION_API_KEY"

// Provider supplies the current API credential. Reselection is delegated
// to a host-environment hook: the hook prompts the user out of band, and
// the provider picks up the result by re-reading the key file when it
// changes.
type Provider struct {
	envVar  string
	keyFile string
	hook    func()

	mu  sync.RWMutex
	key string

	reselections atomic.Int64
}

// Config for a provider. All fields are optional; with none set the
// provider resolves DefaultEnvVar once and reselection is a logged no-op.
type Config struct {
	// EnvVar overrides DefaultEnvVar.
	EnvVar string

	// KeyFile, when set, is read as a fallback for the environment and
	// watched for out-of-band credential replacement.
	KeyFile string

	// OnReselection is the host hook invoked by RequestReselection.
	OnReselection func()
}

func New(cfg Config) *Provider {
	if cfg.EnvVar == "" {
		cfg.EnvVar = DefaultEnvVar
	}
	p := &Provider{
		envVar:  cfg.EnvVar,
		keyFile: cfg.KeyFile,
		hook:    cfg.OnReselection,
	}
	p.key = p.resolve()
	return p
}

func (p *Provider) resolve() string {
	if key := os.Getenv(p.envVar); key != "" {
		return key
	}
	if p.keyFile != "" {
		data, err := os.ReadFile(p.keyFile)
		if err != nil {
			if !os.IsNotExist(err) {
				slog.Error("Failed to read key file", "error", err, "path", p.keyFile)
			}
			return ""
		}
		return strings.TrimSpace(string(data))
	}
	return ""
}

// Current returns the active credential, empty when none is configured.
func (p *Provider) Current() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.key
}

// Reload re-resolves the credential from the environment and key file.
func (p *Provider) Reload() {
	key := p.resolve()
	p.mu.Lock()
	changed := key != p.key
	p.key = key
	p.mu.Unlock()
	if changed {
		slog.Info("Credential reloaded", "present", key != "")
	}
}

// RequestReselection invokes the host hook, fire and forget. The outcome
// is not awaited or verified; a replaced key arrives via Reload or the
// key-file watcher.
func (p *Provider) RequestReselection() {
	p.reselections.Add(1)
	slog.Warn("Requesting credential reselection")
	if p.hook != nil {
		p.hook()
	}
}

// Reselections reports how many times reselection has been requested.
func (p *Provider) Reselections() int64 {
	return p.reselections.Load()
}

// Watch blocks until ctx is done, reloading the credential whenever the
// key file is rewritten. Editors and installers typically replace the file
// rather than write in place, so the parent directory is watched and
// events are filtered by name.
func (p *Provider) Watch(ctx context.Context) error {
	if p.keyFile == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(p.keyFile)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch key directory: %w", err)
	}
	slog.Debug("Watching key file", "path", p.keyFile)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(p.keyFile) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			slog.Debug("Key file changed", "event", event.Op.String())
			p.Reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Key file watcher error", "error", err)
		}
	}
}
