package config

import "sync"

// Watcher publishes a Config snapshot whenever SaveAndPublish succeeds,
// so that long-running components can react to edits made while the
// process is up. Its consumer in this module is hostapi.Node.Events,
// which turns an alias change into an alias-changed event. Nothing
// subscribes on behalf of the discovery agent or the ingest listener:
// a published change neither re-registers the mDNS record nor rebinds
// the listener to a new port.
//
// Changed is buffered to size 1 with overwrite semantics: a pending,
// unconsumed change is replaced rather than queued, the same
// coalescing idiom the discovery agent uses for its browse-now signal.
type Watcher struct {
	mu      sync.Mutex
	Changed chan Config
}

// NewWatcher creates a Watcher ready to receive published changes.
func NewWatcher() *Watcher {
	return &Watcher{Changed: make(chan Config, 1)}
}

// Publish delivers cfg to the Changed channel, dropping any unconsumed
// previous value so the channel always holds the latest config.
func (w *Watcher) Publish(cfg Config) {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.Changed:
	default:
	}
	w.Changed <- cfg
}

// SaveAndPublish saves cfg to path and, on success, publishes it on w.
func SaveAndPublish(path string, cfg *Config, w *Watcher) error {
	if err := Save(path, cfg); err != nil {
		return err
	}
	if w != nil {
		w.Publish(*cfg)
	}
	return nil
}
