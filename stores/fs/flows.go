// Package fs provides a file system-based pending-flow store for authkit
// provider adapters.
package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/prepdeck/authkit"
)

// FSFlowStore stores pending redirect flows as a JSON file on the
// filesystem, one entry per provider.
type FSFlowStore struct {
	mu       sync.RWMutex
	path     string
	flows    map[string]*authkit.PendingFlow
	modified bool
}

// flowFile is the JSON structure stored on disk
type flowFile struct {
	Flows map[string]*authkit.PendingFlow `json:"flows"`
}

// NewFSFlowStore creates a new FS-based flow store.
// If path is empty, defaults to ~/.config/<appName>/pending_flows.json
func NewFSFlowStore(path string, appName string) (*FSFlowStore, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("could not determine config directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
		if appName == "" {
			appName = "prepdeck"
		}
		path = filepath.Join(configDir, appName, "pending_flows.json")
	}

	store := &FSFlowStore{
		path:  path,
		flows: make(map[string]*authkit.PendingFlow),
	}

	// Load existing flows if the file exists
	if err := store.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return store, nil
}

// load reads flows from disk
func (s *FSFlowStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var file flowFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse flow file: %w", err)
	}

	s.flows = file.Flows
	if s.flows == nil {
		s.flows = make(map[string]*authkit.PendingFlow)
	}

	return nil
}

// GetFlow retrieves the pending flow for a provider
func (s *FSFlowStore) GetFlow(provider string) (*authkit.PendingFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flow, ok := s.flows[provider]
	if !ok {
		return nil, nil
	}
	return flow, nil
}

// SetFlow stores the pending flow for a provider
func (s *FSFlowStore) SetFlow(provider string, flow *authkit.PendingFlow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flows[provider] = flow
	s.modified = true
	return nil
}

// RemoveFlow removes the pending flow for a provider
func (s *FSFlowStore) RemoveFlow(provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.flows, provider)
	s.modified = true
	return nil
}

// Save persists flows to disk
func (s *FSFlowStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.modified {
		return nil
	}

	// Ensure directory exists with restricted permissions
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file := flowFile{Flows: s.flows}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize flows: %w", err)
	}

	// Device codes are bearer-ish secrets; owner read/write only
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write flows: %w", err)
	}

	s.modified = false
	return nil
}

// Path returns the path to the flow file
func (s *FSFlowStore) Path() string {
	return s.path
}
