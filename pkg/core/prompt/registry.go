package prompt

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds all loaded prompts. It is safe for concurrent use.
type Registry struct {
	prompts map[string]*PromptTemplate
	mu      sync.RWMutex
}

// NewRegistry returns a registry preloaded with the built-in prompts.
func NewRegistry() *Registry {
	r := &Registry{prompts: make(map[string]*PromptTemplate)}
	for _, pt := range Builtins() {
		r.prompts[pt.ID] = pt
	}
	return r
}

// Register adds a prompt template to the registry, replacing any prompt
// with the same ID.
func (r *Registry) Register(pt *PromptTemplate) error {
	if pt.ID == "" {
		return fmt.Errorf("prompt ID cannot be empty")
	}
	switch pt.ResponseFormat() {
	case FormatCSV, FormatJSON:
	default:
		return fmt.Errorf("prompt %s: unsupported format %q", pt.ID, pt.Format)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prompts[pt.ID] = pt
	return nil
}

// GetPrompt retrieves a prompt by ID
func (r *Registry) GetPrompt(id string) (*PromptTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.prompts[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("prompt not found: %s", id)
}

// ListPrompts returns all registered prompt IDs, sorted.
func (r *Registry) ListPrompts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.prompts))
	for id := range r.prompts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered prompts
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.prompts)
}

// Versions maps every prompt ID to its version. Used to fingerprint results.
func (r *Registry) Versions(ids ...string) map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if p, ok := r.prompts[id]; ok {
			out[id] = p.Version
		}
	}
	return out
}
