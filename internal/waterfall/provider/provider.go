// Package provider defines the interface for waterfall data sources.
package provider

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// ErrUnavailable marks a source that cannot answer at all right now, such
// as a missing API key or an exhausted quota.
var ErrUnavailable = errors.New("provider: source unavailable")

// LeadIdentifier holds the identity fields providers search with.
type LeadIdentifier struct {
	FirstName string
	LastName  string
	Company   string
	JobTitle  string
	Location  string
}

// FromLead extracts the identity fields of a lead.
func FromLead(l model.Lead) LeadIdentifier {
	return LeadIdentifier{
		FirstName: strings.TrimSpace(l.Str(model.FieldFirstName)),
		LastName:  strings.TrimSpace(l.Str(model.FieldLastName)),
		Company:   strings.TrimSpace(l.Str(model.FieldCompany)),
		JobTitle:  strings.TrimSpace(l.Str(model.FieldJobTitle)),
		Location:  strings.TrimSpace(l.Str(model.FieldLocation)),
	}
}

// FullName joins first and last name.
func (id LeadIdentifier) FullName() string {
	return strings.TrimSpace(id.FirstName + " " + id.LastName)
}

// Key is a stable cache key for the identity.
func (id LeadIdentifier) Key() string {
	return strings.ToLower(id.FullName() + "|" + id.Company)
}

// Provider is one data source for one or more lead fields.
type Provider interface {
	// Name returns the provider identifier (matches source name in waterfall config).
	Name() string
	// SupportedFields returns the list of field keys this provider can supply.
	SupportedFields() []string
	// Lookup returns the field value for a lead, or "" when nothing was found.
	Lookup(ctx context.Context, lead LeadIdentifier, fieldKey string) (string, error)
}

// CanProvide checks if p can supply a specific field.
func CanProvide(p Provider, fieldKey string) bool {
	return slices.Contains(p.SupportedFields(), fieldKey)
}

// Registry manages available providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name, or nil if not found.
func (r *Registry) Get(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
