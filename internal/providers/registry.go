package providers

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"inkreel/internal/errs"
	"inkreel/internal/jobstore"
)

const (
	CapabilityTranscription = "transcription"
	CapabilityRefinement    = "refinement"
)

// TranscriberFactory lazily constructs a Transcriber for a discovered
// descriptor. Registered by name at process startup (cmd/inkreel), never
// hard-coded into the registry itself.
type TranscriberFactory func(descriptor jobstore.ProviderDescriptor, model string) (Transcriber, error)

// RefinerFactory lazily constructs a Refiner for a discovered descriptor.
type RefinerFactory func(descriptor jobstore.ProviderDescriptor, model string) (Refiner, error)

// Registry discovers provider descriptors from a metadata directory and
// lazily instantiates the transcription/refinement backends they describe.
type Registry struct {
	dir string

	mu          sync.Mutex
	descriptors map[string]jobstore.ProviderDescriptor
	transFact   map[string]TranscriberFactory
	refineFact  map[string]RefinerFactory
	transInst   map[string]Transcriber
	refineInst  map[string]Refiner
}

// NewRegistry constructs a Registry rooted at dir (typically
// Config.Paths.ProvidersDir). Discovery does not happen until Discover is
// called.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:         dir,
		descriptors: map[string]jobstore.ProviderDescriptor{},
		transFact:   map[string]TranscriberFactory{},
		refineFact:  map[string]RefinerFactory{},
		transInst:   map[string]Transcriber{},
		refineInst:  map[string]Refiner{},
	}
}

// RegisterTranscriber associates a factory with a provider name so Discover
// (or a manually-registered descriptor) can instantiate it lazily.
func (r *Registry) RegisterTranscriber(name string, factory TranscriberFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transFact[name] = factory
}

// RegisterRefiner associates a factory with a provider name.
func (r *Registry) RegisterRefiner(name string, factory RefinerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refineFact[name] = factory
}

// RegisterDescriptor adds a descriptor directly, bypassing filesystem
// discovery. Used by tests and by built-in providers that ship a descriptor
// in code rather than requiring a defaults.yaml on disk.
func (r *Registry) RegisterDescriptor(d jobstore.ProviderDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors[d.Name] = d
}

// Discover reads every <dir>/<name>/defaults.yaml descriptor file and adds
// it to the registry. Deterministic given a fixed metadata directory: entries
// are sorted by provider name before being returned.
func (r *Registry) Discover() ([]jobstore.ProviderDescriptor, error) {
	if strings.TrimSpace(r.dir) == "" {
		return r.sortedDescriptors(), nil
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return r.sortedDescriptors(), nil
		}
		return nil, errs.Wrap(errs.ErrConfiguration, "", "provider discovery", "read providers directory", "", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(r.dir, entry.Name(), "defaults.yaml")
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errs.Wrap(errs.ErrConfiguration, "", "provider discovery", fmt.Sprintf("read %s", path), "", err)
		}
		var descriptor jobstore.ProviderDescriptor
		if err := yaml.Unmarshal(data, &descriptor); err != nil {
			return nil, errs.Wrap(errs.ErrConfiguration, "", "provider discovery", fmt.Sprintf("parse %s", path), "", err)
		}
		if descriptor.Name == "" {
			descriptor.Name = entry.Name()
		}
		r.descriptors[descriptor.Name] = descriptor
	}
	return r.sortedDescriptorsLocked(), nil
}

func (r *Registry) sortedDescriptors() []jobstore.ProviderDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedDescriptorsLocked()
}

func (r *Registry) sortedDescriptorsLocked() []jobstore.ProviderDescriptor {
	out := make([]jobstore.ProviderDescriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Capable returns the names of providers, in sorted order, that declare the
// given capability.
func (r *Registry) Capable(capability string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for name, d := range r.descriptors {
		if d.HasCapability(capability) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Descriptor returns the discovered descriptor for name, if any.
func (r *Registry) Descriptor(name string) (jobstore.ProviderDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.descriptors[name]
	return d, ok
}

// GetTranscription lazily instantiates (or returns the cached) Transcriber
// for name. Fails with ErrConfiguration if the provider is unknown, lacks
// the transcription capability, or no factory is registered for it.
func (r *Registry) GetTranscription(name, model string) (Transcriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inst, ok := r.transInst[name]; ok {
		return inst, nil
	}
	descriptor, ok := r.descriptors[name]
	if !ok {
		return nil, errs.Wrap(errs.ErrConfiguration, "", "get_transcription", fmt.Sprintf("unknown provider %q", name), "run `inkreel jobs show` or check providers_dir", nil)
	}
	if !descriptor.HasCapability(CapabilityTranscription) {
		return nil, errs.Wrap(errs.ErrConfiguration, "", "get_transcription", fmt.Sprintf("provider %q does not support transcription", name), "", nil)
	}
	factory, ok := r.transFact[name]
	if !ok {
		return nil, errs.Wrap(errs.ErrConfiguration, "", "get_transcription", fmt.Sprintf("no transcriber implementation registered for %q", name), "", nil)
	}
	inst, err := factory(descriptor, model)
	if err != nil {
		return nil, errs.Wrap(errs.ErrConfiguration, "", "get_transcription", fmt.Sprintf("construct %q", name), "", err)
	}
	r.transInst[name] = inst
	return inst, nil
}

// GetRefinement lazily instantiates (or returns the cached) Refiner for name.
func (r *Registry) GetRefinement(name, model string) (Refiner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inst, ok := r.refineInst[name]; ok {
		return inst, nil
	}
	descriptor, ok := r.descriptors[name]
	if !ok {
		return nil, errs.Wrap(errs.ErrConfiguration, "", "get_refinement", fmt.Sprintf("unknown provider %q", name), "run `inkreel jobs show` or check providers_dir", nil)
	}
	if !descriptor.HasCapability(CapabilityRefinement) {
		return nil, errs.Wrap(errs.ErrConfiguration, "", "get_refinement", fmt.Sprintf("provider %q does not support refinement", name), "", nil)
	}
	factory, ok := r.refineFact[name]
	if !ok {
		return nil, errs.Wrap(errs.ErrConfiguration, "", "get_refinement", fmt.Sprintf("no refiner implementation registered for %q", name), "", nil)
	}
	inst, err := factory(descriptor, model)
	if err != nil {
		return nil, errs.Wrap(errs.ErrConfiguration, "", "get_refinement", fmt.Sprintf("construct %q", name), "", err)
	}
	r.refineInst[name] = inst
	return inst, nil
}

// APIKeyFor reads a provider's API key from the process environment using
// the <PROVIDER>_API_KEY convention (spec §4.5/§6). Never read from Config.
func APIKeyFor(providerName string) string {
	env := strings.ToUpper(strings.TrimSpace(providerName)) + "_API_KEY"
	return strings.TrimSpace(os.Getenv(env))
}
