package devicedb

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// document is the on-disk shape: a single YAML mapping of device name to
// record, rather than a list, so add/update/remove are simple map
// operations and the file naturally stays keyed by name.
type document struct {
	Devices map[string]DeviceInfo `yaml:"devices"`
}

// Store holds a loaded device database in memory; callers call Save to
// persist changes back to disk.
type Store struct {
	path    string
	devices map[string]DeviceInfo
}

// Load reads path as a YAML document. A missing file yields an empty Store
// rather than an error, so `add` can be the first operation run against a
// fresh database path.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Store{path: path, devices: make(map[string]DeviceInfo)}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("devicedb: read %s: %w", path, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("devicedb: parse %s: %w", path, err)
	}

	if doc.Devices == nil {
		doc.Devices = make(map[string]DeviceInfo)
	}

	return &Store{path: path, devices: doc.Devices}, nil
}

// Save writes the store back to its original path.
func (s *Store) Save() error {
	return s.SaveTo(s.path)
}

// SaveTo writes the store to an arbitrary path, used by the export
// subcommand.
func (s *Store) SaveTo(path string) error {
	out, err := yaml.Marshal(document{Devices: s.devices})
	if err != nil {
		return fmt.Errorf("devicedb: marshal: %w", err)
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("devicedb: write %s: %w", path, err)
	}

	return nil
}

// Get returns the named record.
func (s *Store) Get(name string) (DeviceInfo, bool) {
	d, ok := s.devices[name]
	return d, ok
}

// Add inserts a new record, failing if name already exists.
func (s *Store) Add(d DeviceInfo) error {
	if _, exists := s.devices[d.Name]; exists {
		return fmt.Errorf("devicedb: device %q already exists", d.Name)
	}

	if err := Validate(d); err != nil {
		return err
	}

	s.devices[d.Name] = d

	return nil
}

// Update replaces an existing record, failing if name does not exist.
func (s *Store) Update(d DeviceInfo) error {
	if _, exists := s.devices[d.Name]; !exists {
		return fmt.Errorf("devicedb: device %q not found", d.Name)
	}

	if err := Validate(d); err != nil {
		return err
	}

	s.devices[d.Name] = d

	return nil
}

// Remove deletes a record, failing if name does not exist.
func (s *Store) Remove(name string) error {
	if _, exists := s.devices[name]; !exists {
		return fmt.Errorf("devicedb: device %q not found", name)
	}

	delete(s.devices, name)

	return nil
}

// List returns every record, ordered by name for deterministic output.
func (s *Store) List() []DeviceInfo {
	out := make([]DeviceInfo, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Stats summarizes the database: record count and the min/max bufferSize
// and maxFrequency across every record.
type Stats struct {
	Count            int
	MinBufferSize    uint32
	MaxBufferSize    uint32
	MinMaxFrequency  uint32
	MaxMaxFrequency  uint32
}

// ComputeStats returns Stats over s's current contents. The zero Stats is
// returned for an empty store.
func (s *Store) ComputeStats() Stats {
	if len(s.devices) == 0 {
		return Stats{}
	}

	st := Stats{Count: len(s.devices)}

	first := true
	for _, d := range s.devices {
		if first {
			st.MinBufferSize, st.MaxBufferSize = d.BufferSize, d.BufferSize
			st.MinMaxFrequency, st.MaxMaxFrequency = d.MaxFrequency, d.MaxFrequency
			first = false

			continue
		}

		if d.BufferSize < st.MinBufferSize {
			st.MinBufferSize = d.BufferSize
		}

		if d.BufferSize > st.MaxBufferSize {
			st.MaxBufferSize = d.BufferSize
		}

		if d.MaxFrequency < st.MinMaxFrequency {
			st.MinMaxFrequency = d.MaxFrequency
		}

		if d.MaxFrequency > st.MaxMaxFrequency {
			st.MaxMaxFrequency = d.MaxFrequency
		}
	}

	return st
}

// Import merges src's records into s, overwriting any with the same name.
func (s *Store) Import(src *Store) {
	for name, d := range src.devices {
		s.devices[name] = d
	}
}
