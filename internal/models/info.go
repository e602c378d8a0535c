package models

// InfoEntry is one "key=v1,v2,..." line of an information file.
type InfoEntry struct {
	Key    string   `json:"key" yaml:"key" msgpack:"key"`
	Values []string `json:"values" yaml:"values" msgpack:"values"`
}

// InfoSection is a bracketed header and the entries that follow it.
type InfoSection struct {
	Name    string      `json:"name" yaml:"name" msgpack:"name"`
	Entries []InfoEntry `json:"entries" yaml:"entries" msgpack:"entries"`
}

// InfoRecord is a decoded .inf file. Section and entry order follow the file.
type InfoRecord struct {
	Sections []InfoSection `json:"sections" yaml:"sections" msgpack:"sections"`
}

// Section returns the first section called name.
func (r *InfoRecord) Section(name string) (*InfoSection, bool) {
	for i := range r.Sections {
		if r.Sections[i].Name == name {
			return &r.Sections[i], true
		}
	}
	return nil, false
}

// Lookup returns the values of the first entry called key.
func (s *InfoSection) Lookup(key string) ([]string, bool) {
	for _, e := range s.Entries {
		if e.Key == key {
			return e.Values, true
		}
	}
	return nil, false
}
