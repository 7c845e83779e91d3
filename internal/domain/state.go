package domain

// State is the two-level mapping service_identifier -> detection_local_name
// -> deployed artifact bytes, plus the lineage/serial identity required by
// spec §3.
type State struct {
	Serial   int
	Lineage  string
	Services map[string]map[string][]byte
}

// NewState returns an empty state with no lineage yet assigned.
func NewState() *State {
	return &State{Services: make(map[string]map[string][]byte)}
}

// Get returns the deployed bytes for (service, detection) and whether an
// entry exists.
func (s *State) Get(service, detection string) ([]byte, bool) {
	svc, ok := s.Services[service]
	if !ok {
		return nil, false
	}
	b, ok := svc[detection]
	return b, ok
}

// Set records a successful create/update for (service, detection).
func (s *State) Set(service, detection string, bytes []byte) {
	svc, ok := s.Services[service]
	if !ok {
		svc = make(map[string][]byte)
		s.Services[service] = svc
	}
	svc[detection] = bytes
}

// Delete removes the (service, detection) entry, recording a successful
// delete.
func (s *State) Delete(service, detection string) {
	svc, ok := s.Services[service]
	if !ok {
		return
	}
	delete(svc, detection)
	if len(svc) == 0 {
		delete(s.Services, service)
	}
}

// Names returns the set of detection local names recorded for a service.
func (s *State) Names(service string) map[string][]byte {
	return s.Services[service]
}

// Clone returns a deep copy suitable for use as a working copy during apply.
func (s *State) Clone() *State {
	clone := &State{Serial: s.Serial, Lineage: s.Lineage, Services: make(map[string]map[string][]byte, len(s.Services))}
	for svc, dets := range s.Services {
		cloned := make(map[string][]byte, len(dets))
		for name, b := range dets {
			cp := make([]byte, len(b))
			copy(cp, b)
			cloned[name] = cp
		}
		clone.Services[svc] = cloned
	}
	return clone
}
