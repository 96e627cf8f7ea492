package surface

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ErrGroupNotFound is returned when no device belongs to a group.
var ErrGroupNotFound = errors.New("group not found")

// Registry holds the named device groups of the vehicle.
type Registry struct {
	mu     sync.RWMutex
	groups map[string][]*Device
}

func NewRegistry() *Registry {
	return &Registry{groups: make(map[string][]*Device)}
}

// Add puts dev in each of the named groups, preserving insertion order.
func (r *Registry) Add(dev *Device, groups ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range groups {
		r.groups[g] = append(r.groups[g], dev)
	}
}

// Group returns the devices of a group.
func (r *Registry) Group(name string) ([]*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	devs, ok := r.groups[name]
	return slices.Clone(devs), ok
}

// FindDevicesWithCapability returns the devices of group that expose
// capability. A group with no such device is reported as ErrGroupNotFound.
func (r *Registry) FindDevicesWithCapability(group, capability string) ([]*Device, error) {
	devs, ok := r.Group(group)
	if !ok {
		return nil, errors.Wrap(ErrGroupNotFound, group)
	}
	var found []*Device
	for _, d := range devs {
		if d.HasProperty(capability) {
			found = append(found, d)
		}
	}
	if len(found) == 0 {
		return nil, errors.Wrapf(ErrGroupNotFound, "%s with %s", group, capability)
	}
	return found, nil
}

// Groups returns the sorted group names.
func (r *Registry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := maps.Keys(r.groups)
	slices.Sort(names)
	return names
}
