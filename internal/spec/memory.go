package spec

import (
	"strings"
	"sync"

	"github.com/DanielWillett/unturned-dat-language-server/internal/source"
)

// Memory is a Database held in memory. It starts uninitialized; Initialize
// marks it ready after it has been filled.
type Memory struct {
	mu           sync.RWMutex
	common       *propertySet
	assets       map[string]*propertySet
	localization *propertySet
	initialized  bool
	callbacks    []func()
}

type propertySet struct {
	byKey map[string]*Property
	order []*Property
}

func newPropertySet(props []*Property) *propertySet {
	s := &propertySet{byKey: make(map[string]*Property, len(props))}
	s.add(props...)
	return s
}

func (s *propertySet) add(props ...*Property) {
	for _, p := range props {
		key := strings.ToLower(p.Key)
		if _, ok := s.byKey[key]; !ok {
			s.order = append(s.order, p)
		}
		s.byKey[key] = p
	}
}

func (s *propertySet) get(key string) (*Property, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.byKey[strings.ToLower(key)]
	return p, ok
}

func NewMemory() *Memory {
	return &Memory{
		common:       newPropertySet(nil),
		assets:       make(map[string]*propertySet),
		localization: newPropertySet(nil),
	}
}

// AddAsset declares properties for one asset type. An empty asset type
// declares properties shared by every asset.
func (m *Memory) AddAsset(assetType string, props ...*Property) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if assetType == "" {
		m.common.add(props...)
		return
	}
	key := strings.ToLower(assetType)
	set, ok := m.assets[key]
	if !ok {
		set = newPropertySet(nil)
		m.assets[key] = set
	}
	set.add(props...)
}

func (m *Memory) AddLocalization(props ...*Property) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.localization.add(props...)
}

// AssetTypes lists the asset types with their own declarations.
func (m *Memory) AssetTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.assets))
	for k := range m.assets {
		out = append(out, k)
	}
	return out
}

func (m *Memory) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

func (m *Memory) OnInitialize(fn func()) {
	m.mu.Lock()
	if !m.initialized {
		m.callbacks = append(m.callbacks, fn)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	fn()
}

// Initialize marks the database ready and runs the pending callbacks.
func (m *Memory) Initialize() {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return
	}
	m.initialized = true
	callbacks := m.callbacks
	m.callbacks = nil
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

func (m *Memory) FindProperty(ft FileType, crumbs source.Breadcrumbs, node *source.Property) (*Property, ResolutionContext, bool) {
	if node == nil {
		return nil, Modern, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sets []*propertySet
	switch ft.Kind {
	case source.FileLocalization:
		sets = []*propertySet{m.localization}
	case source.FileAsset:
		if ft.AssetType != "" {
			if set, ok := m.assets[strings.ToLower(ft.AssetType)]; ok {
				sets = append(sets, set)
			}
		}
		sets = append(sets, m.common)
	default:
		return nil, Modern, false
	}

	for i := 0; i < crumbs.Len(); i++ {
		section := crumbs.At(i)
		if section.Key == "" {
			continue
		}
		owner, ok := lookup(sets, section.Key)
		if !ok {
			return nil, Modern, false
		}
		nested, ok := owner.Type.(Nested)
		if !ok {
			return nil, Modern, false
		}
		sets = []*propertySet{newPropertySet(nested.Fields())}
	}

	if p, ok := lookup(sets, node.Key); ok {
		return p, Modern, true
	}
	for _, set := range sets {
		for _, p := range set.order {
			composite, ok := p.Type.(LegacyComposite)
			if !ok {
				continue
			}
			base, ok := TrimLegacySuffix(node.Key, composite.LegacySuffixes())
			if ok && strings.EqualFold(base, p.Key) {
				return p, Legacy, true
			}
		}
	}
	return nil, Modern, false
}

func lookup(sets []*propertySet, key string) (*Property, bool) {
	for _, set := range sets {
		if p, ok := set.get(key); ok {
			return p, true
		}
	}
	return nil, false
}
