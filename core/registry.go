package core

import (
	"sync"

	"github.com/shrek82/jrecord/model"
)

type hookKey struct {
	event Event
	phase Phase
}

// Class is a persistence-enabled type identifier.
// It owns the callbacks declared on it and links to its parent for inherited ones.
type Class struct {
	registry   *Registry
	name       string
	parent     *Class
	collection string
	entries    map[hookKey][]Entry
}

// Name returns the class identifier.
func (c *Class) Name() string { return c.name }

// Parent returns the parent class, or nil for a root class.
func (c *Class) Parent() *Class { return c.parent }

// Collection returns the store collection, inherited from the nearest
// ancestor that set one, or derived from the root class name.
func (c *Class) Collection() string {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()
	root := c
	for k := c; k != nil; k = k.parent {
		if k.collection != "" {
			return k.collection
		}
		root = k
	}
	return model.CollectionName(root.name)
}

// SetCollection overrides the collection name for this class and its descendants.
func (c *Class) SetCollection(name string) *Class {
	c.registry.mu.Lock()
	c.collection = name
	c.registry.mu.Unlock()
	return c
}

// Ancestors returns the class lineage, root first, ending with c.
func (c *Class) Ancestors() []*Class {
	var lineage []*Class
	for k := c; k != nil; k = k.parent {
		lineage = append(lineage, k)
	}
	for i, j := 0, len(lineage)-1; i < j; i, j = i+1, j-1 {
		lineage[i], lineage[j] = lineage[j], lineage[i]
	}
	return lineage
}

// IsA reports whether c is other or descends from it.
func (c *Class) IsA(other *Class) bool {
	for k := c; k != nil; k = k.parent {
		if k == other {
			return true
		}
	}
	return false
}

// On appends cb to the (event, phase) chain of this class.
func (c *Class) On(event Event, phase Phase, cb Callback) *Class {
	c.registry.register(c, event, phase, "", cb)
	return c
}

// OnNamed is On with a label used in traces and errors.
func (c *Class) OnNamed(event Event, phase Phase, name string, cb Callback) *Class {
	c.registry.register(c, event, phase, name, cb)
	return c
}

func (c *Class) BeforeSave(cb Callback) *Class    { return c.On(EventSave, Before, cb) }
func (c *Class) AfterSave(cb Callback) *Class     { return c.On(EventSave, After, cb) }
func (c *Class) BeforeCreate(cb Callback) *Class  { return c.On(EventCreate, Before, cb) }
func (c *Class) AfterCreate(cb Callback) *Class   { return c.On(EventCreate, After, cb) }
func (c *Class) BeforeUpdate(cb Callback) *Class  { return c.On(EventUpdate, Before, cb) }
func (c *Class) AfterUpdate(cb Callback) *Class   { return c.On(EventUpdate, After, cb) }
func (c *Class) BeforeDestroy(cb Callback) *Class { return c.On(EventDestroy, Before, cb) }
func (c *Class) AfterDestroy(cb Callback) *Class  { return c.On(EventDestroy, After, cb) }

// Resolve returns the effective chain for this class.
func (c *Class) Resolve(event Event, phase Phase) Chain {
	return c.registry.resolve(c, event, phase)
}

// Registry stores classes and their callbacks.
// It is populated at type setup and read-mostly afterwards.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]*Class)}
}

// DefaultRegistry is used by engines created without an explicit registry.
var DefaultRegistry = NewRegistry()

// Define declares a class. A nil parent makes it a root class.
// Defining an existing name returns the class already registered.
func (reg *Registry) Define(name string, parent *Class) *Class {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.defineLocked(name, parent)
}

func (reg *Registry) defineLocked(name string, parent *Class) *Class {
	if c, ok := reg.classes[name]; ok {
		return c
	}
	c := &Class{
		registry: reg,
		name:     name,
		parent:   parent,
		entries:  make(map[hookKey][]Entry),
	}
	reg.classes[name] = c
	return c
}

// Lookup returns the class registered under name.
func (reg *Registry) Lookup(name string) (*Class, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	c, ok := reg.classes[name]
	return c, ok
}

// Register appends entry to the class chain for (event, phase).
// Unknown class names are defined as root classes. Registration never fails.
func (reg *Registry) Register(class string, event Event, phase Phase, entry Entry) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	c := reg.defineLocked(class, nil)
	reg.appendLocked(c, event, phase, entry)
}

// Resolve returns the effective chain for the named class: ancestor entries
// first, oldest ancestor first, each class's entries in declaration order.
// An unknown class resolves to an empty chain.
func (reg *Registry) Resolve(class string, event Event, phase Phase) Chain {
	c, ok := reg.Lookup(class)
	if !ok {
		return Chain{Event: event, Phase: phase}
	}
	return reg.resolve(c, event, phase)
}

func (reg *Registry) register(c *Class, event Event, phase Phase, name string, cb Callback) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.appendLocked(c, event, phase, Entry{Name: name, Callback: cb})
}

func (reg *Registry) appendLocked(c *Class, event Event, phase Phase, entry Entry) {
	key := hookKey{event, phase}
	entry.Event = event
	entry.Phase = phase
	entry.Class = c.name
	entry.Index = len(c.entries[key])
	c.entries[key] = append(c.entries[key], entry)
}

func (reg *Registry) resolve(c *Class, event Event, phase Phase) Chain {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	key := hookKey{event, phase}
	chain := Chain{Event: event, Phase: phase}
	for _, k := range c.Ancestors() {
		chain.Entries = append(chain.Entries, k.entries[key]...)
	}
	return chain
}
