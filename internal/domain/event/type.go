package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Type describes an event type: its tag, its parent in the type chain and
// a constructor used to reconstruct stored events. Abstract types have a nil
// constructor and can only be used as handler keys.
type Type struct {
	Name   string
	Parent *Type
	New    func() Event
}

// Root is the ancestor of every event type.
var Root = &Type{Name: "DomainEvent"}

// Define declares a type. A nil parent attaches the type directly under Root.
func Define(name string, parent *Type, newFn func() Event) *Type {
	if parent == nil {
		parent = Root
	}
	return &Type{Name: name, Parent: parent, New: newFn}
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

func (t *Type) IsAbstract() bool {
	return t.New == nil
}

// Ancestors returns the chain starting at t's parent and ending at Root.
func (t *Type) Ancestors() []*Type {
	var chain []*Type
	for cur := t.Parent; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
	}
	return chain
}

// Is reports whether t equals other or descends from it.
func (t *Type) Is(other *Type) bool {
	for cur := t; cur != nil; cur = cur.Parent {
		if cur == other {
			return true
		}
	}
	return false
}

// Catalog resolves stored type tags back to types.
type Catalog struct {
	mu    sync.RWMutex
	types map[string]*Type
}

func NewCatalog(types ...*Type) *Catalog {
	c := &Catalog{types: make(map[string]*Type)}
	for _, t := range types {
		c.Add(t)
	}
	return c
}

func (c *Catalog) Add(t *Type) {
	if t == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[t.Name] = t
}

func (c *Catalog) Lookup(name string) (*Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.types[strings.TrimSpace(name)]
	return t, ok
}

// Decode rebuilds the concrete event tagged name from its JSON payload.
func (c *Catalog) Decode(name string, payload []byte) (Event, error) {
	t, ok := c.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	if t.IsAbstract() {
		return nil, fmt.Errorf("%w: %q", ErrAbstractType, name)
	}

	e := t.New()
	if err := json.Unmarshal(payload, e); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", name, err)
	}
	if e.Meta().EventID == "" {
		return nil, fmt.Errorf("decode %s payload: missing eventId", name)
	}
	return e, nil
}
