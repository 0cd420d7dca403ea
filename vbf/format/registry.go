package format

// Registry maps bank names to the builders that decode them. Names with no
// builder go to the fallback, and are skipped when there is none.
type Registry struct {
	builders map[BankName]Builder
	fallback Builder
}

func NewRegistry() *Registry {
	return &Registry{builders: make(map[BankName]Builder)}
}

func (r *Registry) Register(name BankName, b Builder) {
	r.builders[name] = b
}

func (r *Registry) Unregister(name BankName) {
	delete(r.builders, name)
}

func (r *Registry) SetFallback(b Builder) {
	r.fallback = b
}

// Builder returns nil when neither name nor fallback is registered.
func (r *Registry) Builder(name BankName) Builder {
	if b, ok := r.builders[name]; ok {
		return b
	}
	return r.fallback
}

func (r *Registry) Has(name BankName) bool {
	_, ok := r.builders[name]
	return ok
}

func (r *Registry) Clone() *Registry {
	c := NewRegistry()
	for k, v := range r.builders {
		c.builders[k] = v
	}
	c.fallback = r.fallback
	return c
}
