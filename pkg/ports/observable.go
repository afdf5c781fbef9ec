package ports

// Primitive is the set of kinds an observable value may hold.
type Primitive interface {
	~bool | ~int | ~float64 | ~string
}

// Observable exposes a synchronous read of one externally owned value.
type Observable[T Primitive] interface {
	Value() T
}

// Named is implemented by observables that know the variable name they are bound to.
type Named interface {
	Name() string
}

// VariableResolver resolves named observables by kind.
// It is used when compiling definitions into runnable conditions.
type VariableResolver interface {
	Bool(name string) (Observable[bool], error)
	Int(name string) (Observable[int], error)
	Float(name string) (Observable[float64], error)
	String(name string) (Observable[string], error)
}

// VariableSetter is implemented by resolvers whose values can be changed by a host
// (CLI, HTTP, MCP). Raw values are parsed according to the variable's kind.
type VariableSetter interface {
	SetRaw(name string, raw string) error
}
