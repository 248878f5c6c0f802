package sim

// A Named object is an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}

// NameMustBeValid panics if the name is empty.
func NameMustBeValid(name string) {
	if name == "" {
		panic("name must not be empty")
	}
}
