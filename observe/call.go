package observe

// CallMeta identifies one outbound dependency call for telemetry.
type CallMeta struct {
	Dependency string // metadata, rewrite
	Operation  string // fetch, yoda, shakespeare
}

// SpanName returns upstream.<dependency>.<operation>, or
// upstream.<dependency> when Operation is empty.
func (m CallMeta) SpanName() string {
	if m.Operation == "" {
		return "upstream." + m.Dependency
	}
	return "upstream." + m.Dependency + "." + m.Operation
}

// Validate reports whether the metadata can label telemetry.
func (m CallMeta) Validate() error {
	if m.Dependency == "" {
		return ErrMissingDependency
	}
	return nil
}
