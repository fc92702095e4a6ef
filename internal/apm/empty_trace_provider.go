package apm

// emptyTraceProvider is a no-op provider used when tracing is disabled or
// misconfigured.
type emptyTraceProvider struct{}

// NewEmptyTraceProvider returns a TraceProvider that does nothing.
func NewEmptyTraceProvider() TraceProvider {
	return &emptyTraceProvider{}
}

func (e *emptyTraceProvider) Stop() error {
	return nil
}
