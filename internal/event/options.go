package event

// BusOption configures NewBus.
type BusOption func(*bus)

// WithErrorReporter receives every handler failure. It runs synchronously
// inside Publish; a panic in r is swallowed.
func WithErrorReporter(r ErrorReporter) BusOption {
	return func(b *bus) {
		if r != nil {
			b.report = r
		}
	}
}
