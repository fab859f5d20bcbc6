package console

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithColor forces ANSI colors on or off regardless of the terminal.
func WithColor(on bool) Option {
	return func(r *Renderer) {
		r.setColor(on)
	}
}

// WithPretty selects the multi-line block (true) or one JSON line per event.
func WithPretty(pretty bool) Option {
	return func(r *Renderer) {
		r.pretty = pretty
	}
}
