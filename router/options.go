package router

// Option configures a Mux.
type Option func(*config)

type config struct {
	routeMatch func(pattern, id string) bool
}

// WithRouteMatcher replaces the pattern matcher.
func WithRouteMatcher(matcher func(pattern, id string) bool) Option {
	return func(c *config) {
		if matcher != nil {
			c.routeMatch = matcher
		}
	}
}
