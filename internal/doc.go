// Package internal contains the implementation packages behind the techviz
// command.
//
// # Package Organization
//
//   - topology: component kinds, adjacency policy, zone placement and drift
//   - routing: orthogonal connection paths and line styles between nodes
//   - packets: animated request, response and data packets along connections
//   - engine: the single-goroutine frame loop tying the three together
//   - render: SVG scenes and the canvas page as templ components
//   - websocket: frame broadcast and pointer/resize input from browsers
//   - server: HTTP routes, snapshots and lifecycle
//   - middleware: recovery, request logging and CSP security headers
//   - watcher: debounced fsnotify watching and layout hot reload
//   - config, validation: Viper settings and input checks
//   - logging, errors, observability: slog logging, typed errors, tracing
//   - ui, version: terminal output and build information
//
// # Concurrency
//
// Simulation state is owned by the engine loop goroutine. Everything else
// talks to it through buffered channels (pointer, resize, layout reset) or
// reads the latest immutable frame under a read lock.
package internal
