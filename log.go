// FILE: cfgman/log.go
package cfgman

import "github.com/rs/zerolog"

// SetLogger sets the logger of the standard manager and of loaders called
// without a schema. The default logger discards everything.
func SetLogger(l zerolog.Logger) {
	std.SetLogger(l)
}

// SetLogger replaces the manager's logger.
func (m *Manager) SetLogger(l zerolog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = l.With().Str("component", "cfgman").Logger()
}

func (m *Manager) log() *zerolog.Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l := m.logger
	return &l
}

// loggerFor returns the logger of the manager owning s, or the standard one.
func loggerFor(s *Schema) *zerolog.Logger {
	if s != nil && s.m != nil {
		return s.m.log()
	}
	return std.log()
}
