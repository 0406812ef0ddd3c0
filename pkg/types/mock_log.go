package types

import "sync"

// LogEntry is a single message captured by MockLogger.
type LogEntry struct {
	Level   string
	Message string
	Fields  []interface{}
}

// MockLogger records every message so tests can assert on what was logged.
type MockLogger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

func (m *MockLogger) record(level, msg string, fields []interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, LogEntry{Level: level, Message: msg, Fields: fields})
}

func (m *MockLogger) Debug(msg string, fields ...interface{})  { m.record("debug", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...interface{})   { m.record("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...interface{})   { m.record("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...interface{})  { m.record("error", msg, fields) }
func (m *MockLogger) Fatalf(msg string, fields ...interface{}) { m.record("fatal", msg, fields) }

// Messages returns the logged messages at the given level, in order.
func (m *MockLogger) Messages(level string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var msgs []string
	for _, e := range m.Entries {
		if e.Level == level {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}
