// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package empower

import (
	"context"
	"errors"
	"maps"
	"sync"
	"testing"
)

// logEntry is one message captured by memLogger
type logEntry struct {
	level LogLevel
	msg   string
	kv    []any
}

// memLogger records log messages for assertions
type memLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *memLogger) add(level LogLevel, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, kv: kv})
}

func (l *memLogger) Debug(_ context.Context, msg string, kv ...any) { l.add(LogLevelDebug, msg, kv) }
func (l *memLogger) Info(_ context.Context, msg string, kv ...any)  { l.add(LogLevelInfo, msg, kv) }
func (l *memLogger) Warn(_ context.Context, msg string, kv ...any)  { l.add(LogLevelWarn, msg, kv) }
func (l *memLogger) Error(_ context.Context, msg string, kv ...any) { l.add(LogLevelError, msg, kv) }

func (l *memLogger) count(level LogLevel) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

const testXML = "<Method><ColumnTemperature>40</ColumnTemperature><FlowRate>0.3</FlowRate></Method>"

// TestInstrumentMethod_CurrentUntouched tests that Current equals the original without edits
func TestInstrumentMethod_CurrentUntouched(t *testing.T) {
	tests := []struct {
		name string
		def  map[string]string
	}{
		{name: "with xml", def: map[string]string{"name": "rAcquityBSM", "xml": testXML}},
		{name: "without xml", def: map[string]string{"name": "rAcquityBSM"}},
		{name: "empty", def: map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewInstrumentMethod(tt.def)
			current, err := m.Current()
			if err != nil {
				t.Fatalf("Current() error = %v", err)
			}
			if !maps.Equal(current, tt.def) {
				t.Errorf("Current() = %v, want %v", current, tt.def)
			}
		})
	}
}

// TestInstrumentMethod_OriginalIsCopy tests that neither the caller's map nor
// the returned original can change the method
func TestInstrumentMethod_OriginalIsCopy(t *testing.T) {
	def := map[string]string{"name": "rAcquityBSM", "xml": testXML}
	m := NewInstrumentMethod(def)

	def["xml"] = "changed"
	original := m.Original()
	if original["xml"] != testXML {
		t.Fatalf("caller mutation leaked: xml = %q", original["xml"])
	}

	original["xml"] = "changed again"
	if m.Original()["xml"] != testXML {
		t.Errorf("Original() returned a shared map")
	}

	if err := m.Set("FlowRate", "0.5"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if m.Original()["xml"] != testXML {
		t.Errorf("Set() mutated the original")
	}
}

// TestInstrumentMethod_QueueReplaceOrder tests that edits are applied in queue order
func TestInstrumentMethod_QueueReplaceOrder(t *testing.T) {
	tests := []struct {
		name  string
		xml   string
		edits [][2]string
		want  string
	}{
		{
			name:  "single edit",
			xml:   "<A>1</A><B>2</B>",
			edits: [][2]string{{"<A>1</A>", "<A>3</A>"}},
			want:  "<A>3</A><B>2</B>",
		},
		{
			name:  "independent edits",
			xml:   "<A>1</A><B>2</B>",
			edits: [][2]string{{"<A>1</A>", "<A>3</A>"}, {"<B>2</B>", "<B>4</B>"}},
			want:  "<A>3</A><B>4</B>",
		},
		{
			name:  "later edit sees earlier result",
			xml:   "<A>1</A>",
			edits: [][2]string{{"<A>1</A>", "<A>2</A>"}, {"<A>2</A>", "<A>3</A>"}},
			want:  "<A>3</A>",
		},
		{
			name:  "all occurrences replaced",
			xml:   "<A>1</A><A>1</A>",
			edits: [][2]string{{"<A>1</A>", "<A>2</A>"}},
			want:  "<A>2</A><A>2</A>",
		},
		{
			name:  "missing search text is skipped",
			xml:   "<A>1</A>",
			edits: [][2]string{{"<C>9</C>", "<C>0</C>"}, {"<A>1</A>", "<A>2</A>"}},
			want:  "<A>2</A>",
		},
		{
			name:  "empty search text is skipped",
			xml:   "<A>1</A>",
			edits: [][2]string{{"", "X"}},
			want:  "<A>1</A>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewInstrumentMethod(map[string]string{"xml": tt.xml})
			for _, e := range tt.edits {
				m.QueueReplace(e[0], e[1])
			}
			if m.PendingEdits() != len(tt.edits) {
				t.Errorf("PendingEdits() = %d, want %d", m.PendingEdits(), len(tt.edits))
			}
			current, err := m.Current()
			if err != nil {
				t.Fatalf("Current() error = %v", err)
			}
			if current["xml"] != tt.want {
				t.Errorf("Current()[xml] = %q, want %q", current["xml"], tt.want)
			}
		})
	}
}

// TestInstrumentMethod_NoOpEditLogged tests that an edit without match is logged as a warning
func TestInstrumentMethod_NoOpEditLogged(t *testing.T) {
	logger := &memLogger{}
	m := NewInstrumentMethod(map[string]string{"name": "rAcquityBSM", "xml": testXML}, MethodLogger(logger))
	m.QueueReplace("<Missing>1</Missing>", "<Missing>2</Missing>")

	current, err := m.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if current["xml"] != testXML {
		t.Errorf("Current()[xml] = %q, want unchanged", current["xml"])
	}
	if got := logger.count(LogLevelWarn); got != 1 {
		t.Errorf("warnings = %d, want 1", got)
	}
}

// TestInstrumentMethod_Get tests tag lookup and its errors
func TestInstrumentMethod_Get(t *testing.T) {
	tests := []struct {
		name      string
		def       map[string]string
		key       string
		want      string
		wantErrAs any
	}{
		{
			name: "single tag",
			def:  map[string]string{"xml": testXML},
			key:  "ColumnTemperature",
			want: "40",
		},
		{
			name: "empty value",
			def:  map[string]string{"xml": "<A></A>"},
			key:  "A",
			want: "",
		},
		{
			name:      "missing tag",
			def:       map[string]string{"xml": testXML},
			key:       "Pressure",
			wantErrAs: new(*MissingKeyError),
		},
		{
			name:      "repeated tag",
			def:       map[string]string{"xml": "<A>1</A><A>2</A>"},
			key:       "A",
			wantErrAs: new(*AmbiguousKeyError),
		},
		{
			name:      "value across lines",
			def:       map[string]string{"xml": "<A>1\n2</A>"},
			key:       "A",
			wantErrAs: new(*MissingKeyError),
		},
		{
			name: "regexp characters in key",
			def:  map[string]string{"xml": "<A.B>1</A.B><AxB>2</AxB>"},
			key:  "A.B",
			want: "1",
		},
		{
			name:      "no xml",
			def:       map[string]string{"name": "rAcquityBSM"},
			key:       "A",
			wantErrAs: new(*ConfigurationError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewInstrumentMethod(tt.def)
			got, err := m.Get(tt.key)
			if tt.wantErrAs != nil {
				if err == nil {
					t.Fatalf("Get(%q) expected error, got %q", tt.key, got)
				}
				if !errors.As(err, tt.wantErrAs) {
					t.Errorf("Get(%q) error = %T, want %T", tt.key, err, tt.wantErrAs)
				}
				return
			}
			if err != nil {
				t.Fatalf("Get(%q) error = %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

// TestInstrumentMethod_ErrorKeys tests that typed errors carry the key
func TestInstrumentMethod_ErrorKeys(t *testing.T) {
	m := NewInstrumentMethod(map[string]string{"xml": "<A>1</A><A>2</A>"})

	_, err := m.Get("B")
	var missing *MissingKeyError
	if !errors.As(err, &missing) || missing.Key != "B" {
		t.Errorf("Get(B) error = %v, want MissingKeyError{B}", err)
	}
	if err.Error() != "empower: could not find key B" {
		t.Errorf("Error() = %q", err.Error())
	}

	_, err = m.Get("A")
	var ambiguous *AmbiguousKeyError
	if !errors.As(err, &ambiguous) || ambiguous.Key != "A" {
		t.Errorf("Get(A) error = %v, want AmbiguousKeyError{A}", err)
	}
}

// TestInstrumentMethod_SetGet tests read-after-write through the pending edits
func TestInstrumentMethod_SetGet(t *testing.T) {
	m := NewInstrumentMethod(map[string]string{"xml": testXML})

	for _, value := range []string{"55", "60.5", "", "40"} {
		if err := m.Set("ColumnTemperature", value); err != nil {
			t.Fatalf("Set(%q) error = %v", value, err)
		}
		got, err := m.Get("ColumnTemperature")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != value {
			t.Errorf("Get() after Set(%q) = %q", value, got)
		}
	}

	current, err := m.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if current["xml"] != testXML {
		t.Errorf("Current()[xml] = %q, want %q", current["xml"], testXML)
	}
	if m.PendingEdits() != 4 {
		t.Errorf("PendingEdits() = %d, want 4", m.PendingEdits())
	}
}

// TestInstrumentMethod_SetErrors tests that Set propagates Get errors and queues nothing
func TestInstrumentMethod_SetErrors(t *testing.T) {
	tests := []struct {
		name      string
		def       map[string]string
		wantErrAs any
	}{
		{name: "missing", def: map[string]string{"xml": testXML}, wantErrAs: new(*MissingKeyError)},
		{name: "ambiguous", def: map[string]string{"xml": "<Pressure>1</Pressure><Pressure>2</Pressure>"}, wantErrAs: new(*AmbiguousKeyError)},
		{name: "no xml", def: map[string]string{}, wantErrAs: new(*ConfigurationError)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewInstrumentMethod(tt.def)
			err := m.Set("Pressure", "3")
			if !errors.As(err, tt.wantErrAs) {
				t.Errorf("Set() error = %v, want %T", err, tt.wantErrAs)
			}
			if m.PendingEdits() != 0 {
				t.Errorf("PendingEdits() = %d, want 0", m.PendingEdits())
			}
		})
	}
}

// TestInstrumentMethod_NoXMLWithEdits tests that edits without xml fail at Current
func TestInstrumentMethod_NoXMLWithEdits(t *testing.T) {
	m := NewInstrumentMethod(map[string]string{"name": "rAcquityBSM"})
	m.QueueReplace("a", "b")

	_, err := m.Current()
	if err == nil {
		t.Fatal("Current() expected error")
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Current() error = %T, want *ConfigurationError", err)
	}
	if !errors.Is(err, ErrNoXML) {
		t.Errorf("Current() error does not wrap ErrNoXML")
	}
}

// TestNewInstrumentMethod_Nil tests construction from a nil definition
func TestNewInstrumentMethod_Nil(t *testing.T) {
	m := NewInstrumentMethod(nil)
	current, err := m.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if len(current) != 0 {
		t.Errorf("Current() = %v, want empty", current)
	}
}
