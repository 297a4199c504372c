package core

import (
	"errors"
	"testing"

	"github.com/philipp01105/ringlog/diag"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{TraceLevel, "TRACE"},
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{FatalLevel, "FATAL"},
		{Level(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_Ordering(t *testing.T) {
	order := []Level{TraceLevel, DebugLevel, InfoLevel, WarnLevel, ErrorLevel, FatalLevel}
	for i := 1; i < len(order); i++ {
		if !(order[i-1] < order[i]) {
			t.Errorf("expected %v < %v", order[i-1], order[i])
		}
	}
	if NumLevels != len(order) {
		t.Errorf("NumLevels = %d, want %d", NumLevels, len(order))
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"trace", TraceLevel, false},
		{"DEBUG", DebugLevel, false},
		{" info ", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"Error", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLevel_TextRoundTrip(t *testing.T) {
	var l Level
	if err := l.UnmarshalText([]byte("warn")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	text, _ := l.MarshalText()
	if string(text) != "warn" {
		t.Errorf("MarshalText = %q, want warn", text)
	}
	if err := l.UnmarshalText([]byte("nope")); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestEntryPool(t *testing.T) {
	// Get an entry from the pool
	e1 := GetEntry()
	if e1 == nil {
		t.Fatal("GetEntry() returned nil")
	}

	// Verify initial state
	if len(e1.Fields) != 0 {
		t.Errorf("Expected empty fields, got %d", len(e1.Fields))
	}
	if e1.Sequence != -1 {
		t.Errorf("Expected sequence -1, got %d", e1.Sequence)
	}

	// Add some data
	e1.Message = "test"
	e1.Context = diag.Empty()
	e1.Err = errors.New("boom")
	e1.Fields = append(e1.Fields, Field{Key: "test", Str: "value"})

	// Return to pool
	PutEntry(e1)

	// Get another entry
	e2 := GetEntry()
	if e2 == nil {
		t.Fatal("GetEntry() returned nil after PutEntry()")
	}

	// Verify it's clean
	if e2.Message != "" {
		t.Errorf("Expected empty message after pool reset, got %q", e2.Message)
	}
	if len(e2.Fields) != 0 {
		t.Errorf("Expected empty fields after pool reset, got %d", len(e2.Fields))
	}
	if e2.Err != nil || e2.Context != nil {
		t.Error("Expected references to be cleared after pool reset")
	}
}

func TestEntry_CopyFromDoesNotAlias(t *testing.T) {
	src := &Entry{
		Message: "m",
		Level:   WarnLevel,
		Fields:  []Field{{Key: "a", Type: StringType, Str: "1"}},
	}
	dst := &Entry{Fields: make([]Field, 0, 4)}
	dst.CopyFrom(src)

	src.Fields[0].Str = "changed"
	if dst.Fields[0].Str != "1" {
		t.Errorf("CopyFrom aliased the Fields slice")
	}
	if dst.Message != "m" || dst.Level != WarnLevel {
		t.Errorf("CopyFrom lost scalar fields: %+v", dst)
	}

	allocs := testing.AllocsPerRun(100, func() {
		dst.CopyFrom(src)
	})
	if allocs != 0 {
		t.Errorf("CopyFrom into a grown entry allocated %v times", allocs)
	}
}

func TestEntry_RenderedMessage(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{"plain", Entry{Message: "hello"}, "hello"},
		{"lazy", Entry{Format: "user=%s n=%d", Args: []any{"x", 3}}, "user=x n=3"},
		{"format without args", Entry{Format: "100%"}, "100%"},
		{"message wins", Entry{Message: "m", Format: "f"}, "m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.RenderedMessage(); got != tt.want {
				t.Errorf("RenderedMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetCaller(t *testing.T) {
	caller := GetCaller(1)
	if !caller.Defined {
		t.Fatal("GetCaller() returned undefined CallerInfo")
	}

	if caller.File == "" {
		t.Error("Expected non-empty file")
	}
	if caller.ShortFile != "entry_test.go" {
		t.Errorf("Expected short file entry_test.go, got %q", caller.ShortFile)
	}
	if caller.Line == 0 {
		t.Error("Expected non-zero line number")
	}
	if caller.Function == "" {
		t.Error("Expected non-empty function name")
	}
}

func BenchmarkGetEntry(b *testing.B) {
	for i := 0; i < b.N; i++ {
		e := GetEntry()
		PutEntry(e)
	}
}

func BenchmarkEntryCopyFrom(b *testing.B) {
	src := &Entry{
		Message: "test message",
		Level:   InfoLevel,
		Fields: []Field{
			{Key: "key1", Str: "value1"},
			{Key: "key2", Int64: 42},
		},
	}
	dst := &Entry{Fields: make([]Field, 0, 8)}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		dst.CopyFrom(src)
	}
}
