package logstore

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestStore_ExportJSONRoundTrip(t *testing.T) {
	src := newTestStore(10)
	src.Append(LevelInfo, "one", SourceAgent, map[string]any{"n": 1.0}, "t1")
	src.Append(LevelError, "two", SourceSystem, nil, "")

	out, err := src.Export(FormatJSON, nil)
	if err != nil {
		t.Fatal(err)
	}

	dst := newTestStore(10)
	n, err := dst.Import([]byte(out))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Import() = %d, want 2", n)
	}

	want, got := src.Query(nil, 0), dst.Query(nil, 0)
	for i := range want {
		if want[i].ID != got[i].ID || want[i].Message != got[i].Message ||
			!want[i].Timestamp.Equal(got[i].Timestamp) || want[i].TaskID != got[i].TaskID {
			t.Errorf("entry %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
	if got[1].Details["n"] != 1.0 {
		t.Errorf("details lost: %v", got[1].Details)
	}
}

func TestStore_ImportDedupesAndOrders(t *testing.T) {
	s := newTestStore(3)
	s.Info("local", SourceSystem, nil) // base+1s
	existing := s.Query(nil, 0)[0]

	blob, _ := json.Marshal([]Entry{
		existing,
		{ID: "x1", Timestamp: base.Add(-time.Hour), Level: LevelInfo, Message: "older"},
		{ID: "x2", Timestamp: base.Add(time.Hour), Level: LevelWarn, Message: "newer"},
		{Timestamp: base.Add(-2 * time.Hour), Level: LevelDebug, Message: "oldest"},
	})

	n, err := s.Import(blob)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Import() = %d, want 3", n)
	}
	got := strings.Join(messages(s.Query(nil, 0)), ",")
	if got != "newer,local,older" {
		t.Errorf("after import = %s", got)
	}
}

func TestStore_ImportSnapshotObject(t *testing.T) {
	s := newTestStore(10)
	blob, _ := json.Marshal(Snapshot{
		Entries: []Entry{{ID: "a", Timestamp: base, Level: LevelSuccess, Message: "ok"}},
		SavedAt: base,
	})
	if n, err := s.Import(blob); err != nil || n != 1 {
		t.Errorf("Import(snapshot) = %d, %v", n, err)
	}
}

func TestStore_ImportLegacySnapshot(t *testing.T) {
	s := newTestStore(10)
	blob := `{"logs":[
		{"id":"l1","timestamp":"2024-01-01T10:00:00.000Z","level":"info","message":"started","source":"agent","agentId":"frontend-react"},
		{"id":"l2","timestamp":"2024-01-01T09:00:00.000Z","level":"success","message":"ready","source":"vibe"}
	],"savedAt":"2024-01-01T10:00:01.000Z"}`

	n, err := s.Import([]byte(blob))
	if err != nil || n != 2 {
		t.Fatalf("Import(legacy) = %d, %v; want 2, nil", n, err)
	}
	got := s.Query(&Filter{TaskIDs: []string{"frontend-react"}}, 0)
	if len(got) != 1 || got[0].ID != "l1" {
		t.Errorf("agentId not mapped to task id: %+v", got)
	}
}

func TestStore_ImportRejects(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"empty", ""},
		{"not json", "hello"},
		{"csv", csvHeader},
		{"bad level", `[{"id":"a","timestamp":"2024-01-01T00:00:00Z","level":"fatal","message":"x"}]`},
		{"no timestamp", `[{"id":"a","level":"info","message":"x"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(10)
			if _, err := s.Import([]byte(tt.blob)); !errors.Is(err, ErrInvalidImport) {
				t.Errorf("Import() = %v, want ErrInvalidImport", err)
			}
			if s.Len() != 0 {
				t.Error("failed import changed the store")
			}
		})
	}
}

func TestStore_ExportCSV(t *testing.T) {
	s := newTestStore(10)
	s.Append(LevelWarn, `said "hi", then left`, SourceAgent, map[string]any{"k": "v"}, "t1")

	out, err := s.Export(FormatCSV, nil)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(out, "\n")
	if lines[0] != csvHeader {
		t.Errorf("header = %q", lines[0])
	}
	want := `"2024-03-10T12:00:01Z","warn","agent","t1","said ""hi"", then left","{""k"":""v""}"`
	if lines[1] != want {
		t.Errorf("row = %s\nwant  %s", lines[1], want)
	}
}

func TestStore_ExportText(t *testing.T) {
	s := newTestStore(10)
	s.Append(LevelError, "failed", SourceAgent, map[string]any{"code": 7}, "t1")
	s.Append(LevelInfo, "plain", SourceSystem, nil, "")

	out, err := s.Export(FormatText, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := "[2024-03-10 12:00:02] INFO [system] plain\n" +
		`[2024-03-10 12:00:01] ERROR [agent/t1] failed | {"code":7}`
	if out != want {
		t.Errorf("text export:\n%s\nwant:\n%s", out, want)
	}
}

func TestStore_ExportFiltered(t *testing.T) {
	s := newTestStore(10)
	s.Info("a", SourceSystem, nil)
	s.Error("b", SourceSystem, nil)

	out, err := s.Export(FormatJSON, &Filter{Levels: []Level{LevelError}})
	if err != nil {
		t.Fatal(err)
	}
	var got []Entry
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Message != "b" {
		t.Errorf("filtered export = %+v", got)
	}
}

func TestStore_ExportErrors(t *testing.T) {
	s := newTestStore(10)
	if _, err := s.Export("xml", nil); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Export(xml) = %v", err)
	}
	bad := &Filter{Since: base.Add(time.Hour), Until: base}
	if _, err := s.Export(FormatJSON, bad); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("Export(bad filter) = %v", err)
	}
	out, err := s.Export(FormatJSON, nil)
	if err != nil || out != "[]" {
		t.Errorf("empty export = %q, %v", out, err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": FormatJSON, "CSV": FormatCSV, "txt": FormatText, "": FormatJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ParseFormat(pdf) = %v", err)
	}
}
