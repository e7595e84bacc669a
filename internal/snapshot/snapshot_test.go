package snapshot

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAppSetOrderIndependent(t *testing.T) {
	a := NewAppSet("telegram", "teamviewer")
	b := NewAppSet("teamviewer", "telegram")
	if !a.Equal(b) {
		t.Fatalf("sets with same members in different order should be equal: %v vs %v", a.Names(), b.Names())
	}
}

func TestAppSetDedupAndEmpty(t *testing.T) {
	s := NewAppSet("firefox", "", "firefox", "safari")
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if !s.Contains("firefox") || !s.Contains("safari") {
		t.Errorf("missing members: %v", s.Names())
	}
	if s.Contains("") {
		t.Error("empty name should be dropped")
	}

	var zero AppSet
	if !zero.Equal(NewAppSet()) {
		t.Error("zero set should equal empty set")
	}
	if got := zero.Names(); got == nil || len(got) != 0 {
		t.Errorf("Names() on zero set = %#v, want empty non-nil slice", got)
	}
}

func TestAppSetNamesIsCopy(t *testing.T) {
	s := NewAppSet("anydesk", "radmin")
	names := s.Names()
	names[0] = "mutated"
	if s.Contains("mutated") {
		t.Error("Names() leaked internal storage")
	}
}

func TestAppSetJSON(t *testing.T) {
	data, err := json.Marshal(NewAppSet("safari", "firefox"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["firefox","safari"]` {
		t.Errorf("marshal = %s", data)
	}

	empty, _ := json.Marshal(AppSet{})
	if string(empty) != `[]` {
		t.Errorf("empty set marshal = %s, want []", empty)
	}

	var s AppSet
	if err := json.Unmarshal([]byte(`["b","a","b"]`), &s); err != nil {
		t.Fatal(err)
	}
	if !s.Equal(NewAppSet("a", "b")) {
		t.Errorf("unmarshal = %v", s.Names())
	}
}

func TestMonitorCount(t *testing.T) {
	tests := []struct {
		raw   int
		want  MonitorCount
		known bool
		str   string
		json  string
	}{
		{2, 2, true, "2", "2"},
		{1, 1, true, "1", "1"},
		{0, Unknown, false, "unknown", "null"},
		{-3, Unknown, false, "unknown", "null"},
	}
	for _, tt := range tests {
		c := Count(tt.raw)
		if c != tt.want || c.Known() != tt.known || c.String() != tt.str {
			t.Errorf("Count(%d) = %v known=%v str=%q", tt.raw, c, c.Known(), c.String())
		}
		data, _ := json.Marshal(c)
		if string(data) != tt.json {
			t.Errorf("Count(%d) json = %s, want %s", tt.raw, data, tt.json)
		}
	}

	var c MonitorCount = 5
	if err := json.Unmarshal([]byte("null"), &c); err != nil || c != Unknown {
		t.Errorf("unmarshal null = %v, %v", c, err)
	}
}

func TestHasChanged(t *testing.T) {
	now := time.Now()
	base := New(2, NewAppSet(), NewAppSet("firefox"), now)

	tests := []struct {
		name string
		prev *Snapshot
		next Snapshot
		want bool
	}{
		{"first sample", nil, base, true},
		{"identical", &base, New(2, NewAppSet(), NewAppSet("firefox"), now.Add(time.Second)), false},
		{"monitor count", &base, New(1, NewAppSet(), NewAppSet("firefox"), now), true},
		{"flagged added", &base, New(2, NewAppSet("anydesk"), NewAppSet("firefox"), now), true},
		{"browser removed", &base, New(2, NewAppSet(), NewAppSet(), now), true},
		{"browser swapped", &base, New(2, NewAppSet(), NewAppSet("safari"), now), true},
		{"unknown to known", ptr(New(Unknown, NewAppSet(), NewAppSet("firefox"), now)), base, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasChanged(tt.prev, tt.next); got != tt.want {
				t.Errorf("HasChanged() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasChangedFlaggedOrder(t *testing.T) {
	prev := New(1, NewAppSet("telegram", "teamviewer"), NewAppSet(), time.Now())
	next := New(1, NewAppSet("teamviewer", "telegram"), NewAppSet(), time.Now())
	if HasChanged(&prev, next) {
		t.Error("reordered flagged apps must not count as a change")
	}
}

func TestSnapshotAccessors(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := New(3, NewAppSet("radmin"), NewAppSet("firefox"), at)
	if s.MonitorCount() != 3 || !s.HasFlagged() || !s.SampledAt().Equal(at) {
		t.Errorf("unexpected accessors: %+v", s)
	}
	if !s.ActiveBrowsers().Contains("firefox") || !s.FlaggedApps().Contains("radmin") {
		t.Error("sets not carried through")
	}
	if New(1, AppSet{}, AppSet{}, at).HasFlagged() {
		t.Error("HasFlagged with empty set")
	}
}

func ptr(s Snapshot) *Snapshot { return &s }
