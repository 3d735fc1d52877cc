package production

import (
	"testing"
	"time"
)

func TestSetSelectionDeduplicates(t *testing.T) {
	job := &Job{}
	job.SetSelection([]string{"a", "b", "a", " ", "c", "b"})
	want := []string{"a", "b", "c"}
	if len(job.SelectedItemIDs) != len(want) {
		t.Fatalf("selection: %v", job.SelectedItemIDs)
	}
	for i, id := range want {
		if job.SelectedItemIDs[i] != id {
			t.Fatalf("selection order: %v", job.SelectedItemIDs)
		}
	}
}

func TestHasAudioRequiresEverySegment(t *testing.T) {
	job := &Job{
		Script: []ScriptLine{{Speaker: "a", Text: "one"}, {Speaker: "b", Text: "two"}},
	}
	if job.HasAudio() {
		t.Fatal("no segments yet")
	}
	job.Segments = []Segment{
		{Speaker: "a", Text: "one", AudioRef: "file:///a.mp3"},
		{Speaker: "b", Text: "two"},
	}
	if job.HasAudio() {
		t.Fatal("missing audio ref on second segment")
	}
	job.Segments[1].AudioRef = "file:///b.mp3"
	if !job.HasAudio() {
		t.Fatal("expected audio complete")
	}
}

func TestDedupeURLs(t *testing.T) {
	urls := []string{"u1", "u2", "u1", "", "u3", "u2"}
	got := DedupeURLs(urls)
	want := []string{"u1", "u2", "u3"}
	if len(got) != len(want) {
		t.Fatalf("dedupe: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dedupe order: %v", got)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	job := &Job{
		ID:       "j1",
		Script:   []ScriptLine{{Speaker: "a", Text: "hello"}},
		Metadata: &Metadata{Title: "t", Tags: []string{"x"}},
		Videos: VideoAssets{
			Wide:  []string{"w1"},
			Roles: map[string][]string{"a": {"v1"}},
		},
		CompletedAt: &now,
	}
	cp := job.Clone()
	cp.Script[0].Text = "changed"
	cp.Metadata.Tags[0] = "changed"
	cp.Videos.Roles["a"][0] = "changed"

	if job.Script[0].Text != "hello" {
		t.Fatal("script not deep-copied")
	}
	if job.Metadata.Tags[0] != "x" {
		t.Fatal("metadata tags not deep-copied")
	}
	if job.Videos.Roles["a"][0] != "v1" {
		t.Fatal("role videos not deep-copied")
	}
}

func TestSelectionFingerprintOrderIndependent(t *testing.T) {
	a := SelectionFingerprint("chan", "2026-08-28", []string{"x", "y", "z"})
	b := SelectionFingerprint("chan", "2026-08-28", []string{"z", "x", "y"})
	if a != b {
		t.Fatal("fingerprint should ignore item order")
	}
	c := SelectionFingerprint("chan", "2026-08-29", []string{"x", "y", "z"})
	if a == c {
		t.Fatal("fingerprint should vary with date key")
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ParseStatus(" Media_Generating "); !ok || status != StatusMediaGenerating {
		t.Fatalf("parse: %v %v", status, ok)
	}
	if _, ok := ParseStatus("bogus"); ok {
		t.Fatal("expected unknown status")
	}
}
