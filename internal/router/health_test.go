package router

import (
	"reflect"
	"testing"
	"time"
)

func TestHealthTracker_UnknownProviderIsHealthy(t *testing.T) {
	ht := NewHealthTracker(3, time.Minute)
	if !ht.Allow("openai") {
		t.Error("expected new provider to be available")
	}
}

func TestHealthTracker_ReportFailureOpens(t *testing.T) {
	ht := NewHealthTracker(2, time.Minute)

	ht.Report("openai", false)
	ht.Report("openai", false)

	if ht.Allow("openai") {
		t.Error("expected openai to be unavailable after 2 failures")
	}
	if !ht.Allow("anthropic") {
		t.Error("expected anthropic to be unaffected")
	}
}

func TestHealthTracker_Snapshot(t *testing.T) {
	ht := NewHealthTracker(1, time.Minute)
	ht.Report("zai-coding-plan", true)
	ht.Report("chutes", false)

	want := []ProviderState{
		{Provider: "chutes", State: "open"},
		{Provider: "zai-coding-plan", State: "closed"},
	}
	if got := ht.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
