package router

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/af-corp/aegis-modelplan/internal/types"
)

func TestDedupe(t *testing.T) {
	got := Dedupe("a/1", "", "b/2", "a/1", "c/3", "b/2")
	want := []string{"a/1", "b/2", "c/3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got := Dedupe(); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

func rankedModels(n int) []types.DiscoveredModel {
	out := make([]types.DiscoveredModel, n)
	for i := range out {
		out[i] = types.DiscoveredModel{ProviderID: "openai", Model: fmt.Sprintf("openai/m%02d", i)}
	}
	return out
}

func TestBuildChain_Order(t *testing.T) {
	chain := BuildChain(rankedModels(2), "chutes/kimi-k2.5", "opencode/gpt-5-nano")
	want := []string{"openai/m00", "openai/m01", "chutes/kimi-k2.5", "opencode/gpt-5-nano", TerminalModel}
	if !reflect.DeepEqual(chain, want) {
		t.Errorf("expected %v, got %v", want, chain)
	}
}

func TestBuildChain_WindowAndBound(t *testing.T) {
	chain := BuildChain(rankedModels(20), "chutes/a", "opencode/b")

	if len(chain) > MaxChainLength {
		t.Fatalf("chain longer than %d: %v", MaxChainLength, chain)
	}
	if chain[6] != "openai/m06" || chain[7] != "chutes/a" {
		t.Errorf("expected seven ranked entries before the picks, got %v", chain)
	}
	if chain[len(chain)-1] != TerminalModel {
		t.Errorf("expected terminal model last, got %v", chain)
	}
}

func TestBuildChain_NoDuplicates(t *testing.T) {
	ranked := []types.DiscoveredModel{
		{ProviderID: "opencode", Model: TerminalModel},
		{ProviderID: "chutes", Model: "chutes/kimi-k2.5"},
	}
	chain := BuildChain(ranked, "chutes/kimi-k2.5", "", TerminalModel)
	want := []string{TerminalModel, "chutes/kimi-k2.5"}
	if !reflect.DeepEqual(chain, want) {
		t.Errorf("expected %v, got %v", want, chain)
	}
}

func TestBuildChain_EmptyRanking(t *testing.T) {
	if chain := BuildChain(nil); !reflect.DeepEqual(chain, []string{TerminalModel}) {
		t.Errorf("expected only the terminal model, got %v", chain)
	}
}
