// Package precedence merges a user-authored model chain with a system
// default chain.
package precedence

import "github.com/af-corp/aegis-modelplan/internal/types"

// Source tags where a resolved chain entry came from.
type Source string

const (
	SourceManual        Source = "manual"
	SourceSystemDefault Source = "system-default"
)

// Input is one role's manual and default chains, highest priority first.
type Input struct {
	Role          types.Role
	Manual        []string
	SystemDefault []string
}

// Resolution is the merged chain. Provenance[i] names the source of Chain[i].
type Resolution struct {
	Role       types.Role `json:"role"`
	Chain      []string   `json:"chain"`
	Provenance []Source   `json:"provenance"`
}

// Resolve concatenates manual then system-default entries and drops empty
// and repeated identifiers, keeping the first occurrence. Every manual entry
// therefore precedes every default-only entry.
func Resolve(in Input) Resolution {
	res := Resolution{
		Role:       in.Role,
		Chain:      make([]string, 0, len(in.Manual)+len(in.SystemDefault)),
		Provenance: make([]Source, 0, len(in.Manual)+len(in.SystemDefault)),
	}
	seen := make(map[string]struct{}, len(in.Manual)+len(in.SystemDefault))

	add := func(ids []string, src Source) {
		for _, id := range ids {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			res.Chain = append(res.Chain, id)
			res.Provenance = append(res.Provenance, src)
		}
	}
	add(in.Manual, SourceManual)
	add(in.SystemDefault, SourceSystemDefault)
	return res
}
