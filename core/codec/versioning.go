package codec

import (
	"github.com/relaykit/messaging/core/msgerrors"
)

// Converter upgrades a payload from one MessageVersion to the next.
type Converter func(payload any) (any, error)

type edge struct {
	to   int
	conv Converter
}

// ConverterRegistry resolves a multi-hop upgrade path between message
// versions, registered pairwise as From -> To converters.
type ConverterRegistry struct {
	edges map[int][]edge
}

// NewConverterRegistry creates an empty ConverterRegistry.
func NewConverterRegistry() *ConverterRegistry {
	return &ConverterRegistry{edges: make(map[int][]edge)}
}

// Register adds a From -> To converter. Register does not check for cycles,
// and Convert does not reject them either: its search skips versions it has
// already visited, so a cycle never makes it loop.
func (r *ConverterRegistry) Register(from, to int, conv Converter) {
	r.edges[from] = append(r.edges[from], edge{to: to, conv: conv})
}

// Convert walks the shortest registered path from the payload's current
// version to target, applying each hop's converter in turn. The absence of
// any path is a configuration error; a cycle among the registered
// converters is not an error as long as some path reaches target.
func (r *ConverterRegistry) Convert(payload any, from, target int) (any, error) {
	if from == target {
		return payload, nil
	}

	path, ok := r.findPath(from, target)
	if !ok {
		return nil, msgerrors.New(msgerrors.CodeConfiguration, "no converter path from the payload's version to the target version")
	}

	cur := payload
	for _, conv := range path {
		var err error
		cur, err = conv(cur)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// findPath performs a breadth-first search over registered edges, returning
// the converters along the first (shortest) path found from -> target.
func (r *ConverterRegistry) findPath(from, target int) ([]Converter, bool) {
	type frame struct {
		version int
		path    []Converter
	}

	visited := map[int]bool{from: true}
	queue := []frame{{version: from}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, e := range r.edges[cur.version] {
			if visited[e.to] {
				continue
			}
			nextPath := append(append([]Converter{}, cur.path...), e.conv)
			if e.to == target {
				return nextPath, true
			}
			visited[e.to] = true
			queue = append(queue, frame{version: e.to, path: nextPath})
		}
	}
	return nil, false
}
