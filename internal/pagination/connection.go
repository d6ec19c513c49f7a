// Package pagination implements relay-style cursor pagination over
// records ordered by descending ObjectID (newest first). Cursors are
// the records' own identifiers.
package pagination

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// Args are the caller-supplied window bounds. After selects records
// strictly older than the cursor, Before strictly newer; Before wins
// when both are set. First and Last are page sizes, zero meaning unset.
type Args struct {
	After  *primitive.ObjectID
	Before *primitive.ObjectID
	First  int
	Last   int
}

// Limit resolves the page size: Last if set, else First, else the
// default, clamped to [1, MaxLimit].
func (a Args) Limit() int {
	limit := a.Last
	if limit == 0 {
		limit = a.First
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 {
		return 1
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

type Edge[T any] struct {
	Node   T                  `json:"node"`
	Cursor primitive.ObjectID `json:"cursor"`
}

type PageInfo struct {
	StartCursor     *primitive.ObjectID `json:"startCursor"`
	EndCursor       *primitive.ObjectID `json:"endCursor"`
	HasPreviousPage bool                `json:"hasPreviousPage"`
	HasNextPage     bool                `json:"hasNextPage"`
}

type Connection[T any] struct {
	Edges    []Edge[T] `json:"edges"`
	PageInfo PageInfo  `json:"pageInfo"`
}

// NewConnection assembles a connection from an ordered window.
// hasPrevious must hold iff a record newer than the first element
// exists, hasNext iff a record older than the last element exists.
// An empty window yields zero edges, nil cursors and both flags false,
// whatever the probes reported.
func NewConnection[T any](nodes []T, cursorOf func(T) primitive.ObjectID, hasPrevious, hasNext bool) Connection[T] {
	edges := make([]Edge[T], 0, len(nodes))
	for _, node := range nodes {
		edges = append(edges, Edge[T]{Node: node, Cursor: cursorOf(node)})
	}

	if len(edges) == 0 {
		return Connection[T]{Edges: edges}
	}

	start := edges[0].Cursor
	end := edges[len(edges)-1].Cursor

	return Connection[T]{
		Edges: edges,
		PageInfo: PageInfo{
			StartCursor:     &start,
			EndCursor:       &end,
			HasPreviousPage: hasPrevious,
			HasNextPage:     hasNext,
		},
	}
}
