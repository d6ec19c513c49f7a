package pagination

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestLimit(t *testing.T) {
	tests := []struct {
		name string
		args Args
		want int
	}{
		{"default", Args{}, DefaultLimit},
		{"first", Args{First: 5}, 5},
		{"last wins over first", Args{First: 5, Last: 7}, 7},
		{"clamped to max", Args{First: 200}, MaxLimit},
		{"clamped to min", Args{First: -3}, 1},
		{"last clamped", Args{Last: 51}, MaxLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.args.Limit(); got != tt.want {
				t.Fatalf("Limit() = %d, want %d", got, tt.want)
			}
		})
	}
}

type node struct {
	ID primitive.ObjectID
}

func nodeCursor(n node) primitive.ObjectID { return n.ID }

func TestNewConnection(t *testing.T) {
	first := primitive.NewObjectID()
	second := primitive.NewObjectID()
	nodes := []node{{ID: second}, {ID: first}}

	conn := NewConnection(nodes, nodeCursor, true, false)

	if len(conn.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(conn.Edges))
	}
	for i, edge := range conn.Edges {
		if edge.Cursor != nodes[i].ID {
			t.Fatalf("edge %d cursor = %s, want %s", i, edge.Cursor.Hex(), nodes[i].ID.Hex())
		}
	}

	info := conn.PageInfo
	if info.StartCursor == nil || *info.StartCursor != second {
		t.Fatalf("startCursor = %v, want %s", info.StartCursor, second.Hex())
	}
	if info.EndCursor == nil || *info.EndCursor != first {
		t.Fatalf("endCursor = %v, want %s", info.EndCursor, first.Hex())
	}
	if !info.HasPreviousPage {
		t.Fatal("expected hasPreviousPage true")
	}
	if info.HasNextPage {
		t.Fatal("expected hasNextPage false")
	}
}

func TestNewConnectionEmptyWindow(t *testing.T) {
	// Probe results must not leak into an empty page.
	conn := NewConnection(nil, nodeCursor, true, true)

	if len(conn.Edges) != 0 {
		t.Fatalf("expected no edges, got %d", len(conn.Edges))
	}
	if conn.Edges == nil {
		t.Fatal("edges must serialize as an empty list, not null")
	}
	if conn.PageInfo.StartCursor != nil || conn.PageInfo.EndCursor != nil {
		t.Fatal("expected nil start and end cursors")
	}
	if conn.PageInfo.HasPreviousPage || conn.PageInfo.HasNextPage {
		t.Fatal("expected both page flags false")
	}
}
