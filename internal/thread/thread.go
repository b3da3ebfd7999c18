// Package thread rebuilds the reply tree of one post's comments from the flat,
// parent-referencing rows the store returns.
package thread

import (
	"encoding/json"

	"elim/internal/models"
)

// Node is a comment together with its direct replies, in input order.
type Node struct {
	models.Comment
	Replies []*Node
	// Orphaned is set when the comment was written as a reply but its parent is
	// not part of the row set (usually because the parent was deleted).
	Orphaned bool
}

// Build converts rows of a single post, ordered by creation time, into the list
// of root comments. Rows whose parent cannot be resolved are promoted to roots,
// never dropped. The input slice is not modified.
func Build(rows []models.Comment) []*Node {
	nodes := make(map[string]*Node, len(rows))
	order := make([]*Node, 0, len(rows))
	for i := range rows {
		n := &Node{Comment: rows[i], Replies: []*Node{}}
		if _, ok := nodes[n.ID]; !ok {
			nodes[n.ID] = n
		}
		order = append(order, n)
	}

	parents := resolveParents(order, nodes)

	roots := make([]*Node, 0)
	for _, n := range order {
		if p, ok := parents[n]; ok {
			p.Replies = append(p.Replies, n)
			continue
		}
		roots = append(roots, n)
	}
	return roots
}

// resolveParents returns the node each reply hangs under. Nodes absent from the
// result are roots.
func resolveParents(order []*Node, nodes map[string]*Node) map[*Node]*Node {
	parents := make(map[*Node]*Node, len(order))
	for _, n := range order {
		if !n.HasParent() {
			continue
		}
		p, ok := nodes[*n.ParentID]
		if !ok {
			n.Orphaned = true
			continue
		}
		if p == n {
			continue
		}
		parents[n] = p
	}

	// Well-formed data has no cycles. If one shows up anyway, the member that
	// comes first in input order is cut loose and becomes a root.
	grounded := make(map[*Node]bool, len(order))
	for _, n := range order {
		if grounded[n] {
			continue
		}
		path := []*Node{n}
		seen := map[*Node]bool{n: true}
		cur, ok := parents[n]
		for ok && !grounded[cur] && !seen[cur] {
			seen[cur] = true
			path = append(path, cur)
			cur, ok = parents[cur]
		}

		switch {
		case !ok || grounded[cur]:
		case cur == n:
			delete(parents, n)
		default:
			// the walk ran into a cycle that does not include n; it is cut when
			// its first member is visited.
			continue
		}
		for _, p := range path {
			grounded[p] = true
		}
	}
	return parents
}

// Walk visits the forest depth first, each node before its replies. Returning
// false from fn stops the walk.
func Walk(roots []*Node, fn func(n *Node, depth int) bool) {
	walk(roots, 0, fn)
}

func walk(nodes []*Node, depth int, fn func(n *Node, depth int) bool) bool {
	for _, n := range nodes {
		if !fn(n, depth) {
			return false
		}
		if !walk(n.Replies, depth+1, fn) {
			return false
		}
	}
	return true
}

// Count returns the number of comments in the forest.
func Count(roots []*Node) int {
	total := 0
	Walk(roots, func(*Node, int) bool {
		total++
		return true
	})
	return total
}

// Find returns the node with the given id, or nil.
func Find(roots []*Node, id string) *Node {
	var found *Node
	Walk(roots, func(n *Node, _ int) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

type nodeJSON struct {
	models.CommentView
	Replies  []*Node `json:"replies"`
	Orphaned bool    `json:"orphaned,omitempty"`
}

func (n Node) MarshalJSON() ([]byte, error) {
	replies := n.Replies
	if replies == nil {
		replies = []*Node{}
	}
	return json.Marshal(nodeJSON{
		CommentView: n.Comment.View(),
		Replies:     replies,
		Orphaned:    n.Orphaned,
	})
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.Comment = raw.CommentView.Comment()
	n.Replies = raw.Replies
	if n.Replies == nil {
		n.Replies = []*Node{}
	}
	n.Orphaned = raw.Orphaned
	return nil
}
