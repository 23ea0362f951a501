package spatial

import (
	"sort"

	"whiteboard/internal/domain"
)

// Frame nesting is a parent-pointer graph over the flat object list. Every
// walk below is bounded by a visited set so corrupt, cyclic data terminates.

// Index maps ids to objects.
type Index map[string]domain.BoardObject

func NewIndex(objs []domain.BoardObject) Index {
	idx := make(Index, len(objs))
	for _, o := range objs {
		idx[o.ID] = o
	}
	return idx
}

// Ancestors walks the ParentID chain of id, nearest first. cyclic is true
// when the walk revisits an id (including id itself).
func (idx Index) Ancestors(id string) (chain []string, cyclic bool) {
	visited := map[string]bool{id: true}
	cur, ok := idx[id]
	if !ok {
		return nil, false
	}
	for cur.ParentID != "" {
		pid := cur.ParentID
		if visited[pid] {
			return chain, true
		}
		visited[pid] = true
		chain = append(chain, pid)
		next, ok := idx[pid]
		if !ok {
			break
		}
		cur = next
	}
	return chain, false
}

// WouldCreateCycle reports whether nesting candidateID under frameID would
// make candidateID its own ancestor. A frame's ancestor chain that reaches
// the candidate, or that is already cyclic, counts as a cycle.
func (idx Index) WouldCreateCycle(candidateID, frameID string) bool {
	if candidateID == frameID {
		return true
	}
	visited := map[string]bool{}
	cur := frameID
	for cur != "" {
		if cur == candidateID || visited[cur] {
			return true
		}
		visited[cur] = true
		o, ok := idx[cur]
		if !ok {
			return false
		}
		cur = o.ParentID
	}
	return false
}

// Descendants returns every object whose parent chain leads to rootID,
// breadth first. rootID itself is never included.
func (idx Index) Descendants(rootID string) []string {
	children := make(map[string][]string, len(idx))
	for _, o := range idx {
		if o.ParentID != "" {
			children[o.ParentID] = append(children[o.ParentID], o.ID)
		}
	}
	for _, ids := range children {
		sort.Strings(ids)
	}

	var out []string
	visited := map[string]bool{rootID: true}
	queue := []string{rootID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range children[cur] {
			if visited[c] {
				continue
			}
			visited[c] = true
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}

// ConnectorsTouching returns the ids of connectors referencing any of ids.
func ConnectorsTouching(objs []domain.BoardObject, ids map[string]bool) []string {
	var out []string
	for _, o := range objs {
		if !o.IsConnector() {
			continue
		}
		if ids[o.FromID] || ids[o.ToID] {
			out = append(out, o.ID)
		}
	}
	return out
}

// Frames filters objs down to frame objects.
func Frames(objs []domain.BoardObject) []domain.BoardObject {
	var out []domain.BoardObject
	for _, o := range objs {
		if o.IsFrame() {
			out = append(out, o)
		}
	}
	return out
}
