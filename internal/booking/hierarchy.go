package booking

import "sort"

// SpaceHierarchy is an in-memory arena over the space tree. Nodes hold
// parent/children indices so family expansion is a plain graph walk rather
// than a materialized-path query.
type SpaceHierarchy struct {
	nodes []spaceNode
	byID  map[string]int
}

type spaceNode struct {
	space    Space
	parent   int
	children []int
}

const noParent = -1

// NewSpaceHierarchy indexes the given spaces. Spaces referencing an unknown
// parent are treated as roots.
func NewSpaceHierarchy(spaces []Space) *SpaceHierarchy {
	h := &SpaceHierarchy{
		nodes: make([]spaceNode, 0, len(spaces)),
		byID:  make(map[string]int, len(spaces)),
	}

	for _, space := range spaces {
		if _, dup := h.byID[space.ID]; dup {
			continue
		}
		h.byID[space.ID] = len(h.nodes)
		h.nodes = append(h.nodes, spaceNode{space: space, parent: noParent})
	}

	for i := range h.nodes {
		parentID := h.nodes[i].space.ParentID
		if parentID == nil {
			continue
		}
		parent, ok := h.byID[*parentID]
		if !ok || parent == i {
			continue
		}
		h.nodes[i].parent = parent
		h.nodes[parent].children = append(h.nodes[parent].children, i)
	}

	return h
}

// FamilyOf returns the IDs of the space itself, all its ancestors, and all its
// descendants, sorted for deterministic iteration. An unknown space yields
// only itself.
func (h *SpaceHierarchy) FamilyOf(spaceID string) []string {
	if h == nil {
		return []string{spaceID}
	}
	idx, ok := h.byID[spaceID]
	if !ok {
		return []string{spaceID}
	}

	seen := map[int]struct{}{idx: {}}

	// Walk up. Parent chains from malformed input may cycle.
	for cur := h.nodes[idx].parent; cur != noParent; cur = h.nodes[cur].parent {
		if _, visited := seen[cur]; visited {
			break
		}
		seen[cur] = struct{}{}
	}

	// Walk down.
	stack := append([]int(nil), h.nodes[idx].children...)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, visited := seen[cur]; visited {
			continue
		}
		seen[cur] = struct{}{}
		stack = append(stack, h.nodes[cur].children...)
	}

	ids := make([]string, 0, len(seen))
	for i := range seen {
		ids = append(ids, h.nodes[i].space.ID)
	}
	sort.Strings(ids)
	return ids
}

// PhysicalFamily resolves the set of reservation units that can physically
// conflict with the target: every unit attached to a space in the target's
// space families, plus every unit sharing one of the target's resources. The
// target itself is always included.
func PhysicalFamily(units []ReservationUnit, hierarchy *SpaceHierarchy, target ReservationUnit) []string {
	familySpaces := make(map[string]struct{})
	for _, spaceID := range target.SpaceIDs {
		for _, id := range hierarchy.FamilyOf(spaceID) {
			familySpaces[id] = struct{}{}
		}
	}

	sharedResources := make(map[string]struct{}, len(target.ResourceIDs))
	for _, resourceID := range target.ResourceIDs {
		sharedResources[resourceID] = struct{}{}
	}

	result := map[string]struct{}{target.ID: {}}
	for _, unit := range units {
		if unit.ID == target.ID {
			continue
		}
		if unitTouches(unit, familySpaces, sharedResources) {
			result[unit.ID] = struct{}{}
		}
	}

	ids := make([]string, 0, len(result))
	for id := range result {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func unitTouches(unit ReservationUnit, spaces, resources map[string]struct{}) bool {
	for _, spaceID := range unit.SpaceIDs {
		if _, ok := spaces[spaceID]; ok {
			return true
		}
	}
	for _, resourceID := range unit.ResourceIDs {
		if _, ok := resources[resourceID]; ok {
			return true
		}
	}
	return false
}
