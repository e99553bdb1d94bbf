package workspace

// DefaultUndoDepth bounds the undo stack.
const DefaultUndoDepth = 50

// History is a bounded undo stack plus a redo stack of workspace snapshots.
type History struct {
	undo  []*Workspace
	redo  []*Workspace
	depth int
}

// NewHistory creates a history holding at most depth undo entries.
func NewHistory(depth int) *History {
	if depth <= 0 {
		depth = DefaultUndoDepth
	}
	return &History{depth: depth}
}

// Push records snap as the state to return to and clears redo.
// The oldest entry is evicted once depth is exceeded.
func (h *History) Push(snap *Workspace) {
	h.undo = append(h.undo, snap)
	if len(h.undo) > h.depth {
		h.undo[0] = nil
		h.undo = h.undo[1:]
	}
	h.redo = nil
}

// Undo pops the latest snapshot, parking cur on the redo stack.
func (h *History) Undo(cur *Workspace) (*Workspace, bool) {
	if len(h.undo) == 0 {
		return nil, false
	}
	snap := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, cur)
	return snap, true
}

// Redo is the inverse of Undo.
func (h *History) Redo(cur *Workspace) (*Workspace, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	snap := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, cur)
	return snap, true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Depths returns the sizes of the undo and redo stacks.
func (h *History) Depths() (undo, redo int) {
	return len(h.undo), len(h.redo)
}

// Clear drops both stacks.
func (h *History) Clear() {
	h.undo, h.redo = nil, nil
}
