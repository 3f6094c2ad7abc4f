package app

// maxHistorySize bounds the navigation history when no size is configured.
const maxHistorySize = 100

// history is a browser-style back/forward list of visited paths.
type history struct {
	paths []string
	index int
	limit int
}

func newHistory(limit int) *history {
	if limit <= 0 {
		limit = maxHistorySize
	}
	return &history{index: -1, limit: limit}
}

// push records path as the newest location, dropping any forward entries.
// Re-visiting the current location is not recorded twice.
func (h *history) push(path string) {
	if h.index >= 0 && h.paths[h.index] == path {
		return
	}
	if h.index >= 0 && h.index < len(h.paths)-1 {
		h.paths = h.paths[:h.index+1]
	}
	h.paths = append(h.paths, path)
	h.index = len(h.paths) - 1

	if len(h.paths) > h.limit {
		excess := len(h.paths) - h.limit
		h.paths = h.paths[excess:]
		h.index -= excess
		if h.index < 0 {
			h.index = 0
		}
	}
}

func (h *history) canBack() bool {
	return h.index > 0
}

func (h *history) canForward() bool {
	return h.index >= 0 && h.index < len(h.paths)-1
}

// peek returns the path delta steps away from the current one.
func (h *history) peek(delta int) (string, bool) {
	i := h.index + delta
	if h.index < 0 || i < 0 || i >= len(h.paths) {
		return "", false
	}
	return h.paths[i], true
}

// move shifts the cursor by delta if the target is still path. A concurrent
// push may have rewritten the list since peek.
func (h *history) move(delta int, path string) {
	if p, ok := h.peek(delta); ok && p == path {
		h.index += delta
	}
}
