package crawler

// frontier holds the crawl queue together with the discovered and visited
// sets. It is not safe for concurrent use; the Spider dispatcher is its
// only owner.
type frontier struct {
	queue      []string
	discovered map[string]struct{}
	visited    map[string]struct{}
}

func newFrontier(seed string) *frontier {
	return &frontier{
		queue:      []string{seed},
		discovered: map[string]struct{}{seed: {}},
		visited:    make(map[string]struct{}),
	}
}

// Len returns the number of queued URLs.
func (f *frontier) Len() int {
	return len(f.queue)
}

// pop removes the head of the queue.
func (f *frontier) pop() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	next := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	return next, true
}

// discover enqueues u unless it was discovered before. The membership
// check, the insert and the push happen together, so u is enqueued at
// most once per run.
func (f *frontier) discover(u string) bool {
	if _, ok := f.discovered[u]; ok {
		return false
	}
	f.discovered[u] = struct{}{}
	f.queue = append(f.queue, u)
	return true
}

func (f *frontier) markVisited(u string) {
	f.visited[u] = struct{}{}
}

func (f *frontier) isVisited(u string) bool {
	_, ok := f.visited[u]
	return ok
}

// discoveredCount returns the size of the discovered set.
func (f *frontier) discoveredCount() int {
	return len(f.discovered)
}
