package session

import "sync"

const (
	NavigationRedirect = "redirect"
	NavigationNavigate = "navigate"
)

// Navigation is an instruction for the browser: leave the storefront (redirect) or
// move to an in-app path (navigate).
type Navigation struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

// Navigator remembers the latest instruction until the HTTP layer hands it to the
// client. Instructions issued by timers wait here for the next poll.
type Navigator struct {
	mu   sync.Mutex
	last *Navigation
}

func (n *Navigator) Redirect(url string) {
	n.set(Navigation{Kind: NavigationRedirect, Target: url})
}

func (n *Navigator) Navigate(path string) {
	n.set(Navigation{Kind: NavigationNavigate, Target: path})
}

// Take returns the pending instruction and forgets it.
func (n *Navigator) Take() *Navigation {
	n.mu.Lock()
	defer n.mu.Unlock()
	nav := n.last
	n.last = nil
	return nav
}

func (n *Navigator) set(nav Navigation) {
	n.mu.Lock()
	n.last = &nav
	n.mu.Unlock()
}
