package cache

// Keyer generates cache keys.
type Keyer interface {
	// LayoutKey generates a key for a computed layout. graphHash identifies
	// the topology being laid out; opts carries everything else that changes
	// the result.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string
}

// LayoutKeyOpts are the layout parameters that influence computed positions.
type LayoutKeyOpts struct {
	Direction  string  `json:"direction"`
	NodeWidth  float64 `json:"node_width"`
	NodeHeight float64 `json:"node_height"`
	RankSep    float64 `json:"rank_sep"`
	NodeSep    float64 `json:"node_sep"`
	Margin     float64 `json:"margin"`
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a keyer without a scope prefix.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey generates a key of the form "layout:<sha256>".
func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts)
}

// ScopedKeyer wraps a Keyer with a prefix for per-project isolation.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "project:growth-tree:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// LayoutKey generates a prefixed key for layout caching.
func (k *ScopedKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(graphHash, opts)
}
