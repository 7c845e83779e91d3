// Package domain defines the core value objects of the reconciliation model:
// detections, services, environments, state, and the operations the differ
// produces between them. Nothing in this package imports infrastructure.
package domain

// Detection is an opaque byte blob identified by its path relative to the
// workspace root. The first path segment names the owning plugin; the file
// stem is the detection's local name.
type Detection struct {
	Plugin    string
	LocalName string
	Bytes     []byte
}

// Key returns the (plugin, local name) identity of a detection.
func (d Detection) Key() DetectionKey {
	return DetectionKey{Plugin: d.Plugin, LocalName: d.LocalName}
}

// DetectionKey identifies a detection within a plugin's namespace.
type DetectionKey struct {
	Plugin    string
	LocalName string
}
