// Package candidate defines the canonical repository record that flows through
// the filtering stages and the normalizer that projects upstream search items
// into it.
package candidate
