// Package vectorindex holds chunk vectors and metadata behind an atomically
// published snapshot.
//
// A snapshot is either fully built or not visible: Rebuild constructs the
// whole snapshot off to the side and publishes it with a single atomic
// pointer swap, so concurrent searches always observe either the
// pre-rebuild or the post-rebuild state, never a mix. Search is exact
// nearest-neighbor over L2 distance; small corpora do not need an
// approximate structure.
package vectorindex
