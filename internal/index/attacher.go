package index

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Attacher builds a fresh directory tree on every attach, collapsing only
// concurrent attaches to the same archive root and package index (which
// names the suite and component) into a single fetch-and-parse
// of the package index (SPEC_FULL.md §7's supplemented dedup feature;
// grounded on the teacher's use of singleflight for its own concurrent
// segment-download dedup). It does not cache across non-overlapping
// attaches: spec.md §4.5 invokes the index loader "once per session attach"
// and §2's control flow re-populates the tree on every attach, so a second,
// non-concurrent attach must re-fetch the package index.
type Attacher struct {
	group   singleflight.Group
	resolve Resolver
}

func NewAttacher(resolve Resolver) *Attacher {
	return &Attacher{resolve: resolve}
}

// Attach builds the tree for archiveRoot, sharing the in-flight build with
// any other attach racing against it for the same root and packagesURL.
func (a *Attacher) Attach(ctx context.Context, archiveRoot, packagesURL string) (*Root, error) {
	v, err, _ := a.group.Do(archiveRoot+"\n"+packagesURL, func() (interface{}, error) {
		return Build(ctx, archiveRoot, packagesURL, a.resolve)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Root), nil
}
