package index

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gaby/dbgsymfs/internal/deb822"
	"github.com/gaby/dbgsymfs/internal/xzstream"
)

const buildIDLength = 40

// Build fetches packagesURL with a single plain GET, decompresses it fully,
// and folds the resulting paragraphs into a two-level directory tree rooted
// at archiveRoot. Every leaf's open is satisfied by resolve.
func Build(ctx context.Context, archiveRoot, packagesURL string, resolve Resolver) (*Root, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, packagesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("index: building request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("index: fetching %s: %w", packagesURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index: fetching %s: status %s", packagesURL, resp.Status)
	}

	decoded := xzstream.New(resp.Body)
	defer decoded.Close()

	dirs := make(map[string][]*Leaf)
	br := bufio.NewReader(decoded)
	for {
		fields, err := deb822.Next(br)
		if err != nil {
			return nil, fmt.Errorf("index: parsing package paragraph: %w", err)
		}
		if fields == nil {
			break
		}

		filename, hasFilename := fields["Filename"]
		buildIDs, hasBuildIDs := fields["Build-Ids"]
		if !hasFilename || !hasBuildIDs {
			continue
		}

		poolURL := archiveRoot + filename
		for _, buildID := range strings.Fields(buildIDs) {
			if len(buildID) != buildIDLength {
				continue
			}
			dirName := buildID[:2]
			rest := buildID[2:]
			leaf := &Leaf{
				name:             rest + ".debug",
				buildID:          buildID,
				poolURL:          poolURL,
				intraArchivePath: dirName + "/" + rest + ".debug",
				resolve:          resolve,
			}
			dirs[dirName] = append(dirs[dirName], leaf)
		}
	}

	root := &Root{dirs: make(map[string]*Dir, len(dirs))}
	for name, leaves := range dirs {
		root.dirs[name] = &Dir{name: name, leaves: leaves}
	}
	return root, nil
}
