package bundle

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ingestkit/engine/replctx"
	"github.com/ingestkit/engine/workflow"
)

// Catalog supplies the files a package's persisted metadata already knows
// about (e.g. prior identification results), keyed by absolute path.
// Catalog entries for paths that no longer exist on disk are skipped
// (§4.6: "non-existent catalog entries are skipped").
type Catalog interface {
	CatalogFiles(packageID string) ([]File, error)
}

// WalkLister implements FileLister by unioning a Catalog lookup with a
// filesystem walk of the package's working directory, de-duplicated on
// absolute path with catalog entries taking precedence, in the order §4.6
// specifies: catalog first, then filesystem walk in directory order. This
// generalizes memory/filestore.go's filepath.WalkDir-based listing from a
// flat key-value store to package file discovery.
type WalkLister struct {
	Catalog Catalog
}

func (w *WalkLister) Files(pkg *Package, filter workflow.FileFilter) ([]File, error) {
	seen := make(map[string]bool)
	var out []File

	if w.Catalog != nil {
		catalog, err := w.Catalog.CatalogFiles(pkg.ID)
		if err != nil {
			return nil, err
		}
		for _, f := range catalog {
			if _, err := os.Stat(f.AbsolutePath); err != nil {
				continue
			}
			if !matches(f, filter) {
				continue
			}
			seen[f.AbsolutePath] = true
			out = append(out, withFileReplacements(f))
		}
	}

	root := pkg.CurrentPath
	if filter.SubdirectoryPrefix != "" {
		root = filepath.Join(root, filter.SubdirectoryPrefix)
	}

	var walked []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if seen[path] {
			return nil
		}
		f := File{UUID: "", AbsolutePath: path, GroupUse: "", Identified: false}
		if !matches(f, filter) {
			return nil
		}
		walked = append(walked, withFileReplacements(f))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(walked, func(i, j int) bool { return walked[i].AbsolutePath < walked[j].AbsolutePath })

	return append(out, walked...), nil
}

func matches(f File, filter workflow.FileFilter) bool {
	if filter.GroupUse != "" && f.GroupUse != filter.GroupUse {
		return false
	}
	if filter.SubdirectoryPrefix != "" && !strings.Contains(f.AbsolutePath, filter.SubdirectoryPrefix) {
		return false
	}
	if filter.RequireIdentified && !f.Identified {
		return false
	}
	if filter.RequireUnidentified && f.Identified {
		return false
	}
	return true
}

func withFileReplacements(f File) File {
	if f.Replacements == nil {
		f.Replacements = replctx.New().
			Set("fileUUID", f.UUID).
			Set("fileFullName", f.AbsolutePath)
	}
	return f
}
