package internal

import (
	"path/filepath"

	"github.com/nguyengg/unarc/itemtree"
)

// RootDir can be used to remove the root prefix of an archive path.
type RootDir string

// Join trims the root from path then joins the remaining segments to base with filepath.Join.
//
// Both `/` and `\` are accepted as separators in path.
func (r RootDir) Join(base, path string) string {
	segments := itemtree.Split(path)
	if r != "" && len(segments) > 0 && segments[0] == string(r) {
		segments = segments[1:]
	}

	return filepath.Join(append([]string{base}, segments...)...)
}

// FindRootDir returns the common top-level directory of the given archive items.
//
// Given these three files:
//
//	test/a.txt
//	test/path/b.txt
//	test/another/path/c.txt
//
// The common root directory of those files is `test`. The returned value is empty if the given items have no common
// root directory. A directory item named `test` does not prevent `test` from being the root.
func FindRootDir(items []itemtree.Item) (rootDir RootDir) {
	fn := NewRootDirFinder()

	var ok bool
	for _, item := range items {
		if rootDir, ok = fn(item.Path, item.IsDir); !ok {
			break
		}
	}

	return
}

// NewRootDirFinder returns a function that can be passed the archive paths one at a time to compute the common root.
//
// NewRootDirFinder is a functional variant of FindRootDir. It returns the current root dir and a boolean indicating
// whether there is a common root so far. As soon as the returned boolean value is false, the search can stop since
// there is no common root and subsequent calls will keep returning `"", false`.
func NewRootDirFinder() func(path string, isDir bool) (rootDir RootDir, hasRoot bool) {
	noRoot, root := false, ""

	return func(path string, isDir bool) (RootDir, bool) {
		if noRoot {
			return "", false
		}

		segments := itemtree.Split(path)
		switch {
		case len(segments) == 0:
			return RootDir(root), true
		case len(segments) == 1 && !isDir:
			// this is a file at top level so there is no root for sure.
			noRoot = true
			return "", false
		}

		switch root {
		case segments[0]:
		case "":
			root = segments[0]
		default:
			noRoot = true
			return "", false
		}

		return RootDir(root), true
	}
}
