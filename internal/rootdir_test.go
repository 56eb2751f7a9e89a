package internal

import (
	"path/filepath"
	"testing"

	"github.com/nguyengg/unarc/itemtree"
	"github.com/stretchr/testify/assert"
)

func TestFindRootDir(t *testing.T) {
	tests := []struct {
		name     string
		items    []itemtree.Item
		wantRoot RootDir
	}{
		{
			name: "simple root",
			items: []itemtree.Item{
				{Path: "test/a.txt"},
				{Path: "test/path/b.txt"},
				{Path: "test/another/path/c.txt"},
			},
			wantRoot: "test",
		},
		{
			name: "no root",
			items: []itemtree.Item{
				{Path: "a.txt"},
				{Path: "path/b.txt"},
				{Path: "another/path/c.txt"},
			},
			wantRoot: "",
		},
		{
			name: "long root",
			items: []itemtree.Item{
				{Path: "test/path/to/a.txt"},
				{Path: "test/path/to/b.txt"},
			},
			wantRoot: "test",
		},
		{
			name: "window paths",
			items: []itemtree.Item{
				{Path: "test\\a.txt"},
				{Path: "test\\path\\b.txt"},
			},
			wantRoot: "test",
		},
		{
			name: "explicit root directory",
			items: []itemtree.Item{
				{Path: "test", IsDir: true},
				{Path: "test/a.txt"},
			},
			wantRoot: "test",
		},
		{
			name: "top-level file after root",
			items: []itemtree.Item{
				{Path: "test/a.txt"},
				{Path: "b.txt"},
			},
			wantRoot: "",
		},
		{
			name: "two top-level directories",
			items: []itemtree.Item{
				{Path: "test", IsDir: true},
				{Path: "other", IsDir: true},
			},
			wantRoot: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRoot, FindRootDir(tt.items))
		})
	}
}

func TestRootDir_Join(t *testing.T) {
	tests := []struct {
		name string
		root RootDir
		path string
		want string
	}{
		{name: "no root", root: "", path: "test/a.txt", want: filepath.Join("out", "test", "a.txt")},
		{name: "root trimmed", root: "test", path: "test/a.txt", want: filepath.Join("out", "a.txt")},
		{name: "root itself", root: "test", path: "test", want: "out"},
		{name: "prefix is not root", root: "test", path: "testing/a.txt", want: filepath.Join("out", "testing", "a.txt")},
		{name: "backslashes", root: "test", path: "test\\path\\b.txt", want: filepath.Join("out", "path", "b.txt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.root.Join("out", tt.path))
		})
	}
}
