package util

import (
	"path"
	"strings"
)

// StemAndExt is a variant of filepath.Ext that allows extended extension to be detected while also returning the stem.
//
// For example, `filepath.Ext("file.tar.gz")` would return ".gz", but `StemAndExt("file.tar.gz")` would return
// ".tar.gz" for the extension, "file" for the stem. This is how an archive named "backup.tar.gz" gets extracted into
// "backup" rather than "backup.tar".
//
// Each extension segment can be at most 7 characters including the dot, so ".jfif-tbnl" is not an extension for
// StemAndExt. A leading dot does not start an extension. Both `/` and `\` are treated as separators.
func StemAndExt(name string) (stem, ext string) {
	stem = path.Base(strings.ReplaceAll(name, `\`, "/"))
	for {
		i := strings.LastIndexByte(stem, '.')
		if i <= 0 || len(stem)-i > 7 {
			return
		}

		ext = stem[i:] + ext
		stem = stem[:i]
	}
}
