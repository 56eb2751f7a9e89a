// Package format maps archive file names to the candidate formats of an engine.
package format

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/mholt/archives"
	"github.com/nguyengg/unarc/engine"
)

// Registry indexes the format registry of an engine by extension.
//
// Registry is immutable after New and safe for concurrent use.
type Registry struct {
	formats []engine.FormatInfo
	byExt   map[string][]engine.FormatInfo
	byName  map[string]engine.FormatInfo
}

// New builds a Registry from the given formats.
//
// Each format is registered under every extension in FormatInfo.Extensions. If the parallel FormatInfo.AddExtensions
// entry is set to anything other than "*", the format is also registered under the compound extension such as
// "tar.gz". Extensions are case-insensitive.
func New(formats []engine.FormatInfo) *Registry {
	r := &Registry{
		formats: formats,
		byExt:   make(map[string][]engine.FormatInfo),
		byName:  make(map[string]engine.FormatInfo, len(formats)),
	}

	for _, f := range formats {
		r.byName[strings.ToLower(f.Name)] = f

		for i, ext := range f.Extensions {
			ext = strings.ToLower(strings.TrimPrefix(ext, "."))
			if ext == "" || ext == "*" {
				continue
			}
			r.add(ext, f)

			if i < len(f.AddExtensions) {
				if add := strings.ToLower(strings.Trim(f.AddExtensions[i], ".")); add != "" && add != "*" {
					r.add(add+"."+ext, f)
				}
			}
		}
	}

	return r
}

func (r *Registry) add(ext string, f engine.FormatInfo) {
	for _, g := range r.byExt[ext] {
		if g.ClassID == f.ClassID {
			return
		}
	}
	r.byExt[ext] = append(r.byExt[ext], f)
}

// Formats returns all formats in registration order.
func (r *Registry) Formats() []engine.FormatInfo {
	return r.formats
}

// ByName returns the format with the given name, case-insensitive.
func (r *Registry) ByName(name string) (engine.FormatInfo, bool) {
	f, ok := r.byName[strings.ToLower(name)]
	return f, ok
}

// ByExt returns the formats registered under the given extension with or without the leading dot.
func (r *Registry) ByExt(ext string) []engine.FormatInfo {
	return r.byExt[strings.ToLower(strings.TrimPrefix(ext, "."))]
}

// Resolve returns the ordered candidate formats for the given file name.
//
// Formats registered under the compound extension (such as "tar.gz") come first, followed by the formats registered
// under the final extension (such as "gz"). A format appears at most once. Returns an empty slice if nothing matches;
// it is up to the caller to decide whether that is an error.
func (r *Registry) Resolve(name string) []engine.FormatInfo {
	ext, compound := Exts(name)
	if ext == "" {
		return nil
	}

	var candidates []engine.FormatInfo
	seen := make(map[uuid.UUID]bool)
	for _, key := range []string{compound, ext} {
		if key == "" {
			continue
		}
		for _, f := range r.byExt[key] {
			if !seen[f.ClassID] {
				seen[f.ClassID] = true
				candidates = append(candidates, f)
			}
		}
	}

	return candidates
}

// Exts returns the final extension and the compound extension of the given file name, lower-cased and without the
// leading dot.
//
// For example, "backup.TAR.gz" returns "gz" and "tar.gz". Compound is empty if there is only one extension.
func Exts(name string) (ext, compound string) {
	base := strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/")))

	i := strings.LastIndexByte(base, '.')
	if i <= 0 || i == len(base)-1 {
		return "", ""
	}
	ext = base[i+1:]

	if j := strings.LastIndexByte(base[:i], '.'); j > 0 && j < i-1 {
		compound = base[j+1:]
	}

	return ext, compound
}

// Identify sniffs the content of src and returns the candidate formats registered for the identified extension.
//
// The read offset of src is restored to the start before returning.
func (r *Registry) Identify(ctx context.Context, src io.ReadSeeker) ([]engine.FormatInfo, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to start error: %w", err)
	}

	f, _, err := archives.Identify(ctx, "", src)
	if _, seekErr := src.Seek(0, io.SeekStart); seekErr != nil && err == nil {
		err = fmt.Errorf("seek to start error: %w", seekErr)
	}
	if err != nil {
		return nil, fmt.Errorf("identify format error: %w", err)
	}

	ext := strings.TrimPrefix(f.Extension(), ".")
	if candidates := r.ByExt(ext); len(candidates) != 0 {
		return candidates, nil
	}

	// "tar.zst" may only be registered as "zst".
	if i := strings.LastIndexByte(ext, '.'); i >= 0 {
		return r.ByExt(ext[i+1:]), nil
	}

	return nil, nil
}
