package itemtree

import (
	"io/fs"
	"time"

	"github.com/nguyengg/unarc/engine"
)

// Windows file attribute bits recorded by archivers.
const (
	AttributeReadOnly      uint32 = 0x1
	AttributeDirectory     uint32 = 0x10
	AttributeUnixExtension uint32 = 0x8000
)

// Item is the full metadata of an archive item.
type Item struct {
	ID          uint32
	Path        string
	Name        string
	IsDir       bool
	Size        uint64
	PackSize    uint64
	ModTime     time.Time
	CreatedTime time.Time
	AccessTime  time.Time
	// Attributes are the Windows attributes of the item. If AttributeUnixExtension is set, the high 16 bits hold the
	// Unix st_mode.
	Attributes uint32
	Comment    string
	CRC        uint32
	HasCRC     bool
	Encrypted  bool
	Method     string
}

// Mode returns the Unix permission bits of the item, plus fs.ModeDir for directories.
//
// Without the Unix extension, the permissions are r--r--r-- with u+w unless read-only, and directories are executable.
func (i Item) Mode() fs.FileMode {
	var perm uint32
	if i.Attributes&AttributeUnixExtension != 0 {
		perm = i.Attributes >> 16
		if perm&0xF000 == 0x4000 {
			perm |= 0o111
		}
		perm &= 0o7777
	} else {
		perm = 0o444
		if i.IsDir || i.Attributes&AttributeDirectory != 0 {
			perm |= 0o111
		}
		if i.Attributes&AttributeReadOnly == 0 {
			perm |= 0o200
		}
	}

	mode := fs.FileMode(perm & 0o777)
	if perm&0o4000 != 0 {
		mode |= fs.ModeSetuid
	}
	if perm&0o2000 != 0 {
		mode |= fs.ModeSetgid
	}
	if perm&0o1000 != 0 {
		mode |= fs.ModeSticky
	}
	if i.IsDir {
		mode |= fs.ModeDir
	}
	return mode
}

// ReadItem reads the metadata of item id from src.
//
// Absent timestamps are the zero time. Absent sizes are zero. A file without a path gets ContentName as its path, the
// same way Build names it.
func ReadItem(src Source, id uint32) (item Item, err error) {
	item.ID = id
	if item.Path, err = engine.ReadOptionalString(src, id, engine.PropPath, ""); err != nil {
		return
	}
	if item.Name, err = engine.ReadOptionalString(src, id, engine.PropName, ""); err != nil {
		return
	}
	if item.Name == "" {
		if segments := Split(item.Path); len(segments) != 0 {
			item.Name = segments[len(segments)-1]
		}
	}
	if item.IsDir, err = engine.ReadBool(src, id, engine.PropIsDir); err != nil {
		return
	}
	if !item.IsDir && len(Split(item.Path)) == 0 {
		item.Path = ContentName
		if item.Name == "" {
			item.Name = ContentName
		}
	}
	if item.Size, _, err = engine.ReadUint64(src, id, engine.PropSize); err != nil {
		return
	}
	if item.PackSize, _, err = engine.ReadUint64(src, id, engine.PropPackSize); err != nil {
		return
	}
	if item.ModTime, err = engine.ReadTime(src, id, engine.PropMTime); err != nil {
		return
	}
	if item.CreatedTime, err = engine.ReadTime(src, id, engine.PropCTime); err != nil {
		return
	}
	if item.AccessTime, err = engine.ReadTime(src, id, engine.PropATime); err != nil {
		return
	}
	if item.Attributes, _, err = engine.ReadUint32(src, id, engine.PropAttrib); err != nil {
		return
	}
	if item.Comment, err = engine.ReadOptionalString(src, id, engine.PropComment, ""); err != nil {
		return
	}
	if item.CRC, item.HasCRC, err = engine.ReadUint32(src, id, engine.PropCRC); err != nil {
		return
	}
	if item.Encrypted, err = engine.ReadOptionalBool(src, id, engine.PropEncrypted, false); err != nil {
		return
	}
	item.Method, err = engine.ReadOptionalString(src, id, engine.PropMethod, "")
	return
}
