package itemtree

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItem_Mode(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want fs.FileMode
	}{
		{
			name: "plain file",
			item: Item{Attributes: 0x20},
			want: 0o644,
		},
		{
			name: "read-only file",
			item: Item{Attributes: AttributeReadOnly},
			want: 0o444,
		},
		{
			name: "windows directory",
			item: Item{IsDir: true, Attributes: AttributeDirectory},
			want: fs.ModeDir | 0o755,
		},
		{
			name: "unix file",
			item: Item{Attributes: AttributeUnixExtension | (0o100640 << 16)},
			want: 0o640,
		},
		{
			name: "unix directory gets execute bits",
			item: Item{IsDir: true, Attributes: AttributeUnixExtension | AttributeDirectory | (0o040700 << 16)},
			want: fs.ModeDir | 0o711,
		},
		{
			name: "unix setuid",
			item: Item{Attributes: AttributeUnixExtension | (0o104755 << 16)},
			want: fs.ModeSetuid | 0o755,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.item.Mode()
			assert.Equalf(t, tt.want, got, "Mode() got = %v, want = %v", got, tt.want)
		})
	}
}
