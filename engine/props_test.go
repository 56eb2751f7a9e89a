package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type props map[PropID]any

func (p props) Property(_ uint32, id PropID) (any, error) {
	if v, ok := p[id]; ok {
		if err, ok := v.(error); ok {
			return nil, err
		}
		return v, nil
	}
	return nil, nil
}

func TestReadBool(t *testing.T) {
	r := props{PropIsDir: true, PropPath: "a/b"}

	got, err := ReadBool(r, 0, PropIsDir)
	require.NoError(t, err)
	assert.True(t, got)

	_, err = ReadBool(r, 0, PropSolid)
	assert.ErrorIs(t, err, ErrPropertyAbsent)

	_, err = ReadBool(r, 0, PropPath)
	var typeErr *PropertyTypeError
	assert.ErrorAs(t, err, &typeErr)
}

func TestReadOptional(t *testing.T) {
	r := props{PropPath: "a/b"}

	deleted, err := ReadOptionalBool(r, 0, PropIsDeleted, false)
	require.NoError(t, err)
	assert.False(t, deleted)

	path, err := ReadOptionalString(r, 0, PropPath, "")
	require.NoError(t, err)
	assert.Equal(t, "a/b", path)

	comment, err := ReadOptionalString(r, 0, PropComment, "none")
	require.NoError(t, err)
	assert.Equal(t, "none", comment)

	mtime, err := ReadTime(r, 0, PropMTime)
	require.NoError(t, err)
	assert.True(t, mtime.IsZero())
}

func TestReadUint64(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		value   any
		want    uint64
		wantOk  bool
		wantErr bool
	}{
		{name: "uint64", value: uint64(1 << 40), want: 1 << 40, wantOk: true},
		{name: "uint32 is widened", value: uint32(7), want: 7, wantOk: true},
		{name: "absent", value: nil},
		{name: "wrong type", value: now, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := ReadUint64(props{PropSize: tt.value}, 0, PropSize)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equalf(t, tt.want, got, "ReadUint64() got = %v, want = %v", got, tt.want)
			assert.Equalf(t, tt.wantOk, ok, "ReadUint64() ok = %v, want = %v", ok, tt.wantOk)
		})
	}
}

func TestReadPropagatesError(t *testing.T) {
	cause := errors.New("boom")
	_, err := ReadString(props{PropPath: cause}, 3, PropPath)
	assert.ErrorIs(t, err, cause)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeOK, CodeOf(nil))
	assert.Equal(t, CodeAbort, CodeOf(fmt.Errorf("wrapped: %w", context.Canceled)))
	assert.Equal(t, CodeNotImpl, CodeOf(&Error{Op: "Extract", Code: CodeNotImpl}))
	assert.Equal(t, CodeFail, CodeOf(errors.New("boom")))
}

func TestNewClassID(t *testing.T) {
	assert.Equal(t, NewClassID("7z"), NewClassID("7z"))
	assert.NotEqual(t, NewClassID("7z"), NewClassID("zip"))
}
