package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
[extract]
unwrap-root = false
no-overwrite = true
buffer-size = 1048576

[s3://my-bucket]
aws-profile = backup
expected-bucket-owner = 123456789012
storage-class = GLACIER_IR
`

func TestLoader_LoadFrom(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(testConfig), 0644))

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	l := &Loader{}
	name, err := l.LoadFrom(t.Context(), nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, FileName), name)

	assert.Equal(t, ExtractConfig{UnwrapRoot: false, NoOverwrite: true, BufferSize: 1 << 20}, l.ForExtract())

	c := l.ForBucket("my-bucket")
	assert.Equal(t, "backup", c.AWSProfile)
	require.NotNil(t, c.ExpectedBucketOwner)
	assert.Equal(t, "123456789012", *c.ExpectedBucketOwner)
	assert.Equal(t, types.StorageClassGlacierIr, c.StorageClass)
}

func TestLoader_Defaults(t *testing.T) {
	l := &Loader{}
	assert.Equal(t, ExtractConfig{UnwrapRoot: true}, l.ForExtract())

	c := l.ForBucket("other-bucket")
	assert.Equal(t, BucketConfig{Bucket: "other-bucket"}, c)
}

func TestLoader_LoadFromNothingFound(t *testing.T) {
	l := &Loader{}
	// the temp dir's ancestors are not expected to carry a config file.
	name, err := l.LoadFrom(t.Context(), t.TempDir())
	require.NoError(t, err)
	if name != "" {
		t.Skipf("found unexpected %s in an ancestor of the temp directory", name)
	}
	assert.Equal(t, ExtractConfig{UnwrapRoot: true}, l.ForExtract())
}
