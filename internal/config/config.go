package config

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ExtractConfig contains extraction defaults, overridden by command-line flags.
type ExtractConfig struct {
	UnwrapRoot  bool
	NoOverwrite bool
	BufferSize  int
}

// ForExtract returns configuration for extraction from the [extract] section.
func (l *Loader) ForExtract() ExtractConfig {
	c := ExtractConfig{UnwrapRoot: true}

	sec, err := l.section("extract")
	if err != nil {
		return c
	}

	c.UnwrapRoot = sec.Key("unwrap-root").MustBool(true)
	c.NoOverwrite = sec.Key("no-overwrite").MustBool(false)
	c.BufferSize = sec.Key("buffer-size").MustInt(0)
	return c
}

// ForExtract calls Loader.ForExtract on the DefaultLoader instance.
func ForExtract() ExtractConfig {
	return DefaultLoader.ForExtract()
}

// BucketConfig contains configuration settings for a specific bucket.
type BucketConfig struct {
	Bucket              string
	AWSProfile          string
	ExpectedBucketOwner *string
	StorageClass        types.StorageClass
}

// ForBucket returns configuration for a specific bucket from the [s3://bucket] section.
func (l *Loader) ForBucket(bucket string) (c BucketConfig) {
	c.Bucket = bucket

	sec, err := l.section("s3://" + bucket)
	if err != nil {
		return c
	}

	c.AWSProfile = sec.Key("aws-profile").String()
	if sec.HasKey("expected-bucket-owner") {
		c.ExpectedBucketOwner = aws.String(sec.Key("expected-bucket-owner").String())
	}
	if sec.HasKey("storage-class") {
		c.StorageClass = types.StorageClass(sec.Key("storage-class").String())
	}

	return
}

// ForBucket calls Loader.ForBucket on the DefaultLoader instance.
func ForBucket(bucket string) BucketConfig {
	return DefaultLoader.ForBucket(bucket)
}
