// Package s3readseeker adapts an S3 object into an io.ReadSeeker and io.ReaderAt using ranged GetObject calls, so
// that archives stored in S3 can be opened without downloading them first.
package s3readseeker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ReadSeeker uses ranged GetObject to implement io.ReadSeeker and io.ReaderAt.
type ReadSeeker interface {
	io.ReadSeeker
	io.ReaderAt

	// Size returns the size of the S3 object that was determined from the initial HeadObject.
	Size() int64
}

// ReadSeekerClient abstracts the S3 APIs that are needed to implement ReadSeeker.
type ReadSeekerClient interface {
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// DefaultBufferSize is the default value for Options.BufferSize.
const DefaultBufferSize = 64 * 1024

// ErrSeekBeforeFirstByte is returned by Seek if the resulting offset would be negative.
var ErrSeekBeforeFirstByte = errors.New("seek ends up before first byte")

// Options customises New.
type Options struct {
	// BufferSize is used to provide buffered read-ahead for every Read call.
	//
	// By default, DefaultBufferSize is used so that consecutive small Reads, which archive decoders do a lot, don't
	// end up with several GetObject calls if one bigger GetObject call is more efficient.
	//
	// Pass zero or a negative value to disable this feature. ReadAt is never buffered.
	BufferSize int

	// CtxFn returns a context.Context to be used with every GetObject or HeadObject call.
	//
	// By default, context.Background is used.
	CtxFn func() context.Context

	// ModifyGetObjectInput can be used to modify the GetObject input parameters such as adding ExpectedBucketOwner.
	//
	// Its return value will be used to make the GetObject call.
	ModifyGetObjectInput func(*s3.GetObjectInput) *s3.GetObjectInput

	// ModifyHeadObjectInput can be used to modify the HeadObject input parameters such as adding
	// ExpectedBucketOwner.
	//
	// Its return value will be used to make the HeadObject call. Used only by New.
	ModifyHeadObjectInput func(*s3.HeadObjectInput) *s3.HeadObjectInput
}

// WithExpectedBucketOwner sets ExpectedBucketOwner on every GetObject and HeadObject call.
func WithExpectedBucketOwner(owner *string) func(*Options) {
	return func(opts *Options) {
		goiFn, hoiFn := opts.ModifyGetObjectInput, opts.ModifyHeadObjectInput
		opts.ModifyGetObjectInput = func(input *s3.GetObjectInput) *s3.GetObjectInput {
			input.ExpectedBucketOwner = owner
			return goiFn(input)
		}
		opts.ModifyHeadObjectInput = func(input *s3.HeadObjectInput) *s3.HeadObjectInput {
			input.ExpectedBucketOwner = owner
			return hoiFn(input)
		}
	}
}

// New returns a ReadSeeker with the given bucket and key.
//
// The client will be used to determine a valid size for the file.
func New(client ReadSeekerClient, bucket, key string, optFns ...func(*Options)) (ReadSeeker, error) {
	opts := &Options{
		BufferSize: DefaultBufferSize,
		CtxFn:      context.Background,
		ModifyGetObjectInput: func(input *s3.GetObjectInput) *s3.GetObjectInput {
			return input
		},
		ModifyHeadObjectInput: func(input *s3.HeadObjectInput) *s3.HeadObjectInput {
			return input
		},
	}
	for _, fn := range optFns {
		fn(opts)
	}

	headObjectOutput, err := client.HeadObject(opts.CtxFn(), opts.ModifyHeadObjectInput(&s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}))
	if err != nil {
		return nil, fmt.Errorf("determine file size error: %w", err)
	}

	return &readSeeker{
		client:     client,
		bucket:     bucket,
		key:        key,
		ctxFn:      opts.CtxFn,
		goiFn:      opts.ModifyGetObjectInput,
		size:       aws.ToInt64(headObjectOutput.ContentLength),
		bufferSize: opts.BufferSize,
	}, nil
}

// readSeeker keeps the invariant that buf holds the bytes starting at off.
type readSeeker struct {
	client      ReadSeekerClient
	bucket, key string
	ctxFn       func() context.Context
	goiFn       func(*s3.GetObjectInput) *s3.GetObjectInput
	off, size   int64
	buf         bytes.Buffer
	bufferSize  int
}

func (r *readSeeker) Size() int64 {
	return r.size
}

func (r *readSeeker) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}

	if r.buf.Len() == 0 {
		if r.off >= r.size {
			return 0, io.EOF
		}

		end := min(r.size, r.off+int64(max(len(p), r.bufferSize)))
		if err = r.getRange(r.off, end, func(body io.Reader) (err error) {
			_, err = r.buf.ReadFrom(body)
			return
		}); err != nil {
			r.buf.Reset()
			return 0, err
		}
	}

	n, _ = r.buf.Read(p)
	r.off += int64(n)
	return n, nil
}

func (r *readSeeker) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, ErrSeekBeforeFirstByte
	}
	if len(p) == 0 {
		return 0, nil
	}
	if off >= r.size {
		return 0, io.EOF
	}

	end := min(r.size, off+int64(len(p)))
	if err = r.getRange(off, end, func(body io.Reader) (err error) {
		n, err = io.ReadFull(body, p[:end-off])
		return
	}); err != nil {
		return n, err
	}

	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// getRange gets the bytes [start, end) and passes the body to fn.
func (r *readSeeker) getRange(start, end int64, fn func(io.Reader) error) error {
	getObjectOutput, err := r.client.GetObject(r.ctxFn(), r.goiFn(&s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, end-1)),
	}))
	if err != nil {
		return fmt.Errorf("get range [%d, %d) error: %w", start, end, err)
	}

	err = fn(getObjectOutput.Body)
	_ = getObjectOutput.Body.Close()
	return err
}

// Seek implements io.Seeker. Seeking past the end is allowed; a subsequent Read returns io.EOF.
func (r *readSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.off + offset
	case io.SeekEnd:
		abs = r.size + offset
	default:
		return r.off, fmt.Errorf("invalid whence: %d", whence)
	}

	if abs < 0 {
		return r.off, ErrSeekBeforeFirstByte
	}

	// keep the read-ahead if the new offset lands inside it.
	if d := abs - r.off; d >= 0 && d <= int64(r.buf.Len()) {
		r.buf.Next(int(d))
	} else {
		r.buf.Reset()
	}

	r.off = abs
	return abs, nil
}
