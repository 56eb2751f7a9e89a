package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/charmbracelet/log"
	"github.com/nguyengg/unarc/engine"
	"github.com/nguyengg/unarc/extract"
	"github.com/nguyengg/unarc/internal"
	"github.com/nguyengg/unarc/itemtree"
)

// ErrAborted is the error the pending upload sees when S3 is closed in the middle of an item.
var ErrAborted = errors.New("extraction aborted")

// S3Options customises NewS3.
type S3Options struct {
	// NoUnwrapRoot turns off root unwrapping. See DirOptions.NoUnwrapRoot.
	NoUnwrapRoot bool

	// ExpectedBucketOwner is passed to every upload.
	ExpectedBucketOwner *string

	// StorageClass is passed to every upload if not empty.
	StorageClass types.StorageClass

	// ModifyPutObjectInput can be used to modify the upload input parameters such as adding tags or metadata.
	//
	// Its return value will be used to make the upload.
	ModifyPutObjectInput func(*s3.PutObjectInput) *s3.PutObjectInput

	// UploaderOptions customises the manager.Uploader used for every item.
	UploaderOptions []func(*manager.Uploader)

	// Logger receives a debug record for every object and every multipart part uploaded. Nil disables logging.
	Logger *log.Logger
}

// S3 uploads every extracted file to S3 under a key prefix.
//
// Each file is streamed to a manager.Uploader through a pipe, so the content is never fully buffered. Directories
// have no S3 representation and are skipped. A file whose result is not engine.ResultOK has its upload aborted and is
// recorded in Failures.
//
// S3 must be closed after the extraction to release an upload left pending by an aborted extraction.
type S3 struct {
	extract.NoopSink

	ctx      context.Context
	uploader *manager.Uploader
	bucket   string
	prefix   string
	items    map[uint32]itemtree.Item
	root     internal.RootDir
	opts     S3Options

	cur *upload

	// Keys are the keys of the uploaded objects.
	Keys []string
	// Failures are the items that did not extract successfully.
	Failures []Failure
}

type upload struct {
	item itemtree.Item
	key  string
	pw   *io.PipeWriter
	done chan error
}

var _ extract.Sink = &S3{}

// NewS3 returns an S3 sink uploading to bucket, with each item's path appended to prefix to form its key.
//
// items must contain the metadata of every item that will be extracted. ctx is used for every upload.
func NewS3(ctx context.Context, client manager.UploadAPIClient, bucket, prefix string, items []itemtree.Item, optFns ...func(*S3Options)) *S3 {
	s := &S3{
		ctx:    ctx,
		bucket: bucket,
		prefix: prefix,
		items:  make(map[uint32]itemtree.Item, len(items)),
		opts: S3Options{
			ModifyPutObjectInput: func(input *s3.PutObjectInput) *s3.PutObjectInput {
				return input
			},
		},
	}
	for _, fn := range optFns {
		fn(&s.opts)
	}

	for _, item := range items {
		s.items[item.ID] = item
	}

	if !s.opts.NoUnwrapRoot {
		s.root = internal.FindRootDir(items)
	}

	s.uploader = manager.NewUploader(client, s.opts.UploaderOptions...)
	if s.opts.Logger != nil {
		s.uploader.S3 = &partLogger{UploadAPIClient: s.uploader.S3, logger: s.opts.Logger}
	}

	return s
}

// Key returns the S3 key of the archive path.
func (s *S3) Key(p string) (string, error) {
	segments := itemtree.Split(p)
	if slices.Contains(segments, "..") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, p)
	}

	if s.root != "" && len(segments) > 0 && segments[0] == string(s.root) {
		segments = segments[1:]
	}

	return s.prefix + path.Join(segments...), nil
}

func (s *S3) PrepareOperation(engine.AskMode) error {
	return s.Close()
}

func (s *S3) GetOutput(id uint32, mode engine.AskMode) (io.Writer, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownItem, id)
	}

	if item.IsDir || mode != engine.AskExtract {
		return nil, nil
	}

	key, err := s.Key(item.Path)
	if err != nil {
		return nil, err
	}

	input := &s3.PutObjectInput{
		Bucket:              aws.String(s.bucket),
		Key:                 aws.String(key),
		ExpectedBucketOwner: s.opts.ExpectedBucketOwner,
		StorageClass:        s.opts.StorageClass,
	}
	if !item.ModTime.IsZero() {
		input.Metadata = map[string]string{"mtime": item.ModTime.UTC().Format("2006-01-02T15:04:05Z")}
	}

	pr, pw := io.Pipe()
	input.Body = pr
	input = s.opts.ModifyPutObjectInput(input)

	u := &upload{item: item, key: key, pw: pw, done: make(chan error, 1)}
	go func() {
		_, err := s.uploader.Upload(s.ctx, input)
		_ = pr.CloseWithError(err)
		u.done <- err
	}()

	s.cur = u

	// the pipe must only be closed once the result is known.
	return struct{ io.Writer }{pw}, nil
}

func (s *S3) SetOperationResult(result engine.OperationResult) error {
	u := s.cur
	s.cur = nil
	if u == nil {
		return nil
	}

	if result != engine.ResultOK {
		_ = u.pw.CloseWithError(&itemError{u.key, result})
		<-u.done
		s.Failures = append(s.Failures, Failure{ID: u.item.ID, Path: u.item.Path, Result: result})
		return nil
	}

	_ = u.pw.Close()
	if err := <-u.done; err != nil {
		return fmt.Errorf("upload to s3://%s/%s error: %w", s.bucket, u.key, err)
	}

	if s.opts.Logger != nil {
		s.opts.Logger.Debug("uploaded", "key", u.key, "size", u.item.Size)
	}
	s.Keys = append(s.Keys, u.key)
	return nil
}

// Close aborts the pending upload, if any, and waits for it to finish.
func (s *S3) Close() error {
	if u := s.cur; u != nil {
		s.cur = nil
		_ = u.pw.CloseWithError(ErrAborted)
		<-u.done
	}
	return nil
}

type itemError struct {
	key    string
	result engine.OperationResult
}

func (e *itemError) Error() string {
	return fmt.Sprintf("extract %s error: %s", e.key, e.result)
}

// partLogger logs every successfully uploaded part of a multipart upload.
//
// UploadPart may be called from any of the goroutines of manager.Uploader.
type partLogger struct {
	manager.UploadAPIClient
	logger *log.Logger
}

func (l *partLogger) UploadPart(ctx context.Context, input *s3.UploadPartInput, f ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	o, err := l.UploadAPIClient.UploadPart(ctx, input, f...)
	if err == nil {
		l.logger.Debug("uploaded part", "key", aws.ToString(input.Key), "part", aws.ToInt32(input.PartNumber))
	}
	return o, err
}
