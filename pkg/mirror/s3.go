package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"runtime"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Options configures downloads from an s3:// mirror.
type S3Options struct {
	// Region overrides the region from the default AWS configuration.
	Region string
	// Concurrency is the number of parallel ranged GETs.
	// Default: NumCPU clamped to [4, 16].
	Concurrency int
	// PartSize is the size of each ranged GET in bytes. Default: 16MB.
	PartSize int64
}

// DefaultS3Options returns defaults sized for the current machine.
func DefaultS3Options() S3Options {
	return S3Options{
		Concurrency: min(max(runtime.NumCPU(), 4), 16),
		PartSize:    16 * 1024 * 1024,
	}
}

func (o S3Options) withDefaults() S3Options {
	d := DefaultS3Options()
	if o.Concurrency <= 0 {
		o.Concurrency = d.Concurrency
	}
	if o.PartSize <= 0 {
		o.PartSize = d.PartSize
	}
	return o
}

// S3Source downloads from a bucket laid out like a Debian mirror, e.g.
// s3://bucket/debian/dists/stable.
type S3Source struct {
	bucket  string
	prefix  string
	manager *manager.Downloader
	opts    S3Options
}

// NewS3Source creates a source using the default AWS credential chain.
func NewS3Source(ctx context.Context, bucket, prefix string, opts S3Options) (*S3Source, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewS3SourceWithClient(s3.NewFromConfig(cfg), bucket, prefix, opts), nil
}

// NewS3SourceWithClient creates a source from an existing S3 client.
func NewS3SourceWithClient(client manager.DownloadAPIClient, bucket, prefix string, opts S3Options) *S3Source {
	opts = opts.withDefaults()
	mgr := manager.NewDownloader(client, func(d *manager.Downloader) {
		d.Concurrency = opts.Concurrency
		d.PartSize = opts.PartSize
	})
	return &S3Source{
		bucket:  bucket,
		prefix:  prefix,
		manager: mgr,
		opts:    opts,
	}
}

func (s *S3Source) key(name string) string {
	return path.Join(s.prefix, name)
}

// Location returns the s3:// URL of name.
func (s *S3Source) Location(name string) string {
	return "s3://" + s.bucket + "/" + s.key(name)
}

// Download fetches name with parallel ranged GETs into dst.
func (s *S3Source) Download(ctx context.Context, name string, dst *os.File) (int64, error) {
	n, err := s.manager.Download(ctx, dst, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		err = fmt.Errorf("download %s: %w", s.Location(name), err)
		var nsk *types.NoSuchKey
		var nsb *types.NoSuchBucket
		if errors.As(err, &nsk) || errors.As(err, &nsb) {
			return n, Permanent(err)
		}
		return n, err
	}
	return n, nil
}
