package notify

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/lootshop/internal/logging"
)

// maxTemplateSize caps a template object read from the bucket.
const maxTemplateSize = 256 << 10

type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3Client = func(cfg aws.Config, optFns ...func(*s3.Options)) objectGetter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// S3Source reads <Prefix><name>.html from a bucket and falls back to another
// source when the object is missing or unreadable.
type S3Source struct {
	client   objectGetter
	bucket   string
	prefix   string
	fallback TemplateSource
	log      logging.Logger
}

func NewS3Source(ctx context.Context, c S3Config, fallback TemplateSource, log logging.Logger) (*S3Source, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3Client(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Source{
		client:   client,
		bucket:   c.Bucket,
		prefix:   c.Prefix,
		fallback: fallback,
		log:      log.With("module", "s3_templates"),
	}, nil
}

func (s *S3Source) Template(ctx context.Context, name string) (string, error) {
	key := s.prefix + name + ".html"

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.log.Debug(ctx, "template override unavailable", "key", key, "error", err)
		return s.fallback.Template(ctx, name)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(io.LimitReader(out.Body, maxTemplateSize))
	if err != nil {
		s.log.Warn(ctx, "template override unreadable", "key", key, "error", err)
		return s.fallback.Template(ctx, name)
	}
	return string(b), nil
}
