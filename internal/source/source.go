package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/iurnickita/vendussync/internal/saft"
	"github.com/iurnickita/vendussync/internal/source/config"
)

var ErrS3NotConfigured = errors.New("s3 source is not configured")

type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Source читает файл SAF-T с диска или из s3://bucket/key
type Source struct {
	s3 ObjectGetter
}

func NewSource(ctx context.Context, cfg config.Config) (*Source, error) {
	if cfg.Region == "" && cfg.Endpoint == "" && cfg.AccessKey == "" {
		return &Source{}, nil
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return New(client), nil
}

func New(getter ObjectGetter) *Source {
	return &Source{s3: getter}
}

func (s *Source) Read(ctx context.Context, location string) ([]byte, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, saft.ErrMissingFile
	}
	if strings.HasPrefix(location, "s3://") {
		return s.readObject(ctx, location)
	}

	raw, err := os.ReadFile(location)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", saft.ErrMissingFile, location)
		}
		return nil, err
	}
	return raw, nil
}

func (s *Source) readObject(ctx context.Context, location string) ([]byte, error) {
	if s.s3 == nil {
		return nil, ErrS3NotConfigured
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", location, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, fmt.Errorf("%w: %s", saft.ErrMissingFile, location)
	}

	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Host),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var noSuchBucket *types.NoSuchBucket
		if errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) {
			return nil, fmt.Errorf("%w: %s", saft.ErrMissingFile, location)
		}
		return nil, fmt.Errorf("get %s: %w", location, err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}
