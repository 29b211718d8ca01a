package blobstore

import (
	"bytes"
	"context"
	"io"
	"time"

	"ppchat/tools/errs"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// presignTTL is how long a fetch URL returned by Put remains valid.
const presignTTL = 7 * 24 * time.Hour

// S3Store is the production Store, one presigned-URL GET per object.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewS3Store builds an S3-compatible client from explicit credentials
// (access key, secret, region) the way the environment hands them to the
// process, rather than falling back to ambient SDK credential discovery.
func NewS3Store(ctx context.Context, region, accessKeyID, secretAccessKey, bucket string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
	)
	if err != nil {
		return nil, errs.WrapMsg(err, "load aws config")
	}
	cli := s3.NewFromConfig(cfg)
	return &S3Store{
		client:  cli,
		presign: s3.NewPresignClient(cli),
		bucket:  bucket,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", errs.NewCodeError(errs.CodeBlob, "upload object").WithDetail(err.Error())
	}

	out, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(po *s3.PresignOptions) { po.Expires = presignTTL })
	if err != nil {
		return "", errs.NewCodeError(errs.CodeBlob, "presign object url").WithDetail(err.Error())
	}
	return out.URL, nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errs.NewCodeError(errs.CodeBlob, "get object").WithDetail(err.Error())
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errs.NewCodeError(errs.CodeBlob, "read object body").WithDetail(err.Error())
	}
	return data, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errs.NewCodeError(errs.CodeBlob, "delete object").WithDetail(err.Error())
	}
	return nil
}
