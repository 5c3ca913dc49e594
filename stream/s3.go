// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package stream // import "github.com/Falcon-OS/platform-external-perfetto/stream"

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client needed to fetch a trace object.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput,
		optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// OpenS3 fetches a trace object from an S3 bucket as a Source. The object
// body is streamed; ctx covers the whole download.
func OpenS3(ctx context.Context, client S3API, bucket, key string) (*Reader, error) {
	name := fmt.Sprintf("s3://%s/%s", bucket, key)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, NewStreamError(name, err)
	}
	return NewReader(name, out.Body, aws.ToInt64(out.ContentLength))
}
