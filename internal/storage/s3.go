// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage provides an S3-compatible object storage client for
// archiving deployed bundles. It wraps the AWS SDK v2 and is configured
// for path-style access (required by CEPH/Hetzner).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"siteforge/internal/assembler"
)

// Client wraps an S3 client for bundle archive operations on one bucket.
type Client struct {
	s3       *s3.Client
	bucket   string
	endpoint string
}

// New creates an S3 storage client with path-style addressing. Returns
// (nil, nil) if endpoint or credentials are empty, allowing the app to
// start without storage.
func New(endpoint, region, accessKey, secretKey, bucket string) (*Client, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, nil
	}

	// Strip trailing slash from endpoint for consistent URL building.
	endpoint = strings.TrimRight(endpoint, "/")

	s3Client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})

	return &Client{
		s3:       s3Client,
		bucket:   bucket,
		endpoint: endpoint,
	}, nil
}

// contentType maps bundle file names onto MIME types for the archive.
func contentType(name string) string {
	switch path.Ext(name) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "text/javascript; charset=utf-8"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// BundleKey returns the object key for one file of an archived bundle.
func BundleKey(siteID uuid.UUID, deploymentID, name string) string {
	return "sites/" + siteID.String() + "/deployments/" + deploymentID + "/" + name
}

// ArchiveBundle stores every file of a deployed bundle under a key
// scoped to the site and deployment, so any past deployment can be
// inspected or re-uploaded later.
func (c *Client) ArchiveBundle(ctx context.Context, siteID uuid.UUID, deploymentID string, bundle *assembler.Bundle) error {
	for _, f := range bundle.Files {
		key := BundleKey(siteID, deploymentID, f.Name)
		_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(c.bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(f.Content),
			ContentLength: aws.Int64(int64(len(f.Content))),
			ContentType:   aws.String(contentType(f.Name)),
		})
		if err != nil {
			return fmt.Errorf("s3 archive %s/%s: %w", c.bucket, key, err)
		}
	}
	return nil
}

// Download retrieves one archived bundle file.
func (c *Client) Download(ctx context.Context, siteID uuid.UUID, deploymentID, name string) ([]byte, error) {
	key := BundleKey(siteID, deploymentID, name)
	output, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 download %s/%s: %w", c.bucket, key, err)
	}
	defer output.Body.Close()
	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read body %s/%s: %w", c.bucket, key, err)
	}
	return data, nil
}

// DeleteDeploymentArchive removes all archived files for one deployment.
func (c *Client) DeleteDeploymentArchive(ctx context.Context, siteID uuid.UUID, deploymentID string, names []string) error {
	for _, name := range names {
		key := BundleKey(siteID, deploymentID, name)
		_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("s3 delete %s/%s: %w", c.bucket, key, err)
		}
	}
	return nil
}

// Bucket returns the archive bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}
