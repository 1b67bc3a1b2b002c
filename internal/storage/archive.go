// Package storage writes notification audit batches to S3.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"bloodalert/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NotificationArchive stores one JSON document per archived window.
type NotificationArchive struct {
	client ObjectPutter
	bucket string
	prefix string
}

func NewNotificationArchive(client ObjectPutter, bucket, prefix string) *NotificationArchive {
	return &NotificationArchive{client: client, bucket: bucket, prefix: prefix}
}

// Key names the object for the window [since, until), partitioned by the
// day the window starts.
func (a *NotificationArchive) Key(since, until time.Time) string {
	since, until = since.UTC(), until.UTC()
	name := fmt.Sprintf("%s_%s.json", since.Format("20060102T150405Z"), until.Format("20060102T150405Z"))
	return path.Join(a.prefix, since.Format("2006/01/02"), name)
}

type archiveDocument struct {
	Since         time.Time             `json:"since"`
	Until         time.Time             `json:"until"`
	Count         int                   `json:"count"`
	Notifications []*types.Notification `json:"notifications"`
}

// Upload writes the batch and returns the object key.
func (a *NotificationArchive) Upload(ctx context.Context, since, until time.Time, notifications []*types.Notification) (string, error) {
	if a.bucket == "" {
		return "", fmt.Errorf("set ARCHIVE_BUCKET")
	}
	if notifications == nil {
		notifications = []*types.Notification{}
	}

	body, err := json.Marshal(archiveDocument{
		Since:         since.UTC(),
		Until:         until.UTC(),
		Count:         len(notifications),
		Notifications: notifications,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode notification archive: %w", err)
	}

	key := a.Key(since, until)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload notification archive %s: %w", key, err)
	}

	return key, nil
}
