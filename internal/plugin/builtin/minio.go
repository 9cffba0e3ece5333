package builtin

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mellivora/etl-engine/internal/core"
	"github.com/mellivora/etl-engine/internal/plugin"
)

// objectLoad writes an input frame as a single JSON object to a MinIO
// (or any S3-compatible) bucket.
type objectLoad struct {
	client *minio.Client
	bucket string
	object string
}

// NewObjectLoad builds a "minio" load plugin. Config keys: endpoint,
// access_key, secret_key, use_ssl, bucket, object.
func NewObjectLoad(cfg plugin.Config) (plugin.Load, error) {
	endpoint, err := cfg.RequireString("endpoint")
	if err != nil {
		return nil, err
	}
	accessKey, err := cfg.RequireString("access_key")
	if err != nil {
		return nil, err
	}
	secretKey, err := cfg.RequireString("secret_key")
	if err != nil {
		return nil, err
	}
	bucket, err := cfg.RequireString("bucket")
	if err != nil {
		return nil, err
	}
	object, err := cfg.RequireString("object")
	if err != nil {
		return nil, err
	}
	useSSL, _ := cfg.Get("use_ssl", false).(bool)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to minio: %w", err)
	}

	return &objectLoad{client: client, bucket: bucket, object: object}, nil
}

func (p *objectLoad) Load(ctx *plugin.Context, in core.Frame) (int, error) {
	rf, ok := in.(*core.RowFrame)
	if !ok {
		return 0, fmt.Errorf("minio load requires a *core.RowFrame, got %T", in)
	}

	blob, err := json.Marshal(rf.Rows)
	if err != nil {
		return 0, err
	}

	_, err = p.client.PutObject(ctx, p.bucket, p.object, bytes.NewReader(blob), int64(len(blob)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return 0, err
	}

	return len(rf.Rows), nil
}
