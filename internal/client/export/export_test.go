package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/dome/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exportedAt = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

func sampleDocument() Document {
	layout := models.NewLayout()
	layout.Lists = []models.List{
		{ID: 1, Name: "Todo", Position: 0, BoardID: 9},
		{ID: 2, Name: "Done", Position: 1, BoardID: 9},
	}
	layout.Cards[2] = []models.Card{{ID: 20, Name: "Ship", Position: 0, ListID: 2}}
	layout.Cards[1] = []models.Card{
		{ID: 10, Name: "Write", Position: 0, ListID: 1},
		{ID: 11, Name: "Test", Position: 1, ListID: 1},
	}
	return NewDocument(models.Board{ID: 9, Name: "Sprint", WorkspaceID: 3}, layout, exportedAt)
}

func TestNewDocument_FlattensInListOrder(t *testing.T) {
	d := sampleDocument()
	require.Len(t, d.Cards, 3)
	assert.Equal(t, []int64{10, 11, 20}, []int64{d.Cards[0].ID, d.Cards[1].ID, d.Cards[2].ID})
	assert.Equal(t, "board-9-20250304T050607Z.json", d.Name())
}

func TestNewDocument_EmptyBoardEncodesArrays(t *testing.T) {
	d := NewDocument(models.Board{ID: 1}, models.NewLayout(), exportedAt)
	b, err := d.encode()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"lists": []`)
	assert.Contains(t, string(b), `"cards": []`)
}

func TestFileExporter_Export(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	loc, err := FileExporter{Dir: dir}.Export(context.Background(), sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "board-9-20250304T050607Z.json"), loc)

	b, err := os.ReadFile(loc)
	require.NoError(t, err)
	var got Document
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "Sprint", got.Board.Name)
	assert.Len(t, got.Lists, 2)
	assert.Len(t, got.Cards, 3)
	assert.True(t, got.ExportedAt.Equal(exportedAt))
}

func TestFileExporter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FileExporter{Dir: t.TempDir()}.Export(ctx, sampleDocument())
	require.ErrorIs(t, err, context.Canceled)
}

type fakeS3 struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Exporter_Export(t *testing.T) {
	api := &fakeS3{}
	e := NewS3ExporterWithClient(api, "boards", "/dome/exports/")

	loc, err := e.Export(context.Background(), sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, "s3://boards/dome/exports/board-9-20250304T050607Z.json", loc)

	require.NotNil(t, api.in)
	assert.Equal(t, "boards", aws.ToString(api.in.Bucket))
	assert.Equal(t, "dome/exports/board-9-20250304T050607Z.json", aws.ToString(api.in.Key))
	assert.Equal(t, "application/json", aws.ToString(api.in.ContentType))
	assert.Equal(t, int64(len(api.body)), aws.ToInt64(api.in.ContentLength))

	var got Document
	require.NoError(t, json.Unmarshal(api.body, &got))
	assert.Equal(t, int64(9), got.Board.ID)
}

func TestS3Exporter_NoPrefix(t *testing.T) {
	api := &fakeS3{}
	loc, err := NewS3ExporterWithClient(api, "b", "").Export(context.Background(), sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, "s3://b/board-9-20250304T050607Z.json", loc)
}

func TestS3Exporter_PutError(t *testing.T) {
	api := &fakeS3{err: errors.New("AccessDenied")}
	_, err := NewS3ExporterWithClient(api, "b", "p").Export(context.Background(), sampleDocument())
	require.ErrorContains(t, err, "put s3://b/p/")
	require.ErrorContains(t, err, "AccessDenied")
}

func TestNewS3Exporter(t *testing.T) {
	_, err := NewS3Exporter(context.Background(), S3Options{})
	require.ErrorContains(t, err, "bucket")

	e, err := NewS3Exporter(context.Background(), S3Options{
		Bucket:    "b",
		Prefix:    "x",
		Region:    "us-east-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
	})
	require.NoError(t, err)
	assert.Equal(t, "b", e.bucket)
	assert.Equal(t, "x", e.prefix)
	_, ok := e.api.(*s3.Client)
	assert.True(t, ok)
}

func TestNewS3Exporter_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no profile")
	}

	_, err := NewS3Exporter(context.Background(), S3Options{Bucket: "b"})
	require.ErrorContains(t, err, "load aws config: no profile")
}
