package output

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportTime = time.Date(2026, 10, 16, 14, 5, 9, 0, time.FixedZone("CEST", 2*60*60))

// fakeUploader records uploads and fails the first failures calls
type fakeUploader struct {
	failures int
	calls    int
	bucket   string
	key      string
	body     []byte
}

func (f *fakeUploader) Upload(in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	return f.UploadWithContext(aws.BackgroundContext(), in)
}

func (f *fakeUploader) UploadWithContext(_ aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	f.calls++
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.calls <= f.failures {
		return nil, errors.New("connection reset")
	}
	f.bucket = aws.StringValue(in.Bucket)
	f.key = aws.StringValue(in.Key)
	f.body = body
	return &s3manager.UploadOutput{Location: "s3://" + f.bucket + "/" + f.key}, nil
}

func gunzipJSON(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer gz.Close()
	require.NoError(t, json.NewDecoder(gz).Decode(v))
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input   string
		want    Type
		wantErr bool
	}{
		{"filesystem", FileSystem, false},
		{"S3", S3, false},
		{"", FileSystem, false},
		{"gcs", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReportName(t *testing.T) {
	assert.Equal(t, "sub-123", reportName(" sub-123 "))
	assert.Equal(t, "-subscriptions-abc", reportName("/subscriptions/abc"))
	assert.Equal(t, "default", reportName(""))
}

func TestWriterFileSystem(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(Config{Type: FileSystem, OutputDir: dir}, WithClock(func() time.Time { return reportTime }))

	dest, err := w.Write("sub-123", demoSnapshot())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2026", "10", "16", "sub-123", "14-05-09+0200.json.gz"), dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)

	var got struct {
		Source  string `json:"source"`
		Records []struct {
			ResourceName string  `json:"resource_name"`
			Amount       float64 `json:"amount"`
		} `json:"records"`
	}
	gunzipJSON(t, data, &got)
	assert.Equal(t, "DEMO", got.Source)
	require.Len(t, got.Records, 8)
	assert.Equal(t, "mywebapp", got.Records[0].ResourceName)
	assert.Equal(t, 125.5, got.Records[0].Amount)
}

func TestWriterDefaults(t *testing.T) {
	w := NewWriter(Config{})
	assert.Equal(t, FileSystem, w.config.Type)
	assert.Equal(t, defaultOutputDir, w.config.OutputDir)
	assert.Equal(t, defaultMaxRetries, w.config.Retry.MaxRetries)
	assert.Equal(t, int64(defaultPartSize), w.config.Upload.PartSize)
}

func TestWriterS3(t *testing.T) {
	newWriter := func(u *fakeUploader, bucket string) *Writer {
		return NewWriter(Config{
			Type:     S3,
			S3Bucket: bucket,
			Retry:    &RetryConfig{MaxRetries: 3},
		},
			WithClock(func() time.Time { return reportTime }),
			WithUploader(u),
			WithProgressOutput(io.Discard),
		)
	}

	t.Run("uploads compressed report", func(t *testing.T) {
		u := &fakeUploader{}
		key, err := newWriter(u, "reports").Write("sub-123", map[string]string{"source": "LIVE"})
		require.NoError(t, err)

		assert.Equal(t, "2026/10/16/sub-123/14-05-09+0200.json.gz", key)
		assert.Equal(t, "reports", u.bucket)
		assert.Equal(t, key, u.key)

		var got map[string]string
		gunzipJSON(t, u.body, &got)
		assert.Equal(t, map[string]string{"source": "LIVE"}, got)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		u := &fakeUploader{failures: 2}
		_, err := newWriter(u, "reports").Write("sub", 1)
		require.NoError(t, err)
		assert.Equal(t, 3, u.calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		u := &fakeUploader{failures: 5}
		_, err := newWriter(u, "reports").Write("sub", 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after 3 attempts")
		assert.Equal(t, 3, u.calls)
	})

	t.Run("bucket required", func(t *testing.T) {
		u := &fakeUploader{}
		_, err := newWriter(u, "").Write("sub", 1)
		assert.ErrorContains(t, err, "S3 bucket not specified")
		assert.Zero(t, u.calls)
	})
}

func TestWriterRejectsUnmarshalable(t *testing.T) {
	w := NewWriter(Config{OutputDir: t.TempDir()})
	_, err := w.Write("x", make(chan int))
	assert.ErrorContains(t, err, "failed to marshal report")
}

func TestSpinner(t *testing.T) {
	var buf bytes.Buffer
	s := StartSpinner(&buf, "Fetching costs")
	time.Sleep(250 * time.Millisecond)
	s.Stop()
	assert.Contains(t, buf.String(), "Fetching costs")
}
