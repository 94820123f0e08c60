package output

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/schollz/progressbar/v3"

	"azcost/internal/logging"
)

const (
	defaultMaxRetries        = 3
	defaultRetryDelay        = 2 * time.Second
	defaultPartSize          = 5 * 1024 * 1024 // 5MB
	defaultConcurrentUploads = 5
	defaultOutputDir         = "output"
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// UploadConfig holds upload configuration
type UploadConfig struct {
	PartSize        int64
	ConcurrentParts int
}

// Type represents the output type
type Type string

const (
	// FileSystem represents local filesystem output
	FileSystem Type = "filesystem"
	// S3 represents S3 bucket output
	S3 Type = "s3"
)

// ParseType validates an output type name
func ParseType(name string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(name))); t {
	case FileSystem, S3:
		return t, nil
	case "":
		return FileSystem, nil
	default:
		return "", fmt.Errorf("unsupported output type: %s", name)
	}
}

// Config holds output configuration
type Config struct {
	Type      Type
	S3Bucket  string
	S3Region  string
	OutputDir string
	// Role is assumed for the upload when set, either a role name or a full ARN
	Role   string
	Retry  *RetryConfig
	Upload *UploadConfig
}

// Writer stores compressed JSON reports on disk or in S3
type Writer struct {
	config   Config
	now      func() time.Time
	uploader s3manageriface.UploaderAPI
	progress io.Writer
}

// WriterOption configures a Writer
type WriterOption func(*Writer)

// WithClock sets the time used for report paths
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) {
		w.now = now
	}
}

// WithUploader replaces the S3 uploader built from the AWS session
func WithUploader(u s3manageriface.UploaderAPI) WriterOption {
	return func(w *Writer) {
		w.uploader = u
	}
}

// WithProgressOutput sets where the upload progress bar is drawn
func WithProgressOutput(out io.Writer) WriterOption {
	return func(w *Writer) {
		w.progress = out
	}
}

// NewWriter creates a new output writer with default settings
func NewWriter(config Config, opts ...WriterOption) *Writer {
	if config.Retry == nil {
		config.Retry = &RetryConfig{
			MaxRetries: defaultMaxRetries,
			RetryDelay: defaultRetryDelay,
		}
	}
	if config.Upload == nil {
		config.Upload = &UploadConfig{
			PartSize:        defaultPartSize,
			ConcurrentParts: defaultConcurrentUploads,
		}
	}
	if config.Type == "" {
		config.Type = FileSystem
	}
	if config.Type == FileSystem && config.OutputDir == "" {
		config.OutputDir = defaultOutputDir
	}

	w := &Writer{config: config, now: time.Now, progress: os.Stderr}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// reportName reduces a subscription id or label to a single path segment
func reportName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "-", "\\", "-", "..", "-").Replace(name)
	if name == "" {
		return "default"
	}
	return name
}

// getFilePath returns the file path in the format:
// filesystem: output/YYYY/MM/DD/<name>/HH-MM-SS-0700.json.gz
// s3: YYYY/MM/DD/<name>/HH-MM-SS-0700.json.gz
func (w *Writer) getFilePath(name string, t time.Time) string {
	fileName := t.Format("15-04-05-0700") + ".json.gz"
	datePath := t.Format("2006/01/02")

	if w.config.Type == FileSystem {
		return filepath.Join(w.config.OutputDir, filepath.FromSlash(datePath), reportName(name), fileName)
	}
	// S3 keys always use forward slashes
	return path.Join(datePath, reportName(name), fileName)
}

// compressData compresses the input data using gzip
func compressData(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)

	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write to gzip writer: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Write stores v under name and returns the file path or S3 key
func (w *Writer) Write(name string, v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	compressed, err := compressData(data)
	if err != nil {
		return "", fmt.Errorf("failed to compress data: %w", err)
	}

	dest := w.getFilePath(name, w.now())

	switch w.config.Type {
	case FileSystem:
		err = w.writeToFileSystem(dest, compressed)
	case S3:
		err = w.writeToS3WithRetry(dest, compressed)
	default:
		err = fmt.Errorf("unsupported output type: %s", w.config.Type)
	}
	if err != nil {
		return "", err
	}

	logging.Info("Report written", map[string]interface{}{
		"destination": dest,
		"size":        FormatBytes(int64(len(compressed))),
	})
	return dest, nil
}

// writeToFileSystem writes compressed data to the local filesystem
func (w *Writer) writeToFileSystem(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", dest, err)
	}
	return nil
}

// writeToS3WithRetry writes data to an S3 bucket with retry logic
func (w *Writer) writeToS3WithRetry(key string, data []byte) error {
	if w.config.S3Bucket == "" {
		return fmt.Errorf("S3 bucket not specified")
	}

	if w.uploader == nil {
		uploader, err := w.newUploader()
		if err != nil {
			return err
		}
		w.uploader = uploader
	}

	var lastErr error
	for attempt := 0; attempt < w.config.Retry.MaxRetries; attempt++ {
		if attempt > 0 {
			logging.Warn("Retrying S3 upload", map[string]interface{}{
				"attempt": attempt + 1,
				"max":     w.config.Retry.MaxRetries,
				"error":   lastErr.Error(),
			})
			time.Sleep(w.config.Retry.RetryDelay)
		}

		if err := w.writeToS3(key, data); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("failed to upload to S3 after %d attempts: %w",
		w.config.Retry.MaxRetries, lastErr)
}

// getRoleARN returns the full ARN for a role. If the input is already an ARN, returns it as is.
func getRoleARN(sess *session.Session, roleName string) (string, error) {
	if strings.HasPrefix(roleName, "arn:aws:iam::") {
		return roleName, nil
	}

	result, err := sts.New(sess).GetCallerIdentity(&sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get account ID: %w", err)
	}
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", aws.StringValue(result.Account), roleName), nil
}

// newSession builds an AWS session from the shared config, assuming Role when set
func (w *Writer) newSession() (*session.Session, error) {
	opts := session.Options{SharedConfigState: session.SharedConfigEnable}
	if w.config.S3Region != "" {
		opts.Config.Region = aws.String(w.config.S3Region)
	}
	sess, err := session.NewSessionWithOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	if w.config.Role == "" {
		return sess, nil
	}

	roleARN, err := getRoleARN(sess, w.config.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to get role ARN: %w", err)
	}

	result, err := sts.New(sess).AssumeRole(&sts.AssumeRoleInput{
		RoleArn:         aws.String(roleARN),
		RoleSessionName: aws.String(fmt.Sprintf("azcost-upload-%d", w.now().Unix())),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assume role: %w", err)
	}

	assumed, err := session.NewSession(&aws.Config{
		Region: sess.Config.Region,
		Credentials: credentials.NewStaticCredentials(
			aws.StringValue(result.Credentials.AccessKeyId),
			aws.StringValue(result.Credentials.SecretAccessKey),
			aws.StringValue(result.Credentials.SessionToken),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session with assumed role: %w", err)
	}
	return assumed, nil
}

func (w *Writer) newUploader() (s3manageriface.UploaderAPI, error) {
	sess, err := w.newSession()
	if err != nil {
		return nil, err
	}
	return s3manager.NewUploader(sess, func(u *s3manager.Uploader) {
		u.PartSize = w.config.Upload.PartSize
		u.Concurrency = w.config.Upload.ConcurrentParts
	}), nil
}

// writeToS3 uploads data with a byte progress bar
func (w *Writer) writeToS3(key string, data []byte) error {
	reader := &progressReader{
		reader: bytes.NewReader(data),
		bar: progressbar.NewOptions64(
			int64(len(data)),
			progressbar.OptionSetWriter(w.progress),
			progressbar.OptionSetDescription("Uploading to S3..."),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(15),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(w.progress)
			}),
		),
	}

	_, err := w.uploader.Upload(&s3manager.UploadInput{
		Bucket:               aws.String(w.config.S3Bucket),
		Key:                  aws.String(key),
		Body:                 reader,
		ContentType:          aws.String("application/json"),
		ContentEncoding:      aws.String("gzip"),
		ServerSideEncryption: aws.String("aws:kms"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// progressReader wraps an io.Reader to track progress
type progressReader struct {
	reader io.Reader
	bar    *progressbar.ProgressBar
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if barErr := r.bar.Add(n); barErr != nil {
		logging.Debug("Error updating progress bar", map[string]interface{}{"error": barErr.Error()})
	}
	return n, err
}
