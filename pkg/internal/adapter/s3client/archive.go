package s3client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/joeydtaylor/foodback/pkg/internal/codec"
	"github.com/joeydtaylor/foodback/pkg/internal/persistence"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

const (
	defaultMaxAttempts = 5
	defaultBaseBackoff = 100 * time.Millisecond
	defaultMaxBackoff  = 3 * time.Second
)

var (
	ErrNoClient = errors.New("s3client: no S3 client configured")
	ErrNoBucket = errors.New("s3client: bucket is required")
)

// KeyContext fills the placeholders of the prefix template.
type KeyContext struct {
	Subject    string
	Experiment int
	SessionID  string
	At         time.Time
}

// Export uploads the configured source files after a save. It implements
// persistence.Exporter and returns the s3:// URL of the uploaded prefix.
func (a *Archiver) Export(ctx context.Context, rec persistence.Record, res persistence.Result) (string, error) {
	if len(a.files) == 0 {
		return "", fmt.Errorf("s3client: no source files configured")
	}
	paths := make([]string, 0, len(a.files))
	for _, f := range a.files {
		paths = append(paths, filepath.Join(a.sourceDir, f))
	}
	kc := KeyContext{Subject: rec.Subject, Experiment: res.Experiment, SessionID: rec.SessionID, At: time.Now()}
	if _, err := a.Upload(ctx, kc, paths...); err != nil {
		return "", err
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, a.renderPrefix(kc)), nil
}

// Upload stores each file under the rendered prefix and returns the object keys.
// Missing files are skipped. Errors are TransportErrors.
func (a *Archiver) Upload(ctx context.Context, kc KeyContext, paths ...string) ([]string, error) {
	if a.cli == nil {
		return nil, types.NewError(types.KindTransport, "Upload", ErrNoClient)
	}
	if a.bucket == "" {
		return nil, types.NewError(types.KindTransport, "Upload", ErrNoBucket)
	}
	if err := a.validateSecurityConfig(); err != nil {
		return nil, types.NewError(types.KindValidation, "Upload", err)
	}

	prefix := a.renderPrefix(kc)
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if errors.Is(err, os.ErrNotExist) {
			a.NotifyLoggers(types.DebugLevel, "Skipping missing file",
				"component", a.componentMetadata, "event", "Upload", "path", p)
			continue
		}
		if err != nil {
			return keys, types.NewError(types.KindTransport, "Upload", err)
		}
		key := path.Join(prefix, filepath.Base(p)+a.compression.Extension())
		if err := a.putObject(ctx, key, data); err != nil {
			return keys, types.NewError(types.KindTransport, "Upload", err)
		}
		keys = append(keys, key)
	}

	a.NotifyLoggers(types.InfoLevel, "Archive uploaded",
		"component", a.componentMetadata, "event", "Upload", "result", "SUCCESS",
		"bucket", a.bucket, "prefix", prefix, "objects", len(keys))
	return keys, nil
}

func (a *Archiver) putObject(ctx context.Context, key string, data []byte) error {
	payload, err := codec.Compress(data, a.compression)
	if err != nil {
		return fmt.Errorf("compress %s: %w", key, err)
	}
	payload, contentType, contentEncoding, meta, err := a.applyCSE(payload, DefaultContentType, a.compression.ContentEncoding())
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", key, err)
	}

	put := &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(contentType),
		Metadata:    meta,
	}
	if contentEncoding != "" {
		put.ContentEncoding = aws.String(contentEncoding)
	}
	switch strings.ToLower(a.sseMode) {
	case "":
	case "aws:kms":
		put.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		if a.kmsKey != "" {
			put.SSEKMSKeyId = aws.String(a.kmsKey)
		}
	default:
		put.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}
	return a.putWithRetry(ctx, put, key, len(payload))
}

func (a *Archiver) putWithRetry(ctx context.Context, put *s3.PutObjectInput, key string, size int) error {
	body := put.Body.(*bytes.Reader)
	var lastErr error
	for attempt := 1; attempt <= defaultMaxAttempts; attempt++ {
		if _, err := body.Seek(0, 0); err != nil {
			return err
		}
		start := time.Now()
		_, err := a.cli.PutObject(ctx, put)
		if err == nil {
			a.NotifyLoggers(types.DebugLevel, "PutObject",
				"component", a.componentMetadata, "event", "PutObject", "result", "SUCCESS",
				"key", key, "bytes", size, "duration", time.Since(start))
			return nil
		}
		lastErr = err
		a.NotifyLoggers(types.WarnLevel, "PutObject retry",
			"component", a.componentMetadata, "event", "PutObject",
			"attempt", attempt, "max_attempts", defaultMaxAttempts, "key", key, "error", err)

		if !isRetryable(err) || attempt == defaultMaxAttempts || ctx.Err() != nil {
			return err
		}
		select {
		case <-time.After(backoffDuration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (a *Archiver) renderPrefix(kc KeyContext) string {
	ts := kc.At.UTC()
	if kc.At.IsZero() {
		ts = time.Now().UTC()
	}
	subject := kc.Subject
	if subject == "" {
		subject = "unknown"
	}
	repl := strings.NewReplacer(
		"{yyyy}", ts.Format("2006"),
		"{MM}", ts.Format("01"),
		"{dd}", ts.Format("02"),
		"{HH}", ts.Format("15"),
		"{mm}", ts.Format("04"),
		"{ts}", fmt.Sprintf("%d", ts.UnixMilli()),
		"{subject}", subject,
		"{experiment}", fmt.Sprintf("%04d", kc.Experiment),
		"{session}", kc.SessionID,
	)
	return strings.Trim(repl.Replace(a.prefixTemplate), "/")
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := defaultBaseBackoff << (attempt - 1)
	if d > defaultMaxBackoff {
		d = defaultMaxBackoff
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "throttl"),
		strings.Contains(msg, "slowdown"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "tempor"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "eof"),
		strings.Contains(msg, "internalerror"),
		strings.Contains(msg, "service unavailable"),
		strings.Contains(msg, "503"),
		strings.Contains(msg, "500"):
		return true
	default:
		return false
	}
}
