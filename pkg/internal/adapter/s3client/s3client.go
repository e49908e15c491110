// Package s3client archives saved sessions to S3 (or LocalStack/MinIO).
//
// The Archiver uploads the three append-only CSV files after each save so a
// copy of the data set leaves the acquisition machine. Objects are
// compressed with a codec from pkg/internal/codec and can be encrypted
// server side (SSE) or client side (AES-GCM).
package s3client

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeydtaylor/foodback/pkg/internal/codec"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
)

const (
	DefaultPrefixTemplate = "foodback/{yyyy}/{MM}/{dd}/{subject}/experiment_{experiment}"
	DefaultContentType    = "text/csv"
)

// objectPutter is the subset of *s3.Client the archiver needs.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver uploads data files to one bucket.
type Archiver struct {
	componentMetadata types.ComponentMetadata

	cli            objectPutter
	bucket         string
	sourceDir      string
	files          []string
	prefixTemplate string
	compression    codec.Compression

	sseMode    string
	kmsKey     string
	cseKey     []byte
	requireSSE bool
	configErr  error

	loggers     []types.Logger
	loggersLock sync.Mutex
}

// NewArchiver builds an archiver for bucket. cli is normally an *s3.Client
// from NewS3ClientStatic or NewS3ClientAssumeRole.
func NewArchiver(cli *s3.Client, bucket string, options ...types.Option[*Archiver]) *Archiver {
	a := &Archiver{
		componentMetadata: types.ComponentMetadata{
			ID:   utils.GenerateUniqueHash(),
			Type: "S3_ARCHIVER",
		},
		bucket:         bucket,
		prefixTemplate: DefaultPrefixTemplate,
		compression:    codec.CompressGzip,
	}
	if cli != nil {
		a.cli = cli
	}
	for _, opt := range options {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// GetComponentMetadata returns the archiver's metadata.
func (a *Archiver) GetComponentMetadata() types.ComponentMetadata {
	return a.componentMetadata
}

// Name identifies the archiver as a persistence exporter.
func (a *Archiver) Name() string { return "s3" }

// Bucket returns the destination bucket.
func (a *Archiver) Bucket() string { return a.bucket }

// NotifyLoggers emits a log entry to all configured loggers.
func (a *Archiver) NotifyLoggers(level types.LogLevel, msg string, keysAndValues ...interface{}) {
	a.loggersLock.Lock()
	loggers := append([]types.Logger(nil), a.loggers...)
	a.loggersLock.Unlock()
	types.Notify(loggers, level, msg, keysAndValues...)
}
