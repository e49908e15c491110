package s3client

import (
	"strings"

	"github.com/joeydtaylor/foodback/pkg/internal/codec"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// WithLogger attaches loggers.
func WithLogger(loggers ...types.Logger) types.Option[*Archiver] {
	return func(a *Archiver) {
		a.loggersLock.Lock()
		for _, l := range loggers {
			if l != nil {
				a.loggers = append(a.loggers, l)
			}
		}
		a.loggersLock.Unlock()
	}
}

// WithComponentMetadata sets the archiver's name and id.
func WithComponentMetadata(name, id string) types.Option[*Archiver] {
	return func(a *Archiver) {
		a.componentMetadata.Name = name
		if id != "" {
			a.componentMetadata.ID = id
		}
	}
}

// WithSource sets the directory and file names uploaded by Export.
func WithSource(dir string, files ...string) types.Option[*Archiver] {
	return func(a *Archiver) {
		a.sourceDir = dir
		a.files = append([]string(nil), files...)
	}
}

// WithPrefixTemplate sets the key prefix. Placeholders: {yyyy} {MM} {dd}
// {HH} {mm} {ts} {subject} {experiment} {session}.
func WithPrefixTemplate(tmpl string) types.Option[*Archiver] {
	return func(a *Archiver) {
		if tmpl != "" {
			a.prefixTemplate = tmpl
		}
	}
}

// WithCompression selects the object compression by name.
func WithCompression(name string) types.Option[*Archiver] {
	return func(a *Archiver) {
		c, err := codec.ParseCompression(name)
		if err != nil {
			a.configErr = err
			return
		}
		a.compression = c
	}
}

// WithSSE requests server-side encryption ("AES256" or "aws:kms").
func WithSSE(mode, kmsKey string) types.Option[*Archiver] {
	return func(a *Archiver) {
		a.sseMode = strings.TrimSpace(mode)
		a.kmsKey = strings.TrimSpace(kmsKey)
	}
}

// WithRequireSSE makes uploads fail unless SSE is configured.
func WithRequireSSE() types.Option[*Archiver] {
	return func(a *Archiver) { a.requireSSE = true }
}

// WithClientSideEncryption encrypts payloads with AES-256-GCM before upload.
// keyHex is a 64 character hex key.
func WithClientSideEncryption(keyHex string) types.Option[*Archiver] {
	return func(a *Archiver) {
		key, err := parseAESGCMKeyHex(keyHex)
		if err != nil {
			a.configErr = err
			return
		}
		a.cseKey = key
	}
}

// withPutter injects the object client; used by tests.
func withPutter(p objectPutter) types.Option[*Archiver] {
	return func(a *Archiver) { a.cli = p }
}
