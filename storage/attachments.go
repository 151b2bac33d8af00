// Package storage keeps uploaded attachment bytes on local disk.
// The message log only ever stores the reference handed back by Store.
package storage

import (
	"chat-desk/domain"
	"chat-desk/errors"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const DefaultMaxContentLength = 16 << 20

// AllowedExtensions is the closed set of file types accepted as attachments.
var AllowedExtensions = []string{
	"txt", "pdf", "png", "jpg", "jpeg", "gif",
	"mp3", "wav", "mp4", "avi", "mov", "webp",
}

// AttachmentStore implements contract.IAttachmentStore on a directory tree:
// {root}/{users|operator}/{yyyymmdd_hhmmss}_{safe name}.
type AttachmentStore struct {
	root             string
	maxContentLength int
	log              *slog.Logger
	now              func() time.Time
}

func NewAttachmentStore(root string, maxContentLength int, log *slog.Logger) (*AttachmentStore, error) {
	if maxContentLength <= 0 {
		maxContentLength = DefaultMaxContentLength
	}
	for _, tag := range []domain.AttachmentTag{domain.TagUsers, domain.TagOperator} {
		if err := os.MkdirAll(filepath.Join(root, string(tag)), 0o750); err != nil {
			return nil, fmt.Errorf("upload folder %s: %w", tag, err)
		}
	}
	return &AttachmentStore{root: root, maxContentLength: maxContentLength, log: log, now: time.Now}, nil
}

// Root is the directory attachments are served from.
func (s *AttachmentStore) Root() string {
	return s.root
}

// Store writes data under a fresh name and returns its reference, relative to Root.
// An existing file is never overwritten: on a name clash a short random nonce is added.
func (s *AttachmentStore) Store(ctx context.Context, tag domain.AttachmentTag, filename string, data []byte) (domain.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Attachment{}, err
	}
	if tag != domain.TagUsers && tag != domain.TagOperator {
		return domain.Attachment{}, fmt.Errorf("%w: unknown attachment tag %q", errors.ErrValidation, tag)
	}
	if !Allowed(filename) {
		return domain.Attachment{}, fmt.Errorf("%w: %q", errors.ErrFileNotAllowed, filename)
	}
	if len(data) > s.maxContentLength {
		return domain.Attachment{}, fmt.Errorf("%w: %d bytes", errors.ErrContentTooLarge, len(data))
	}

	name := SafeFilename(filename)
	stamp := s.now().Format("20060102_150405")
	ref := path.Join(string(tag), stamp+"_"+name)

	file, err := os.OpenFile(filepath.Join(s.root, filepath.FromSlash(ref)), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if os.IsExist(err) {
		ref = path.Join(string(tag), stamp+"_"+uuid.NewString()[:8]+"_"+name)
		file, err = os.OpenFile(filepath.Join(s.root, filepath.FromSlash(ref)), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	}
	if err != nil {
		return domain.Attachment{}, errors.Storage(err)
	}
	if _, err = file.Write(data); err != nil {
		_ = file.Close()
		return domain.Attachment{}, errors.Storage(err)
	}
	if err = file.Close(); err != nil {
		return domain.Attachment{}, errors.Storage(err)
	}

	attachment := domain.Attachment{Ref: ref, MimeType: mimetype.Detect(data).String(), Size: len(data)}
	if expected := ExpectedMIME(filepath.Ext(name)); !Matches(attachment.MimeType, expected) {
		s.log.Warn("Attachment content does not match its extension", "ref", ref, "expected", expected, "detected", attachment.MimeType)
	}
	s.log.Debug("Attachment stored", "ref", ref, "mime_type", attachment.MimeType, "size", attachment.Size)
	return attachment, nil
}

// Allowed reports whether the extension of filename is in AllowedExtensions.
func Allowed(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return ext != "" && lo.Contains(AllowedExtensions, ext)
}

// SafeFilename keeps the base name of filename with only ASCII letters, digits, '.', '-' and '_'.
// Whitespace becomes '_', leading dots are dropped and an empty result becomes "file".
func SafeFilename(filename string) string {
	base := filename[strings.LastIndexAny(filename, `/\`)+1:]
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			b.WriteRune('_')
		}
	}
	safe := strings.TrimLeft(b.String(), "._")
	if safe == "" {
		return "file"
	}
	return safe
}
