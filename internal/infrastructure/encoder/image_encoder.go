package encoder

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"diagram2code/internal/domain/entity"
	"diagram2code/internal/infrastructure/metrics"
)

const DefaultMaxImageBytes = 1 << 20

type ImageEncoder struct {
	maxBytes int64
}

func NewImageEncoder(maxBytes int64) *ImageEncoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &ImageEncoder{maxBytes: maxBytes}
}

type readResult struct {
	data []byte
	err  error
}

// Encode reads the whole image and returns its base64 payload without the data-URL prefix.
// The read happens on its own goroutine so a canceled ctx returns immediately; the
// payload is only built once the read has completed.
func (e *ImageEncoder) Encode(ctx context.Context, img entity.UploadedImage) (entity.EncodedPayload, error) {
	if img.Body == nil {
		return entity.EncodedPayload{}, &entity.ReadError{File: img.Name, Err: entity.ErrEmptyImage}
	}

	done := make(chan readResult, 1)
	go func() {
		// one extra byte tells us the limit was exceeded
		data, err := io.ReadAll(io.LimitReader(img.Body, e.maxBytes+1))
		done <- readResult{data: data, err: err}
	}()

	var res readResult
	select {
	case <-ctx.Done():
		return entity.EncodedPayload{}, &entity.ReadError{File: img.Name, Err: ctx.Err()}
	case res = <-done:
	}

	if res.err != nil {
		metrics.IncError("encoder", "read")
		return entity.EncodedPayload{}, &entity.ReadError{File: img.Name, Err: res.err}
	}
	if len(res.data) == 0 {
		return entity.EncodedPayload{}, &entity.ReadError{File: img.Name, Err: entity.ErrEmptyImage}
	}
	if int64(len(res.data)) > e.maxBytes {
		metrics.IncError("encoder", "too_large")
		return entity.EncodedPayload{}, &entity.ReadError{
			File: img.Name,
			Err:  fmt.Errorf("%w: limit %d bytes", entity.ErrImageTooLarge, e.maxBytes),
		}
	}

	mediaType, err := detectMediaType(res.data)
	if err != nil {
		metrics.IncError("encoder", "media_type")
		return entity.EncodedPayload{}, &entity.ReadError{File: img.Name, Err: err}
	}

	data, err := StripDataURL(DataURL(mediaType, res.data))
	if err != nil {
		return entity.EncodedPayload{}, &entity.ReadError{File: img.Name, Err: err}
	}

	return entity.EncodedPayload{
		Data:      data,
		MediaType: mediaType,
		Size:      len(res.data),
	}, nil
}

// SupportedMediaTypes are the image formats the model accepts.
var SupportedMediaTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

func detectMediaType(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	for _, supported := range SupportedMediaTypes {
		if mt.Is(supported) {
			return supported, nil
		}
	}
	return "", fmt.Errorf("%w: detected %s", entity.ErrUnsupportedMedia, mt.String())
}

// DataURL renders data as a base64 data URL.
func DataURL(mediaType string, data []byte) string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mediaType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mediaType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// StripDataURL returns the base64 part of a data URL.
func StripDataURL(dataURL string) (string, error) {
	prefix, data, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(prefix, "data:") {
		return "", errors.New("malformed data url")
	}
	return data, nil
}

// DecodePayload returns the raw image bytes behind a payload.
func DecodePayload(p entity.EncodedPayload) ([]byte, error) {
	if p.IsEmpty() {
		return nil, entity.ErrEmptyPayload
	}
	data, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return data, nil
}
