package encoder

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diagram2code/internal/domain/entity"
)

func bytesImage(name string, data []byte) entity.UploadedImage {
	return entity.UploadedImage{Name: name, Body: bytes.NewReader(data)}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: uint8(x), G: 120, B: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestEncode_RoundTrip(t *testing.T) {
	raw := pngBytes(t, 32, 16)
	enc := NewImageEncoder(0)

	payload, err := enc.Encode(context.Background(), bytesImage("diagram.png", raw))
	require.NoError(t, err)

	assert.Equal(t, "image/png", payload.MediaType)
	assert.Equal(t, len(raw), payload.Size)
	assert.NotEmpty(t, payload.Data)
	assert.False(t, strings.HasPrefix(payload.Data, "data:"))
	assert.NotContains(t, payload.Data, "data:image/png;base64,")

	decoded, err := DecodePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestEncode_PayloadMatchesStdEncoding(t *testing.T) {
	raw := pngBytes(t, 8, 8)

	payload, err := NewImageEncoder(0).Encode(context.Background(), bytesImage("small.png", raw))
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), payload.Data)
}

func TestEncode_Errors(t *testing.T) {
	ioErr := errors.New("disk gone")

	tests := []struct {
		name    string
		maxSize int64
		image   entity.UploadedImage
		wantErr error
	}{
		{
			name:    "nil body",
			image:   entity.UploadedImage{Name: "none.png"},
			wantErr: entity.ErrEmptyImage,
		},
		{
			name:    "empty file",
			image:   bytesImage("empty.png", nil),
			wantErr: entity.ErrEmptyImage,
		},
		{
			name:    "read failure",
			image:   entity.UploadedImage{Name: "broken.png", Body: failingReader{err: ioErr}},
			wantErr: ioErr,
		},
		{
			name:    "not an image",
			image:   bytesImage("notes.txt", []byte("just some text, not a diagram")),
			wantErr: entity.ErrUnsupportedMedia,
		},
		{
			name:    "svg is not accepted by the model",
			image:   bytesImage("diagram.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"></svg>`)),
			wantErr: entity.ErrUnsupportedMedia,
		},
		{
			name:    "bmp is not accepted by the model",
			image:   bytesImage("diagram.bmp", bmpBytes()),
			wantErr: entity.ErrUnsupportedMedia,
		},
		{
			name:    "too large",
			maxSize: 16,
			image:   bytesImage("big.png", pngBytes(t, 64, 64)),
			wantErr: entity.ErrImageTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewImageEncoder(tt.maxSize).Encode(context.Background(), tt.image)
			require.Error(t, err)

			var readErr *entity.ReadError
			require.True(t, errors.As(err, &readErr))
			assert.Equal(t, tt.image.Name, readErr.File)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// bmpBytes builds a 1x1 24-bit BMP.
func bmpBytes() []byte {
	return []byte{
		'B', 'M', 58, 0, 0, 0, 0, 0, 0, 0, 54, 0, 0, 0,
		40, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 24, 0,
		0, 0, 0, 0, 4, 0, 0, 0, 0x13, 0x0b, 0, 0, 0x13, 0x0b, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		0xff, 0, 0, 0,
	}
}

func TestEncode_SupportedFormats(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))

	var gifBuf, jpegBuf bytes.Buffer
	require.NoError(t, gif.Encode(&gifBuf, img, nil))
	require.NoError(t, jpeg.Encode(&jpegBuf, img, nil))

	for name, tc := range map[string]struct {
		data []byte
		want string
	}{
		"png":  {data: pngBytes(t, 8, 8), want: "image/png"},
		"gif":  {data: gifBuf.Bytes(), want: "image/gif"},
		"jpeg": {data: jpegBuf.Bytes(), want: "image/jpeg"},
	} {
		t.Run(name, func(t *testing.T) {
			payload, err := NewImageEncoder(0).Encode(context.Background(), bytesImage("diagram."+name, tc.data))
			require.NoError(t, err)
			assert.Equal(t, tc.want, payload.MediaType)
		})
	}
}

func TestEncode_ContextCanceled(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewImageEncoder(0).Encode(ctx, entity.UploadedImage{Name: "slow.png", Body: pr})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStripDataURL(t *testing.T) {
	data, err := StripDataURL("data:image/png;base64,QUJD")
	require.NoError(t, err)
	assert.Equal(t, "QUJD", data)

	_, err = StripDataURL("QUJD")
	assert.Error(t, err)
}

func TestDecodePayload_Empty(t *testing.T) {
	_, err := DecodePayload(entity.EncodedPayload{})
	assert.ErrorIs(t, err, entity.ErrEmptyPayload)
}
