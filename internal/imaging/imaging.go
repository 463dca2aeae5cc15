// Package imaging turns payment proof screenshots into stored thumbnails.
package imaging

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/image/draw"
)

// MaxDimension is the maximum width or height of a stored thumbnail.
const MaxDimension = 640

// JPEGQuality is the compression quality of stored thumbnails.
const JPEGQuality = 80

// MaxDownloadBytes caps how much of an attachment is downloaded.
const MaxDownloadBytes = 8 << 20

// ErrTooLarge is returned when an attachment exceeds MaxDownloadBytes.
var ErrTooLarge = errors.New("image too large")

// AllowedMIME lists the accepted screenshot formats.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// Proof is a processed proof image.
type Proof struct {
	Thumbnail   []byte
	MIME        string
	Fingerprint string
}

// Fingerprint identifies image bytes. Identical uploads share a fingerprint,
// which is how reused screenshots are spotted.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Process sniffs the format of data, fingerprints the original bytes and
// re-encodes a downscaled JPEG thumbnail.
func Process(data []byte) (*Proof, error) {
	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, fmt.Errorf("unsupported image format: %s", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	img = fit(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding thumbnail: %w", err)
	}

	return &Proof{
		Thumbnail:   buf.Bytes(),
		MIME:        "image/jpeg",
		Fingerprint: Fingerprint(data),
	}, nil
}

// Fetch downloads an attachment, refusing bodies over MaxDownloadBytes.
func Fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading image: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if len(data) > MaxDownloadBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// FetchAndProcess downloads url and processes it.
func FetchAndProcess(ctx context.Context, client *http.Client, url string) (*Proof, error) {
	data, err := Fetch(ctx, client, url)
	if err != nil {
		return nil, err
	}
	return Process(data)
}

// fit scales img down so neither side exceeds maxDim, keeping the aspect
// ratio. Smaller images are returned as is.
func fit(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(1, h*maxDim/w)
	} else {
		newW = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
	image.RegisterFormat("gif", "GIF8?a", gif.Decode, gif.DecodeConfig)
}
