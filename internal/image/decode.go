package imagepkg

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"time"

	"github.com/disintegration/imaging"

	errs "github.com/youruser/bannerapp/internal/errors"
	"github.com/youruser/bannerapp/internal/util"
)

const downloadTimeout = 12 * time.Second

// MaxPixels bounds the decoded size of any image, whatever its file size.
const MaxPixels = 50_000_000

// Decode reads a PNG, JPEG, GIF, BMP or TIFF image from r, applying any
// EXIF orientation so the reported size matches what a browser shows.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeDecode, err, "could not read image")
	}
	return DecodeBytes(data)
}

// DecodeBytes is Decode over an in-memory file. The header is checked
// against MaxPixels before any pixel data is decoded.
func DecodeBytes(b []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeDecode, err, "could not decode image")
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, errs.New(errs.ErrCodeTooLarge, "image is %dx%d, more than the %d megapixel limit",
			cfg.Width, cfg.Height, MaxPixels/1_000_000)
	}
	img, err := imaging.Decode(bytes.NewReader(b), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeDecode, err, "could not decode image")
	}
	return img, nil
}

// DownloadImage fetches url, reading at most limit bytes, and decodes the
// body.
func DownloadImage(ctx context.Context, url string, limit int64) (image.Image, error) {
	body, err := util.GetBytes(ctx, url, downloadTimeout, limit)
	if errors.Is(err, util.ErrBodyTooLarge) {
		return nil, errs.TooLarge(url, limit)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeDecode, err, "could not download image")
	}
	return DecodeBytes(body)
}
