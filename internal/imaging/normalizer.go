package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	_ "image/gif"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"go.uber.org/zap"

	"github.com/Kewen526/serv-qoute/internal/domain"
	"github.com/Kewen526/serv-qoute/internal/retry"
)

const jpegQuality = 95

// Some CDNs reject non-browser clients outright, so every fetch carries a
// browser-like header set.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8",
	"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
	"Referer":         "https://www.1688.com/",
}

type Normalizer struct {
	client     *http.Client
	maxRetries int
	backoff    retry.BackoffFunc
	logger     *zap.SugaredLogger
}

type Config struct {
	Client     *http.Client
	MaxRetries int
	Backoff    retry.BackoffFunc
	Logger     *zap.SugaredLogger
}

func NewNormalizer(cfg Config) *Normalizer {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	backoff := cfg.Backoff
	if backoff == nil {
		backoff = retry.Linear(2 * time.Second)
	}

	return &Normalizer{
		client:     client,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     cfg.Logger,
	}
}

// Normalize downloads one image and re-encodes it into the canonical
// upload payload: PNG when the source carries transparency, JPEG
// otherwise. AVIF sources are re-fetched through URL rewriting because no
// decoder is available for them. A nil error means the payload is ready;
// any error means this one image is lost, not the whole task.
func (n *Normalizer) Normalize(ctx context.Context, imageURL string, index int) (*domain.EncodedImage, error) {
	var encoded *domain.EncodedImage

	err := retry.Do(ctx, n.maxRetries, n.backoff, func(ctx context.Context) error {
		data, err := n.fetch(ctx, imageURL)
		if err != nil {
			return err
		}

		format := DetectFormat(data)

		if format == FormatAVIF {
			data, format, err = n.convertAVIF(ctx, imageURL)
			if err != nil {
				return err
			}
		}

		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to decode image (detected %s): %w", format, err)
		}

		encoded, err = encode(img, index)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to normalize image %d: %w", index, err)
	}

	return encoded, nil
}

func (n *Normalizer) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}

	for key, value := range browserHeaders {
		req.Header.Set(key, value)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}

	return data, nil
}

// convertAVIF retries the download through known URL rewrites that make
// the origin transcode server-side, accepting the first candidate whose
// re-sniffed bytes are no longer AVIF.
func (n *Normalizer) convertAVIF(ctx context.Context, imageURL string) ([]byte, Format, error) {
	for _, candidate := range avifFallbackURLs(imageURL) {
		data, err := n.fetch(ctx, candidate)
		if err != nil {
			if n.logger != nil {
				n.logger.Warnw("avif fallback fetch failed", "url", candidate, "error", err)
			}
			continue
		}

		if format := DetectFormat(data); format != FormatAVIF {
			return data, format, nil
		}
	}

	return nil, FormatAVIF, fmt.Errorf("failed to convert avif source %s", imageURL)
}

func avifFallbackURLs(imageURL string) []string {
	var candidates []string

	if strings.Contains(imageURL, "_!!") {
		candidates = append(candidates, strings.ReplaceAll(imageURL, "_!!", ".jpg_!!"))
	}

	if strings.Contains(imageURL, "?") {
		candidates = append(candidates, imageURL+"&x-oss-process=image/format,jpg")
	} else {
		candidates = append(candidates, imageURL+"?x-oss-process=image/format,jpg")
	}

	return candidates
}

func encode(img image.Image, index int) (*domain.EncodedImage, error) {
	var (
		buf      bytes.Buffer
		ext      string
		mimeType string
	)

	if hasAlpha(img) {
		ext = "png"
		mimeType = "image/png"
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode png: %w", err)
		}
	} else {
		ext = "jpg"
		mimeType = "image/jpeg"
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("failed to encode jpeg: %w", err)
		}
	}

	return &domain.EncodedImage{
		Name: fmt.Sprintf("image%d.%s", index, ext),
		Data: base64.StdEncoding.EncodeToString(buf.Bytes()),
		Type: mimeType,
	}, nil
}

// hasAlpha reports whether the decoded image carries an alpha channel.
// The decision is made on channel presence, not pixel values: a source
// stored with an all-opaque alpha channel still comes out as PNG. The
// decoders only produce these types when the source actually stored
// alpha (truecolor and grayscale sources without it decode to RGBA,
// Gray or YCbCr), so the decoded type is the channel check.
func hasAlpha(img image.Image) bool {
	switch img := img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.NYCbCrA:
		return true
	case *image.Paletted:
		for _, entry := range img.Palette {
			if _, _, _, a := entry.RGBA(); a != 0xffff {
				return true
			}
		}
	}

	return false
}
