package pixian

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"math"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"

	"github.com/chaos-io/pixian/util"
)

// BackgroundRemover 对内存中的图片去背景
type BackgroundRemover interface {
	Remove(ctx context.Context, img image.Image) (image.Image, error)
}

// Remover 用 Pixian API 实现 BackgroundRemover
type Remover struct {
	client *Client
	params Params
	// SkipTransparent 已经有透明通道的图片视为已抠图，直接返回
	SkipTransparent bool
}

var _ BackgroundRemover = (*Remover)(nil)

func NewRemover(client *Client, params Params) *Remover {
	return &Remover{
		client:          client,
		params:          params,
		SkipTransparent: true,
	}
}

func (r *Remover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	src := toNRGBA(img)

	if r.SkipTransparent && hasUsefulAlpha(src) {
		return src, nil
	}

	// 超出 max_pixels 时先在本地缩小，减少上传体积
	maxPixels := r.params.MaxPixels
	if maxPixels == 0 {
		maxPixels = DefaultMaxPixels
	}
	src = resizeWithinPixels(src, maxPixels)

	data, err := util.EncodePNG(src)
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	out, err := r.client.RemoveBackgroundWithParams(ctx, FromBase64(base64.StdEncoding.EncodeToString(data)), r.params)
	if err != nil {
		return nil, err
	}
	return out.Image(), nil
}

// hasUsefulAlpha 只要存在非 255 的 alpha，就认为已经抠过图
func hasUsefulAlpha(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 {
			return true
		}
	}
	return false
}

// resizeWithinPixels 按比例缩放到 w*h <= maxPixels
func resizeWithinPixels(img *image.NRGBA, maxPixels int) *image.NRGBA {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if maxPixels <= 0 || w*h <= maxPixels {
		return img
	}

	scale := math.Sqrt(float64(maxPixels) / float64(w*h))
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	resized := resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)
	return toNRGBA(resized)
}

func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
