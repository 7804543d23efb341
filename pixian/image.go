package pixian

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/chaos-io/pixian/util"
)

// Image 去背景后的结果图片，原始字节与解码后的图片都保留
type Image struct {
	data   []byte
	format string
	img    image.Image
}

// NewImage 解码响应体
func NewImage(data []byte) (*Image, error) {
	img, format, err := util.DecodeImage(data)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &Image{data: data, format: format, img: img}, nil
}

// Bytes API 返回的原始字节
func (i *Image) Bytes() []byte { return i.data }

// Format 解码器识别出的格式，如 png、jpeg
func (i *Image) Format() string { return i.format }

func (i *Image) Image() image.Image { return i.img }

func (i *Image) Bounds() image.Rectangle { return i.img.Bounds() }

func (i *Image) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(i.data)
	return int64(n), err
}

// Save 按扩展名推断格式写文件。
// 扩展名与原格式一致时写原始字节，否则重新编码。
func (i *Image) Save(path string) error {
	format, err := util.FormatFromPath(path)
	if err != nil {
		return fmt.Errorf("save image: %w", err)
	}

	if format == i.format {
		return util.WriteFile(path, i.data)
	}

	var buf bytes.Buffer
	if err := util.EncodeImage(&buf, i.img, format); err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	return util.WriteFile(path, buf.Bytes())
}

func (i *Image) String() string {
	b := i.img.Bounds()
	return fmt.Sprintf("%s %dx%d (%d bytes)", i.format, b.Dx(), b.Dy(), len(i.data))
}
