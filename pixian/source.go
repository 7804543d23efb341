package pixian

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

const (
	fieldImage       = "image"
	fieldImageBase64 = "image.base64"
	fieldImageURL    = "image.url"
)

// Source 输入图片，只能是 PathSource、Base64Source、URLSource 之一
type Source interface {
	// attach 把输入写进 multipart 表单
	attach(w *multipart.Writer) error
	validate() error
	String() string
}

type PathSource struct {
	Path string
}

type Base64Source struct {
	Data string
}

type URLSource struct {
	URL string
}

func FromPath(path string) Source { return PathSource{Path: path} }

func FromBase64(data string) Source { return Base64Source{Data: data} }

func FromURL(url string) Source { return URLSource{URL: url} }

// NewSource 三个参数必须恰好有一个非空
func NewSource(imagePath, imageBase64, imageURL string) (Source, error) {
	var srcs []Source
	if imagePath != "" {
		srcs = append(srcs, FromPath(imagePath))
	}
	if imageBase64 != "" {
		srcs = append(srcs, FromBase64(imageBase64))
	}
	if imageURL != "" {
		srcs = append(srcs, FromURL(imageURL))
	}

	switch len(srcs) {
	case 0:
		return nil, &ValidationError{Reason: "either image_path, image_base64, image_url must be provided"}
	case 1:
		return srcs[0], nil
	default:
		return nil, &ValidationError{Reason: "only one of image_path, image_base64, image_url may be provided"}
	}
}

func (s PathSource) validate() error {
	if s.Path == "" {
		return &ValidationError{Field: "image_path", Reason: "must not be empty"}
	}
	return nil
}

func (s PathSource) attach(w *multipart.Writer) error {
	file, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	part, err := w.CreateFormFile(fieldImage, filepath.Base(s.Path))
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy form file: %w", err)
	}
	return nil
}

func (s PathSource) String() string { return "path:" + s.Path }

func (s Base64Source) validate() error {
	if s.Data == "" {
		return &ValidationError{Field: "image_base64", Reason: "must not be empty"}
	}
	return nil
}

func (s Base64Source) attach(w *multipart.Writer) error {
	return w.WriteField(fieldImageBase64, s.Data)
}

func (s Base64Source) String() string { return fmt.Sprintf("base64:%d bytes", len(s.Data)) }

func (s URLSource) validate() error {
	if s.URL == "" {
		return &ValidationError{Field: "image_url", Reason: "must not be empty"}
	}
	return nil
}

func (s URLSource) attach(w *multipart.Writer) error {
	return w.WriteField(fieldImageURL, s.URL)
}

func (s URLSource) String() string { return "url:" + s.URL }
