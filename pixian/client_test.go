package pixian

import (
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaos-io/pixian/pixiantest"
	"github.com/chaos-io/pixian/util"
	nhttp "github.com/chaos-io/pixian/util/http"
)

const (
	testID     = "some-api-id"
	testSecret = "some-api-secret"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	data, err := util.EncodePNG(img)
	require.NoError(t, err)
	return data
}

func newTestClient(t *testing.T) (*Client, *pixiantest.Server) {
	t.Helper()
	server := pixiantest.NewServer(testID, testSecret)
	t.Cleanup(server.Close)

	client, err := NewClient(testID, testSecret, WithEndpoint(server.Endpoint()))
	require.NoError(t, err)
	return client, server
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		apiID     string
		apiSecret string
		wantField string
	}{
		{name: "ok", apiID: "id", apiSecret: "secret"},
		{name: "空 api_id", apiID: "", apiSecret: "secret", wantField: "api_id"},
		{name: "空 api_secret", apiID: "id", apiSecret: "", wantField: "api_secret"},
		{name: "空白 api_secret", apiID: "id", apiSecret: "  ", wantField: "api_secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, err := NewClient(tt.apiID, tt.apiSecret)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, DefaultEndpoint, client.Endpoint())
				return
			}

			assert.Nil(t, client)
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestNewClient_EmptyEndpoint(t *testing.T) {
	t.Parallel()

	_, err := NewClient("id", "secret", WithEndpoint(""))
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestClient_RemoveBackground_ImagePath(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(t)
	data := pngBytes(t, 3, 2)
	path := filepath.Join(t.TempDir(), "some-image-path.png")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	img, err := client.RemoveBackground(context.Background(), FromPath(path), nil)
	require.NoError(t, err)
	assert.Equal(t, data, img.Bytes())
	assert.Equal(t, "png", img.Format())
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())

	reqs := server.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, testID, reqs[0].User)
	assert.Equal(t, "some-image-path.png", reqs[0].FileName)
	assert.Equal(t, data, reqs[0].File)
	assert.Empty(t, reqs[0].Fields)
}

func TestClient_RemoveBackground_Base64(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(t)
	data := pngBytes(t, 2, 2)
	b64 := base64.StdEncoding.EncodeToString(data)

	img, err := client.RemoveBackground(context.Background(), FromBase64(b64), nil)
	require.NoError(t, err)
	assert.Equal(t, data, img.Bytes())

	reqs := server.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, map[string]string{"image.base64": b64}, reqs[0].Fields)
	assert.Nil(t, reqs[0].File)
}

func TestClient_RemoveBackground_URL(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(t)

	img, err := client.RemoveBackground(context.Background(), FromURL("http://example.com/image.jpg"), nil)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1, 1), img.Bounds())

	reqs := server.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "http://example.com/image.jpg", reqs[0].Fields["image.url"])
}

func TestClient_RemoveBackground_OptionsTranslated(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(t)

	_, err := client.RemoveBackground(context.Background(), FromURL("http://example.com/a.png"), Options{
		"background_color":          String("#ff00aa"),
		"output_jpeg_quality":       Int(90),
		"result_crop_to_foreground": Bool(true),
		"max_pixels":                Float(1.5e6),
		"result.target_size":        String("100 200"),
	})
	require.NoError(t, err)

	reqs := server.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, map[string]string{
		"image.url":                 "http://example.com/a.png",
		"background.color":          "#ff00aa",
		"output.jpeg.quality":       "90",
		"result.crop.to.foreground": "true",
		"max.pixels":                "1500000",
		"result.target_size":        "100 200",
	}, reqs[0].Fields)
}

func TestClient_RemoveBackgroundWithParams(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(t)

	p := DefaultParams()
	p.BackgroundColor = "#FFFFFF"
	p.Test = true
	_, err := client.RemoveBackgroundWithParams(context.Background(), FromURL("http://example.com/a.png"), p)
	require.NoError(t, err)

	reqs := server.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, map[string]string{
		"image.url":                 "http://example.com/a.png",
		"max_pixels":                "25000000",
		"background.color":          "#FFFFFF",
		"result.crop_to_foreground": "false",
		"result.margin":             "0px",
		"result.vertical_alignment": "middle",
		"output.format":             "auto",
		"output.jpeg_quality":       "75",
		"test":                      "true",
	}, reqs[0].Fields)

	p.OutputFormat = "invalid-format"
	_, err = client.RemoveBackgroundWithParams(context.Background(), FromURL("http://example.com/a.png"), p)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "output_format", vErr.Field)
	assert.Len(t, server.Requests(), 1)
}

func TestClient_RemoveBackground_InvalidSource(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(t)
	path := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 2, 2), 0o644))

	tests := []struct {
		name      string
		src       Source
		opts      Options
		wantField string
	}{
		{name: "nil", src: nil},
		{name: "空路径", src: FromPath(""), wantField: "image_path"},
		{name: "空 base64", src: FromBase64(""), wantField: "image_base64"},
		{name: "空 url", src: FromURL(""), wantField: "image_url"},
		{
			name:      "option 里再带一个 url",
			src:       FromPath(path),
			opts:      Options{"image_url": String("http://example.com/other.jpg")},
			wantField: "image_url",
		},
		{
			name:      "option 里带 base64",
			src:       FromURL("http://example.com/a.png"),
			opts:      Options{"image_base64": String("aGVsbG8=")},
			wantField: "image_base64",
		},
		{
			name:      "带点的 image.url",
			src:       FromBase64("aGVsbG8="),
			opts:      Options{"image.url": String("http://example.com/other.jpg")},
			wantField: "image.url",
		},
		{
			name:      "option 里带文件字段",
			src:       FromURL("http://example.com/a.png"),
			opts:      Options{"image": String("a.png")},
			wantField: "image",
		},
	}

	for _, tt := range tests {
		_, err := client.RemoveBackground(context.Background(), tt.src, tt.opts)
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr), tt.name)
		if tt.wantField != "" {
			assert.Equal(t, tt.wantField, vErr.Field, tt.name)
		}
	}

	p := DefaultParams()
	p.Extra = Options{"image_url": String("http://example.com/other.jpg")}
	_, err := client.RemoveBackgroundWithParams(context.Background(), FromPath(path), p)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "image_url", vErr.Field)

	assert.Empty(t, server.Requests())
}

func TestClient_RemoveBackground_MissingFile(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(t)

	_, err := client.RemoveBackground(context.Background(), FromPath(filepath.Join(t.TempDir(), "nope.png")), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Empty(t, server.Requests())
}

func TestClient_RemoveBackground_SaveRoundTrip(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(t)
	data := pngBytes(t, 5, 4)
	server.SetResponse(http.StatusOK, "image/png", data)

	img, err := client.RemoveBackground(context.Background(), FromURL("http://example.com/a.jpg"), nil)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, img.Save(out))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestClient_RemoveBackground_Unauthorized(t *testing.T) {
	t.Parallel()

	server := pixiantest.NewServer(testID, testSecret)
	defer server.Close()

	client, err := NewClient(testID, "wrong-secret", WithEndpoint(server.Endpoint()))
	require.NoError(t, err)

	_, err = client.RemoveBackground(context.Background(), FromURL("http://example.com/a.jpg"), nil)
	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusUnauthorized, remoteErr.StatusCode)
	assert.Empty(t, server.Requests())
}

func TestClient_RemoveBackground_RemoteError(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(t)
	server.SetResponse(http.StatusBadRequest, "application/json", []byte(`{"error":{"message":"bad"}}`))

	_, err := client.RemoveBackground(context.Background(), FromURL("http://example.com/a.jpg"), nil)
	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusBadRequest, remoteErr.StatusCode)
	assert.Contains(t, remoteErr.Message(), "bad")
	assert.Contains(t, err.Error(), "status 400")
}

func TestClient_RemoveBackground_DecodeError(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(t)
	server.SetResponse(http.StatusOK, "text/plain", []byte("some content"))

	_, err := client.RemoveBackground(context.Background(), FromURL("http://example.com/a.jpg"), nil)
	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
}

func TestClient_RemoveBackground_TransportError(t *testing.T) {
	t.Parallel()

	server := pixiantest.NewServer(testID, testSecret)
	endpoint := server.Endpoint()
	server.Close()

	client, err := NewClient(testID, testSecret, WithEndpoint(endpoint))
	require.NoError(t, err)

	_, err = client.RemoveBackground(context.Background(), FromURL("http://example.com/a.jpg"), nil)
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.NotNil(t, errors.Unwrap(transportErr))
}

type recordingClient struct {
	calls  int
	params *nhttp.RequestParam
	resp   []byte
}

func (r *recordingClient) DoHTTPRequest(_ context.Context, p *nhttp.RequestParam) error {
	r.calls++
	r.params = p
	if out, ok := p.Response.(*[]byte); ok {
		*out = r.resp
	}
	p.StatusCode = http.StatusOK
	return nil
}

func TestClient_RemoveBackground_InjectedTransport(t *testing.T) {
	t.Parallel()

	rec := &recordingClient{resp: pngBytes(t, 1, 1)}
	client, err := NewClient(testID, testSecret, WithHTTPClient(rec))
	require.NoError(t, err)

	_, err = client.RemoveBackground(context.Background(), FromURL("http://example.com/a.jpg"), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, http.MethodPost, rec.params.Method)
	assert.Equal(t, DefaultEndpoint, rec.params.RequestURI)
	assert.Equal(t, &nhttp.BasicAuth{Username: testID, Password: testSecret}, rec.params.BasicAuth)
	assert.Contains(t, rec.params.Header["Content-Type"], "multipart/form-data; boundary=")
}
