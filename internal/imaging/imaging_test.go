package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNGBase64(t *testing.T, img image.Image) string {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodeDataURL(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	payload := encodePNGBase64(t, src)

	decoded, err := DecodeDataURL(payload)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), decoded.Bounds())

	decoded, err = DecodeDataURL("data:image/png;base64," + payload)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), decoded.Bounds())
}

func TestDecodeDataURLErrors(t *testing.T) {
	_, err := DecodeDataURL("")
	require.Error(t, err)

	_, err = DecodeDataURL("!!not-base64!!")
	require.Error(t, err)

	_, err = DecodeDataURL(base64.StdEncoding.EncodeToString([]byte("not an image")))
	require.Error(t, err)
}

func TestGrayscale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})

	gray := Grayscale(src)
	assert.Equal(t, src.Bounds(), gray.Bounds())

	// Already-gray images pass through untouched.
	same := Grayscale(gray)
	assert.Same(t, gray, same)
}

func TestCropClampsToBounds(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 10, 10))

	cropped := Crop(gray, image.Rect(5, 5, 20, 20))
	assert.Equal(t, 5, cropped.Bounds().Dx())
	assert.Equal(t, 5, cropped.Bounds().Dy())
}

func TestCropCopiesRegion(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 4, 4))
	gray.SetGray(2, 2, color.Gray{Y: 200})

	cropped := Crop(gray, image.Rect(2, 2, 4, 4))
	assert.Equal(t, uint8(200), cropped.GrayAt(0, 0).Y)
}

func TestResize(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 64, 48))

	resized := Resize(gray, 200, 200)
	assert.Equal(t, 200, resized.Bounds().Dx())
	assert.Equal(t, 200, resized.Bounds().Dy())
}

func TestEncodePNGRoundTrip(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 8, 8))
	gray.SetGray(3, 3, color.Gray{Y: 128})

	data, err := EncodePNG(gray)
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, gray.Bounds(), decoded.Bounds())
}
