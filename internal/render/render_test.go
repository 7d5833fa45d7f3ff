package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestSkin(t *testing.T, width, height int, face, helmet color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 8; y < 16; y++ {
		for x := 8; x < 16; x++ {
			img.Set(x, y, face)
		}
	}
	if height == 64 {
		for y := 8; y < 16; y++ {
			for x := 40; x < 48; x++ {
				img.Set(x, y, helmet)
			}
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRenderHead(t *testing.T) {
	face := color.RGBA{R: 0xff, A: 0xff}
	helmet := color.RGBA{G: 0xff, A: 0xff}

	t.Run("renders 64x64 head from modern skin", func(t *testing.T) {
		data, err := RenderHead(encodeTestSkin(t, 64, 64, face, helmet))
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, HeadSize, img.Bounds().Dx())
		assert.Equal(t, HeadSize, img.Bounds().Dy())

		// helmet is opaque, so it covers the face
		r, g, _, _ := img.At(32, 32).RGBA()
		assert.Zero(t, r>>8)
		assert.Equal(t, uint32(0xff), g>>8)
	})

	t.Run("legacy 64x32 skin has no helmet layer", func(t *testing.T) {
		data, err := RenderHead(encodeTestSkin(t, 64, 32, face, helmet))
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		r, _, _, _ := img.At(32, 16).RGBA()
		assert.Equal(t, uint32(0xff), r>>8, "face shows through without helmet")
	})

	t.Run("rejects wrong dimensions", func(t *testing.T) {
		_, err := RenderHead(encodeTestSkin(t, 32, 32, face, helmet))
		assert.Error(t, err)
	})

	t.Run("rejects garbage input", func(t *testing.T) {
		_, err := RenderHead([]byte("not a png"))
		assert.Error(t, err)
	})
}

func TestComposeStatus(t *testing.T) {
	head, err := RenderHead(encodeTestSkin(t, 64, 64, color.RGBA{R: 0xff, A: 0xff}, color.RGBA{G: 0xff, A: 0xff}))
	require.NoError(t, err)

	t.Run("composes grid for a roster", func(t *testing.T) {
		players := []PlayerEntry{
			{Name: "Steve", HeadPNG: head},
			{Name: "Alex"}, // falls back to default head
			{Name: "Notch", HeadPNG: head},
		}

		data, err := ComposeStatus(players)
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 3*64+4*8, img.Bounds().Dx())
		assert.Equal(t, 64+2*8, img.Bounds().Dy())
	})

	t.Run("wraps past five columns", func(t *testing.T) {
		players := make([]PlayerEntry, 7)
		data, err := ComposeStatus(players)
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 5*64+6*8, img.Bounds().Dx())
		assert.Equal(t, 2*64+3*8, img.Bounds().Dy())
	})

	t.Run("empty roster yields a valid image", func(t *testing.T) {
		data, err := ComposeStatus(nil)
		require.NoError(t, err)

		_, err = png.Decode(bytes.NewReader(data))
		assert.NoError(t, err)
	})
}

func TestDefaultHead(t *testing.T) {
	img := DefaultHead()
	assert.Equal(t, HeadSize, img.Bounds().Dx())
	assert.Equal(t, HeadSize, img.Bounds().Dy())
}
