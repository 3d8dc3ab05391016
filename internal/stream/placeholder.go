package stream

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
)

// プレースホルダフレームのサイズ
const (
	placeholderWidth  = 640
	placeholderHeight = 360
)

var (
	// pausedColor はカメラ明け渡し中を示す色（暗い青）
	pausedColor = color.RGBA{R: 16, G: 24, B: 48, A: 255}
	// noSignalColor は信号なしを示す色（暗い灰色）
	noSignalColor = color.RGBA{R: 32, G: 32, B: 32, A: 255}
)

// encodePlaceholder は単色のプレースホルダJPEGを生成する
// 中央に明るめの帯を入れてエンコードの劣化で真っ黒にならないようにする
func encodePlaceholder(c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))

	band := color.RGBA{
		R: c.R + 24,
		G: c.G + 24,
		B: c.B + 24,
		A: 255,
	}

	for y := 0; y < placeholderHeight; y++ {
		rowColor := c
		if y > placeholderHeight/2-20 && y < placeholderHeight/2+20 {
			rowColor = band
		}
		for x := 0; x < placeholderWidth; x++ {
			img.SetRGBA(x, y, rowColor)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 70}); err != nil {
		// 固定サイズ画像のエンコードは失敗しない
		return nil
	}
	return buf.Bytes()
}
