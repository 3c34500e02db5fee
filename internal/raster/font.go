package raster

import (
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
)

// MaxFontSize bounds text size; every distinct size is cached as a face.
const MaxFontSize = 128.0

// Faces are shared by all surfaces. font.Face is not safe for concurrent
// use so faceMu guards both the cache and every use of a face.
var (
	faceMu   sync.Mutex
	faces    = map[float64]font.Face{}
	mono     *opentype.Font
	monoErr  error
	monoOnce sync.Once
)

// faceFor returns the Go Mono face for a pixel size, rounded to half a
// pixel. The caller holds faceMu.
func faceFor(px float64) font.Face {
	px = math.Round(px*2) / 2
	if f, ok := faces[px]; ok {
		return f
	}
	monoOnce.Do(func() {
		mono, monoErr = opentype.Parse(gomono.TTF)
	})
	var face font.Face = basicfont.Face7x13
	if monoErr == nil {
		f, err := opentype.NewFace(mono, &opentype.FaceOptions{
			Size:    px,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			face = f
		}
	}
	faces[px] = face
	return face
}
