//go:build !headless

// video.go - Optional ebiten window presenting live VRAM contents

/*
video.go - VRAM Display

Adapted from the teacher's ebiten video backend (video_backend_ebiten.go):
the same "own a frame buffer, feed it to ebiten.RunGame" shape, narrowed
down to exactly what this system needs - a read-only window onto the
GPU's VRAM, redrawn on every ebiten frame independently of the emulated
vblank. There is no keyboard/mouse
handling, no clipboard integration, and no configurable pixel format:
VRAM is always 15-bit A1B5G5R5-packed words, unpacked to RGBA here.

Built only when the headless build tag is absent; video_headless.go
supplies the no-op fallback for the same exported surface.
*/

package main

import (
	"fmt"
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/image/draw"
)

// vramDisplay implements ebiten.Game, redrawing from a GPU's VRAM each
// frame. VRAM is unpacked into a stdlib image.RGBA at native resolution,
// then scaled with golang.org/x/image/draw into the window-sized image
// ebiten actually presents - the teacher's video_chip.go scales its own
// chip's framebuffer the same way rather than relying on ebiten's affine
// GeoM scaling, which does not give control over the resampling kernel.
type vramDisplay struct {
	gpu    *GPU
	native *image.RGBA
	scaled *image.RGBA
	img    *ebiten.Image

	mu      sync.Mutex
	scale   int
	stopped bool
}

// RunDisplay blocks, running an ebiten window presenting gpu's VRAM at
// scale until the window is closed. main.go calls it on the main
// goroutine while the emulation loop runs on another (see main.go).
func RunDisplay(gpu *GPU, scale int) error {
	if scale <= 0 {
		scale = 1
	}
	d := &vramDisplay{
		gpu:    gpu,
		native: image.NewRGBA(image.Rect(0, 0, vramWidth, vramHeight)),
		scaled: image.NewRGBA(image.Rect(0, 0, vramWidth*scale, vramHeight*scale)),
		img:    ebiten.NewImage(vramWidth*scale, vramHeight*scale),
		scale:  scale,
	}

	ebiten.SetWindowSize(vramWidth*scale, vramHeight*scale)
	ebiten.SetWindowTitle("LR33300 - VRAM")
	ebiten.SetWindowResizable(true)

	if err := ebiten.RunGame(d); err != nil {
		return fmt.Errorf("video: ebiten run: %w", err)
	}
	return nil
}

func (d *vramDisplay) Update() error {
	return nil
}

func (d *vramDisplay) Draw(screen *ebiten.Image) {
	d.mu.Lock()
	for i, px := range d.gpu.vram {
		r := uint8(px&0x1F) << 3
		g := uint8((px>>5)&0x1F) << 3
		b := uint8((px>>10)&0x1F) << 3
		o := i * 4
		d.native.Pix[o] = r
		d.native.Pix[o+1] = g
		d.native.Pix[o+2] = b
		d.native.Pix[o+3] = 0xFF
	}
	d.mu.Unlock()

	if d.scale == 1 {
		copy(d.scaled.Pix, d.native.Pix)
	} else {
		draw.NearestNeighbor.Scale(d.scaled, d.scaled.Bounds(), d.native, d.native.Bounds(), draw.Src, nil)
	}

	d.img.WritePixels(d.scaled.Pix)
	screen.DrawImage(d.img, nil)
}

func (d *vramDisplay) Layout(outsideWidth, outsideHeight int) (int, int) {
	return vramWidth * d.scale, vramHeight * d.scale
}
