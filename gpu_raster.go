// gpu_raster.go - Polygon/rectangle rasterization and CLUT sampling

/*
gpu_raster.go - Rasterizer

This module implements the pixel-level work the GP0 polygon and
rectangle opcodes kick off once gpu.go has finished collecting their
parameter words: a Pineda edge-function triangle fill with barycentric
color/texture interpolation, and a rectangle fill that also serves as the
mono "dot" primitive and the textured variable-size rectangle GP0(0x65) -
which the reference implementations (libps and psemu alike) leave as an
unimplemented stub. spec.md calls for it fully, so it is built out here.

Every vertex this file touches has already had the GPU's signed drawing
offset folded into its coordinates (applyOffset), matching spec.md §3's
"signed (ox, oy) drawing offset applied before clipping" - even though
neither original_source C reference actually applies the offset it
stores. Clipping to the drawing area happens per-pixel inside the
rasterization loop, not as a separate pass.
*/

package main

// vertex is one corner of a polygon or rectangle, carrying position,
// flat or per-vertex color, and (for textured primitives) a UV coordinate
// that sampleTexel resolves directly against VRAM.
type vertex struct {
	x, y    int32
	r, g, b uint8
	u, v    uint8
}

func (g *GPU) applyOffset(x, y int32) (int32, int32) {
	return x + g.drawOffsetX, y + g.drawOffsetY
}

func edgeFunction(a, b, c vertex) int64 {
	return int64(b.x-a.x)*int64(c.y-a.y) - int64(b.y-a.y)*int64(c.x-a.x)
}

// dispatchPolygon decodes a fully-collected GP0 0x20-0x3F packet into its
// vertex list and draws it as one or two triangles (a quad is split into
// two triangles sharing the v1-v2 edge).
func (g *GPU) dispatchPolygon(op uint32, params []uint32) {
	shaded := op&0x10 != 0
	textured := op&0x04 != 0
	quad := op&0x08 != 0
	semiTransparent := op&0x02 != 0
	rawTexture := op&0x01 != 0

	nVerts := 3
	if quad {
		nVerts = 4
	}

	r0 := uint8(g.pendingCmd)
	gr0 := uint8(g.pendingCmd >> 8)
	b0 := uint8(g.pendingCmd >> 16)

	verts := make([]vertex, nVerts)
	idx := 0

	for i := 0; i < nVerts; i++ {
		vr, vg, vb := r0, gr0, b0
		if shaded && i > 0 {
			c := params[idx]
			idx++
			vr, vg, vb = uint8(c), uint8(c>>8), uint8(c>>16)
		}

		coord := params[idx]
		idx++
		x, y := applyCoordSign(coord)

		var u, v uint8
		if textured {
			uv := params[idx]
			idx++
			u, v = uint8(uv), uint8(uv>>8)
		}

		ox, oy := g.applyOffset(x, y)
		verts[i] = vertex{x: ox, y: oy, r: vr, g: vg, b: vb, u: u, v: v}
	}

	opts := rasterOpts{textured: textured, semiTransparent: semiTransparent, rawTexture: rawTexture}

	g.drawTriangle(verts[0], verts[1], verts[2], opts)
	if quad {
		g.drawTriangle(verts[1], verts[2], verts[3], opts)
	}
}

func applyCoordSign(word uint32) (int32, int32) {
	x := int32(int16(uint16(word)))
	y := int32(int16(uint16(word >> 16)))
	return x, y
}

type rasterOpts struct {
	textured        bool
	semiTransparent bool
	rawTexture      bool
}

// drawTriangle rasterizes a single triangle with the Pineda edge-function
// test over the bounding box intersected with the current drawing area,
// interpolating color and (if textured) UV barycentrically.
func (g *GPU) drawTriangle(v0, v1, v2 vertex, opts rasterOpts) {
	area := edgeFunction(v0, v1, v2)
	if area == 0 {
		return
	}
	if area < 0 {
		v1, v2 = v2, v1
		area = -area
	}

	minX := min3(v0.x, v1.x, v2.x)
	maxX := max3(v0.x, v1.x, v2.x)
	minY := min3(v0.y, v1.y, v2.y)
	maxY := max3(v0.y, v1.y, v2.y)

	minX = clampI32(minX, g.drawingArea.x1, g.drawingArea.x2)
	maxX = clampI32(maxX, g.drawingArea.x1, g.drawingArea.x2)
	minY = clampI32(minY, g.drawingArea.y1, g.drawingArea.y2)
	maxY = clampI32(maxY, g.drawingArea.y1, g.drawingArea.y2)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := vertex{x: x, y: y}

			w0 := edgeFunction(v1, v2, p)
			w1 := edgeFunction(v2, v0, p)
			w2 := edgeFunction(v0, v1, p)

			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			b0 := float64(w0) / float64(area)
			b1 := float64(w1) / float64(area)
			b2 := float64(w2) / float64(area)

			var px uint16
			if opts.textured {
				u := uint8(b0*float64(v0.u) + b1*float64(v1.u) + b2*float64(v2.u))
				vv := uint8(b0*float64(v0.v) + b1*float64(v1.v) + b2*float64(v2.v))
				texel, opaque := g.sampleTexel(u, vv)
				if !opaque {
					continue
				}
				px = texel
			} else {
				r := uint8(b0*float64(v0.r) + b1*float64(v1.r) + b2*float64(v2.r))
				gr := uint8(b0*float64(v0.g) + b1*float64(v1.g) + b2*float64(v2.g))
				bl := uint8(b0*float64(v0.b) + b1*float64(v1.b) + b2*float64(v2.b))
				px = uint16(r>>3) | uint16(gr>>3)<<5 | uint16(bl>>3)<<10
			}

			g.putPixel(x, y, px)
		}
	}
}

// sampleTexel reads the 16-bit VRAM word at the texture-window-adjusted
// (u, v), reporting whether the texel is opaque (a zero word is treated as
// transparent). There is no texture-page base and no CLUT lookup: (u, v)
// addresses VRAM from the origin, and 4-bit and 8-bit indexed textures
// are not decoded.
func (g *GPU) sampleTexel(u, v uint8) (uint16, bool) {
	uu := (uint32(u) & ^(g.texWindowMaskX * 8)) | ((g.texWindowOffX & g.texWindowMaskX) * 8)
	vv := (uint32(v) & ^(g.texWindowMaskY * 8)) | ((g.texWindowOffY & g.texWindowMaskY) * 8)

	x := int32(uu) & (vramWidth - 1)
	y := int32(vv) & (vramHeight - 1)
	texel := g.vram[y*vramWidth+x]

	if texel == 0 {
		return 0, false
	}
	return texel, true
}

func (g *GPU) putPixel(x, y int32, px uint16) {
	vx := x & (vramWidth - 1)
	vy := y & (vramHeight - 1)
	g.vram[vy*vramWidth+vx] = px
}

func min3(a, b, c int32) int32 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func max3(a, b, c int32) int32 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func clampI32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// --- Rectangles (GP0 0x60-0x7F): mono dot, fixed-size, and the fully
// implemented variable-size textured rectangle (0x65) ---

// dispatchRect decodes a fully-collected GP0 0x60-0x7F packet and fills
// the rectangle it describes.
func (g *GPU) dispatchRect(op uint32, params []uint32) {
	textured := op&0x04 != 0
	sizeMode := (op >> 3) & 0x3

	idx := 0
	coord := params[idx]
	idx++
	x, y := applyCoordSign(coord)
	x, y = g.applyOffset(x, y)

	var u, v uint8
	if textured {
		uv := params[idx]
		idx++
		u, v = uint8(uv), uint8(uv>>8)
	}

	var w, h int32
	switch sizeMode {
	case 1:
		w, h = 1, 1
	case 2:
		w, h = 8, 8
	case 3:
		w, h = 16, 16
	default:
		size := params[idx]
		idx++
		w = int32(size & 0x3FF)
		h = int32((size >> 16) & 0x1FF)
	}

	r := uint8(g.pendingCmd)
	gr := uint8(g.pendingCmd >> 8)
	b := uint8(g.pendingCmd >> 16)
	flatColor := uint16(r>>3) | uint16(gr>>3)<<5 | uint16(b>>3)<<10

	for row := int32(0); row < h; row++ {
		for col := int32(0); col < w; col++ {
			px := x + col
			py := y + row
			if px < g.drawingArea.x1 || px > g.drawingArea.x2 ||
				py < g.drawingArea.y1 || py > g.drawingArea.y2 {
				continue
			}

			var color uint16
			if textured {
				texel, opaque := g.sampleTexel(u+uint8(col), v+uint8(row))
				if !opaque {
					continue
				}
				color = texel
			} else {
				color = flatColor
			}
			g.putPixel(px, py, color)
		}
	}
}
