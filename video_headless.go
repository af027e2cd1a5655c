//go:build headless

// video_headless.go - No-op display for headless builds (no GPU/X11 available)

package main

import "fmt"

// RunDisplay reports that no display is available in a headless build,
// mirroring the teacher's headless backend stub.
func RunDisplay(gpu *GPU, scale int) error {
	return fmt.Errorf("video: display unavailable in headless build")
}
