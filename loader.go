// loader.go - Host-side BIOS and CD-ROM image loading

/*
loader.go - Media Loading

This module implements the host-side file loading the root driver needs
before it can hand a System a BIOS image or a disc: reading the BIOS ROM
off disk with a size check, and wrapping a raw (headerless, 2352
bytes/sector, mode-2/XA or plain mode-1) CD-ROM image file so its sectors
can be handed to System.SetCDROM's read callback.

Grounded on the teacher's media_loader.go: return a plain error for
malformed or undersized input rather than panicking, the same contract
the teacher's loader used for its own (unrelated) tracker-file loading.
*/

package main

import (
	"fmt"
	"os"
)

// LoadBIOS reads a BIOS ROM image from path. The image must be no larger
// than the 512KB ROM window; a shorter image is accepted (the bus treats
// addresses past the supplied length as reading zero).
func LoadBIOS(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: reading BIOS %q: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("loader: BIOS %q is empty", path)
	}
	if len(data) > biosSize {
		return nil, fmt.Errorf("loader: BIOS %q is %d bytes, exceeds %d-byte ROM window", path, len(data), biosSize)
	}
	return data, nil
}

// cdRawSectorBytes is the raw sector size of an uncooked CD-ROM image:
// a 12-byte sync pattern, a 4-byte header, and a 2336-byte data area (of
// which spec.md's CD-ROM model only ever requests the 2048-byte user
// payload via cdAbsoluteByteAddress/ReadN's sector delivery).
const cdRawSectorBytes = 2352

// CDImage is a raw, headerless CD-ROM image file read sector-by-sector.
// It supplies the read callback System.SetCDROM expects.
type CDImage struct {
	data []byte
}

// LoadCDImage reads a raw CD-ROM image from path. The file size must be
// an exact multiple of the 2352-byte raw sector size.
func LoadCDImage(path string) (*CDImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: reading CD-ROM image %q: %w", path, err)
	}
	if len(data) == 0 || len(data)%cdRawSectorBytes != 0 {
		return nil, fmt.Errorf("loader: CD-ROM image %q size %d is not a multiple of %d bytes", path, len(data), cdRawSectorBytes)
	}
	return &CDImage{data: data}, nil
}

// ReadSector implements the (address, dest) -> ok callback
// System.SetCDROM wires into the CD-ROM drive: address is the absolute
// byte offset the drive computed (already past the sync+header+subheader
// prefix), and dest is filled by copying len(dest) bytes starting there
// (the drive passes a cdRawSectorBytes buffer), mirroring the reference
// loader's seek-then-read of a full sector's worth of bytes from that
// offset. Short or out-of-range reads are zero-padded.
func (img *CDImage) ReadSector(address uint32, dest []byte) bool {
	start := int(address)
	if start < 0 || start >= len(img.data) {
		for i := range dest {
			dest[i] = 0
		}
		return false
	}

	n := copy(dest, img.data[start:])
	for ; n < len(dest); n++ {
		dest[n] = 0
	}
	return true
}
