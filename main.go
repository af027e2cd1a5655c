// main.go - Root driver: boots a BIOS image and runs the system

/*
main.go - Driver

Grounded on the teacher's main.go flag-parsing and peripheral-wiring
shape (parse arguments, construct the core, optionally start a
presentation backend, run). Narrowed to this system's actual external
contract (spec.md §6): load a BIOS image, optionally attach a CD-ROM
image, run the tick loop described in spec.md §5, and optionally present
VRAM in a window or drive the run from a Lua test script instead of
free-running it.
*/

package main

import (
	"flag"
	"fmt"
	"os"
)

const driverVersion = "0.1.0"

// ticksPerFrame approximates master_clock / 60 per spec.md §5's outer
// loop description, using the CD-ROM's documented system clock rate.
const ticksPerFrame = cpuClockHz / 60

func main() {
	var (
		biosPath   = flag.String("bios", "", "path to the 512KB BIOS ROM image (required)")
		cdromPath  = flag.String("cdrom", "", "path to a raw (2352 byte/sector) CD-ROM image (optional)")
		display    = flag.Bool("display", false, "open a window presenting live VRAM contents")
		scriptPath = flag.String("script", "", "run a Lua test script against the system instead of free-running it")
		scale      = flag.Int("scale", 1, "VRAM display window scale factor")
		maxFrames  = flag.Int("frames", 0, "stop after this many vblanks (0 = run forever)")
		noTTY      = flag.Bool("no-tty-sniff", false, "disable the conventional BIOS TTY-output sniff")
	)
	flag.Parse()

	fmt.Printf("LR33300 core driver %s\n", driverVersion)

	if *biosPath == "" {
		fmt.Fprintln(os.Stderr, "main: -bios is required")
		os.Exit(1)
	}

	bios, err := LoadBIOS(*biosPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sys, err := Create(bios)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *cdromPath != "" {
		img, err := LoadCDImage(*cdromPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		sys.SetCDROM(img.ReadSector)
	}

	if *scriptPath != "" {
		if err := RunScript(*scriptPath, sys); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	var sniffer *TTYSniffer
	if !*noTTY {
		sniffer = NewTTYSniffer(os.Stdout, int(os.Stdout.Fd()))
	}

	if *display {
		go runEmulation(sys, sniffer, *maxFrames)
		if err := RunDisplay(sys.GPU(), *scale); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	runEmulation(sys, sniffer, *maxFrames)
}

// runEmulation free-runs sys following spec.md §5's tick model: a fixed
// number of CPU-instruction ticks per frame, followed by a vblank signal.
// Stops after maxFrames frames, or runs forever if maxFrames is 0.
func runEmulation(sys *System, sniffer *TTYSniffer, maxFrames int) {
	for frame := 0; maxFrames == 0 || frame < maxFrames; frame++ {
		for t := 0; t < ticksPerFrame; t++ {
			sys.Step()
			if sniffer != nil {
				sniffer.Observe(sys.CPU)
			}
		}
		sys.Vblank()
	}
	if sniffer != nil {
		sniffer.Flush()
	}
}
