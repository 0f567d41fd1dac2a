package main

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/blueprint-parser/internal/config"
)

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		def  string
		want string
	}{
		{"out.png", "jpeg", "png"},
		{"out.PNG", "jpeg", "png"},
		{"out.jpg", "png", "jpeg"},
		{"out.jpeg", "png", "jpeg"},
		{"out", "png", "png"},
		{"out.bmp", "jpeg", "jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := formatForPath(tt.path, tt.def); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunParse(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "plan.png")
	output := filepath.Join(dir, "mask.png")

	// An 8x8 white sheet with a 4x4 dark block that survives one erode and
	// one dilate, plus a lone dark speck that does not.
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.White)
		}
	}
	for y := 3; y < 7; y++ {
		for x := 3; x < 7; x++ {
			img.Set(x, y, color.Black)
		}
	}
	img.Set(0, 0, color.Black)

	f, err := os.Create(input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	opts := parseOptions{Threshold: -0.1, Erode: 1, Dilate: 1, Format: "png"}
	if err := runParse(context.Background(), config.Default(), input, output, opts); err != nil {
		t.Fatalf("runParse failed: %v", err)
	}

	r, err := os.Open(output)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer r.Close()
	mask, err := png.Decode(r)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}

	dark := func(x, y int) bool {
		return color.GrayModel.Convert(mask.At(x, y)).(color.Gray).Y < 128
	}
	if dark(0, 0) {
		t.Error("speck at (0,0) survived")
	}
	for y := 3; y < 7; y++ {
		for x := 3; x < 7; x++ {
			if !dark(x, y) {
				t.Errorf("block pixel (%d,%d) lost", x, y)
			}
		}
	}
	if dark(1, 4) {
		t.Error("background pixel (1,4) marked foreground")
	}
}

func TestRunParse_Errors(t *testing.T) {
	dir := t.TempDir()
	notImage := filepath.Join(dir, "notes.txt")
	os.WriteFile(notImage, []byte("hello"), 0o644) //nolint:errcheck

	tests := []struct {
		name  string
		input string
		opts  parseOptions
	}{
		{"missing input", filepath.Join(dir, "absent.png"), parseOptions{Format: "png"}},
		{"not an image", notImage, parseOptions{Format: "png"}},
		{"bad format", notImage, parseOptions{Format: "tiff"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runParse(context.Background(), config.Default(), tt.input, filepath.Join(dir, "out.png"), tt.opts)
			if err == nil {
				t.Error("expected an error")
			}
		})
	}
}
