package cmd

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/smazurov/mxcamera/internal/pixel"
	"github.com/spf13/cobra"
)

type decodeOptions struct {
	Width  int
	Height int
	Output string
	// FitWidth and FitHeight scale the PNG to fit a box, keeping aspect.
	FitWidth  int
	FitHeight int
}

// CreateDecodeCmd converts a RAW10 dump to 16-bit samples or a PNG.
func CreateDecodeCmd() *cobra.Command {
	var opts decodeOptions

	cmd := &cobra.Command{
		Use:   "decode <file.raw>",
		Short: "Decode a packed RAW10 frame",
		Long: "Unpacks a RAW10 frame as received by 'receive --dump'. An output ending in .png is written as " +
			"8-bit grayscale, anything else as little-endian 16-bit samples like the photo endpoint.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Output == "" {
				opts.Output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "_16bit.bin"
			}
			degraded, err := decodeFile(args[0], opts)
			if err != nil {
				return err
			}
			if degraded {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: input shorter than the frame size, missing samples are zero")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", opts.Output)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Width, "width", 1920, "Frame width")
	cmd.Flags().IntVar(&opts.Height, "height", 1080, "Frame height")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output file (.png or .bin)")
	cmd.Flags().IntVar(&opts.FitWidth, "fit-width", 0, "Scale the PNG to fit this width")
	cmd.Flags().IntVar(&opts.FitHeight, "fit-height", 0, "Scale the PNG to fit this height")
	return cmd
}

func decodeFile(path string, opts decodeOptions) (bool, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width > 4096 || opts.Height > 4096 {
		return false, fmt.Errorf("invalid size %dx%d", opts.Width, opts.Height)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	samples := make([]uint16, opts.Width*opts.Height)
	degraded, err := pixel.Unpack(samples, raw, opts.Width, opts.Height)
	if err != nil {
		return false, fmt.Errorf("unpack %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(opts.Output), ".png") {
		return degraded, writeGrayPNG(opts, samples)
	}
	return degraded, writeSamples(opts.Output, samples)
}

func writeGrayPNG(opts decodeOptions, samples []uint16) error {
	w, h := opts.Width, opts.Height
	if opts.FitWidth > 0 && opts.FitHeight > 0 {
		fit := pixel.FitSize(w, h, pixel.Size{Width: opts.FitWidth, Height: opts.FitHeight})
		scaled := make([]uint16, fit.Pixels())
		if err := pixel.Scale(scaled, samples, w, h, fit.Width, fit.Height); err != nil {
			return err
		}
		samples, w, h = scaled, fit.Width, fit.Height
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	for i, s := range samples[:w*h] {
		img.Pix[i] = uint8(s >> 2)
	}

	f, err := os.Create(opts.Output)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeSamples(path string, samples []uint16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(f, 256<<10)
	var b [2]byte
	for _, s := range samples {
		binary.LittleEndian.PutUint16(b[:], s)
		if _, err := bw.Write(b[:]); err != nil {
			f.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
