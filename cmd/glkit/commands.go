package main

import (
	"flag"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/anthonynsimon/bild/transform"
	"github.com/schollz/progressbar/v3"

	"github.com/tinyrange/glkit"
	"github.com/tinyrange/glkit/interop"
)

// input loads the first positional argument, or a checkerboard of the given
// size when there is none.
func input(fs *flag.FlagSet, size int) (image.Image, error) {
	if fs.NArg() == 0 {
		return checker(size, size, 8), nil
	}
	return loadImage(fs.Arg(0))
}

func uploadImage(ctx *glkit.Context, name string, img image.Image) (*glkit.Texture2D, error) {
	tex := ctx.NewTexture2D(name)
	if err := tex.UploadMat(glkit.MatFromImage(img), true); err != nil {
		tex.Destroy()
		return nil, err
	}
	return tex, nil
}

func levelImage(tex *glkit.Texture2D, level int) (image.Image, error) {
	m, err := tex.DownloadMat(level, false)
	if err != nil {
		return nil, err
	}
	return m.Image()
}

func runRoundTrip(ctx *glkit.Context, args []string) error {
	fs := flag.NewFlagSet("roundtrip", flag.ExitOnError)
	out := fs.String("out", "roundtrip.png", "where to write the image read back")
	size := fs.Int("size", 64, "checkerboard size when no image is given")
	if err := fs.Parse(args); err != nil {
		return err
	}

	img, err := input(fs, *size)
	if err != nil {
		return err
	}
	tex, err := uploadImage(ctx, "roundtrip", img)
	if err != nil {
		return err
	}
	defer tex.Destroy()

	got, err := levelImage(tex, 0)
	if err != nil {
		return err
	}
	diff, err := meanAbsDiff(img, got)
	if err != nil {
		return err
	}
	if err := savePNG(*out, got); err != nil {
		return err
	}
	slog.Info("roundtrip", "width", tex.Width(), "height", tex.Height(), "format", tex.Triple(), "mean_abs_diff", diff, "out", *out)
	return nil
}

func runMips(ctx *glkit.Context, args []string) error {
	fs := flag.NewFlagSet("mips", flag.ExitOnError)
	size := fs.Int("size", 256, "checkerboard size when no image is given")
	prefix := fs.String("out", "", "write every level to <out><level>.png")
	if err := fs.Parse(args); err != nil {
		return err
	}

	img, err := input(fs, *size)
	if err != nil {
		return err
	}
	tex, err := uploadImage(ctx, "mips", img)
	if err != nil {
		return err
	}
	defer tex.Destroy()

	if err := tex.GenerateMipmapFull(); err != nil {
		return err
	}

	for level := 0; level < tex.MipmapLevelsAllocated(); level++ {
		w, h := tex.WidthForLevel(level), tex.HeightForLevel(level)
		got, err := levelImage(tex, level)
		if err != nil {
			return fmt.Errorf("level %d: %w", level, err)
		}
		want := transform.Resize(img, w, h, transform.Linear)
		diff, err := meanAbsDiff(want, got)
		if err != nil {
			return fmt.Errorf("level %d: %w", level, err)
		}
		fmt.Printf("level %2d  %5dx%-5d  mean abs diff %.2f\n", level, w, h, diff)

		if *prefix != "" {
			if err := savePNG(fmt.Sprintf("%s%d.png", *prefix, level), got); err != nil {
				return err
			}
		}
	}
	return nil
}

func runBench(ctx *glkit.Context, args []string) error {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	size := fs.Int("size", 1024, "texture edge length")
	iterations := fs.Int("n", 200, "number of upload and download pairs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m := glkit.MatFromImage(checker(*size, *size, 16))
	tex := ctx.NewTexture2D("bench")
	defer tex.Destroy()
	out := make([]byte, m.NumBytes())

	bar := progressbar.Default(int64(*iterations), "bench")
	start := time.Now()
	ready := 0
	for i := 0; i < *iterations; i++ {
		if err := tex.UploadMat(m, true); err != nil {
			return err
		}
		if err := tex.DownloadToSlot(); err != nil {
			return err
		}
		ok, err := tex.DownloadFromOldestSlot(out)
		if err != nil {
			return err
		}
		if ok {
			ready++
		}
		bar.Add(1)
	}
	bar.Finish()

	elapsed := time.Since(start)
	moved := 2 * *iterations * m.NumBytes()
	mb := float64(moved) / (1 << 20)
	slog.Info("bench",
		"iterations", *iterations,
		"size", *size,
		"elapsed", elapsed,
		"mb_per_s", mb/elapsed.Seconds(),
		"downloads", ready,
	)
	return nil
}

func runInterop(ctx *glkit.Context, args []string) error {
	fs := flag.NewFlagSet("interop", flag.ExitOnError)
	size := fs.Int("size", 64, "checkerboard size when no image is given")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := interop.LoadCUDA()
	if err != nil {
		return err
	}

	img, err := input(fs, *size)
	if err != nil {
		return err
	}
	src, err := uploadImage(ctx, "interop source", img)
	if err != nil {
		return err
	}
	defer src.Destroy()
	dst := ctx.NewTexture2D("interop target")
	defer dst.Destroy()

	srcLink := interop.NewTextureLink(rt, src)
	defer srcLink.Close()
	dstLink := interop.NewTextureLink(rt, dst)
	defer dstLink.Close()

	tensor, err := srcLink.Download()
	if err != nil {
		return err
	}
	defer rt.Free(tensor.Ptr)
	if err := dstLink.Upload(tensor, false, true); err != nil {
		return err
	}

	want, err := levelImage(src, 0)
	if err != nil {
		return err
	}
	got, err := levelImage(dst, 0)
	if err != nil {
		return err
	}
	diff, err := meanAbsDiff(want, got)
	if err != nil {
		return err
	}
	slog.Info("interop", "shape", tensor.Shape, "dtype", tensor.DType, "format", dst.Triple(), "mean_abs_diff", diff)
	return nil
}
