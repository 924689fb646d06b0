// Command glkit exercises glkit against a real driver: it prints context
// limits, round trips images through textures, checks generated mip chains
// and measures pixel buffer throughput.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/tinyrange/glkit"
	"github.com/tinyrange/glkit/gl"
)

func init() {
	// GLFW and every GL call must stay on the main thread.
	runtime.LockOSThread()
}

type command struct {
	name  string
	usage string
	run   func(ctx *glkit.Context, args []string) error
}

var commands = []command{
	{"info", "print the GL version and limits", runInfo},
	{"roundtrip", "upload an image into a texture and read it back", runRoundTrip},
	{"mips", "generate a mip chain and compare it with a CPU reference", runMips},
	{"bench", "measure upload and download throughput through the pixel buffer rings", runBench},
	{"interop", "copy an image through a CUDA tensor and back", runInterop},
}

func usage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "usage: %s [flags] <command> [args]\n\ncommands:\n", fs.Name())
	for _, c := range commands {
		fmt.Fprintf(fs.Output(), "  %-10s %s\n", c.name, c.usage)
	}
	fmt.Fprintf(fs.Output(), "\nflags:\n")
	fs.PrintDefaults()
}

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := fs.String("config", "", "read options from a .yaml or .toml file")
	logLevel := fs.String("log-level", "", "override the configured log level")
	checkErrors := fs.Bool("check-errors", false, "poll glGetError after allocations and transfers")
	major := fs.Int("gl-major", 4, "requested GL major version")
	minor := fs.Int("gl-minor", 5, "requested GL minor version")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	if fs.NArg() < 1 {
		usage(fs)
		os.Exit(2)
	}

	opts := glkit.DefaultOptions()
	if *configPath != "" {
		var err error
		if opts, err = glkit.LoadOptions(*configPath); err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	if *logLevel != "" {
		opts.LogLevel = *logLevel
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "check-errors" {
			opts.CheckErrors = *checkErrors
		}
	})

	level, err := opts.Level()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var cmd *command
	for i := range commands {
		if commands[i].name == fs.Arg(0) {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		log.Fatalf("unknown command %q", fs.Arg(0))
	}

	window, err := openWindow(*major, *minor)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer glfw.Terminate()
	defer window.Destroy()

	table, err := gl.Load()
	if err != nil {
		log.Fatalf("load gl: %v", err)
	}
	ctx, err := glkit.NewContext(table, glkit.WithOptions(opts))
	if err != nil {
		log.Fatalf("context: %v", err)
	}
	slog.Debug("context ready", "version", ctx.Version())

	if err := cmd.run(ctx, fs.Args()[1:]); err != nil {
		log.Fatalf("%s: %v", cmd.name, err)
	}
}

// openWindow creates a hidden window whose core profile context is made
// current on the calling thread.
func openWindow(major, minor int) (*glfw.Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw: %w", err)
	}
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, major)
	glfw.WindowHint(glfw.ContextVersionMinor, minor)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(16, 16, "glkit", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create %d.%d context: %w", major, minor, err)
	}
	window.MakeContextCurrent()
	return window, nil
}

func runInfo(ctx *glkit.Context, args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Printf("version:               %s\n", ctx.Version())
	fmt.Printf("color attachments:     %d\n", ctx.MaxColorAttachments())
	fmt.Printf("texture image units:   %d\n", ctx.MaxTextureUnits())
	fmt.Printf("image units (config):  %d\n", ctx.MaxImageUnits())
	for _, feature := range []struct {
		name       string
		constraint string
	}{
		{"immutable storage", ">= 4.2"},
		{"image load/store", ">= 4.2"},
		{"compute shaders", ">= 4.3"},
		{"clear tex image", ">= 4.4"},
	} {
		fmt.Printf("%-22s %v\n", feature.name+":", ctx.Supports(feature.constraint))
	}
	if missing := gl.Missing(ctx.GL()); len(missing) > 0 {
		fmt.Printf("missing entry points:  %v\n", missing)
	}
	return nil
}
