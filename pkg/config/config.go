package config

import (
	"fmt"
	"image"

	"github.com/giongto35/camview/pkg/capture"
	"github.com/giongto35/camview/pkg/render"
	"github.com/spf13/pflag"
)

type Config struct {
	Capture    Capture
	Render     Render
	Window     Window
	Monitoring Monitoring
	Log        Log
}

type Capture struct {
	// Device is a camera id, the first camera is used if empty.
	Device string
	// Facing is matched against camera names: front or back.
	Facing    string
	Width     int `default:"640"`
	Height    int `default:"480"`
	FrameRate int `default:"30"`
	// Slots is the number of frame buffers, at least 3.
	Slots   int `default:"3"`
	LockDir string
}

type Render struct {
	Autoresize bool
	// Depth is one of none, depth24, depth24stencil8.
	Depth string `default:"none"`
	// fixed drawable size without autoresize
	Width   int
	Height  int
	Divisor int `default:"1"`
	VSync   bool
	Debug   bool
}

type Window struct {
	Title     string `default:"camview"`
	Width     int    `default:"1280"`
	Height    int    `default:"720"`
	Resizable bool
	HighDPI   bool
}

type Monitoring struct {
	Port             int
	URLPrefix        string
	MetricEnabled    bool
	ProfilingEnabled bool
}

func (c *Monitoring) IsEnabled() bool { return c.MetricEnabled || c.ProfilingEnabled }

type Log struct {
	Debug bool
	// JSON switches to machine-readable lines on stderr.
	JSON    bool
	NoColor bool
	Tag     string `default:"cam"`
}

func (c *Capture) Source() capture.Config {
	return capture.Config{
		DeviceID:  c.Device,
		Facing:    c.Facing,
		Width:     c.Width,
		Height:    c.Height,
		FrameRate: c.FrameRate,
		LockDir:   c.LockDir,
	}
}

func (c *Render) Options() (render.Options, error) {
	var depth render.Depth
	switch c.Depth {
	case "", "none":
		depth = render.DepthNone
	case "depth24":
		depth = render.Depth24
	case "depth24stencil8":
		depth = render.Depth24Stencil8
	default:
		return render.Options{}, fmt.Errorf("unknown depth mode %q", c.Depth)
	}
	return render.Options{
		Autoresize: c.Autoresize,
		Depth:      depth,
		Size:       image.Pt(c.Width, c.Height),
		Debug:      c.Debug,
	}, nil
}

// Flags are command line overrides, they win over the file and env.
type Flags struct {
	fs *pflag.FlagSet

	Path   string
	debug  bool
	device string
	fps    int
	port   int
}

func NewFlags(name string) *Flags {
	f := Flags{fs: pflag.NewFlagSet(name, pflag.ContinueOnError)}
	f.fs.StringVarP(&f.Path, "conf", "c", "", "Set custom configuration file path")
	f.fs.BoolVarP(&f.debug, "debug", "d", false, "Enable debug logging and render diagnostics")
	f.fs.StringVar(&f.device, "device", "", "Camera device id")
	f.fs.IntVar(&f.fps, "fps", 0, "Capture frame rate")
	f.fs.IntVar(&f.port, "monitoring.port", 0, "Monitoring server port")
	return &f
}

func (f *Flags) Parse(args []string) error { return f.fs.Parse(args) }

// Apply sets the explicitly given flags into c.
func (f *Flags) Apply(c *Config) {
	if f.fs.Changed("debug") {
		c.Log.Debug, c.Render.Debug = f.debug, f.debug
	}
	if f.fs.Changed("device") {
		c.Capture.Device = f.device
	}
	if f.fs.Changed("fps") {
		c.Capture.FrameRate = f.fps
	}
	if f.fs.Changed("monitoring.port") {
		c.Monitoring.Port = f.port
	}
}

// Load reads the configuration from the flags' file path or the default
// locations and applies the flags on top.
func Load(f *Flags) (*Config, string, error) {
	var conf Config
	path, err := LoadConfig(&conf, f.Path)
	if err != nil {
		return nil, "", err
	}
	f.Apply(&conf)
	return &conf, path, nil
}
