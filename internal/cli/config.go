package cli

import (
	"image"
	"math/rand/v2"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/setanarut/textonizer"
	"github.com/setanarut/textonizer/utils"
)

// Config is the layered CLI configuration. Zero-valued thresholds keep the value
// derived from the sample size by textonizer.OptionsFromSize; MaxOverlap uses a
// negative value for that, since zero is a valid tolerance.
type Config struct {
	Extract ExtractConfig `toml:"extract"`
	Synth   SynthConfig   `toml:"synth"`
	Segment SegmentConfig `toml:"segment"`
	Edges   EdgesConfig   `toml:"edges"`
}

type ExtractConfig struct {
	Clusters      int    `toml:"clusters"`
	MinTextonSize int    `toml:"min_texton_size"`
	Blur          string `toml:"blur"`
	BlurSize      int    `toml:"blur_size"`
	// Background source pixel; negative coordinates disable it.
	BackgroundX int `toml:"background_x"`
	BackgroundY int `toml:"background_y"`
}

type SynthConfig struct {
	Width            int     `toml:"width"`
	Height           int     `toml:"height"`
	Seed             uint64  `toml:"seed"` // 0 picks a random seed
	DilationRadius   int     `toml:"dilation_radius"`
	MaxDilations     int     `toml:"max_dilations"`
	ExtraDilations   int     `toml:"extra_dilations"`
	NoiseThreshold   float64 `toml:"noise_threshold"`
	TooCloseDilation int     `toml:"too_close_dilation"`
	MaxOverlap       int     `toml:"max_overlap"` // negative keeps the default
	Margin           int     `toml:"margin"`
	SeedCluster      int     `toml:"seed_cluster"`
}

type SegmentConfig struct {
	Method      string `toml:"method"`
	Components  int    `toml:"components"`
	Window      int    `toml:"window"`
	Superpixels int    `toml:"superpixels"`
}

type EdgesConfig struct {
	Detector string  `toml:"detector"`
	Low      float64 `toml:"low"`
	High     float64 `toml:"high"`
}

func defaultConfig() Config {
	opt := textonizer.DefaultOptions()
	return Config{
		Extract: ExtractConfig{
			Clusters:    opt.NumClusters,
			Blur:        "box",
			BlurSize:    3,
			BackgroundX: -1,
			BackgroundY: -1,
		},
		Synth: SynthConfig{
			Width:          512,
			Height:         512,
			DilationRadius: opt.DilationRadius,
			ExtraDilations: opt.ExtraDilations,
			MaxOverlap:     -1,
			SeedCluster:    opt.SeedCluster,
		},
		Segment: SegmentConfig{Method: "features"},
		Edges:   EdgesConfig{Detector: "sobel", Low: 70, High: 90},
	}
}

// loadConfig reads path over the defaults. An empty path returns the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, textonizer.WrapError(textonizer.ErrCodeIO, err, "reading config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, textonizer.NewError(textonizer.ErrCodeInvalidInput, "unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// bindExtractFlags registers the flags shared by every command, defaulting to c's values.
func bindExtractFlags(fs *pflag.FlagSet, c *Config) {
	fs.IntVarP(&c.Extract.Clusters, "clusters", "k", c.Extract.Clusters, "number of texture classes")
	fs.IntVar(&c.Extract.MinTextonSize, "min-texton-size", c.Extract.MinTextonSize, "smallest texton in pixels (0: from image size)")
	fs.StringVar(&c.Extract.Blur, "blur", c.Extract.Blur, "pre-segmentation blur (box, cv, none)")
	fs.IntVar(&c.Extract.BlurSize, "blur-size", c.Extract.BlurSize, "blur kernel size")
	fs.IntVar(&c.Extract.BackgroundX, "bg-x", c.Extract.BackgroundX, "x of a known background pixel (-1: none)")
	fs.IntVar(&c.Extract.BackgroundY, "bg-y", c.Extract.BackgroundY, "y of a known background pixel (-1: none)")

	fs.StringVar(&c.Segment.Method, "segment", c.Segment.Method, "segmenter (features, superpixel, palette-dominantcolor, palette-kmeans)")
	fs.IntVar(&c.Segment.Components, "components", c.Segment.Components, "principal components kept by the features segmenter (0: all)")
	fs.IntVar(&c.Segment.Window, "window", c.Segment.Window, "local lightness window of the features segmenter (0: 5)")
	fs.IntVar(&c.Segment.Superpixels, "superpixels", c.Segment.Superpixels, "SLIC regions of the superpixel segmenter (0: from image size)")

	fs.StringVar(&c.Edges.Detector, "edges", c.Edges.Detector, "edge detector (sobel, canny, none)")
	fs.Float64Var(&c.Edges.Low, "edge-low", c.Edges.Low, "low hysteresis threshold")
	fs.Float64Var(&c.Edges.High, "edge-high", c.Edges.High, "high hysteresis threshold")
}

// bindSynthFlags registers the synthesis flags, defaulting to c's values.
func bindSynthFlags(fs *pflag.FlagSet, c *Config) {
	fs.IntVarP(&c.Synth.Width, "width", "W", c.Synth.Width, "output width")
	fs.IntVarP(&c.Synth.Height, "height", "H", c.Synth.Height, "output height")
	fs.Uint64Var(&c.Synth.Seed, "seed", c.Synth.Seed, "random seed (0: random)")
	fs.IntVar(&c.Synth.DilationRadius, "dilation-radius", c.Synth.DilationRadius, "radius of one dilation step")
	fs.IntVar(&c.Synth.MaxDilations, "max-dilations", c.Synth.MaxDilations, "dilation steps searched for neighbours (0: from image size)")
	fs.IntVar(&c.Synth.ExtraDilations, "extra-dilations", c.Synth.ExtraDilations, "steps searched after the first neighbour")
	fs.Float64Var(&c.Synth.NoiseThreshold, "noise-threshold", c.Synth.NoiseThreshold, "mean dilation area above which a cluster is sparse (0: default)")
	fs.IntVar(&c.Synth.TooCloseDilation, "too-close", c.Synth.TooCloseDilation, "dilation area of crowded textons in sparse clusters (0: default)")
	fs.IntVar(&c.Synth.MaxOverlap, "max-overlap", c.Synth.MaxOverlap, "painted pixels a placement may cover (-1: default)")
	fs.IntVar(&c.Synth.Margin, "margin", c.Synth.Margin, "canvas margin on each side (0: from image size)")
	fs.IntVar(&c.Synth.SeedCluster, "seed-cluster", c.Synth.SeedCluster, "first cluster eligible for the seed texton")
}

// overlayFlags copies every flag explicitly set on cmd into cfg, so flags win over the file.
func overlayFlags(cmd *cobra.Command, cfg *Config, bind ...func(*pflag.FlagSet, *Config)) error {
	dst := pflag.NewFlagSet("overlay", pflag.ContinueOnError)
	for _, b := range bind {
		b(dst, cfg)
	}
	var err error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if err != nil || dst.Lookup(f.Name) == nil {
			return
		}
		err = dst.Set(f.Name, f.Value.String())
	})
	return err
}

// Options maps cfg onto textonizer options scaled for a sample of the given size.
func (cfg Config) Options(size image.Point) textonizer.Options {
	opt := textonizer.OptionsFromSize(size)
	opt.NumClusters = cfg.Extract.Clusters
	if cfg.Extract.MinTextonSize > 0 {
		opt.MinTextonSize = cfg.Extract.MinTextonSize
	}
	if cfg.Extract.BackgroundX >= 0 && cfg.Extract.BackgroundY >= 0 {
		opt.Background = &image.Point{X: cfg.Extract.BackgroundX, Y: cfg.Extract.BackgroundY}
	}

	s := cfg.Synth
	opt.DilationRadius = s.DilationRadius
	opt.ExtraDilations = s.ExtraDilations
	opt.SeedCluster = s.SeedCluster
	if s.MaxDilations > 0 {
		opt.MaxDilations = s.MaxDilations
	}
	if s.NoiseThreshold > 0 {
		opt.NoiseThreshold = s.NoiseThreshold
	}
	if s.TooCloseDilation > 0 {
		opt.TooCloseDilation = s.TooCloseDilation
	}
	if s.MaxOverlap >= 0 {
		opt.MaxOverlap = s.MaxOverlap
	}
	if s.Margin > 0 {
		opt.Margin = s.Margin
	}
	return opt
}

// Rand returns the synthesis source: seeded when Seed is set, random otherwise.
func (cfg Config) Rand() *rand.Rand {
	seed := cfg.Synth.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// collaborators builds the segmenter, edge detector and blurrer named by cfg.
func (cfg Config) collaborators() (textonizer.Segmenter, textonizer.EdgeDetector, textonizer.Blurrer, error) {
	seg, err := utils.NewSegmenter(utils.SegmenterConfig{
		Method:      cfg.Segment.Method,
		Components:  cfg.Segment.Components,
		Window:      cfg.Segment.Window,
		Superpixels: cfg.Segment.Superpixels,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	edges, err := utils.NewEdgeDetector(cfg.Edges.Detector, cfg.Edges.Low, cfg.Edges.High)
	if err != nil {
		return nil, nil, nil, err
	}
	blur, err := utils.NewBlurrer(cfg.Extract.Blur, cfg.Extract.BlurSize)
	if err != nil {
		return nil, nil, nil, err
	}
	return seg, edges, blur, nil
}
