package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/setanarut/textonizer"
	"github.com/setanarut/textonizer/utils"
)

// resolveConfig layers defaults, the --config file and the flags explicitly set on cmd.
func resolveConfig(cmd *cobra.Command, root *rootFlags, bind ...func(*pflag.FlagSet, *Config)) (Config, error) {
	cfg, err := loadConfig(root.configPath)
	if err != nil {
		return cfg, err
	}
	if err := overlayFlags(cmd, &cfg, bind...); err != nil {
		return cfg, textonizer.WrapError(textonizer.ErrCodeInvalidInput, err, "applying flags")
	}
	return cfg, nil
}

// buildSample reads the sample at path, extracts its textons and learns their co-occurrences.
func buildSample(ctx context.Context, cfg Config, path string) (*textonizer.Textonizer, error) {
	logger := loggerFromContext(ctx)

	img, err := utils.ReadImage(path)
	if err != nil {
		return nil, err
	}
	size := img.Bounds().Size()
	logger.Debug("read sample", "path", path, "size", size)

	seg, edges, blur, err := cfg.collaborators()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tz := textonizer.NewTextonizer(img, seg, edges, blur)
	tz.Logger = logger
	tz.Rand = cfg.Rand()

	prog := newProgress(logger)
	if err := tz.Build(cfg.Options(size)); err != nil {
		return nil, err
	}
	prog.done(fmt.Sprintf("Extracted %d textons in %d clusters", textonizer.TextonCount(tz.Clusters), len(tz.Clusters)))
	return tz, nil
}

func summarize(clusters []*textonizer.Cluster) []clusterLine {
	lines := make([]clusterLine, 0, len(clusters))
	for _, c := range clusters {
		l := clusterLine{ID: c.ID, Textons: c.Count(), Background: c.Background}
		for _, t := range c.Textons {
			if len(t.CoOccurrences) > 0 {
				l.Linked++
			}
		}
		lines = append(lines, l)
	}
	return lines
}
