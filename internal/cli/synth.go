package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/setanarut/textonizer"
	"github.com/setanarut/textonizer/utils"
)

func newSynthCmd(root *rootFlags) *cobra.Command {
	var output string
	cfg := defaultConfig()

	cmd := &cobra.Command{
		Use:   "synth <sample>",
		Short: "Grow a new texture image from a sample",
		Long:  `Synth extracts the textons of the sample, learns their neighbourhoods and tiles them on a new canvas of the requested size.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			resolved, err := resolveConfig(cmd, root, bindExtractFlags, bindSynthFlags)
			if err != nil {
				return err
			}
			tz, err := buildSample(ctx, resolved, args[0])
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			prog := newProgress(logger)
			out, err := tz.Synthesize(resolved.Synth.Width, resolved.Synth.Height)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Synthesized %dx%d", out.Rect.Dx(), out.Rect.Dy()))
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := utils.SaveImage(out, output); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printSuccess(w, "Synthesized %s", StyleValue.Render(args[0]))
			printKeyValue(w, "Size", fmt.Sprintf("%dx%d", out.Rect.Dx(), out.Rect.Dy()))
			printKeyValue(w, "Textons", fmt.Sprint(textonizer.TextonCount(tz.Clusters)))
			printFile(w, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "synthesized.png", "output PNG file")
	bindExtractFlags(cmd.Flags(), &cfg)
	bindSynthFlags(cmd.Flags(), &cfg)
	return cmd
}
