package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/setanarut/textonizer/utils"
)

func newExtractCmd(root *rootFlags) *cobra.Command {
	var output string
	cfg := defaultConfig()

	cmd := &cobra.Command{
		Use:   "extract <sample>",
		Short: "Dump the textons and label maps of a sample",
		Long: `Extract runs texton extraction and co-occurrence analysis on the sample and writes
every texton patch to <output>/cluster_NN/, one false-color label map per cluster to <output>/labels_NN.png
and the cluster owning each pixel to <output>/owners.png.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

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

			n, err := utils.SaveTextons(tz.Clusters, output)
			if err != nil {
				return err
			}
			if err := utils.SaveLabelMaps(tz.Maps, output); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printSuccess(w, "Extracted %s", StyleValue.Render(args[0]))
			printKeyValue(w, "Textons", fmt.Sprint(n))
			printKeyValue(w, "Label maps", fmt.Sprint(len(tz.Maps.Layers)))
			printClusters(w, summarize(tz.Clusters))
			printFile(w, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "textons", "output directory")
	bindExtractFlags(cmd.Flags(), &cfg)
	bindSynthFlags(cmd.Flags(), &cfg)
	return cmd
}
