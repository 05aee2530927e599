package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/youruser/bannerapp/internal/config"
	"github.com/youruser/bannerapp/internal/export"
	"github.com/youruser/bannerapp/internal/notify"
	"github.com/youruser/bannerapp/internal/session"
	"github.com/youruser/bannerapp/internal/util"
	"github.com/youruser/bannerapp/internal/validate"
)

type composeOptions struct {
	template   string
	size       string
	out        string
	validation string
	naming     string
}

func newComposeCmd(flags *globalFlags) *cobra.Command {
	opts := composeOptions{}

	cmd := &cobra.Command{
		Use:   "compose [flags] VISUAL...",
		Short: "Build banners from image files",
		Long: `Composites each VISUAL onto the template at the selected size and writes
the result to --out: a single banner_<size>.<ext> for one visual, or
banners.zip with one entry per visual, in argument order.`,
		Example: `  bannerapp compose --template bg.png --size 315x186 promo.png
  bannerapp compose -t bg.png -s 232x232 --naming source -o out/ a.png b.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompose(cmd, flags, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "template image file (required)")
	cmd.Flags().StringVarP(&opts.size, "size", "s", "", "banner size id, see 'bannerapp sizes' (required)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&opts.validation, "validation", "", "aspect or exact (overrides config)")
	cmd.Flags().StringVar(&opts.naming, "naming", "", "archive entry naming: index or source (overrides config)")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("size")

	return cmd
}

func runCompose(cmd *cobra.Command, flags *globalFlags, opts composeOptions, visuals []string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	out := cmd.OutOrStdout()

	cfg, err := config.Load(flags.config)
	if err != nil {
		return err
	}
	mode := cfg.ValidationMode()
	if opts.validation != "" {
		if mode, err = validate.ParseMode(opts.validation); err != nil {
			return err
		}
	}
	naming := cfg.NamingMode()
	if opts.naming != "" {
		if naming, err = export.ParseNaming(opts.naming); err != nil {
			return err
		}
	}

	st := session.New(session.Options{
		Validator: validate.New(mode),
		Naming:    naming,
		Logger:    logger,
		Sink:      notify.LogSink{Logger: logger},
	})

	tmpl, err := readInput(opts.template)
	if err != nil {
		return err
	}
	if err := st.LoadTemplate(ctx, tmpl); err != nil {
		return err
	}
	if err := st.SelectSize(ctx, opts.size); err != nil {
		return err
	}

	inputs := make([]session.Input, 0, len(visuals))
	for _, path := range visuals {
		in, err := readInput(path)
		if err != nil {
			return err
		}
		inputs = append(inputs, in)
	}
	if err := st.LoadVisuals(ctx, inputs); err != nil {
		if len(st.Snapshot().Visuals) == 0 {
			return err
		}
		printWarning(out, "skipping visuals that do not fit %s", opts.size)
	}

	art, err := st.Export(ctx)
	if err != nil {
		return err
	}

	if err := util.EnsureDir(opts.out); err != nil {
		return fmt.Errorf("creating %s: %w", opts.out, err)
	}
	path := filepath.Join(opts.out, art.Filename)
	if err := os.WriteFile(path, art.Data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	printSuccess(out, "%d banner(s) at %s", len(art.Entries), opts.size)
	printFile(out, path)
	return nil
}

func readInput(path string) (session.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return session.Input{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return session.BytesInput(filepath.Base(path), data), nil
}
