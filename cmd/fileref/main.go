package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dennwc/fileref"
	"github.com/dennwc/fileref/config"
	"github.com/dennwc/fileref/location"

	_ "github.com/dennwc/fileref/location/gcsloc"
	_ "github.com/dennwc/fileref/location/httploc"
)

var (
	Root = &cobra.Command{
		Use:               "fileref [command]",
		Short:             "Tools to manage blobs stored as name and digest references",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	cmdCtx = context.Background()
)

func init() {
	flags := Root.PersistentFlags()
	flags.StringP("config", "c", "", "path to a config file with locations")
	flags.StringP("location", "l", "", "location key; empty selects the default root")
	flags.BoolP("verbose", "v", false, "enable debug logs")
}

func setup(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	lvl := slog.LevelInfo
	if verbose {
		lvl = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      lvl,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})))
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cobra.OnFinalize(stop)
	cmdCtx = ctx
	return nil
}

func openRegistry(ctx context.Context, flags *pflag.FlagSet) (*location.Registry, error) {
	path, _ := flags.GetString("config")
	if path == "" {
		return location.NewRegistry(nil), nil
	}
	conf, err := config.ReadConfig(path)
	if err != nil {
		return nil, err
	}
	return conf.Registry(ctx, slog.Default())
}

type columnFunc func(ctx context.Context, col *fileref.Column, flags *pflag.FlagSet, args []string) error

// columnCmd opens a column for the location selected by flags.
func columnCmd(fnc columnFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmdCtx
		flags := cmd.Flags()
		reg, err := openRegistry(ctx, flags)
		if err != nil {
			return err
		}
		loc, _ := flags.GetString("location")
		verify, _ := flags.GetBool("verify")
		col := fileref.NewColumn(reg, &fileref.Options{
			Location: loc,
			Verify:   verify,
			Logger:   slog.Default(),
		})
		return fnc(ctx, col, flags, args)
	}
}

func main() {
	if err := Root.Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}
