package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dennwc/fileref"
	"github.com/dennwc/fileref/types"
)

func init() {
	cmd := &cobra.Command{
		Use:   "resolve ref [blob]",
		Short: "resolve a reference, materializing it from a raw blob file (or stdin) if necessary",
		Args:  cobra.RangeArgs(1, 2),
		RunE: columnCmd(func(ctx context.Context, col *fileref.Column, flags *pflag.FlagSet, args []string) error {
			ref, err := types.ParseRef(args[0])
			if err != nil {
				return err
			}
			_, need, err := col.Resolve(ctx, ref)
			if err != nil {
				return err
			}
			var raw io.Reader
			if need {
				if len(args) == 1 || args[1] == "-" {
					raw = os.Stdin
				} else {
					f, err := os.Open(args[1])
					if err != nil {
						return err
					}
					defer f.Close()
					raw = f
				}
			}
			h, err := col.Load(ctx, raw, args[0])
			if err != nil {
				return err
			}
			state := "resolved"
			if need {
				state = "materialized"
			}
			fmt.Println(h.Provenance(), state)
			return nil
		}),
	}
	cmd.Flags().Bool("verify", false, "verify the digest of the materialized content")
	Root.AddCommand(cmd)

	catCmd := &cobra.Command{
		Use:     "cat ref...",
		Aliases: []string{"get", "dump"},
		Short:   "dump content of resolved blob(s) to stdout",
		Args:    cobra.MinimumNArgs(1),
		RunE: columnCmd(func(ctx context.Context, col *fileref.Column, flags *pflag.FlagSet, args []string) error {
			for _, arg := range args {
				ref, err := types.ParseRef(arg)
				if err != nil {
					return err
				}
				h, need, err := col.Resolve(ctx, ref)
				if err != nil {
					return err
				} else if need {
					return fmt.Errorf("blob %q is not materialized", ref.Name)
				}
				rc, err := h.Reader()
				if err != nil {
					return err
				}
				_, err = io.Copy(os.Stdout, rc)
				rc.Close()
				if err != nil {
					return err
				}
			}
			return nil
		}),
	}
	Root.AddCommand(catCmd)
}
