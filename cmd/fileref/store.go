package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dennwc/fileref"
	"github.com/dennwc/fileref/stream"
)

func init() {
	cmd := &cobra.Command{
		Use:   "store file",
		Short: "convert a file to a record: write the raw blob and print its reference",
		Args:  cobra.ExactArgs(1),
		RunE: columnCmd(func(ctx context.Context, col *fileref.Column, flags *pflag.FlagSet, args []string) error {
			out, _ := flags.GetString("out")

			f, err := stream.OpenFile(args[0])
			if err != nil {
				return err
			}
			rec, err := col.Dump(f)
			if err != nil {
				return err
			}
			switch out {
			case "":
			case "-":
				if _, err = os.Stdout.Write(rec.Blob); err != nil {
					return err
				}
				fmt.Fprintln(os.Stderr, rec.Info)
				return nil
			default:
				if err = os.WriteFile(out, rec.Blob, 0644); err != nil {
					return err
				}
			}
			fmt.Println(rec.Info, humanize.Bytes(uint64(len(rec.Blob))))
			return nil
		}),
	}
	cmd.Flags().StringP("out", "o", "", "file to write the raw blob to; \"-\" for stdout")
	Root.AddCommand(cmd)
}
