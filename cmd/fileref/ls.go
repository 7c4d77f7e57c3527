package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dennwc/fileref/location"
)

func init() {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"l", "ls"},
		Short:   "list blob names in a location",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdCtx
			flags := cmd.Flags()
			reg, err := openRegistry(ctx, flags)
			if err != nil {
				return err
			}
			loc, _ := flags.GetString("location")
			l, ok := reg.Get(loc).(location.Lister)
			if !ok {
				return fmt.Errorf("location %q cannot list blobs", loc)
			}
			names, err := l.List(ctx, loc)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
	Root.AddCommand(cmd)
}
