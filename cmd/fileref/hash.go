package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dennwc/fileref/stream"
	"github.com/dennwc/fileref/transfer"
	"github.com/dennwc/fileref/types"
)

func init() {
	hashCmd := &cobra.Command{
		Use:     "hash [file...]",
		Aliases: []string{"sum"},
		Short:   "print references of files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				name, _ := cmd.Flags().GetString("name")
				sd, err := types.Hash(os.Stdin)
				if err != nil {
					return err
				}
				ref, err := types.NewRef(name, sd.Digest)
				if err != nil {
					return err
				}
				fmt.Println(ref)
				return nil
			}
			for _, name := range args {
				err := filepath.Walk(name, func(name string, info os.FileInfo, err error) error {
					if err != nil {
						return err
					} else if info.IsDir() {
						return nil
					}
					f, err := stream.OpenFile(name)
					if err != nil {
						return err
					}
					rc, err := f.Reader()
					if err != nil {
						return err
					}
					defer rc.Close()
					hw := transfer.NewHashWriter()
					if _, err = transfer.Copy(hw, rc); err != nil {
						return err
					}
					ref, err := types.NewRef(f.Name(), hw.Sum().Digest)
					if err != nil {
						return err
					}
					fmt.Println(ref, name)
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
	hashCmd.Flags().String("name", "stdin", "blob name to use for stdin")
	Root.AddCommand(hashCmd)
}
