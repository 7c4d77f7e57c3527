package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/dennwc/fileref/location/httploc"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve blobs of a location over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("unexpected argument")
			}
			ctx := cmdCtx
			flags := cmd.Flags()
			host, _ := flags.GetString("host")
			loc, _ := flags.GetString("location")
			reg, err := openRegistry(ctx, flags)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Addr:    host,
				Handler: httploc.NewServer(reg.Get(loc), loc, "/"),
			}
			go func() {
				<-ctx.Done()
				srv.Close()
			}()
			slog.Info("listening", "host", host, "location", loc)
			if err = srv.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("host", "localhost:9080", "host to listen on")
	Root.AddCommand(cmd)
}
