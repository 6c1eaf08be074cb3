package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pingcap/errors"
	"github.com/spf13/cobra"

	"github.com/pingcap-incubator/tinydb/kv/clock"
	"github.com/pingcap-incubator/tinydb/kv/datastore"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the storage version, recording it on a new volume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := openDatastore(globalContext)
			if err != nil {
				return err
			}
			defer ds.Close()
			v, err := ds.GetVersion(globalContext)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "storage version %d (latest %d)\n", v, datastore.LatestVersion)
			return nil
		},
	}
}

func newBootstrapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Register this node and clean up expired nodes",
		Args:  cobra.NoArgs,
		RunE: withDatastore(func(ctx context.Context, ds *datastore.Datastore) error {
			if err := ds.Bootstrap(ctx); err != nil {
				return err
			}
			fmt.Printf("bootstrapped node %s\n", ds.NodeID())
			return nil
		}),
	}
}

func newExportCommand() *cobra.Command {
	var ns, db, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a script recreating a database",
		Args:  cobra.NoArgs,
		RunE: withDatastore(func(ctx context.Context, ds *datastore.Datastore) error {
			w := os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return errors.Trace(err)
				}
				defer f.Close()
				w = f
			}
			return ds.Export(ctx, ns, db, w)
		}),
	}
	cmd.Flags().StringVar(&ns, "ns", "", "namespace")
	cmd.Flags().StringVar(&db, "db", "", "database")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file, stdout when empty")
	cmd.MarkFlagRequired("ns")
	cmd.MarkFlagRequired("db")
	return cmd
}

func newGCCommand() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Garbage collect expired change feed entries",
		Args:  cobra.NoArgs,
		RunE: withDatastore(func(ctx context.Context, ds *datastore.Datastore) error {
			if at == "" {
				return ds.ChangefeedProcess(ctx)
			}
			t, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return errors.Annotatef(err, "invalid --at %q", at)
			}
			return ds.ChangefeedProcessAt(ctx, clock.FromTime(t))
		}),
	}
	cmd.Flags().StringVar(&at, "at", "", "collect as of this RFC 3339 time, ignoring the task lease")
	return cmd
}

func newNodesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List the nodes of the cluster",
		Args:  cobra.NoArgs,
		RunE: withDatastore(func(ctx context.Context, ds *datastore.Datastore) error {
			nds, err := ds.Nodes(ctx)
			if err != nil {
				return err
			}
			for _, nd := range nds {
				state := "active"
				if !nd.IsActive() {
					state = "archived"
				}
				fmt.Printf("%s\t%s\t%s\n", nd.ID, state, nd.Heartbeat.Time().Format(time.RFC3339))
			}
			return nil
		}),
	}
}
