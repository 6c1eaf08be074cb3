package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pingcap-incubator/tinydb/kv/config"
	"github.com/pingcap-incubator/tinydb/kv/datastore"
	"github.com/pingcap-incubator/tinydb/log"
)

var (
	path       string
	configFile string

	globalContext context.Context
	globalCancel  context.CancelFunc
)

// openDatastore builds the datastore from the config file, if any, and the --path flag, which wins.
func openDatastore(ctx context.Context) (*datastore.Datastore, error) {
	conf := config.NewDefaultConfig()
	if configFile != "" {
		var err error
		if conf, err = config.LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	if path != "" {
		conf.Path = path
	}
	return datastore.NewFromConfig(ctx, conf)
}

// withDatastore opens the datastore, checks its version and runs fn.
func withDatastore(fn func(ctx context.Context, ds *datastore.Datastore) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ds, err := openDatastore(globalContext)
		if err != nil {
			return err
		}
		defer ds.Close()
		if _, err := ds.CheckVersion(globalContext); err != nil {
			return err
		}
		return fn(globalContext, ds)
	}
}

func main() {
	globalContext, globalCancel = context.WithCancel(context.Background())

	sc := make(chan os.Signal, 1)
	signal.Notify(sc,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		sig := <-sc
		log.Infof("got signal [%v] to exit", sig)
		globalCancel()
	}()

	rootCmd := &cobra.Command{
		Use:           "tinydb-ctl",
		Short:         "Inspect and maintain a tinydb datastore",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&path, "path", "", "datastore connection string, e.g. memory or badger:///var/lib/tinydb")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "TOML config file")

	rootCmd.AddCommand(
		newVersionCommand(),
		newBootstrapCommand(),
		newExportCommand(),
		newGCCommand(),
		newNodesCommand(),
	)

	err := rootCmd.Execute()
	globalCancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
