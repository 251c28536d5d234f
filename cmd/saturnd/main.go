// Command saturnd launches a bundle of microservices from a single
// configuration file.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cihub/seelog"
	zmq "github.com/pebbe/zmq4"
	"github.com/spf13/cobra"

	"github.com/FirebirdSQL/saturnin-sub000/bundle"
	"github.com/FirebirdSQL/saturnin-sub000/internal/config"
	"github.com/FirebirdSQL/saturnin-sub000/internal/logging"
	"github.com/FirebirdSQL/saturnin-sub000/internal/metrics"
)

func main() {
	var configPath string
	var startTimeout time.Duration

	root := &cobra.Command{
		Use:   "saturnd",
		Short: "Runs a bundle of Firebird Butler microservices from a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, startTimeout)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to the bundle configuration file (required)")
	root.Flags().DurationVar(&startTimeout, "start-timeout", 5*time.Second, "per-component start timeout")
	_ = root.MarkFlagRequired("config")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, startTimeout time.Duration) error {
	logger, err := seelog.LoggerFromConfigAsString(defaultLogConfig)
	if err == nil {
		logging.SetLogger(logger)
		defer logging.Flush()
	}

	tree, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, err := zmq.NewContext()
	if err != nil {
		return err
	}
	defer ctx.Term()

	metricsSet := metrics.NewSet(nil, "saturnd")

	registry, instances, err := loadBundleSpec(tree)
	if err != nil {
		return err
	}

	b := bundle.New(ctx, metricsSet, registry, tree)
	if err := b.Start(instances, startTimeout); err != nil {
		return err
	}
	logging.Info("saturnd: bundle started")

	if err := b.Join(0); err != nil {
		logging.Warnf("saturnd: join reported: %v", err)
	}
	return nil
}

const defaultLogConfig = `
<seelog minlevel="info">
	<outputs formatid="main">
		<console/>
	</outputs>
	<formats>
		<format id="main" format="%Date %Time [%LEVEL] %Msg%n"/>
	</formats>
</seelog>`
