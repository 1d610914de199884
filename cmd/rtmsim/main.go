// Command rtmsim is a thin CLI wrapper around the rtmsim solver
// library. It decodes a TOML configuration file into rtmsim.Config and
// calls rtmsim.Run; it does not parse any mesh file format itself —
// that remains an external collaborator supplied as a
// rtmsim.MeshBuilder implementation. This command wires in noopBuilder,
// which supplies an empty mesh.
package main

import (
	"context"
	"fmt"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rtmsim/rtmsim"
)

var log = logrus.New()

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		log.WithError(err).Fatal("rtmsim failed")
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configPath string

	root := &cobra.Command{
		Use:   "rtmsim",
		Short: "Resin-impregnation finite-area solver",
	}
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation from a TOML configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFromConfig(v, configPath)
		},
	}
	var flags *pflag.FlagSet = runCmd.Flags()
	flags.StringVar(&configPath, "config", "rtmsim.toml", "path to the TOML configuration file")
	flags.Float64("t-max", 0, "override Physics.TMax")
	v.BindPFlag("physics.tmax", flags.Lookup("t-max"))

	root.AddCommand(runCmd)
	return root
}

func runFromConfig(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg, err := decodeConfig(v)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	mesh, _, err := rtmsim.BuildMesh(noopBuilder{}, cfg)
	if err != nil {
		return err
	}

	obs := func(step int, t, dt float64, nCells int) {
		log.WithFields(logrus.Fields{"step": step, "t": t, "dt": dt}).Info("step complete")
	}

	result, err := rtmsim.Run(context.Background(), cfg, mesh, nil, obs)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"steps":     result.Steps,
		"snapshots": result.SnapshotsOut,
		"t":         result.T,
	}).Info("run complete")
	return nil
}

// decodeConfig maps the decoded TOML tree onto rtmsim.Config. Mesh
// geometry itself is never decoded here (spec §1 excludes mesh-file
// parsing from the core); callers embed their own MeshBuilder.
func decodeConfig(v *viper.Viper) (rtmsim.Config, error) {
	var cfg rtmsim.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

// noopBuilder is a placeholder MeshBuilder for the CLI skeleton: it
// returns no nodes, triangles or patches, and it is the only builder
// this command uses.
type noopBuilder struct{}

func (noopBuilder) Nodes() []rtmsim.NodeInput         { return nil }
func (noopBuilder) Triangles() []rtmsim.TriangleInput { return nil }
func (noopBuilder) Patches() []rtmsim.PatchConfig     { return nil }
