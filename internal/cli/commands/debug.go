package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/layerlint/internal/cli/output"
	"github.com/leapstack-labs/layerlint/pkg/core"
	"github.com/spf13/cobra"
)

// NewDebugCommand creates the debug command group.
func NewDebugCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Inspect layer membership",
		Long: `Inspect how entities are assigned to layers without evaluating rules.

Useful when writing collectors: check which entities a layer picks up,
which layers claim a given entity, and what is left unassigned.`,
	}

	cmd.AddCommand(newDebugLayerCommand())
	cmd.AddCommand(newDebugEntityCommand())
	cmd.AddCommand(newDebugUnassignedCommand())
	return cmd
}

func newDebugLayerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "layer [layer]",
		Short: "List the entities of each layer",
		Long: `List the entities collected into each declared layer, one table per layer.

With a layer name, only that layer is shown.`,
		Example: `  # All layers
  layerlint debug layer

  # One layer, from a specific depfile
  layerlint debug layer Controller --depfile deps/layers.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runDebugLayer(cmd.Context(), cc, name)
		},
	}
}

// layerMembers pairs a layer with its entities.
type layerMembers struct {
	Layer    string   `json:"layer"`
	Entities []string `json:"entities"`
}

func runDebugLayer(ctx context.Context, cc *CommandContext, name string) error {
	cfg, err := loadConfiguration(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	a := cc.NewAnalyser()

	var members []layerMembers
	if name != "" {
		entities, err := a.AnalyseLayer(ctx, cfg, name)
		if errors.Is(err, core.ErrNotFound) {
			cc.Renderer.Println("Layer not found.")
			return fmt.Errorf("layer %q: %w", name, err)
		}
		if err != nil {
			return err
		}
		members = append(members, layerMembers{Layer: name, Entities: entities})
	} else {
		res, err := a.Analyse(ctx, cfg)
		if err != nil {
			return err
		}
		for _, l := range res.Layers() {
			entities, err := res.EntitiesOf(l)
			if err != nil {
				return err
			}
			members = append(members, layerMembers{Layer: l, Entities: entities})
		}
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(members)
	}
	for i, m := range members {
		if i > 0 {
			r.Println("")
		}
		r.Table([]string{m.Layer}, singleColumn(m.Entities))
	}
	return nil
}

func newDebugEntityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "entity <id>",
		Short: "Show the layers an entity belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebugEntity(cmd.Context(), NewCommandContext(cmd), args[0])
		},
	}
}

func runDebugEntity(ctx context.Context, cc *CommandContext, id string) error {
	cfg, err := loadConfiguration(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	res, err := cc.NewAnalyser().Analyse(ctx, cfg)
	if err != nil {
		return err
	}
	layers, err := res.LayersOf(id)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(struct {
			Entity string   `json:"entity"`
			Layers []string `json:"layers"`
		}{id, layers})
	}
	if len(layers) == 0 {
		r.Println(id + " is not in any layer.")
		return nil
	}
	r.Table([]string{id}, singleColumn(layers))
	return nil
}

func newDebugUnassignedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unassigned",
		Short: "List entities that are in no layer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDebugUnassigned(cmd.Context(), NewCommandContext(cmd))
		},
	}
}

func runDebugUnassigned(ctx context.Context, cc *CommandContext) error {
	cfg, err := loadConfiguration(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	res, err := cc.NewAnalyser().Analyse(ctx, cfg)
	if err != nil {
		return err
	}
	unassigned := res.Unassigned()

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string][]string{"unassigned": unassigned})
	}
	if len(unassigned) == 0 {
		r.Success("Every entity belongs to at least one layer.")
		return nil
	}
	r.Table([]string{"Unassigned"}, singleColumn(unassigned))
	return nil
}

func singleColumn(values []string) [][]string {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{v}
	}
	return rows
}
