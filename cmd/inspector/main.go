package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gekko3d/inspector"
	"github.com/gekko3d/inspector/transport"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "inspector",
		Short: "Overlay diagnostic visuals onto a simulated world",
		Long: `Inspector loads a world preset, mirrors it into a scene graph and
serves toggle requests for wireframe, transparency, center of mass,
inertia and collision overlays.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "TOML config file")
	rootCmd.PersistentFlags().String("world", "", "YAML world preset, overrides world.preset")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the step and render loops and serve toggle requests",
		RunE:  runInspector,
	}
	runCmd.Flags().Bool("debug", false, "Enable debug logging")
	runCmd.Flags().Bool("window", false, "Open a window, overrides loop.window")

	namesCmd := &cobra.Command{
		Use:   "names",
		Short: "List the renderer object names of a world preset",
		RunE:  runNames,
	}

	toggleCmd := &cobra.Command{
		Use:   "toggle <wireframe|transparent|com|inertia|collision> <name>",
		Short: "Send one toggle request to a running inspector",
		Args:  cobra.ExactArgs(2),
		RunE:  runToggle,
	}
	toggleCmd.Flags().String("url", "", "Websocket url, defaults to the configured server")

	rootCmd.AddCommand(runCmd, namesCmd, toggleCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*inspector.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg := inspector.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = inspector.Load(path); err != nil {
			return nil, err
		}
	}
	if world, _ := cmd.Flags().GetString("world"); world != "" {
		cfg.World.Preset = world
	}
	if err := inspector.AddResourcePaths(cfg.World.ResourcePaths); err != nil {
		return nil, fmt.Errorf("resource paths: %w", err)
	}
	return cfg, nil
}

func runInspector(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	if window, _ := cmd.Flags().GetBool("window"); window {
		cfg.Loop.Window = true
	}

	app := inspector.NewApp().UseModules(
		inspector.LoggingModule{
			Prefix: cfg.Logging.Prefix,
			Debug:  debug,
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		},
		inspector.TimeModule{Dt: cfg.Loop.StepRate},
		inspector.RendererModule{},
		inspector.SceneSyncModule{},
	)
	log := app.Logger()

	zl := zap.NewNop()
	if z, ok := log.(*inspector.ZapLogger); ok {
		zl = z.Zap()
		defer z.Sync()
	}
	node := transport.NewNode(zl.Named("node"))

	app.UseModules(inspector.VisualizationModule{
		ProbeStart:   cfg.Overlay.IdProbeStart,
		ProbeCeiling: cfg.Overlay.IdProbeCeiling,
		Delimiter:    cfg.Overlay.Delimiter,
		Services:     cfg.Overlay.Services,
		Node:         node,
	})
	if cfg.World.Preset != "" {
		app.UseModules(inspector.PresetModule{Path: cfg.World.Preset})
	}
	if cfg.Loop.Window {
		app.UseModules(
			inspector.PlatformWindowModule{Width: cfg.Loop.Width, Height: cfg.Loop.Height},
			inspector.InputModule{},
		)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Enabled {
		bridge := transport.NewWebsocketBridge(node, zl.Named("bridge"))
		mux := http.NewServeMux()
		mux.Handle(cfg.Server.Path, bridge)
		srv := &http.Server{Addr: cfg.Server.BindAddress, Handler: mux}
		go func() {
			log.Infof("serving %v on ws://%s%s", node.Services(), cfg.Server.BindAddress, cfg.Server.Path)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("server: %v", err)
				stop()
			}
		}()
		defer func() {
			bridge.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if err := app.Run(ctx, cfg.Loop.StepRate, cfg.Loop.RenderRate); err != nil {
		return err
	}
	if engine, ok := inspector.Resource[inspector.OverlayEngine](app); ok {
		st := engine.Stats()
		log.Infof("requests=%d resolved=%d dropped=%d created=%d destroyed=%d",
			st.Requests, st.Resolved, st.Dropped, st.Created, st.Destroyed)
	}
	return nil
}

func runNames(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.World.Preset == "" {
		return fmt.Errorf("no world preset, pass --world or set world.preset")
	}

	app := inspector.NewApp().UseModules(
		inspector.RendererModule{},
		inspector.SceneSyncModule{},
	)
	if _, err := inspector.LoadWorldFile(app.Commands(), cfg.World.Preset); err != nil {
		return err
	}
	app.Step()
	app.RenderFrame()

	ecs := app.Ecs()
	out := cmd.OutOrStdout()
	for _, vis := range app.Scene().Visuals() {
		entity, ok := inspector.EntityOfVisual(vis)
		if !ok || inspector.IsOverlayVisual(vis) {
			continue
		}
		pose, _ := inspector.WorldPose(ecs, entity)
		pos := pose.Position
		fmt.Fprintf(out, "%-10s %-40s %-40s (%.3f, %.3f, %.3f)\n",
			inspector.EntityKindOf(ecs, entity), vis.Name(),
			inspector.ScopedName(ecs, entity, cfg.Overlay.Delimiter, false),
			pos[0], pos[1], pos[2])
	}
	return nil
}

func runToggle(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	c, ok := inspector.ParseCapability(args[0])
	if !ok {
		return fmt.Errorf("unknown capability %q", args[0])
	}
	url, _ := cmd.Flags().GetString("url")
	if url == "" {
		url = "ws://" + cfg.Server.BindAddress + cfg.Server.Path
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	client, err := transport.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer client.Close()

	services := cfg.Overlay.Services
	service := services.For(c)
	if service == "" {
		service = inspector.DefaultServiceNames().For(c)
	}
	ack, err := client.Request(service, args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %t\n", service, args[1], ack)
	return nil
}
