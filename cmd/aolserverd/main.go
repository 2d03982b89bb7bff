/*
 * MIT License
 *
 * Copyright (c) 2019 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Command aolserverd is the process entrypoint: a github.com/spf13/cobra
// root command that loads the config package's §6 surface, assembles a
// server.Server, and drives bootstrap → serve → shutdown, the way the
// teacher's cobra-driven subcommands wrap a Cobra.Execute() call rather
// than a bare flag.Parse().
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aolserver/aolserver-sub004/config"
	"github.com/aolserver/aolserver-sub004/driver"
	"github.com/aolserver/aolserver-sub004/limits"
	"github.com/aolserver/aolserver-sub004/logging"
	"github.com/aolserver/aolserver-sub004/pidfile"
	"github.com/aolserver/aolserver-sub004/server"
)

type rootFlags struct {
	configPath string
	pidPath    string
	foreground bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "aolserverd",
		Short: "aolserverd runs the request-serving runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags)
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to the YAML config file (default: search ./aolserverd.yaml, /etc/aolserverd)")
	root.PersistentFlags().StringVar(&flags.pidPath, "pidfile", "", "pid file path (overrides the config file's pidfile key)")
	root.PersistentFlags().BoolVar(&flags.foreground, "foreground", true, "keep the colorized TTY log hook instead of the plain one used for a detached/daemonized run")

	root.AddCommand(newConfigCommand(flags))

	return root
}

// newConfigCommand adds the "config dump" introspection subcommand, the
// yaml.v3-marshalled counterpart to the /introspect HTTP endpoint a
// running server exposes for limits/caches (server.monitorServer).
func newConfigCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "print the fully-defaulted, decoded config as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			out, err := cfg.DumpYAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})
	return cmd
}

func runServe(ctx context.Context, flags *rootFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("aolserverd: %w", err)
	}

	pidPath := flags.pidPath
	if pidPath == "" {
		pidPath = cfg.PIDFile
	}

	// foreground keeps logging.New's default colorized TTY hook (w=nil);
	// a detached/daemonized run writes plain, uncolored lines instead.
	var logWriter io.Writer
	if !flags.foreground {
		logWriter = os.Stdout
	}
	log := logging.New(logWriter, logging.ParseLevel(cfg.LogLevel))

	srv := server.New(cfg.ServerConfig(log, nil))
	srv.RegisterDriver(driver.NewTCPDriver(driver.TCPConfig{
		Name:     "nssock",
		Address:  cfg.Listen.Address,
		Port:     cfg.Listen.Port,
		Location: cfg.Listen.Location,
	}))
	srv.Limits().Get(limits.DefaultName, true).Configure(
		cfg.Limits.Default.MaxRun, cfg.Limits.Default.MaxWait,
		cfg.Limits.Default.MaxUpload, cfg.Limits.Default.Timeout,
	)

	startCtx, startCancel := context.WithCancel(ctx)
	defer startCancel()
	if err := srv.Start(startCtx); err != nil {
		return fmt.Errorf("aolserverd: start: %w", err)
	}
	log.Infof("listening on %s:%d (pid %d)", cfg.Listen.Address, cfg.Listen.Port, os.Getpid())

	if err := pidfile.Create(pidPath, log); err != nil {
		return fmt.Errorf("aolserverd: pidfile: %w", err)
	}

	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	if flags.configPath != "" {
		onReload := func(c *config.Config) { c.ApplyLive(srv) }
		if w, werr := config.NewWatcher(flags.configPath, onReload, log); werr != nil {
			log.Warnf("config: live-reload disabled: %v", werr)
		} else {
			go w.Run(watchCtx)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Infof("received %s, shutting down", sig)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	stopErr := srv.Stop(shutdownCtx)

	pidfile.Remove(pidPath, log)

	return stopErr
}
