// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command statsfsd mounts a demo statstree and metricsexport surface
// under a real FUSE mountpoint. It exists to exercise the library
// packages end to end the way cc-backend's own main binary exercises
// internal/memorystore and friends; a real producer would build its
// own tree instead of the synthetic cluster/host/socket one here.
package main

import (
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"unsafe"

	"github.com/google/gops/agent"
	"github.com/joho/godotenv"
	"golang.org/x/sys/unix"

	"github.com/ClusterCockpit/cc-statsfs/internal/config"
	"github.com/ClusterCockpit/cc-statsfs/internal/statsfuse"
	"github.com/ClusterCockpit/cc-statsfs/pkg/log"
	"github.com/ClusterCockpit/cc-statsfs/pkg/metricsexport"
	"github.com/ClusterCockpit/cc-statsfs/pkg/runtimeEnv"
	"github.com/ClusterCockpit/cc-statsfs/pkg/statstree"
)

// socketCounters is the backing struct for the leaves of the demo
// tree, one per CPU socket.
type socketCounters struct {
	cyclesTotal uint64
	instrTotal  uint64
	tempMilliC  int32
}

func socketValues() *statstree.ValueArray {
	arr := statstree.ValueArray{
		statstree.NewValueDescriptor("cycles", "cpu cycles retired", unsafe.Offsetof(socketCounters{}.cyclesTotal), statstree.KindU64, statstree.AggrSum, statstree.FlagCumulative, 0),
		statstree.NewValueDescriptor("instructions", "instructions retired", unsafe.Offsetof(socketCounters{}.instrTotal), statstree.KindU64, statstree.AggrSum, statstree.FlagCumulative, 0),
		statstree.NewValueDescriptor("temp_milli_c", "socket temperature", unsafe.Offsetof(socketCounters{}.tempMilliC), statstree.KindS32, statstree.AggrMax, statstree.FlagGauge, 0),
	}
	return &arr
}

// buildDemoTree assembles cluster -> host -> socket, with every level
// above the leaves carrying a pure aggregate binding (same ValueArray,
// Base == nil) of the leaf schema.
func buildDemoTree() (*statstree.Source, []*socketCounters) {
	arr := socketValues()
	var leaves []*socketCounters

	cluster := statstree.Create("emmy", "cluster")
	if err := cluster.AddBinding(arr, nil); err != nil {
		log.Warnf("[STATSFSD]> binding cluster aggregate: %s", err.Error())
	}

	for h := 0; h < 2; h++ {
		host := statstree.Create("host%d", "host", h)
		if err := host.AddBinding(arr, nil); err != nil {
			log.Warnf("[STATSFSD]> binding host aggregate: %s", err.Error())
		}

		for s := 0; s < 2; s++ {
			backing := &socketCounters{
				cyclesTotal: uint64(1000 * (h + 1) * (s + 1)),
				instrTotal:  uint64(500 * (h + 1) * (s + 1)),
				tempMilliC:  int32(45000 + 1000*s),
			}
			leaves = append(leaves, backing)

			socket := statstree.Create("cpu%d", "socket", s)
			if err := socket.AddBinding(arr, unsafe.Pointer(backing)); err != nil {
				log.Warnf("[STATSFSD]> binding socket leaf: %s", err.Error())
			}
			host.AddSubordinate(socket)
			socket.Put()
		}

		cluster.AddSubordinate(host)
		host.Put()
	}

	return cluster, leaves
}

// buildDemoModule registers one metricsexport.Module with a single
// cumulative metric, so the mount also exercises the
// annotations/fields/values/version surface alongside the stats tree.
func buildDemoModule() *metricsexport.Module {
	mod := metricsexport.NewModule("demo")
	metric := metricsexport.NewMetric("requests", "synthetic request counter", "endpoint", "", metricsexport.ValueInt, true, func(e *metricsexport.Emitter) {
		e.EmitInt(128, "login")
		e.EmitInt(4096, "status")
	})
	if err := mod.AddMetric(metric); err != nil {
		log.Warnf("[STATSFSD]> registering demo metric: %s", err.Error())
	}
	return mod
}

// applyMountOptions translates the config's pointer-shaped uid/gid
// (nil meaning "not given") into concrete credentials, defaulting to
// this process's own real uid/gid via golang.org/x/sys/unix the way a
// FUSE daemon typically owns the files it exposes unless told
// otherwise.
func applyMountOptions(opts *statsfuse.Options, mo config.MountOptions) {
	if mo.UID != nil {
		opts.UID = *mo.UID
	} else {
		opts.UID = uint32(unix.Getuid())
	}
	if mo.GID != nil {
		opts.GID = *mo.GID
	} else {
		opts.GID = uint32(unix.Getgid())
	}
	opts.AllowOther = mo.AllowOther
	if mo.Mode != "" {
		if mode, err := strconv.ParseUint(mo.Mode, 8, 32); err == nil {
			opts.DirMode = uint32(mode)
		} else {
			log.Warnf("[STATSFSD]> ignoring malformed mount-options.mode %q: %s", mo.Mode, err.Error())
		}
	}
}

func main() {
	var flagConfigFile string
	var flagMountpoint string
	var flagGops bool
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Overwrite the default config options by those specified in `config.json`")
	flag.StringVar(&flagMountpoint, "mountpoint", "", "Overwrite the mountpoint given in the config file")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.Parse()

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("loading './.env' file failed: %s", err.Error())
	}

	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load(json.RawMessage(raw))
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Debug.LogLevel != "" {
		log.SetLogLevel(cfg.Debug.LogLevel)
	}
	log.SetLogDateTime(cfg.Debug.LogDate)

	if cfg.Debug.EnableGops && !flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	mountpoint := cfg.Mountpoint
	if flagMountpoint != "" {
		mountpoint = flagMountpoint
	}

	opts := statsfuse.Options{}
	applyMountOptions(&opts, cfg.MountOptions)

	fsys := statsfuse.New(opts)

	cluster, leaves := buildDemoTree()
	defer runtime.KeepAlive(leaves)

	if err := cluster.Publish(fsys, nil); err != nil {
		log.Fatal(err)
	}
	defer cluster.Unpublish()

	mod := buildDemoModule()
	if _, err := fsys.PublishModule(mod, nil); err != nil {
		log.Fatal(err)
	}

	if err := fsys.Mount(mountpoint); err != nil {
		log.Fatalf("mounting %q failed: %s", mountpoint, err.Error())
	}

	// The mount itself may need root (system mountpoints, chowning
	// entries to an arbitrary configured uid/gid); drop to the
	// configured unprivileged identity once it is established.
	if err := runtimeEnv.DropPrivileges(cfg.User, cfg.Group); err != nil {
		log.Fatalf("dropping privileges failed: %s", err.Error())
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fsys.Wait()
	}()

	wg.Add(1)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer wg.Done()
		<-sigs
		runtimeEnv.SystemdNotifiy(false, "shutting down")
		if err := fsys.Unmount(); err != nil {
			log.Warnf("[STATSFSD]> unmount failed: %s", err.Error())
		}
	}()

	runtimeEnv.SystemdNotifiy(true, "running")
	wg.Wait()
	cluster.Put()
	log.Print("Gracefull shutdown completed!")
}

