package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/soypat/ctcphy"
	"github.com/soypat/ctcphy/ethernet"
	"github.com/soypat/ctcphy/internal"
	"github.com/soypat/ctcphy/internal/config"
	"github.com/soypat/ctcphy/mars"
	"github.com/soypat/ctcphy/monitor"
	"github.com/soypat/ctcphy/phy"
)

const usage = `usage: ctcphy [flags] <command> [args]

commands:
  scan                 list PHYs on the interface's MDIO bus
  info                 show variant, port mode and wake state
  init                 initialize the PHY and apply the configuration
  status               print the link status
  aneg [mode ...]      advertise the given modes (all supported if none) and restart negotiation
  forced <speed> <dup> force speed (10, 100, 1000) and duplex (full, half)
  wol on|off [mac]     enable or disable magic packet wake
  wake <mac>           send a magic packet for mac out of the interface
  suspend|resume       power the media interfaces down or up
  monitor              report link changes until interrupted

flags:
`

func main() {
	err := run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	var (
		flagConfig    = ""
		flagInterface = ""
		flagAddr      = -2
	)
	flag.StringVar(&flagConfig, "config", flagConfig, "YAML configuration file.")
	flag.StringVar(&flagInterface, "i", flagInterface, "Network interface whose MDIO bus to use. Overrides configuration.")
	flag.IntVar(&flagAddr, "addr", flagAddr, "PHY address, -1 to ask the driver. Overrides configuration.")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return errors.New("missing command")
	}
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagInterface != "" {
		cfg.Interface = flagInterface
	}
	if flagAddr >= -1 {
		cfg.PHYAddr = flagAddr
	}
	logger, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog.Close()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if cmd == "wake" {
		return wake(cfg, args)
	}
	bus, err := internal.NewMIIBus(cfg.Interface)
	if err != nil {
		return err
	}
	defer bus.Close()
	if cmd == "scan" {
		return scan(bus)
	}
	addr := uint8(cfg.PHYAddr)
	if cfg.PHYAddr < 0 {
		addr, err = bus.PHYAddr()
		if err != nil {
			return fmt.Errorf("phy address of %s: %w", cfg.Interface, err)
		}
	}
	hwaddr, err := bus.HardwareAddress6()
	if err != nil {
		return err
	}
	dev, err := mars.Probe(bus, addr, mars.Config{
		HardwareAddr: hwaddr,
		WOLOnInit:    cfg.WOL.OnInit,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	if cmd == "info" {
		return info(dev)
	}
	err = dev.ConfigInit()
	if err != nil {
		return err
	}
	switch cmd {
	case "init":
		return setup(dev, cfg, hwaddr)
	case "status":
		st, err := dev.ReadStatus()
		if err != nil {
			return err
		}
		fmt.Printf("%s carrier=%s\n", st, dev.Carrier())
		return nil
	case "aneg":
		var adv phy.LinkModes
		for _, name := range args {
			m, ok := phy.ParseLinkMode(name)
			if !ok {
				return fmt.Errorf("unknown link mode %q", name)
			}
			adv |= m
		}
		if adv == 0 {
			adv = dev.Supported()
		}
		dev.SetAdvertising(adv)
		return dev.ConfigAneg()
	case "forced":
		if len(args) != 2 {
			return errors.New("forced needs speed and duplex")
		}
		speed, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("forced speed: %w", err)
		}
		fc := config.Config{Aneg: config.AnegConfig{Duplex: args[1]}}
		duplex, err := fc.Duplex()
		if err != nil {
			return err
		}
		err = dev.SetForced(speed, duplex)
		if err != nil {
			return err
		}
		return dev.ConfigAneg()
	case "wol":
		return wol(dev, cfg, hwaddr, args)
	case "suspend":
		return dev.Suspend()
	case "resume":
		return dev.Resume()
	case "monitor":
		err = setup(dev, cfg, hwaddr)
		if err != nil {
			return err
		}
		return runMonitor(dev, cfg, logger)
	}
	flag.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

func newLogger(lc config.LogConfig) (*slog.Logger, io.Closer, error) {
	lvl, err := (&config.Config{Log: lc}).LogLevel()
	if err != nil {
		return nil, nil, err
	}
	var w io.Writer = os.Stderr
	var closer io.Closer = io.NopCloser(nil)
	if lc.File != "" {
		lj := &lumberjack.Logger{
			Filename:   lc.File,
			MaxSize:    lc.MaxSizeMB,
			MaxBackups: lc.MaxBackups,
			MaxAge:     lc.MaxAgeDays,
		}
		w, closer = lj, lj
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: lvl,
	}))
	return logger, closer, nil
}

func scan(bus phy.MDIOBus) error {
	var addrs [32]uint8
	n, err := phy.FindClause22PHYs(bus, addrs[:])
	if err != nil {
		return err
	}
	for _, addr := range addrs[:n] {
		var gen phy.Device
		err = gen.ConfigureAs22(bus, addr)
		if err != nil {
			return err
		}
		id, err := gen.ID()
		if err != nil {
			return err
		}
		name := "unknown"
		if v, ok := mars.LookupVariant(id); ok {
			name = v.Name
		}
		fmt.Printf("addr=%d id=%#08x %s\n", addr, id, name)
	}
	return nil
}

func info(dev *mars.Device) error {
	mode, err := dev.ReadPortMode()
	if err != nil {
		return err
	}
	page, err := dev.CurrentPage()
	if err != nil {
		return err
	}
	fmt.Printf("variant=%s addr=%d mode=%s page=%s\n", dev.Variant().Name, dev.PHYAddr(), mode, page)
	wi, err := dev.GetWOL()
	if errors.Is(err, ctcphy.ErrUnsupported) {
		fmt.Println("wol=unsupported")
		return nil
	} else if err != nil {
		return err
	}
	fmt.Printf("wol=%v\n", wi.Enabled&mars.WakeMagic != 0)
	return nil
}

// setup applies the link, interrupt and wake configuration to an initialized device.
func setup(dev *mars.Device, cfg *config.Config, hwaddr [6]byte) error {
	if cfg.Aneg.Enable {
		adv, err := cfg.Advertise()
		if err != nil {
			return err
		}
		if adv != 0 {
			dev.SetAdvertising(adv)
		}
	} else {
		duplex, err := cfg.Duplex()
		if err != nil {
			return err
		}
		err = dev.SetForced(cfg.Aneg.Speed, duplex)
		if err != nil {
			return err
		}
	}
	err := dev.ConfigAneg()
	if err != nil {
		return err
	}
	err = dev.ConfigIntr(cfg.Interrupts)
	if err != nil {
		return err
	}
	if !cfg.WOL.Enable || !dev.Variant().WOL {
		return nil
	}
	wc, err := cfg.WakeConfig(hwaddr)
	if err != nil {
		return err
	}
	return dev.ConfigureWOL(wc)
}

func wol(dev *mars.Device, cfg *config.Config, hwaddr [6]byte, args []string) error {
	if len(args) == 0 || (args[0] != "on" && args[0] != "off") {
		return errors.New("wol needs on or off")
	}
	wc, err := cfg.WakeConfig(hwaddr)
	if err != nil {
		return err
	}
	wc.Enable = args[0] == "on"
	if len(args) > 1 {
		wc.MAC, err = ethernet.ParseAddr(args[1])
		if err != nil {
			return err
		}
	}
	return dev.ConfigureWOL(wc)
}

func wake(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return errors.New("wake needs a target mac")
	}
	target, err := ethernet.ParseAddr(args[0])
	if err != nil {
		return err
	}
	sock, err := internal.NewPacketSocket(cfg.Interface)
	if err != nil {
		return err
	}
	defer sock.Close()
	src, err := sock.HardwareAddress6()
	if err != nil {
		return err
	}
	frame := ethernet.AppendWakeOnLAN(make([]byte, 0, 128), src, target)
	_, err = sock.Write(frame)
	if err != nil {
		return err
	}
	fmt.Printf("sent magic packet for %s on %s\n", ethernet.AppendAddr(nil, target), cfg.Interface)
	return nil
}

func runMonitor(dev *mars.Device, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	mon, err := monitor.New(dev, monitor.Config{
		Interval:   cfg.Monitor.Interval,
		EventRate:  rate.Limit(cfg.Monitor.EventRate),
		EventBurst: cfg.Monitor.EventBurst,
		Logger:     logger,
		OnChange: func(old, new phy.Status) {
			fmt.Printf("%s carrier=%s\n", new, dev.Carrier())
		},
	})
	if err != nil {
		return err
	}
	usr := make(chan os.Signal, 1)
	notifyInterrupt(usr)
	defer signal.Stop(usr)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-usr:
				mon.Interrupt()
			}
		}
	}()
	err = mon.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
