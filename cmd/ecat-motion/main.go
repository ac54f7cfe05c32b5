package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"ecat402/pkg/config"
	"ecat402/pkg/realtime"
	"ecat402/pkg/supervisor"
	"ecat402/pkg/trajectory"
	"ecat402/pkg/wire"
)

func main() {
	logrus.SetLevel(logrus.InfoLevel)

	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: ecat-motion <ifname> <angle_deg> [speed_dps] [acceleration_dps2]")
		os.Exit(1)
	}
	ifname := os.Args[1]
	angleDeg, err := strconv.ParseFloat(os.Args[2], 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid angle_deg: %v\n", err)
		os.Exit(1)
	}

	defaults, err := config.LoadAxisDefaults("drive.ini")
	if err != nil {
		logrus.WithError(err).Warn("failed to load drive.ini, using built-in defaults")
		defaults = config.DefaultAxisDefaults()
	}

	speedDPS := defaults.MaxVelocityDPS
	if len(os.Args) > 3 {
		speedDPS, err = strconv.ParseFloat(os.Args[3], 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid speed_dps: %v\n", err)
			os.Exit(1)
		}
	}

	accelDPS2 := defaults.AccelerationDPS2
	if len(os.Args) > 4 {
		accelDPS2, err = strconv.ParseFloat(os.Args[4], 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid acceleration_dps2: %v\n", err)
			os.Exit(1)
		}
	}

	move := realtime.Move{
		DeltaCounts:      trajectory.DegreesToCounts(angleDeg),
		MaxVelocityCps:   speedDPS * wire.CountsPerDegree,
		AccelerationCps2: accelDPS2 * wire.CountsPerDegree,
	}

	link := newLink(ifname)
	sv := supervisor.New(link, wire.ModeCSP, move, defaults, logrus.StandardLogger())

	if err := sv.BringUp(ifname); err != nil {
		logrus.WithError(err).Error("bus bring-up failed")
		os.Exit(1)
	}

	if err := sv.Run(context.Background()); err != nil {
		logrus.WithError(err).Error("motion run failed")
		os.Exit(1)
	}
}
