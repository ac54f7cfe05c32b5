package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"ecat402/pkg/supervisor"
)

func parseUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 32)
}

func main() {
	logrus.SetLevel(logrus.InfoLevel)

	args := os.Args[1:]
	clear := false
	filtered := args[:0]
	for _, a := range args {
		if a == "--clear" {
			clear = true
			continue
		}
		filtered = append(filtered, a)
	}
	args = filtered

	if len(args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: ecat-faultreset <ifname> <index> <subindex> [--clear]")
		os.Exit(1)
	}
	ifname := args[0]
	index, err := parseUint(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid index: %v\n", err)
		os.Exit(1)
	}
	subindex, err := parseUint(args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid subindex: %v\n", err)
		os.Exit(1)
	}

	diag := supervisor.NewDiagnostics(newLink(ifname), logrus.StandardLogger())
	if err := diag.BringUp(ifname); err != nil {
		logrus.WithError(err).Error("bus bring-up failed")
		os.Exit(1)
	}
	defer diag.Close()

	if clear {
		if err := diag.FaultReset(); err != nil {
			logrus.WithError(err).Error("fault reset failed")
			os.Exit(1)
		}
		logrus.Info("fault reset control word written")
	}

	for i := 0; i < 5; i++ {
		value, err := diag.ReadObject(uint16(index), uint8(subindex), 32)
		if err != nil {
			logrus.WithError(err).Error("status read failed")
			os.Exit(1)
		}
		fmt.Printf("0x%04X:0x%02X = 0x%X\n", index, subindex, value)
		time.Sleep(200 * time.Millisecond)
	}
}
