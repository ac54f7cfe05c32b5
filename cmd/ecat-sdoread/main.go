package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"ecat402/pkg/supervisor"
)

func parseUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 32)
}

func main() {
	logrus.SetLevel(logrus.InfoLevel)

	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "usage: ecat-sdoread <ifname> <index> <subindex>")
		os.Exit(1)
	}
	ifname := os.Args[1]
	index, err := parseUint(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid index: %v\n", err)
		os.Exit(1)
	}
	subindex, err := parseUint(os.Args[3])
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

	value, err := diag.ReadObject(uint16(index), uint8(subindex), 32)
	if err != nil {
		logrus.WithError(err).Error("SDO read failed")
		os.Exit(1)
	}
	fmt.Printf("0x%04X:0x%02X = %d (0x%X)\n", index, subindex, value, value)
}
