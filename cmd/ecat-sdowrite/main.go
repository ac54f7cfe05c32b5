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

	if len(os.Args) < 6 {
		fmt.Fprintln(os.Stderr, "usage: ecat-sdowrite <ifname> <index> <subindex> <value> <size_bits>")
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
	value, err := parseUint(os.Args[4])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid value: %v\n", err)
		os.Exit(1)
	}
	sizeBits, err := strconv.Atoi(os.Args[5])
	if err != nil || (sizeBits != 8 && sizeBits != 16 && sizeBits != 32) {
		fmt.Fprintln(os.Stderr, "size_bits must be one of 8, 16, 32")
		os.Exit(1)
	}

	diag := supervisor.NewDiagnostics(newLink(ifname), logrus.StandardLogger())
	if err := diag.BringUp(ifname); err != nil {
		logrus.WithError(err).Error("bus bring-up failed")
		os.Exit(1)
	}
	defer diag.Close()

	if err := diag.WriteObject(uint16(index), uint8(subindex), uint32(value), sizeBits); err != nil {
		logrus.WithError(err).Error("SDO write failed")
		os.Exit(1)
	}
	fmt.Printf("wrote 0x%04X:0x%02X = %d (%d bits)\n", index, subindex, value, sizeBits)
}
