package main

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/spf13/cobra"

	"vdl2_parser/internal/metrics"
	"vdl2_parser/internal/proto"
	"vdl2_parser/internal/x25"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <hex>...",
	Short: "Dump the header layers and decoded tree of X.25 packets",
	Long: `Dump each X.25 packet given as hex: first the gopacket layer view of the
header, then the full decoded protocol tree.

Example:
  vdl2_parser inspect "12 05 7a de ad"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().Bool("uplink", false, "treat the packets as ground-to-air")
}

func runInspect(cmd *cobra.Command, args []string) error {
	uplink, _ := cmd.Flags().GetBool("uplink")
	flags := proto.SrcAir
	if uplink {
		flags = proto.SrcGnd
	}
	dec := newDecoder(metrics.Discard{})
	w := cmd.OutOrStdout()

	for i, arg := range args {
		raw, err := hex.DecodeString(strings.Join(strings.Fields(arg), ""))
		if err != nil {
			return fmt.Errorf("argument %d: %w", i+1, err)
		}

		pkt := gopacket.NewPacket(raw, x25.LayerTypeX25, gopacket.Default)
		fmt.Fprint(w, pkt.Dump())
		if el := pkt.ErrorLayer(); el != nil {
			fmt.Fprintf(w, "Layer error: %v\n", el.Error())
		}

		node, _ := dec.Parse(raw, proto.Env{Flags: flags, RxTime: time.Now()})
		fmt.Fprintln(w, "--- Decoded")
		fmt.Fprintln(w, proto.FormatTree(node))
	}
	return nil
}
