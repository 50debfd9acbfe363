package main

import (
	"fmt"
	"os"

	"CheckZKPScript/modules/r1cs"

	"github.com/spf13/cobra"
)

var (
	inspectMaxTerms uint32
	inspectEmitPath string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Decode an R1CS container and dump its header and constraints",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		InspectImpl()
	},
}

func init() {
	checkzkpCmd.AddCommand(inspectCmd)
	inspectCmd.PersistentFlags().Uint32Var(&inspectMaxTerms, "max-terms", 0, "Override the per-combination term-count ceiling used while decoding.")
	inspectCmd.PersistentFlags().StringVar(&inspectEmitPath, "emit", "", "Re-serialize the decoded container to this path.")
}

func InspectImpl() {
	log := newLogger()
	if r1csFile == "" {
		panic("--r1cs is required")
	}

	f, err := os.Open(r1csFile)
	if err != nil {
		panic(err.Error())
	}
	defer f.Close()

	limits := r1cs.DefaultLimits()
	if inspectMaxTerms > 0 {
		limits.MaxTermsPerCombination = inspectMaxTerms
	}
	file, err := r1cs.Decode(f, limits)
	if err != nil {
		panic(err.Error())
	}

	h := file.Header
	fmt.Printf("container:      %s\n", r1csFile)
	fmt.Printf("version:        %d\n", h.Version)
	fmt.Printf("field bytes:    %d\n", h.FieldElementSize)
	fmt.Printf("wires:          %d\n", h.NumWires)
	fmt.Printf("public inputs:  %d\n", h.NumPublicInputs)
	fmt.Printf("private inputs: %d\n", h.NumPrivateInputs)
	fmt.Printf("constraints:    %d\n", h.NumConstraints)

	for i, c := range file.Constraints {
		fmt.Printf("\nconstraint %d: A=%d B=%d C=%d terms\n", i, len(c.A), len(c.B), len(c.C))
		dumpCombination("A", c.A, h)
		dumpCombination("B", c.B, h)
		dumpCombination("C", c.C, h)
	}

	if inspectEmitPath != "" {
		raw, err := file.Serialize()
		if err != nil {
			panic(err.Error())
		}
		if err := os.WriteFile(inspectEmitPath, raw, 0644); err != nil {
			panic(err.Error())
		}
		log.Info().Str("path", inspectEmitPath).Int("bytes", len(raw)).Msg("re-serialized container")
	}
}

func dumpCombination(name string, lc r1cs.LinearCombination, h r1cs.Header) {
	for _, t := range lc {
		fmt.Printf("  %s: wire %d %-17s coefficient 0x%s\n",
			name, t.WireIndex, wireRole(t.WireIndex, h), t.Coefficient.Text(16))
	}
}

func wireRole(wire uint32, h r1cs.Header) string {
	switch {
	case wire == 0:
		return "(constant one)"
	case wire <= h.NumPublicInputs:
		return "(public input)"
	case wire < h.NumWires:
		return "(private witness)"
	default:
		return "(out of range!)"
	}
}
