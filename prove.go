package main

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"

	"CheckZKPScript/modules/circuit"
	"CheckZKPScript/modules/output"
	"CheckZKPScript/modules/packager"
	"CheckZKPScript/modules/r1cs"
	"CheckZKPScript/modules/script"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	gnarkr1cs "github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	publicInputValues  []string
	privateInputValues []string

	redirectOutOfRange bool
	padVKChunks        bool

	groth16CRSFile string
	groth16VKFile  string

	outputDir string
)

var proveCmd = &cobra.Command{
	Use:   "prove",
	Short: "Prove the circuit and assemble the OP_CHECKZKP locking script",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		Groth16ScriptImpl(configFromFlags())
	},
}

func init() {
	checkzkpCmd.AddCommand(proveCmd)
	proveCmd.PersistentFlags().StringSliceVar(&publicInputValues, "public-inputs", nil, "Decimal values for the public input wires, in wire order.")
	proveCmd.PersistentFlags().StringSliceVar(&privateInputValues, "private-inputs", nil, "Decimal values for the private witness wires, in wire order.")
	proveCmd.PersistentFlags().BoolVar(&redirectOutOfRange, "redirect-out-of-range", false, "Compatibility mode: bind out-of-range wire indices to the constant one instead of failing.")
	proveCmd.PersistentFlags().BoolVar(&padVKChunks, "pad-vk-chunks", false, "Pad the verifying key with zero chunks when it fills fewer than the pinned chunk count.")
	proveCmd.PersistentFlags().StringVar(&groth16CRSFile, "groth16-crs", "", "Proving key cache. Read when present, written after a fresh setup.")
	proveCmd.PersistentFlags().StringVar(&groth16VKFile, "groth16-vk", "", "Verifying key cache. Read when present, written after a fresh setup.")
	proveCmd.PersistentFlags().StringVar(&outputDir, "output-dir", ".", "Directory for stack_items.txt, stack_items.json and script.hex.")
}

// PipelineConfig is the flag-independent input of one prove run.
type PipelineConfig struct {
	R1CSPath      string
	UseFixture    bool
	PublicInputs  []string
	PrivateInputs []string
	Redirect      bool
	CRSPath       string
	VKPath        string
	OutputDir     string
	Limits        r1cs.DecodeLimits
	Params        packager.Params
}

func configFromFlags() PipelineConfig {
	params := packager.Mode0Params()
	params.PadVKChunks = padVKChunks
	return PipelineConfig{
		R1CSPath:      r1csFile,
		UseFixture:    useFixture,
		PublicInputs:  publicInputValues,
		PrivateInputs: privateInputValues,
		Redirect:      redirectOutOfRange,
		CRSPath:       groth16CRSFile,
		VKPath:        groth16VKFile,
		OutputDir:     outputDir,
		Limits:        r1cs.DefaultLimits(),
		Params:        params,
	}
}

// Groth16ScriptImpl runs the whole pipeline: decode, build, compile, solve,
// prove, verify, package, assemble, write artifacts.
func Groth16ScriptImpl(cfg PipelineConfig) {
	log := newLogger()
	cfg.Params.Logger = &log

	file := loadContainer(cfg, &log)

	placeholder, err := circuit.New(file, circuit.Options{
		RedirectOutOfRange: cfg.Redirect,
		Logger:             &log,
	})
	if err != nil {
		panic(err.Error())
	}

	log.Info().
		Uint32("wires", file.Header.NumWires).
		Uint32("public_inputs", file.Header.NumPublicInputs).
		Uint32("constraints", file.Header.NumConstraints).
		Msg("compiling circuit")
	ccs, err := frontend.Compile(ecc.BLS12_381.ScalarField(), gnarkr1cs.NewBuilder, placeholder)
	if err != nil {
		panic(err.Error())
	}
	log.Info().
		Int("constraints", ccs.GetNbConstraints()).
		Int("internal", ccs.GetNbInternalVariables()).
		Int("secret", ccs.GetNbSecretVariables()).
		Int("public", ccs.GetNbPublicVariables()).
		Msg("compiled constraint system")

	assign, err := assignFromConfig(file, cfg)
	if err != nil {
		panic(err.Error())
	}
	assignment, err := circuit.Assignment(file, assign)
	if err != nil {
		panic(err.Error())
	}
	witness, err := frontend.NewWitness(assignment, ecc.BLS12_381.ScalarField())
	if err != nil {
		panic(err.Error())
	}

	log.Info().Msg("checking satisfiability")
	if err = ccs.IsSolved(witness); err != nil {
		panic("constraint system not satisfied: " + err.Error())
	}

	pk, vk := setupOrLoad(ccs, cfg, &log)

	log.Info().Msg("proving")
	proof, err := groth16.Prove(ccs, pk, witness)
	if err != nil {
		panic(err.Error())
	}

	publicWitness, err := witness.Public()
	if err != nil {
		panic(err.Error())
	}
	if err = groth16.Verify(proof, vk, publicWitness); err != nil {
		panic("proof does not verify: " + err.Error())
	}
	log.Info().Msg("proof verified locally")

	publicVector, ok := publicWitness.Vector().(fr.Vector)
	if !ok {
		panic(fmt.Sprintf("public witness vector is %T, want fr.Vector", publicWitness.Vector()))
	}

	items, err := packager.Package(proof, vk, publicVector, cfg.Params)
	if err != nil {
		panic(err.Error())
	}
	prog, err := script.Assemble(items, cfg.Params.Order)
	if err != nil {
		panic(err.Error())
	}

	writeArtifacts(cfg.OutputDir, items, prog, &log)

	log.Info().
		Int("stack_items", len(items)).
		Int("script_bytes", len(prog)).
		Str("p2sh_address", script.Address(prog, script.MAINNET_P2SH_VERSION)).
		Msg("script assembled")
}

// loadContainer decodes the configured container. The fixture substitute is
// an explicit opt-in and always logged at WARN; decode failures are fatal
// otherwise.
func loadContainer(cfg PipelineConfig, log *zerolog.Logger) *r1cs.File {
	if cfg.R1CSPath == "" {
		if !cfg.UseFixture {
			panic("--r1cs is required unless --use-fixture is set")
		}
		log.Warn().Msg("no container given, substituting the multiplexer fixture circuit")
		return r1cs.MultiplexerFixture()
	}

	f, err := os.Open(cfg.R1CSPath)
	if err != nil {
		return fixtureFallback(cfg, log, err)
	}
	defer f.Close()

	file, err := r1cs.Decode(f, cfg.Limits)
	if err != nil {
		return fixtureFallback(cfg, log, err)
	}
	log.Info().Str("path", cfg.R1CSPath).Uint32("version", file.Header.Version).Msg("decoded constraint container")
	return file
}

func fixtureFallback(cfg PipelineConfig, log *zerolog.Logger, cause error) *r1cs.File {
	if !cfg.UseFixture {
		panic(cause.Error())
	}
	log.Warn().Err(cause).Msg("container unusable, substituting the multiplexer fixture circuit")
	return r1cs.MultiplexerFixture()
}

// assignFromConfig builds the witness assignment from the input flags. With
// no values given every non-constant wire is zero, which satisfies the
// fixture circuit.
func assignFromConfig(file *r1cs.File, cfg PipelineConfig) (circuit.AssignFunc, error) {
	if len(cfg.PublicInputs) == 0 && len(cfg.PrivateInputs) == 0 {
		return circuit.ZeroAssign, nil
	}
	h := file.Header
	if len(cfg.PublicInputs) != int(h.NumPublicInputs) {
		return nil, fmt.Errorf("got %d public inputs, circuit has %d", len(cfg.PublicInputs), h.NumPublicInputs)
	}
	if len(cfg.PrivateInputs) != int(h.NumPrivateInputs) {
		return nil, fmt.Errorf("got %d private inputs, circuit has %d", len(cfg.PrivateInputs), h.NumPrivateInputs)
	}

	values := make([]*big.Int, 0, h.NumWires)
	values = append(values, big.NewInt(1))
	for _, s := range append(append([]string{}, cfg.PublicInputs...), cfg.PrivateInputs...) {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("cannot parse input %q as a decimal integer", s)
		}
		values = append(values, v)
	}
	return circuit.SliceAssign(values)
}

// setupOrLoad reads the cached CRS when both cache paths exist, otherwise
// runs a fresh setup and writes the caches that were asked for.
func setupOrLoad(ccs constraint.ConstraintSystem, cfg PipelineConfig, log *zerolog.Logger) (groth16.ProvingKey, groth16.VerifyingKey) {
	if cfg.CRSPath != "" && cfg.VKPath != "" {
		pkFile, pkErr := os.Open(cfg.CRSPath)
		vkFile, vkErr := os.Open(cfg.VKPath)
		if pkErr == nil && vkErr == nil {
			defer pkFile.Close()
			defer vkFile.Close()

			pk := groth16.NewProvingKey(ecc.BLS12_381)
			vk := groth16.NewVerifyingKey(ecc.BLS12_381)
			if _, err := pk.ReadFrom(pkFile); err != nil {
				panic(err.Error())
			}
			if _, err := vk.ReadFrom(vkFile); err != nil {
				panic(err.Error())
			}
			log.Info().Str("crs", cfg.CRSPath).Str("vk", cfg.VKPath).Msg("loaded Groth16 keys from cache")
			return pk, vk
		}
		if pkErr == nil {
			pkFile.Close()
		}
		if vkErr == nil {
			vkFile.Close()
		}
	}

	log.Info().Msg("running Groth16 setup")
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		panic(err.Error())
	}
	if cfg.CRSPath != "" {
		writeKey(cfg.CRSPath, pk, log)
	}
	if cfg.VKPath != "" {
		writeKey(cfg.VKPath, vk, log)
	}
	return pk, vk
}

func writeKey(path string, key io.WriterTo, log *zerolog.Logger) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		panic(err.Error())
	}
	defer f.Close()
	if _, err := key.WriteTo(f); err != nil {
		panic(err.Error())
	}
	log.Info().Str("path", path).Msg("cached Groth16 key")
}

func writeArtifacts(dir string, items []script.StackItem, prog []byte, log *zerolog.Logger) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		panic(err.Error())
	}
	write := func(name string, render func(w io.Writer) error) {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			panic(err.Error())
		}
		defer f.Close()
		if err := render(f); err != nil {
			panic(err.Error())
		}
		log.Info().Str("path", filepath.Join(dir, name)).Msg("wrote artifact")
	}
	write("stack_items.txt", func(w io.Writer) error { return output.WriteItemLines(w, items) })
	write("stack_items.json", func(w io.Writer) error { return output.WriteItemsJSON(w, items) })
	write("script.hex", func(w io.Writer) error { return output.WriteScriptHex(w, prog) })
}
