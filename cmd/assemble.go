/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"math"
	"math/cmplx"
	"os"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/notargets/gobem/InputParameters"
	"github.com/notargets/gobem/assembly"
	"github.com/notargets/gobem/grid"
	"github.com/notargets/gobem/utils"
)

type ModelAssemble struct {
	GridFile   string
	ICFile     string
	Sphere     int // icosphere refinements when no grid file is given
	Profile    string
	Perf       bool
	Verbosity  int
	MaxThreads int
}

// AssembleCmd represents the assemble command
var AssembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble the weak form of a boundary operator",
	Long: `Builds the grid, spaces and operator named in the input file, assembles
the weak form and reports its size, timing and compression`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ma := &ModelAssemble{}
		if ma.GridFile, err = cmd.Flags().GetString("gridFile"); err != nil {
			return
		}
		if ma.ICFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			return
		}
		ma.Sphere, _ = cmd.Flags().GetInt("sphere")
		ma.Profile, _ = cmd.Flags().GetString("profile")
		ma.Perf, _ = cmd.Flags().GetBool("perf")
		ma.Verbosity, _ = cmd.Flags().GetInt("verbose")
		ma.MaxThreads = viper.GetInt("threads")
		ip := processInput(ma)
		switch ma.Profile {
		case "cpu":
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
		case "mem":
			defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
		case "":
		default:
			return fmt.Errorf("unknown profile %q, use cpu or mem", ma.Profile)
		}
		_, err = RunAssemble(ma, ip)
		return
	},
}

func processInput(ma *ModelAssemble) (ip *InputParameters.InputParameters) {
	var (
		err error
	)
	if len(ma.ICFile) == 0 {
		err = fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile) in YAML format")
		fmt.Printf("error: %s\n", err.Error())
		fmt.Printf("Example File:%s\n", InputParameters.ExampleFile)
		os.Exit(1)
	}
	var data []byte
	if data, err = os.ReadFile(ma.ICFile); err != nil {
		panic(err)
	}
	ip = &InputParameters.InputParameters{}
	if err = ip.Parse(data); err != nil {
		panic(err)
	}
	ip.Print()
	return
}

func init() {
	rootCmd.AddCommand(AssembleCmd)
	AssembleCmd.Flags().StringP("gridFile", "F", "", "Grid file to read in Gmsh 2.2 (.msh) format")
	AssembleCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- Operator family and kind\n\t- Spaces\n\t- Assembly mode and ACA tolerance")
	AssembleCmd.Flags().Int("sphere", 2, "refinements of the unit icosphere used when no grid file is given")
	AssembleCmd.Flags().String("profile", "", "write a cpu or mem profile to the current directory")
	AssembleCmd.Flags().Bool("perf", false, "count CPU instructions of the assembly (Linux only)")
	AssembleCmd.Flags().IntP("verbose", "v", 0, "verbosity: -1 = warnings only, 0 = summary, 1 = per block detail")
	AssembleCmd.Flags().IntP("threads", "t", 0, "maximum threads, 0 uses one per CPU")
	_ = viper.BindPFlag("threads", AssembleCmd.Flags().Lookup("threads"))
}

// NewLogger builds a production zap logger at the level matching the verbosity
func NewLogger(verbosity assembly.Verbosity) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch verbosity {
	case assembly.Low:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case assembly.Default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// Report summarizes one assembly run
type Report struct {
	Rows, Columns int
	Elapsed       time.Duration
	Instructions  uint64 // zero unless counted
	Stats         *assembly.HMatrixStats
	ApplyOnesNorm float64
	RHSNorm       float64
}

func (r *Report) Print() {
	fmt.Printf("[%d x %d]\t\t= Operator Size\n", r.Rows, r.Columns)
	fmt.Printf("%v\t\t= Assembly Time\n", r.Elapsed)
	if r.Instructions != 0 {
		fmt.Printf("%d\t\t= CPU Instructions\n", r.Instructions)
	}
	if r.Stats != nil {
		fmt.Printf("%d/%d\t\t= Admissible/Total Leaves\n", r.Stats.AdmissibleLeaves, r.Stats.Leaves)
		fmt.Printf("%d\t\t\t= Maximum Rank\n", r.Stats.MaximumRank)
		fmt.Printf("%8.5f\t\t= Compression Ratio\n", r.Stats.CompressionRatio)
	}
	fmt.Printf("%12.6e\t= |A 1|\n", r.ApplyOnesNorm)
	fmt.Printf("%12.6e\t= |<exp(ikx), psi>|\n", r.RHSNorm)
	fmt.Println(utils.GetMemUsage())
}

func RunAssemble(ma *ModelAssemble, ip *InputParameters.InputParameters) (r *Report, err error) {
	var (
		m    *grid.Mesh
		opts assembly.Options
	)
	if len(ma.GridFile) != 0 {
		m, err = grid.ReadMeshFile(ma.GridFile)
	} else {
		m, err = grid.NewIcosphere(ma.Sphere)
	}
	if err != nil {
		return
	}
	if opts, err = ip.ToAssemblyOptions(); err != nil {
		return
	}
	if ma.MaxThreads != 0 {
		opts.MaxThreadCount = ma.MaxThreads
	}
	if ma.Verbosity != 0 {
		opts.Verbosity = assembly.Verbosity(max(-1, min(1, ma.Verbosity)))
	}
	if opts.Logger, err = NewLogger(opts.Verbosity); err != nil {
		return
	}
	defer func() { _ = opts.Logger.Sync() }()
	m.PrintStatistics()
	fmt.Printf("[%s]\t\t\t= BLAS\n", utils.BLASImplementation)

	op, err := ip.NewOperator(m)
	if err != nil {
		return
	}
	var (
		weak  assembly.DiscreteBoundaryOperator
		start = time.Now()
	)
	r = &Report{}
	assemble := func() (err error) {
		weak, err = op.AssembleWeakForm(opts)
		return
	}
	if ma.Perf {
		r.Instructions, err = countInstructions(assemble)
	} else {
		err = assemble()
	}
	if err != nil {
		return nil, err
	}
	r.Elapsed = time.Since(start)
	r.Rows, r.Columns = weak.RowCount(), weak.ColumnCount()
	if h, ok := weak.(*assembly.HMatrix); ok {
		st := h.Stats()
		r.Stats = &st
	}
	x := make([]complex128, r.Columns)
	for i := range x {
		x[i] = 1
	}
	var y []complex128
	if y, err = weak.Apply(x); err != nil {
		return nil, err
	}
	r.ApplyOnesNorm = norm(y)
	k := -imag(op.WaveNumber())
	plane := func(x, normal [3]float64) complex128 {
		return cmplx.Exp(complex(0, k*x[0]))
	}
	if y, err = assembly.ProjectFunction(op.DualToRange(), plane, opts); err != nil {
		return nil, err
	}
	r.RHSNorm = norm(y)
	r.Print()
	return
}

func norm(x []complex128) float64 {
	var s float64
	for _, v := range x {
		s += real(v)*real(v) + imag(v)*imag(v)
	}
	return math.Sqrt(s)
}
