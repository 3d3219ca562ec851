package InputParameters

import (
	"fmt"
	"sort"

	"github.com/ghodss/yaml"

	"github.com/notargets/gobem/assembly"
	"github.com/notargets/gobem/grid"
	"github.com/notargets/gobem/operators"
	"github.com/notargets/gobem/space"
	"github.com/notargets/gobem/types"
)

// Parameters obtained from the YAML input file
type InputParameters struct {
	Title               string             `yaml:"Title"`
	Family              string             `yaml:"Family"`     // Laplace, Helmholtz or ModifiedHelmholtz
	Operator            string             `yaml:"Operator"`   // SingleLayer, DoubleLayer, AdjointDoubleLayer, Hypersingular or Identity
	WaveNumber          float64            `yaml:"WaveNumber"` // k for Helmholtz, kappa for ModifiedHelmholtz
	WaveNumberImag      float64            `yaml:"WaveNumberImag"`
	Domain              string             `yaml:"Domain"` // P0, P1 or DPn
	Range               string             `yaml:"Range"`  // defaults to DualToRange
	DualToRange         string             `yaml:"DualToRange"`
	Mode                string             `yaml:"Mode"` // dense or aca
	ACA                 map[string]float64 `yaml:"ACA"`  // Eps, Eta, MinimumBlockSize, MaximumRank, Recompress
	MaxThreads          int                `yaml:"MaxThreads"`
	Verbosity           int                `yaml:"Verbosity"`
	NoCaching           bool               `yaml:"NoCaching"`
	DenseMassMatrices   bool               `yaml:"DenseMassMatrices"`
	JointAssembly       bool               `yaml:"JointAssembly"`
	SingularIncrement   *int               `yaml:"SingularIncrement"`
	RegularIncrement    *int               `yaml:"RegularIncrement"`
	PointsPerWavelength int                `yaml:"PointsPerWavelength"`
}

func (ip *InputParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *InputParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%s %s]\t= Operator\n", ip.Family, ip.Operator)
	fmt.Printf("%8.5f%+8.5fi\t= Wave Number\n", ip.WaveNumber, ip.WaveNumberImag)
	fmt.Printf("[%s -> %s, %s]\t= Domain -> Range, Dual\n", ip.Domain, ip.rangeName(), ip.DualToRange)
	fmt.Printf("[%s]\t\t\t= Assembly Mode\n", ip.Mode)
	keys := make([]string, len(ip.ACA))
	i := 0
	for k := range ip.ACA {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("ACA[%s] = %v\n", key, ip.ACA[key])
	}
}

func (ip *InputParameters) rangeName() string {
	if ip.Range == "" {
		return ip.DualToRange
	}
	return ip.Range
}

// ToAssemblyOptions overlays the input file on assembly.DefaultOptions
func (ip *InputParameters) ToAssemblyOptions() (opts assembly.Options, err error) {
	opts = assembly.DefaultOptions()
	if opts.Mode, err = assembly.NewMode(ip.Mode); err != nil {
		return
	}
	for key, val := range ip.ACA {
		switch key {
		case "Eps":
			opts.Aca.Eps = val
		case "Eta":
			opts.Aca.Eta = val
		case "MinimumBlockSize":
			opts.Aca.MinimumBlockSize = int(val)
		case "MaximumRank":
			opts.Aca.MaximumRank = int(val)
		case "Recompress":
			opts.Aca.Recompress = val != 0
		default:
			err = fmt.Errorf("%w: unknown ACA parameter %q", types.ErrConfiguration, key)
			return
		}
	}
	if ip.MaxThreads != 0 {
		opts.MaxThreadCount = ip.MaxThreads
	}
	if ip.Verbosity < int(assembly.Low) || ip.Verbosity > int(assembly.High) {
		err = fmt.Errorf("%w: verbosity %d", types.ErrConfiguration, ip.Verbosity)
		return
	}
	opts.Verbosity = assembly.Verbosity(ip.Verbosity)
	opts.SingularIntegralCaching = !ip.NoCaching
	opts.SparseStorageOfMassMatrices = !ip.DenseMassMatrices
	opts.JointAssembly = ip.JointAssembly
	if ip.SingularIncrement != nil {
		opts.Accuracy.SingularIncrement = *ip.SingularIncrement
	}
	if ip.RegularIncrement != nil {
		opts.Accuracy.RegularIncrement = *ip.RegularIncrement
	}
	err = opts.Validate()
	return
}

// NewOperator builds the operator named in the input file on g
func (ip *InputParameters) NewOperator(g grid.Grid) (op *operators.Elementary, err error) {
	var domain, rng, dual space.Space
	if domain, err = space.New(ip.Domain, g); err != nil {
		return
	}
	if dual, err = space.New(ip.DualToRange, g); err != nil {
		return
	}
	rng = dual
	if ip.Range != "" && ip.Range != ip.DualToRange {
		if rng, err = space.New(ip.Range, g); err != nil {
			return
		}
	}
	var (
		k     = complex(ip.WaveNumber, ip.WaveNumberImag)
		ctors map[string]func() (*operators.Elementary, error)
	)
	switch ip.Family {
	case "Laplace", "":
		ctors = map[string]func() (*operators.Elementary, error){
			"SingleLayer":        func() (*operators.Elementary, error) { return operators.NewLaplace3dSingleLayer(domain, rng, dual) },
			"DoubleLayer":        func() (*operators.Elementary, error) { return operators.NewLaplace3dDoubleLayer(domain, rng, dual) },
			"AdjointDoubleLayer": func() (*operators.Elementary, error) { return operators.NewLaplace3dAdjointDoubleLayer(domain, rng, dual) },
			"Hypersingular":      func() (*operators.Elementary, error) { return operators.NewLaplace3dHypersingular(domain, rng, dual) },
		}
	case "Helmholtz":
		ctors = map[string]func() (*operators.Elementary, error){
			"SingleLayer":        func() (*operators.Elementary, error) { return operators.NewHelmholtz3dSingleLayer(domain, rng, dual, k) },
			"DoubleLayer":        func() (*operators.Elementary, error) { return operators.NewHelmholtz3dDoubleLayer(domain, rng, dual, k) },
			"AdjointDoubleLayer": func() (*operators.Elementary, error) { return operators.NewHelmholtz3dAdjointDoubleLayer(domain, rng, dual, k) },
			"Hypersingular":      func() (*operators.Elementary, error) { return operators.NewHelmholtz3dHypersingular(domain, rng, dual, k) },
		}
	case "ModifiedHelmholtz":
		rt := types.Real
		if imag(k) != 0 {
			rt = types.Complex
		}
		ctors = map[string]func() (*operators.Elementary, error){
			"SingleLayer": func() (*operators.Elementary, error) {
				return operators.NewModifiedHelmholtz3dSingleLayer(domain, rng, dual, k, rt)
			},
			"DoubleLayer": func() (*operators.Elementary, error) {
				return operators.NewModifiedHelmholtz3dDoubleLayer(domain, rng, dual, k, rt)
			},
			"AdjointDoubleLayer": func() (*operators.Elementary, error) {
				return operators.NewModifiedHelmholtz3dAdjointDoubleLayer(domain, rng, dual, k, rt)
			},
			"Hypersingular": func() (*operators.Elementary, error) {
				return operators.NewModifiedHelmholtz3dHypersingular(domain, rng, dual, k, rt)
			},
		}
	default:
		err = fmt.Errorf("%w: unknown operator family %q", types.ErrConfiguration, ip.Family)
		return
	}
	ctors["Identity"] = func() (*operators.Elementary, error) { return operators.NewIdentity(domain, rng, dual) }
	ctor, ok := ctors[ip.Operator]
	if !ok {
		err = fmt.Errorf("%w: unknown operator %q", types.ErrConfiguration, ip.Operator)
		return
	}
	if op, err = ctor(); err != nil {
		return
	}
	if ip.PointsPerWavelength > 0 {
		op = op.WithInterpolation(ip.PointsPerWavelength)
	}
	return
}

// ExampleFile is printed when no input file is given
const ExampleFile = `
########################################
Title: "Sphere single layer"
Family: Helmholtz # Laplace, Helmholtz or ModifiedHelmholtz
Operator: SingleLayer
WaveNumber: 2.
Domain: P0
DualToRange: P0
Mode: aca
ACA:
  Eps: 1.e-5
  Eta: 1.2
MaxThreads: 0 # 0 uses one thread per CPU
########################################
`
