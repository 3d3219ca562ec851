package assembly

import (
	"fmt"

	"github.com/notargets/gobem/quadrature"
	"github.com/notargets/gobem/types"
	"github.com/notargets/gobem/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Mode uint8

const (
	Dense Mode = iota
	ACA
)

func (m Mode) String() string {
	switch m {
	case Dense:
		return "dense"
	case ACA:
		return "aca"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

func NewMode(label string) (m Mode, err error) {
	switch label {
	case "dense", "Dense", "DENSE", "":
		return Dense, nil
	case "aca", "ACA":
		return ACA, nil
	}
	err = fmt.Errorf("%w: unknown assembly mode %q", types.ErrConfiguration, label)
	return
}

type Verbosity int8

const (
	Low Verbosity = iota - 1
	Default
	High
)

// AcaOptions controls hierarchical matrix assembly
type AcaOptions struct {
	Eps              float64 // relative accuracy of admissible blocks
	Eta              float64 // admissibility min(diam) <= Eta * dist
	MinimumBlockSize int     // cluster tree leaves hold at most this many dofs
	MaximumRank      int     // 0 is unlimited
	Recompress       bool
}

func DefaultAcaOptions() AcaOptions {
	return AcaOptions{
		Eps:              1.e-4,
		Eta:              1.2,
		MinimumBlockSize: 16,
		Recompress:       true,
	}
}

// Options is read-only during an assembly run
type Options struct {
	Mode                        Mode
	Aca                         AcaOptions
	MaxThreadCount              int // utils.AutoThreads for one per CPU
	Verbosity                   Verbosity
	SingularIntegralCaching     bool
	SparseStorageOfMassMatrices bool
	JointAssembly               bool
	Accuracy                    quadrature.AccuracyOptions
	DenseMemoryLimit            int64 // bytes, 0 is unlimited
	Logger                      *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		Mode:                        Dense,
		Aca:                         DefaultAcaOptions(),
		MaxThreadCount:              utils.AutoThreads,
		Verbosity:                   Default,
		SingularIntegralCaching:     true,
		SparseStorageOfMassMatrices: true,
		Accuracy:                    quadrature.DefaultAccuracyOptions(),
	}
}

// SwitchToAca selects hierarchical assembly with the given parameters
func (o *Options) SwitchToAca(aca AcaOptions) {
	o.Mode = ACA
	o.Aca = aca
}

func (o *Options) SwitchToDense() { o.Mode = Dense }

func (o Options) Validate() error {
	if o.MaxThreadCount == 0 || o.MaxThreadCount < utils.AutoThreads {
		return fmt.Errorf("%w: thread count must be positive or AUTO, have %d",
			types.ErrConfiguration, o.MaxThreadCount)
	}
	if o.Mode == ACA {
		if o.Aca.Eps <= 0 || o.Aca.Eta <= 0 || o.Aca.MinimumBlockSize < 1 || o.Aca.MaximumRank < 0 {
			return fmt.Errorf("%w: invalid ACA options %+v", types.ErrConfiguration, o.Aca)
		}
	}
	if o.DenseMemoryLimit < 0 {
		return fmt.Errorf("%w: negative memory limit", types.ErrConfiguration)
	}
	return nil
}

// Strategy is the quadrature order policy configured by Accuracy
func (o Options) Strategy() quadrature.Strategy {
	return quadrature.NewNumericalStrategy(o.Accuracy)
}

// logger returns the configured logger filtered by verbosity
func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	switch o.Verbosity {
	case Low:
		return o.Logger.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))
	case Default:
		return o.Logger.WithOptions(zap.IncreaseLevel(zapcore.InfoLevel))
	}
	return o.Logger
}
