package stats

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/verte-zerg/cpkgen/internal/model"
)

// IndexKind tags how a capability index should be read.
type IndexKind int

const (
	// Finite indices carry a usable Value.
	Finite IndexKind = iota
	// Infinite indices come from a zero dispersion or an absent specification side.
	Infinite
	// Undefined indices could not be computed.
	Undefined
)

// Index is a capability value tagged with its kind.
type Index struct {
	Kind  IndexKind
	Value float64
}

// FiniteIndex wraps v, classifying infinities and NaN.
func FiniteIndex(v float64) Index {
	switch {
	case math.IsNaN(v):
		return Index{Kind: Undefined, Value: math.NaN()}
	case math.IsInf(v, 0):
		return Index{Kind: Infinite, Value: v}
	default:
		return Index{Kind: Finite, Value: v}
	}
}

// InfiniteIndex returns a positive infinite index.
func InfiniteIndex() Index {
	return Index{Kind: Infinite, Value: math.Inf(1)}
}

// IsFinite reports whether the index carries a usable value.
func (i Index) IsFinite() bool {
	return i.Kind == Finite
}

// Float returns the index as a float64, using +Inf and NaN for the non-finite kinds.
func (i Index) Float() float64 {
	switch i.Kind {
	case Infinite:
		if i.Value < 0 {
			return math.Inf(-1)
		}
		return math.Inf(1)
	case Undefined:
		return math.NaN()
	default:
		return i.Value
	}
}

// Format renders the index with the given decimals.
func (i Index) Format(decimals int) string {
	switch i.Kind {
	case Infinite:
		if i.Value < 0 {
			return "-∞"
		}
		return "∞"
	case Undefined:
		return "N/A"
	default:
		return fmt.Sprintf("%.*f", decimals, i.Value)
	}
}

// MarshalJSON encodes finite values as numbers and the other kinds as strings.
func (i Index) MarshalJSON() ([]byte, error) {
	switch i.Kind {
	case Finite:
		return json.Marshal(i.Value)
	case Infinite:
		if i.Value < 0 {
			return json.Marshal("-inf")
		}
		return json.Marshal("inf")
	default:
		return []byte("null"), nil
	}
}

// MarshalYAML mirrors MarshalJSON.
func (i Index) MarshalYAML() (interface{}, error) {
	switch i.Kind {
	case Finite:
		return i.Value, nil
	case Infinite:
		return i.Float(), nil
	default:
		return nil, nil
	}
}

// Grade classifies a capability index for display.
type Grade string

// Grades, from best to worst.
const (
	GradeGood    Grade = "good"
	GradeOK      Grade = "ok"
	GradeWarning Grade = "warning"
	GradeBad     Grade = "bad"
)

// GradeOf maps an index to a grade using the 1.67 / 1.33 / 1.0 thresholds.
func GradeOf(i Index) Grade {
	if !i.IsFinite() {
		return GradeBad
	}
	switch {
	case i.Value >= 1.67:
		return GradeGood
	case i.Value >= 1.33:
		return GradeOK
	case i.Value >= 1.0:
		return GradeWarning
	default:
		return GradeBad
	}
}

// Report is the full capability and performance summary for a sample.
type Report struct {
	SpecType      model.SpecType `json:"spec_type" yaml:"spec_type"`
	LSL           *float64       `json:"lsl" yaml:"lsl"`
	USL           *float64       `json:"usl" yaml:"usl"`
	N             int            `json:"n" yaml:"n"`
	Mean          float64        `json:"mean" yaml:"mean"`
	Min           float64        `json:"min" yaml:"min"`
	Max           float64        `json:"max" yaml:"max"`
	Target        float64        `json:"target" yaml:"target"`
	MeanToTarget  float64        `json:"mean_to_target" yaml:"mean_to_target"`
	StdDevOverall float64        `json:"std_dev_overall" yaml:"std_dev_overall"`
	StdDevWithin  float64        `json:"std_dev_within" yaml:"std_dev_within"`

	Cp  Index `json:"cp" yaml:"cp"`
	Cpk Index `json:"cpk" yaml:"cpk"`
	Cpu Index `json:"cpu" yaml:"cpu"`
	Cpl Index `json:"cpl" yaml:"cpl"`
	Pp  Index `json:"pp" yaml:"pp"`
	Ppk Index `json:"ppk" yaml:"ppk"`
	Ppu Index `json:"ppu" yaml:"ppu"`
	Ppl Index `json:"ppl" yaml:"ppl"`
	K   Index `json:"k_percent" yaml:"k_percent"`
	Cr  Index `json:"cr" yaml:"cr"`

	ObservedPPM        float64 `json:"observed_ppm" yaml:"observed_ppm"`
	ExpectedPPMWithin  float64 `json:"expected_ppm_within" yaml:"expected_ppm_within"`
	ExpectedPPMOverall float64 `json:"expected_ppm_overall" yaml:"expected_ppm_overall"`
}

// Capability computes the full report for a sample.
func Capability(values []float64, spec model.Specification, subgroupSize int) (Report, error) {
	d, err := EstimateDispersion(values, subgroupSize)
	if err != nil {
		return Report{}, err
	}
	mean := Mean(values)
	r := Indices(mean, d, spec)
	r.N = len(values)
	r.Min, r.Max = minMax(values)
	r.ObservedPPM = observedPPM(values, spec)
	return r, nil
}

// Cpk computes only the within-subgroup Cpk, the quantity the search optimizes.
func Cpk(values []float64, spec model.Specification, subgroupSize int) (Index, error) {
	d, err := EstimateDispersion(values, subgroupSize)
	if err != nil {
		return Index{}, err
	}
	cpk, _, _, _ := sideIndices(Mean(values), d.Within, spec)
	return cpk, nil
}

// Indices derives every index from a mean and dispersion estimate.
func Indices(mean float64, d Dispersion, spec model.Specification) Report {
	r := Report{
		SpecType:      spec.Type,
		LSL:           spec.LSL,
		USL:           spec.USL,
		Mean:          mean,
		StdDevOverall: d.Overall,
		StdDevWithin:  d.Within,
	}
	r.Cpk, r.Cp, r.Cpu, r.Cpl = sideIndices(mean, d.Within, spec)
	r.Ppk, r.Pp, r.Ppu, r.Ppl = sideIndices(mean, d.Overall, spec)

	if width, ok := spec.Width(); ok {
		r.Target = (*spec.LSL + *spec.USL) / 2
		r.MeanToTarget = mean - r.Target
		r.K = FiniteIndex(math.Abs(r.MeanToTarget) / (width / 2) * 100)
		switch {
		case r.Cp.Kind == Infinite:
			r.Cr = FiniteIndex(0)
		case r.Cp.IsFinite() && r.Cp.Value > 0:
			r.Cr = FiniteIndex(1 / r.Cp.Value)
		default:
			r.Cr = InfiniteIndex()
		}
	} else {
		r.Target = mean
		r.MeanToTarget = 0
		r.K = FiniteIndex(0)
		r.Cr = InfiniteIndex()
	}

	r.ExpectedPPMWithin = expectedPPM(mean, d.Within, spec)
	r.ExpectedPPMOverall = expectedPPM(mean, d.Overall, spec)
	return r
}

// sideIndices returns (k, potential, upper, lower) for one sigma estimate.
func sideIndices(mean, sigma float64, spec model.Specification) (k, potential, upper, lower Index) {
	if sigma <= 0 || math.IsNaN(sigma) {
		inf := InfiniteIndex()
		return inf, inf, inf, inf
	}
	upper, lower = InfiniteIndex(), InfiniteIndex()
	if spec.Type.HasUSL() && spec.USL != nil {
		upper = FiniteIndex((*spec.USL - mean) / (3 * sigma))
	}
	if spec.Type.HasLSL() && spec.LSL != nil {
		lower = FiniteIndex((mean - *spec.LSL) / (3 * sigma))
	}
	potential = InfiniteIndex()
	switch spec.Type {
	case model.Bilateral:
		if width, ok := spec.Width(); ok {
			potential = FiniteIndex(width / (6 * sigma))
		}
		k = minIndex(upper, lower)
	case model.UnilateralLSL:
		k = lower
	default:
		k = upper
	}
	return k, potential, upper, lower
}

func minIndex(a, b Index) Index {
	if a.Float() <= b.Float() {
		return a
	}
	return b
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func observedPPM(values []float64, spec model.Specification) float64 {
	if len(values) == 0 {
		return 0
	}
	out := 0
	for _, v := range values {
		if spec.LSL != nil && v < *spec.LSL {
			out++
			continue
		}
		if spec.USL != nil && v > *spec.USL {
			out++
		}
	}
	return float64(out) / float64(len(values)) * 1e6
}

// expectedPPM is the normal-model fraction outside the specification, in ppm.
func expectedPPM(mean, sigma float64, spec model.Specification) float64 {
	if sigma <= 0 {
		return 0
	}
	var p float64
	if spec.LSL != nil {
		p += 0.5 * math.Erfc((mean-*spec.LSL)/(sigma*math.Sqrt2))
	}
	if spec.USL != nil {
		p += 0.5 * math.Erfc((*spec.USL-mean)/(sigma*math.Sqrt2))
	}
	return p * 1e6
}
