package transform

import (
	"fmt"
	"strings"

	"github.com/huangsam/geoseries/schema"
)

// Names of the transforms a recipe can reference.
const (
	OpScale                = "scale"
	OpUnscale              = "unscale"
	OpMMToInches           = "mm_to_inches"
	OpLandsatThermal       = "landsat_thermal"
	OpMaskBits             = "mask_bits"
	OpNormalizedDifference = "normalized_difference"
	OpLST                  = "lst"
	OpFocalMedian          = "focal_median"
	OpSlope                = "slope"
	OpSelect               = "select"
	OpRename               = "rename"
)

// Lookup resolves a recipe transform step.
func Lookup(spec schema.TransformSpec) (Func, error) {
	output := spec.Output
	if output == "" {
		output = spec.Band
	}
	need := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("transform %q requires %s", spec.Op, field)
		}
		return nil
	}

	switch strings.ToLower(spec.Op) {
	case OpScale:
		if err := need("band", spec.Band); err != nil {
			return nil, err
		}
		return ScaleTo(spec.Band, output, spec.Mul, spec.Add), nil
	case OpUnscale:
		if err := need("band", spec.Band); err != nil {
			return nil, err
		}
		return Unscale(spec.Band, spec.Mul, spec.Add), nil
	case OpMMToInches:
		if err := need("band", spec.Band); err != nil {
			return nil, err
		}
		return ScaleTo(spec.Band, output, MMToInches, 0), nil
	case OpLandsatThermal:
		band := spec.Band
		if band == "" {
			band = DefaultLSTParams().Thermal
		}
		if output == "" {
			output = band
		}
		return ScaleTo(band, output, ThermalScale, ThermalOffset), nil
	case OpMaskBits:
		if err := need("band", spec.Band); err != nil {
			return nil, err
		}
		if len(spec.Bits) == 0 {
			return nil, fmt.Errorf("transform %q requires bits", spec.Op)
		}
		return MaskBits(spec.Band, spec.Bits...), nil
	case OpNormalizedDifference:
		if len(spec.Bands) != 2 {
			return nil, fmt.Errorf("transform %q requires exactly 2 bands", spec.Op)
		}
		if err := need("output", spec.Output); err != nil {
			return nil, err
		}
		return NormalizedDifference(spec.Bands[0], spec.Bands[1], spec.Output), nil
	case OpLST:
		p := DefaultLSTParams()
		if spec.Band != "" {
			p.Thermal = spec.Band
		}
		if len(spec.Bands) == 2 {
			p.NIR, p.Red = spec.Bands[0], spec.Bands[1]
		}
		if spec.Output != "" {
			p.Output = spec.Output
		}
		return LandSurfaceTemperature(p), nil
	case OpFocalMedian:
		if err := need("band", spec.Band); err != nil {
			return nil, err
		}
		if spec.Radius <= 0 {
			return nil, fmt.Errorf("transform %q requires a positive radius", spec.Op)
		}
		return FocalMedian(spec.Band, spec.Radius), nil
	case OpSlope:
		if err := need("band", spec.Band); err != nil {
			return nil, err
		}
		if spec.Output == "" {
			output = "slope"
		}
		return Slope(spec.Band, output), nil
	case OpSelect:
		if len(spec.Bands) == 0 {
			return nil, fmt.Errorf("transform %q requires bands", spec.Op)
		}
		return Select(spec.Bands...), nil
	case OpRename:
		if err := need("band", spec.Band); err != nil {
			return nil, err
		}
		if err := need("output", spec.Output); err != nil {
			return nil, err
		}
		return Rename(spec.Band, spec.Output), nil
	default:
		return nil, fmt.Errorf("unknown transform %q", spec.Op)
	}
}

// Build resolves a list of steps into one chained transform.
func Build(specs []schema.TransformSpec) (Func, error) {
	fs := make([]Func, 0, len(specs))
	for i, spec := range specs {
		f, err := Lookup(spec)
		if err != nil {
			return nil, fmt.Errorf("transform %d: %w", i+1, err)
		}
		fs = append(fs, f)
	}
	return Chain(fs...), nil
}

// Describe renders a step for plan output.
func Describe(spec schema.TransformSpec) string {
	switch strings.ToLower(spec.Op) {
	case OpScale, OpUnscale:
		return fmt.Sprintf("%s(%s, mul=%g, add=%g)", spec.Op, spec.Band, spec.Mul, spec.Add)
	case OpMaskBits:
		return fmt.Sprintf("%s(%s, bits=%v)", spec.Op, spec.Band, spec.Bits)
	case OpNormalizedDifference, OpSelect:
		return fmt.Sprintf("%s(%s)", spec.Op, strings.Join(spec.Bands, ", "))
	case OpFocalMedian:
		return fmt.Sprintf("%s(%s, radius=%gm)", spec.Op, spec.Band, spec.Radius)
	default:
		if spec.Band == "" {
			return spec.Op
		}
		return fmt.Sprintf("%s(%s)", spec.Op, spec.Band)
	}
}
