// Package estimator derives secondary body-composition metrics (water, lean
// body weight, fat) from a raw weight reading and the owner's profile.
//
// Each metric kind has a closed set of named formula variants. Variant names
// are resolved from configuration strings once at load time; the per-reading
// dispatch is a plain switch on the variant value.
package estimator

import (
	"fmt"

	"scaletrack/models"
)

// WaterFormula selects a total-body-water estimation variant.
type WaterFormula int

// LBWFormula selects a lean-body-weight estimation variant.
type LBWFormula int

// FatFormula selects a body-fat estimation variant.
type FatFormula int

const (
	TBWLeeSongKim WaterFormula = iota
	TBWHumeWeyers
)

const (
	LBWHume LBWFormula = iota
	LBWBoer
)

const (
	BFGallagher FatFormula = iota
	BFDeurenberg
)

// Default variants per metric kind.
const (
	DefaultWaterFormula = TBWLeeSongKim
	DefaultLBWFormula   = LBWHume
	DefaultFatFormula   = BFGallagher
)

var (
	waterNames = map[WaterFormula]string{
		TBWLeeSongKim: "TBW_LEESONGKIM",
		TBWHumeWeyers: "TBW_HUMEWEYERS",
	}
	lbwNames = map[LBWFormula]string{
		LBWHume: "LBW_HUME",
		LBWBoer: "LBW_BOER",
	}
	fatNames = map[FatFormula]string{
		BFGallagher:  "BF_GALLAGHER",
		BFDeurenberg: "BF_DEURENBERG",
	}
)

func (f WaterFormula) String() string { return waterNames[f] }
func (f LBWFormula) String() string   { return lbwNames[f] }
func (f FatFormula) String() string   { return fatNames[f] }

// ParseWaterFormula resolves a configured variant name.
func ParseWaterFormula(name string) (WaterFormula, error) {
	for f, n := range waterNames {
		if n == name {
			return f, nil
		}
	}
	return DefaultWaterFormula, fmt.Errorf("unknown water formula %q", name)
}

// ParseLBWFormula resolves a configured variant name.
func ParseLBWFormula(name string) (LBWFormula, error) {
	for f, n := range lbwNames {
		if n == name {
			return f, nil
		}
	}
	return DefaultLBWFormula, fmt.Errorf("unknown lean body weight formula %q", name)
}

// ParseFatFormula resolves a configured variant name.
func ParseFatFormula(name string) (FatFormula, error) {
	for f, n := range fatNames {
		if n == name {
			return f, nil
		}
	}
	return DefaultFatFormula, fmt.Errorf("unknown fat formula %q", name)
}

// Plan is the resolved estimator configuration: which metric kinds are
// derived at ingestion time, and with which variant.
type Plan struct {
	Water struct {
		Enabled bool
		Formula WaterFormula
	}
	LBW struct {
		Enabled bool
		Formula LBWFormula
	}
	Fat struct {
		Enabled bool
		Formula FatFormula
	}
}

// Water estimates the body water percentage of a reading.
func Water(f WaterFormula, u models.User, m models.Measurement) float32 {
	if m.Weight <= 0 {
		return 0
	}
	h := float64(u.BodyHeight)
	w := float64(m.Weight)
	male := u.Gender == models.GenderMale

	var tbw float64 // kg
	switch f {
	case TBWHumeWeyers:
		if male {
			tbw = 0.194786*h + 0.296785*w - 14.012934
		} else {
			tbw = 0.344547*h + 0.183809*w - 35.270121
		}
	default: // TBWLeeSongKim
		if male {
			tbw = -28.3497 + 0.243057*h + 0.366248*w
		} else {
			tbw = -26.6224 + 0.262513*h + 0.232948*w
		}
	}
	return clampPercent(tbw / w * 100)
}

// LBW estimates the lean body weight of a reading in kg.
func LBW(f LBWFormula, u models.User, m models.Measurement) float32 {
	h := float64(u.BodyHeight)
	w := float64(m.Weight)
	male := u.Gender == models.GenderMale

	var lbw float64
	switch f {
	case LBWBoer:
		if male {
			lbw = 0.407*w + 0.267*h - 19.2
		} else {
			lbw = 0.252*w + 0.473*h - 48.3
		}
	default: // LBWHume
		if male {
			lbw = 0.32810*w + 0.33929*h - 29.5336
		} else {
			lbw = 0.29569*w + 0.41813*h - 43.2933
		}
	}
	if lbw < 0 {
		lbw = 0
	}
	return float32(lbw)
}

// Fat estimates the body fat percentage of a reading.
func Fat(f FatFormula, u models.User, m models.Measurement) float32 {
	if u.BodyHeight <= 0 || m.Weight <= 0 {
		return 0
	}
	hm := float64(u.BodyHeight) / 100
	bmi := float64(m.Weight) / (hm * hm)
	age := float64(u.AgeAt(m.MeasuredAt))
	var sex float64
	if u.Gender == models.GenderMale {
		sex = 1
	}

	var fat float64
	switch f {
	case BFDeurenberg:
		fat = 1.2*bmi + 0.23*age - 10.8*sex - 5.4
	default: // BFGallagher
		fat = 64.5 - 848/bmi + 0.079*age - 16.4*sex + 0.05*sex*age + 39*sex/bmi
	}
	return clampPercent(fat)
}

func clampPercent(v float64) float32 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return float32(v)
}
