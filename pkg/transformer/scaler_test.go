package transformer

import (
	"math"
	"testing"

	"github.com/Troge-dev/Transfory/pkg/table"
)

func TestScalerMinMaxRange(t *testing.T) {
	data := table.MustNew(
		table.MustValues("x", 3, 7, 5, nil, 11),
		table.MustValues("label", "a", "b", "c", "d", "e"),
	)
	sc, _ := NewScaler(MethodMinMax)
	out, err := sc.FitTransform(data, nil)
	if err != nil {
		t.Fatal(err)
	}

	x, _ := out.Column("x")
	for i := range x.Len() {
		if x.IsMissing(i) {
			continue
		}
		if v := x.Float(i); v < 0 || v > 1 {
			t.Errorf("row %d = %v, outside [0,1]", i, v)
		}
	}
	if !approx(x.Float(0), 0) || !approx(x.Float(4), 1) {
		t.Errorf("min/max rows = %v, %v", x.Float(0), x.Float(4))
	}
	if !x.IsMissing(3) {
		t.Error("missing value should stay missing")
	}

	before, _ := data.Column("label")
	after, _ := out.Column("label")
	if before != after {
		t.Error("categorical column should not be touched")
	}
}

func TestScalerConstantColumn(t *testing.T) {
	for _, method := range []string{MethodMinMax, MethodZScore, MethodRobust} {
		t.Run(method, func(t *testing.T) {
			sc, _ := NewScaler(method)
			out, err := sc.FitTransform(table.MustNew(table.MustValues("c", 4, 4, 4)), nil)
			if err != nil {
				t.Fatal(err)
			}
			c, _ := out.Column("c")
			for i := range c.Len() {
				if v := c.Float(i); math.IsNaN(v) || math.IsInf(v, 0) || !approx(v, 0) {
					t.Errorf("row %d = %v, want ~0", i, v)
				}
			}
		})
	}
}

func TestScalerZScore(t *testing.T) {
	sc, _ := NewScaler(MethodZScore)
	out, err := sc.FitTransform(table.MustNew(table.MustValues("x", 2, 4, 6)), nil)
	if err != nil {
		t.Fatal(err)
	}
	p := sc.Params()["x"]
	if p["mean"] != 4 || !approx(p["std"], 2) {
		t.Errorf("params = %v, want mean 4 std 2", p)
	}
	x, _ := out.Column("x")
	if !approx(x.Float(0), -1) || !approx(x.Float(1), 0) || !approx(x.Float(2), 1) {
		t.Errorf("scaled = %v", x.Floats())
	}
}

func TestScalerRobust(t *testing.T) {
	sc, _ := NewScaler(MethodRobust)
	if err := sc.Fit(table.MustNew(table.MustValues("x", 1, 2, 3, 4, 100)), nil); err != nil {
		t.Fatal(err)
	}
	p := sc.Params()["x"]
	if p["median"] != 3 || p["iqr"] != 2 {
		t.Errorf("params = %v, want median 3 iqr 2", p)
	}
}

func TestScalerSkipsAllMissing(t *testing.T) {
	sc, _ := NewScaler(MethodMinMax)
	if err := sc.Fit(table.MustNew(table.MustValues("x", nil, nil)), nil); err != nil {
		t.Fatal(err)
	}
	if len(sc.Params()) != 0 {
		t.Errorf("Params() = %v, want none", sc.Params())
	}
}
