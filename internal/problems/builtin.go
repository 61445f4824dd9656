package problems

import "gonum.org/v1/gonum/mat"

func init() {
	register(&Problem{
		Name:        "quadratic",
		Description: "unconstrained (x0-1)^2 + (x1+2)^2",
		Lower:       filled(2, -5),
		Upper:       filled(2, 5),
		Optimum:     []float64{1, -2},
		objective:   sumSquares([]float64{1, -2}),
	})

	register(&Problem{
		Name:        "rosenbrock",
		Description: "Rosenbrock function inside the disk x^2 + y^2 <= 2",
		Lower:       filled(2, -1.5),
		Upper:       filled(2, 1.5),
		Optimum:     []float64{1, 1},
		objective: scalar{
			f: func(x []float64) float64 {
				a, b := 1-x[0], x[1]-x[0]*x[0]
				return a*a + 100*b*b
			},
			grad: func(x []float64) []float64 {
				b := x[1] - x[0]*x[0]
				return []float64{-2*(1-x[0]) - 400*x[0]*b, 200 * b}
			},
			hess: func(x []float64) *mat.Dense {
				xy := -400 * x[0]
				return mat.NewDense(2, 2, []float64{
					2 - 400*x[1] + 1200*x[0]*x[0], xy,
					xy, 200,
				})
			},
		},
		constraints: []scalar{{
			f: func(x []float64) float64 { return x[0]*x[0] + x[1]*x[1] - 2 },
			grad: func(x []float64) []float64 {
				return []float64{2 * x[0], 2 * x[1]}
			},
			hess: func(x []float64) *mat.Dense { return scaledIdentity(2, 2) },
		}},
	})

	register(&Problem{
		Name:        "sphere-eq",
		Description: "sum of squares subject to x0 >= 1 and x0 + x1 + x2 = 3",
		Lower:       filled(3, -5),
		Upper:       filled(3, 5),
		Optimum:     []float64{1, 1, 1},
		numEq:       1,
		objective:   sumSquares(make([]float64, 3)),
		constraints: []scalar{
			linear([]float64{-1, 0, 0}, 1),
			linear([]float64{1, 1, 1}, -3),
		},
	})
}
