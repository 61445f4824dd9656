package analysis

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"gonum.org/v1/gonum/mat"
)

// DTO is the serializable form of a Result. Hessians are stored row by row;
// a nil Hessian or gradient stays null.
type DTO struct {
	NumParameters          int `json:"numParameters" yaml:"numParameters" validate:"gte=0"`
	NumObjectives          int `json:"numObjectives" yaml:"numObjectives" validate:"gte=0,lte=1"`
	NumConstraints         int `json:"numConstraints" yaml:"numConstraints" validate:"gte=0"`
	NumEqualityConstraints int `json:"numEqualityConstraints" yaml:"numEqualityConstraints" validate:"gte=0,ltefield=NumConstraints"`

	Parameters          []float64     `json:"parameters"`
	Objective           float64       `json:"objective"`
	ObjectiveGradient   []float64     `json:"objectiveGradient,omitempty"`
	ObjectiveHessian    [][]float64   `json:"objectiveHessian,omitempty"`
	Constraints         []float64     `json:"constraints,omitempty"`
	ConstraintGradients [][]float64   `json:"constraintGradients,omitempty"`
	ConstraintHessians  [][][]float64 `json:"constraintHessians,omitempty"`

	ReqObjective              bool `json:"reqObjective"`
	ReqObjectiveGradient      bool `json:"reqObjectiveGradient"`
	ReqObjectiveHessian       bool `json:"reqObjectiveHessian"`
	ReqConstraints            bool `json:"reqConstraints"`
	ReqConstraintGradients    bool `json:"reqConstraintGradients"`
	ReqConstraintHessians     bool `json:"reqConstraintHessians"`
	CalculatedObjective       bool `json:"calculatedObjective"`
	CalculatedObjectiveGrad   bool `json:"calculatedObjectiveGradient"`
	CalculatedObjectiveHess   bool `json:"calculatedObjectiveHessian"`
	CalculatedConstraints     bool `json:"calculatedConstraints"`
	CalculatedConstraintGrads bool `json:"calculatedConstraintGradients"`
	CalculatedConstraintHess  bool `json:"calculatedConstraintHessians"`

	ErrorCode   int    `json:"errorCode"`
	ErrorString string `json:"errorString,omitempty"`

	CopyReferences bool `json:"copyReferences"`
}

var dtoValidate = validator.New()

// Validate checks the dimension fields of the DTO.
func (d *DTO) Validate() error {
	if err := dtoValidate.Struct(d); err != nil {
		return Wrap(InvalidArgument, "DTO.Validate", err)
	}
	return nil
}

// CopyFrom fills d from r.
func (d *DTO) CopyFrom(r *Result) {
	d.NumParameters = r.numParameters
	d.NumObjectives = r.numObjectives
	d.NumConstraints = r.numConstraints
	d.NumEqualityConstraints = r.numEqualityConstraints

	d.Parameters = cloneVector(r.parameters)
	d.Objective = r.objective
	d.ObjectiveGradient = cloneVector(r.objectiveGradient)
	d.ObjectiveHessian = matrixRows(r.objectiveHessian)
	d.Constraints = cloneVector(r.constraints)
	d.ConstraintGradients = cloneVectors(r.constraintGradients)
	d.ConstraintHessians = nil
	if r.constraintHessians != nil {
		d.ConstraintHessians = make([][][]float64, len(r.constraintHessians))
		for k, h := range r.constraintHessians {
			d.ConstraintHessians[k] = matrixRows(h)
		}
	}

	d.ReqObjective = r.requested.Has(Objective)
	d.ReqObjectiveGradient = r.requested.Has(ObjectiveGradient)
	d.ReqObjectiveHessian = r.requested.Has(ObjectiveHessian)
	d.ReqConstraints = r.requested.Has(Constraints)
	d.ReqConstraintGradients = r.requested.Has(ConstraintGradients)
	d.ReqConstraintHessians = r.requested.Has(ConstraintHessians)
	d.CalculatedObjective = r.calculated.Has(Objective)
	d.CalculatedObjectiveGrad = r.calculated.Has(ObjectiveGradient)
	d.CalculatedObjectiveHess = r.calculated.Has(ObjectiveHessian)
	d.CalculatedConstraints = r.calculated.Has(Constraints)
	d.CalculatedConstraintGrads = r.calculated.Has(ConstraintGradients)
	d.CalculatedConstraintHess = r.calculated.Has(ConstraintHessians)

	d.ErrorCode = r.errorCode
	d.ErrorString = r.errorString
	d.CopyReferences = r.copyReferences
}

// CopyTo overwrites r with the DTO contents, including the copy mode. Data
// is always copied, so r shares nothing with d.
func (d *DTO) CopyTo(r *Result) error {
	if err := d.Validate(); err != nil {
		return err
	}
	objHess, err := rowsMatrix(d.ObjectiveHessian)
	if err != nil {
		return Wrap(InvalidArgument, "DTO.CopyTo", fmt.Errorf("objective Hessian: %w", err))
	}
	var conHess []*mat.Dense
	if d.ConstraintHessians != nil {
		conHess = make([]*mat.Dense, len(d.ConstraintHessians))
		for k, rows := range d.ConstraintHessians {
			if conHess[k], err = rowsMatrix(rows); err != nil {
				return Wrap(InvalidArgument, "DTO.CopyTo", fmt.Errorf("constraint Hessian %d: %w", k, err))
			}
		}
	}

	r.numParameters = d.NumParameters
	r.numObjectives = d.NumObjectives
	r.numConstraints = d.NumConstraints
	r.numEqualityConstraints = d.NumEqualityConstraints

	r.parameters = cloneVector(d.Parameters)
	r.objective = d.Objective
	r.objectiveGradient = cloneVector(d.ObjectiveGradient)
	r.objectiveHessian = objHess
	r.constraints = cloneVector(d.Constraints)
	r.constraintGradients = cloneVectors(d.ConstraintGradients)
	r.constraintHessians = conHess

	r.requested = flagSet(map[Quantity]bool{
		Objective:           d.ReqObjective,
		ObjectiveGradient:   d.ReqObjectiveGradient,
		ObjectiveHessian:    d.ReqObjectiveHessian,
		Constraints:         d.ReqConstraints,
		ConstraintGradients: d.ReqConstraintGradients,
		ConstraintHessians:  d.ReqConstraintHessians,
	})
	r.calculated = flagSet(map[Quantity]bool{
		Objective:           d.CalculatedObjective,
		ObjectiveGradient:   d.CalculatedObjectiveGrad,
		ObjectiveHessian:    d.CalculatedObjectiveHess,
		Constraints:         d.CalculatedConstraints,
		ConstraintGradients: d.CalculatedConstraintGrads,
		ConstraintHessians:  d.CalculatedConstraintHess,
	})

	r.errorCode = d.ErrorCode
	r.errorString = d.ErrorString
	r.copyReferences = d.CopyReferences
	return nil
}

// ToDTO is a convenience wrapper around DTO.CopyFrom.
func (r *Result) ToDTO() *DTO {
	d := &DTO{}
	d.CopyFrom(r)
	return d
}

func flagSet(flags map[Quantity]bool) Quantity {
	var q Quantity
	for f, on := range flags {
		if on {
			q |= f
		}
	}
	return q
}

func matrixRows(m *mat.Dense) [][]float64 {
	if m == nil {
		return nil
	}
	r, _ := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, m)
	}
	return rows
}

func rowsMatrix(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	n := len(rows[0])
	data := make([]float64, 0, len(rows)*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), n)
		}
		data = append(data, row...)
	}
	if n == 0 {
		return nil, fmt.Errorf("rows have no columns")
	}
	return mat.NewDense(len(rows), n, data), nil
}
