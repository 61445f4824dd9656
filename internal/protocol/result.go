package protocol

import (
	"strconv"
	"strings"

	"github.com/cwbudde/analysisexchange/internal/analysis"
)

// Fragment positions of a result message. The constraint gradient rows sit
// between resRowsStart and the error code, so the tail is addressed from the
// end of the message.
const (
	resParams       = 2
	resObjective    = 4
	resConstraints  = 5
	resGradObjFlag  = 6
	resGradObj      = 7
	resGradConFlag  = 8
	resRowsStart    = 10
	resErrorFromEnd = 5
	resFlagsFromEnd = 3
	resMinFrags     = 15
)

// FormatResult writes the computed quantities of r:
//
//	{
//	  {p1, ...},
//	  {
//	    calcObj, objective,
//	    calcConstr, {c1, ...},
//	    calcGradObj, {g1, ...},
//	    calcGradConstr, {
//	      {g1,1, ...},
//	      ...
//	    },
//	    errorCode
//	  },
//	  {reqObj, reqConstr, reqGradObj, reqGradConstr}
//	}
//
// Hessians and the error string are not part of the format. Missing
// parameters and constraint values are written as zeros of the declared
// size, as are missing gradient rows. A gradient flagged as calculated
// without storage is written as zeros too, so that the text never claims a
// quantity it does not carry.
func FormatResult(r *analysis.Result) string {
	var b strings.Builder
	b.WriteString("{\n")
	b.WriteString("  {" + joinNumbers(parameters(r)) + "},\n")
	b.WriteString("  {\n")
	b.WriteString("    " + formatBool(r.IsCalculated(analysis.Objective)) + ", " + FormatFloat(r.Objective()) + ",\n")
	b.WriteString("    " + formatBool(r.IsCalculated(analysis.Constraints)) + ", {" + joinNumbers(constraints(r)) + "},\n")
	b.WriteString("    " + formatBool(r.IsCalculated(analysis.ObjectiveGradient)) + ", {" + joinNumbers(objectiveGradient(r)) + "},\n")
	b.WriteString("    " + formatBool(r.IsCalculated(analysis.ConstraintGradients)) + ", {\n")

	rows := constraintGradients(r)
	for k, g := range rows {
		if g == nil {
			g = make([]float64, r.NumParameters())
		}
		b.WriteString("      {" + joinNumbers(g) + "}")
		if k < len(rows)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}

	b.WriteString("    },\n")
	b.WriteString("    " + strconv.Itoa(r.ErrorCode()) + "\n")
	b.WriteString("  },\n")
	b.WriteString("  {" + joinFlags(flagValues(r.IsRequested)...) + "}\n")
	b.WriteString("}")
	return b.String()
}

// ParseResult reads a result message into r. The objective, the constraint
// values and the four calculated flags are always replaced; parameters, the
// objective gradient and the constraint gradients only when present.
func ParseResult(text string, r *analysis.Result) error {
	const op = "ParseResult"
	m, err := newMessage(op, text, resMinFrags)
	if err != nil {
		return err
	}

	params, err := m.numbers(resParams)
	if err != nil {
		return err
	}

	head, err := m.tokens(resObjective, 3)
	if err != nil {
		return err
	}
	calcObj, err := ParseBool(head[0])
	if err != nil {
		return err
	}
	objective, err := ParseFloat(head[1])
	if err != nil {
		return err
	}
	calcCon, err := ParseBool(head[2])
	if err != nil {
		return err
	}

	cons, err := m.numbers(resConstraints)
	if err != nil {
		return err
	}
	calcGradObj, err := m.flag(resGradObjFlag)
	if err != nil {
		return err
	}
	gradObj, err := m.numbers(resGradObj)
	if err != nil {
		return err
	}
	calcGradCon, err := m.flag(resGradConFlag)
	if err != nil {
		return err
	}

	end := m.count() - resErrorFromEnd
	rows, err := m.rows(resRowsStart, end)
	if err != nil {
		return err
	}
	switch {
	case calcGradObj && len(gradObj) == 0:
		return analysis.Errorf(analysis.ParseFailure, op, "objective gradient flagged as calculated but empty")
	case calcGradCon && len(rows) == 0 && len(cons) > 0:
		return analysis.Errorf(analysis.ParseFailure, op, "constraint gradients flagged as calculated but empty")
	case len(rows) > 0 && len(rows) != len(cons):
		return analysis.Errorf(analysis.ParseFailure, op, "%d constraint gradient rows for %d constraints", len(rows), len(cons))
	}

	tail, err := m.tokens(end, 1)
	if err != nil {
		return err
	}
	code, err := parseInt(tail[0])
	if err != nil {
		return err
	}
	req, err := m.flags(m.count()-resFlagsFromEnd, len(requestFlags))
	if err != nil {
		return err
	}

	if len(params) > 0 {
		if err := r.SetParameters(params); err != nil {
			return err
		}
	}
	r.SetObjective(objective)
	r.SetCalculatedQuantity(analysis.Objective, calcObj)
	if err := r.SetConstraints(cons); err != nil {
		return err
	}
	r.SetCalculatedQuantity(analysis.Constraints, calcCon)
	if len(gradObj) > 0 {
		r.SetObjectiveGradient(gradObj)
	}
	r.SetCalculatedQuantity(analysis.ObjectiveGradient, calcGradObj)
	if len(rows) > 0 {
		r.SetConstraintGradients(rows)
	}
	r.SetCalculatedQuantity(analysis.ConstraintGradients, calcGradCon)
	r.SetErrorCode(code)
	for i, q := range requestFlags {
		r.SetRequested(q, req[i])
	}
	return nil
}

// objectiveGradient returns the objective gradient, or zeros of the
// parameter count when it is flagged as calculated but not held.
func objectiveGradient(r *analysis.Result) []float64 {
	g := r.ObjectiveGradient()
	if g == nil && r.IsCalculated(analysis.ObjectiveGradient) {
		return make([]float64, r.NumParameters())
	}
	return g
}

// constraintGradients returns the gradient rows, or one nil row per
// constraint when they are flagged as calculated but not held.
func constraintGradients(r *analysis.Result) [][]float64 {
	rows := r.ConstraintGradients()
	if rows == nil && r.IsCalculated(analysis.ConstraintGradients) {
		return make([][]float64, r.NumConstraints())
	}
	return rows
}

// constraints returns the constraint values, or zeros of the declared count
// when none are held.
func constraints(r *analysis.Result) []float64 {
	if c := r.Constraints(); c != nil {
		return c
	}
	return make([]float64, r.NumConstraints())
}
