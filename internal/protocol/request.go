package protocol

import (
	"strings"

	"github.com/cwbudde/analysisexchange/internal/analysis"
)

// Fragment positions of a request message.
const (
	reqParams     = 2
	reqFlags      = 4
	reqClientData = 5
	reqMinFrags   = 6
)

// requestFlags is the order of request flags on the wire.
var requestFlags = []analysis.Quantity{
	analysis.Objective,
	analysis.Constraints,
	analysis.ObjectiveGradient,
	analysis.ConstraintGradients,
}

// FormatRequest writes the parameters and request flags of r together with
// opaque client data:
//
//	{
//	  {p1, p2, ...},
//	  {reqObj, reqConstr, reqGradObj, reqGradConstr},
//	  clientData
//	}
//
// clientData must not contain braces.
func FormatRequest(r *analysis.Result, clientData string) string {
	var b strings.Builder
	b.WriteString("{\n")
	b.WriteString("  {" + joinNumbers(parameters(r)) + "},\n")
	b.WriteString("  {" + joinFlags(flagValues(r.IsRequested)...) + "},\n")
	b.WriteString("  " + clientData + "\n")
	b.WriteString("}")
	return b.String()
}

// ParseRequest reads a request message into r and returns its client data.
// Parameters are only replaced when the message carries any. Hessian request
// flags are not part of the message and are left alone.
func ParseRequest(text string, r *analysis.Result) (string, error) {
	const op = "ParseRequest"
	m, err := newMessage(op, text, reqMinFrags)
	if err != nil {
		return "", err
	}

	params, err := m.numbers(reqParams)
	if err != nil {
		return "", err
	}
	flags, err := m.flags(reqFlags, len(requestFlags))
	if err != nil {
		return "", err
	}
	client, err := m.at(reqClientData)
	if err != nil {
		return "", err
	}

	if len(params) > 0 {
		if err := r.SetParameters(params); err != nil {
			return "", err
		}
	}
	for i, q := range requestFlags {
		r.SetRequested(q, flags[i])
	}
	client = strings.TrimSpace(client)
	client = strings.TrimSpace(strings.TrimPrefix(client, ","))
	return client, nil
}

// parameters returns the parameter vector, or zeros of the declared length
// when none is held, so the count survives a round trip.
func parameters(r *analysis.Result) []float64 {
	if p := r.Parameters(); p != nil {
		return p
	}
	return make([]float64, r.NumParameters())
}

func flagValues(get func(analysis.Quantity) bool) []bool {
	out := make([]bool, len(requestFlags))
	for i, q := range requestFlags {
		out[i] = get(q)
	}
	return out
}
