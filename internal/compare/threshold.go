package compare

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Threshold is one acceptance rule: <Param> <Op> <Value>.
type Threshold struct {
	Param string  `json:"param" yaml:"param"`
	Op    Op      `json:"op" yaml:"op"`
	Value float64 `json:"value" yaml:"value"`
}

func (t Threshold) String() string {
	return fmt.Sprintf("%s %s %g", t.Param, t.Op, t.Value)
}

// rawThreshold carries the operator as written so decode errors can name
// the parameter and a missing op is caught.
type rawThreshold struct {
	Param string  `json:"param" yaml:"param"`
	Op    string  `json:"op" yaml:"op"`
	Value float64 `json:"value" yaml:"value"`
}

func (r rawThreshold) threshold() (Threshold, error) {
	op, err := Parse(r.Op)
	if err != nil {
		return Threshold{}, fmt.Errorf("threshold %q: %w", r.Param, err)
	}
	return Threshold{Param: r.Param, Op: op, Value: r.Value}, nil
}

// UnmarshalYAML rejects an unknown or missing operator.
func (t *Threshold) UnmarshalYAML(node *yaml.Node) error {
	var r rawThreshold
	if err := node.Decode(&r); err != nil {
		return err
	}
	th, err := r.threshold()
	if err != nil {
		return err
	}
	*t = th
	return nil
}

// UnmarshalJSON rejects an unknown or missing operator.
func (t *Threshold) UnmarshalJSON(data []byte) error {
	var r rawThreshold
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	th, err := r.threshold()
	if err != nil {
		return err
	}
	*t = th
	return nil
}

// Validate reports the first threshold with an empty parameter or an
// operator outside Ops().
func Validate(thresholds []Threshold) error {
	for i, th := range thresholds {
		if th.Param == "" {
			return fmt.Errorf("threshold %d: empty param", i)
		}
		if !th.Op.Valid() {
			return fmt.Errorf("threshold %d (%s): %w %s", i, th.Param, ErrUnknownOperator, th.Op)
		}
	}
	return nil
}

// Outcome records how a threshold evaluated against a fitted value.
type Outcome struct {
	Threshold Threshold `json:"threshold"`
	Actual    float64   `json:"actual"`
	Found     bool      `json:"found"`
	Passed    bool      `json:"passed"`
}

// Lookup resolves a threshold parameter name to a value.
type Lookup func(param string) (float64, bool)

// Check evaluates every threshold. A parameter the lookup cannot resolve, or
// an invalid operator, fails its check. The returned bool is true only when
// all checks pass.
func Check(thresholds []Threshold, lookup Lookup) ([]Outcome, bool) {
	out := make([]Outcome, 0, len(thresholds))
	all := true
	for _, th := range thresholds {
		o := Outcome{Threshold: th}
		if v, ok := lookup(th.Param); ok {
			o.Found = true
			o.Actual = v
			o.Passed = th.Op.Eval(v, th.Value)
		}
		if !o.Passed {
			all = false
		}
		out = append(out, o)
	}
	return out, all
}
