package notify

import (
	"github.com/Knetic/govaluate"
	"github.com/pkg/errors"

	"github.com/smartvision/visionhome/detection"
)

// Filter decides which detections raise an alert, from an expression over
// object, confidence, hour and timestamp, e.g.
//
//	confidence >= 60 && object != 'person'
type Filter struct {
	expression *govaluate.EvaluableExpression
}

// NewFilter parses when. An empty expression matches everything.
func NewFilter(when string) (*Filter, error) {
	if when == "" {
		return &Filter{}, nil
	}
	expression, err := govaluate.NewEvaluableExpression(when)
	if err != nil {
		return nil, errors.Wrapf(err, "alert expression %q", when)
	}
	return &Filter{expression: expression}, nil
}

func (self *Filter) String() string {
	if self.expression == nil {
		return "always"
	}
	return self.expression.String()
}

func (self *Filter) Match(r detection.Record) (bool, error) {
	if self.expression == nil {
		return true, nil
	}
	fields := r.Fields()
	// govaluate compares numbers as float64
	fields["hour"] = float64(r.Hour)
	result, err := self.expression.Evaluate(fields)
	if err != nil {
		return false, errors.Wrap(err, "evaluating alert expression")
	}
	match, ok := result.(bool)
	if !ok {
		return false, errors.Errorf("alert expression returned %v, not a boolean", result)
	}
	return match, nil
}
