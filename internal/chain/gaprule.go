package chain

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Knetic/govaluate"
)

var ErrInvalidGapRule = errors.New("invalid strike gap rule")

// GapRule derives the default strike gap from the resolved spot, for
// requests that do not name one. The expression sees two parameters, spot
// and symbol, and must yield a positive whole number:
//
//	symbol == 'BANKNIFTY' ? 100 : (spot >= 40000 ? 100 : 50)
type GapRule struct {
	source string
	expr   *govaluate.EvaluableExpression
}

// ParseGapRule compiles expr.
func ParseGapRule(expr string) (*GapRule, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidGapRule)
	}
	compiled, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidGapRule, expr, err)
	}
	for _, v := range compiled.Vars() {
		if v != "spot" && v != "symbol" {
			return nil, fmt.Errorf("%w: unknown variable %q", ErrInvalidGapRule, v)
		}
	}
	return &GapRule{source: expr, expr: compiled}, nil
}

// Gap evaluates the rule for one resolved spot.
func (r *GapRule) Gap(symbol string, spot float64) (int, error) {
	result, err := r.expr.Evaluate(map[string]interface{}{
		"spot":   spot,
		"symbol": symbol,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidGapRule, err)
	}

	f, ok := result.(float64)
	if !ok || f <= 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %q gave %v for %s at %.2f", ErrInvalidGapRule, r.source, result, symbol, spot)
	}
	return int(f), nil
}

func (r *GapRule) String() string { return r.source }
