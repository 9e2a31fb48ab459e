package filter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/TheUndivideProject/Prototype-1/internal/logger"
	"github.com/TheUndivideProject/Prototype-1/internal/moduleconfig"
	"github.com/TheUndivideProject/Prototype-1/internal/table"
)

// Error codes for condition module
const (
	ErrCodeInvalidExpression = "INVALID_EXPRESSION"
	ErrCodeEvaluationFailed  = "EVALUATION_FAILED"
)

var (
	// ErrEmptyExpression is returned when no expression is configured.
	ErrEmptyExpression = errors.New("expression cannot be empty")
	// ErrInvalidExpression is returned when the expression does not compile.
	ErrInvalidExpression = errors.New("invalid expression syntax")
)

// ConditionConfig represents the configuration for a condition filter module.
type ConditionConfig struct {
	// Expression is an expr-lang boolean expression over the typed row.
	// Columns with spaces are addressed as $env["Public Float"].
	Expression string `json:"expression"`
	// OnError is "skip" (default: the row is excluded), "log", or "fail".
	OnError string `json:"onError,omitempty"`
}

// ConditionModule keeps rows for which an expression evaluates to true.
type ConditionModule struct {
	expression string
	onError    string
	program    *vm.Program
}

// ConditionError carries structured context for evaluation failures.
type ConditionError struct {
	Code       string
	Message    string
	Expression string
	RowIndex   int
}

func (e *ConditionError) Error() string {
	return e.Message
}

// ParseConditionConfig parses raw config into a ConditionConfig.
func ParseConditionConfig(cfg map[string]interface{}) (ConditionConfig, error) {
	expression, err := moduleconfig.String(cfg, "expression")
	if err != nil {
		return ConditionConfig{}, err
	}
	onError, err := moduleconfig.OptionalString(cfg, "onError", OnErrorSkip)
	if err != nil {
		return ConditionConfig{}, err
	}
	return ConditionConfig{Expression: expression, OnError: onError}, nil
}

// NewConditionFromConfig compiles the expression and returns the module.
func NewConditionFromConfig(config ConditionConfig) (*ConditionModule, error) {
	if strings.TrimSpace(config.Expression) == "" {
		return nil, ErrEmptyExpression
	}

	onError := config.OnError
	if onError == "" {
		onError = OnErrorSkip
	}
	if err := moduleconfig.ValidateOnError(onError); err != nil {
		return nil, err
	}

	program, err := expr.Compile(config.Expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	logger.Debug("condition module initialized",
		slog.String("expression", config.Expression),
		slog.String("on_error", onError),
	)

	return &ConditionModule{
		expression: config.Expression,
		onError:    onError,
		program:    program,
	}, nil
}

// Apply implements Module.
func (c *ConditionModule) Apply(ctx context.Context, t *table.Table) (*table.Table, error) {
	var failure error
	evalErrors := 0

	out := t.Where(func(row int) bool {
		if failure != nil {
			return false
		}
		if row%cancelCheckInterval == 0 && ctx.Err() != nil {
			failure = ctx.Err()
			return false
		}

		output, err := expr.Run(c.program, t.Row(row))
		if err != nil {
			evalErrors++
			condErr := &ConditionError{
				Code:       ErrCodeEvaluationFailed,
				Message:    fmt.Sprintf("condition evaluation failed at row %d: %v", row, err),
				Expression: c.expression,
				RowIndex:   row,
			}
			switch c.onError {
			case OnErrorFail:
				failure = condErr
			case OnErrorLog:
				logger.Warn("condition evaluation error (row excluded)",
					slog.String("table", t.Name()),
					slog.Int("row_index", row),
					slog.String("expression", c.expression),
					slog.String("error", err.Error()),
				)
			}
			return false
		}

		if b, ok := output.(bool); ok {
			return b
		}
		return toBool(output)
	})

	if failure != nil {
		return nil, failure
	}
	if evalErrors > 0 {
		logger.Debug("condition excluded rows that failed to evaluate",
			slog.String("table", t.Name()),
			slog.String("expression", c.expression),
			slog.Int("error_count", evalErrors),
		)
	}
	return out, nil
}

// toBool converts a non-boolean expression result to a truth value.
func toBool(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}

var _ Module = (*ConditionModule)(nil)
