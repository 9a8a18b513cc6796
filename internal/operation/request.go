package operation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dusk-indust/depsolve/internal/engine"
)

// Kind names one operation. The set is closed: ParseKind rejects anything
// else.
type Kind string

const (
	ValidGraph     Kind = "valid_graph"
	MinimizeImpact Kind = "minimize_impact"
	MaximizeImpact Kind = "maximize_impact"
	FilterConfigs  Kind = "filter_configs"
	ValidConfig    Kind = "valid_config"
	CompleteConfig Kind = "complete_config"
	ConfigByImpact Kind = "config_by_impact"
	CountConfigs   Kind = "count_configs"
	GraphInfo      Kind = "graph_info"
)

// Kinds lists every operation in a stable order.
func Kinds() []Kind {
	return []Kind{
		ValidGraph, MinimizeImpact, MaximizeImpact, FilterConfigs,
		ValidConfig, CompleteConfig, ConfigByImpact, CountConfigs, GraphInfo,
	}
}

// ParseKind accepts an operation name, with '-' and '_' interchangeable.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_"))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", &engine.InputError{Field: "operation", Reason: fmt.Sprintf("unknown operation %q", name)}
}

func (k Kind) ranks() bool {
	switch k {
	case MinimizeImpact, MaximizeImpact, FilterConfigs, ConfigByImpact:
		return true
	}
	return false
}

// Request is one query against a stored graph. MaxDepth is an edge bound
// (see graph.DepthBound); transports convert user-facing levels before
// building a Request.
type Request struct {
	Operation    Kind              `json:"operation" validate:"required"`
	GraphID      string            `json:"graphId" validate:"required"`
	MaxDepth     int               `json:"maxDepth" validate:"gte=-1"`
	Aggregator   string            `json:"aggregator,omitempty" validate:"omitempty,oneof=mean weighted_mean"`
	Limit        int               `json:"limit,omitempty" validate:"gte=0"`
	MinThreshold float64           `json:"minThreshold,omitempty" validate:"gte=0,lte=10"`
	MaxThreshold float64           `json:"maxThreshold,omitempty" validate:"gte=0,lte=10"`
	Impact       float64           `json:"impact,omitempty" validate:"gte=0,lte=10"`
	Config       map[string]string `json:"config,omitempty" validate:"omitempty,dive,keys,required,endkeys,required"`

	MaxExpansions int64         `json:"maxExpansions,omitempty" validate:"gte=0"`
	Timeout       time.Duration `json:"timeout,omitempty" validate:"gte=0"`
}

var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New()
	requestValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks the request before any graph is touched. Every failure is
// an *engine.InputError.
func (r Request) Validate() error {
	if _, err := ParseKind(string(r.Operation)); err != nil {
		return err
	}
	if err := requestValidate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &engine.InputError{
				Field:  fe.Field(),
				Reason: fmt.Sprintf("failed %q check (value %v)", fe.Tag(), fe.Value()),
			}
		}
		return &engine.InputError{Field: "request", Reason: err.Error()}
	}

	if r.Operation.ranks() && r.Limit < 1 {
		return &engine.InputError{Field: "limit", Reason: fmt.Sprintf("must be >= 1, got %d", r.Limit)}
	}
	switch r.Operation {
	case FilterConfigs:
		if r.MinThreshold > r.MaxThreshold {
			return &engine.InputError{
				Field:  "minThreshold",
				Reason: fmt.Sprintf("%g is greater than maxThreshold %g", r.MinThreshold, r.MaxThreshold),
			}
		}
	case ValidConfig, CompleteConfig:
		if len(r.Config) == 0 {
			return &engine.InputError{Field: "config", Reason: "at least one package=version pair is required"}
		}
	}
	return nil
}
