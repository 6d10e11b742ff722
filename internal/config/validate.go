package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/fileguard/internal/cryptox"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(kdfWorkFactor, Config{})
	return v
}

// kdfWorkFactor bounds KDFIterations per algorithm. For argon2id it is the
// pass count, not a round count.
func kdfWorkFactor(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	if cryptox.Algorithm(c.KDFAlgorithm) == cryptox.Argon2ID && c.KDFIterations > cryptox.MaxArgon2TimeCost {
		sl.ReportError(c.KDFIterations, "KDFIterations", "KDFIterations", "argon2id_lte", strconv.Itoa(cryptox.MaxArgon2TimeCost))
	}
}

// ValidationError lists every invalid field with the rule it broke.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, rule := range e.Fields {
		parts = append(parts, f+": "+rule)
	}
	slices.Sort(parts)
	return "invalid config: " + strings.Join(parts, "; ")
}

func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule = fmt.Sprintf("%s=%s", rule, fe.Param())
		}
		fields[fe.Field()] = rule
	}
	return &ValidationError{Fields: fields}
}
