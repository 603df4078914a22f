package server

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/imgflow/dispatch/internal/domain"
)

var dockerHostSchemes = map[string]bool{
	"unix":  true,
	"tcp":   true,
	"http":  true,
	"https": true,
	"npipe": true,
	"ssh":   true,
}

type serverInput struct {
	Name        string            `validate:"max=255"`
	Host        string            `validate:"required,dockerhost"`
	CertPath    string            `validate:"omitempty,max=4096"`
	Constraints []constraintInput `validate:"dive"`
}

type constraintInput struct {
	Key        string   `validate:"required,max=255"`
	Values     []string `validate:"required,min=1,dive,required"`
	Comparator string   `validate:"omitempty,comparator"`
}

type inputValidator struct {
	v *validator.Validate
}

func newValidator() *inputValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("dockerhost", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(fl.Field().String())
		if err != nil {
			return false
		}
		return dockerHostSchemes[strings.ToLower(u.Scheme)]
	})
	_ = v.RegisterValidation("comparator", func(fl validator.FieldLevel) bool {
		switch domain.ConstraintComparator(fl.Field().String()) {
		case domain.ComparatorEquals, domain.ComparatorNotEquals:
			return true
		}
		return false
	})
	return &inputValidator{v: v}
}

// server checks a configuration before it reaches storage.
func (iv *inputValidator) server(s *domain.ServerConfig) error {
	if s == nil {
		return fmt.Errorf("%w: server is required", domain.ErrInvalidServerConfig)
	}

	input := serverInput{
		Name:     s.Name,
		Host:     s.Host,
		CertPath: s.CertPath,
	}
	for _, c := range s.Constraints {
		input.Constraints = append(input.Constraints, constraintInput{
			Key:        c.Key,
			Values:     c.Values,
			Comparator: string(c.Comparator),
		})
	}

	err := iv.v.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", domain.ErrInvalidServerConfig, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidServerConfig, err)
}
