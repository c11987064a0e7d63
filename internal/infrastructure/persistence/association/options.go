package association

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Options is the configuration bag of a many-to-many declaration. The tenant
// keys are consumed by the Augmentor; everything else goes to the Declarer.
type Options map[string]any

// Recognized option keys.
const (
	OptionTenantEnabled   = "tenant_enabled"
	OptionTenantClassName = "tenant_class_name"
	OptionTenantColumn    = "tenant_column"

	// OptionJoinModel binds a Go struct as the join entity of the relation.
	OptionJoinModel = "join_model"
)

var (
	// ErrInvalidOption is returned when a recognized option has the wrong type.
	ErrInvalidOption = errors.New("invalid association option")
	// ErrUnknownOption is returned by the GORM declarer for keys it does not understand.
	ErrUnknownOption = errors.New("unknown association option")
	// ErrTenantColumnRequired is returned when tenant_enabled is set without tenant_column.
	ErrTenantColumnRequired = errors.New("tenant_column is required when tenant_enabled is true")
)

// TenantOptions are the tenant keys of an Options bag.
type TenantOptions struct {
	Enabled   bool
	ClassName string
	Column    string `validate:"required_if=Enabled true"`
}

var validate = validator.New()

// SplitTenantOptions separates the tenant keys from opts. The returned bag holds
// every other key; opts itself is left untouched.
func SplitTenantOptions(opts Options) (TenantOptions, Options, error) {
	var to TenantOptions
	rest := make(Options, len(opts))

	for key, value := range opts {
		switch key {
		case OptionTenantEnabled:
			if value == nil {
				continue
			}
			enabled, ok := value.(bool)
			if !ok {
				return TenantOptions{}, nil, fmt.Errorf("%w: %s must be a bool, got %T", ErrInvalidOption, key, value)
			}
			to.Enabled = enabled
		case OptionTenantClassName:
			s, err := stringOption(key, value)
			if err != nil {
				return TenantOptions{}, nil, err
			}
			to.ClassName = s
		case OptionTenantColumn:
			s, err := stringOption(key, value)
			if err != nil {
				return TenantOptions{}, nil, err
			}
			to.Column = s
		default:
			rest[key] = value
		}
	}

	if err := validate.Struct(to); err != nil {
		return TenantOptions{}, nil, fmt.Errorf("%w: %v", ErrTenantColumnRequired, err)
	}
	return to, rest, nil
}

func stringOption(key string, value any) (string, error) {
	if value == nil {
		return "", nil
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidOption, key, value)
	}
	return s, nil
}
