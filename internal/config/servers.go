package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bloops-games/botmanager/internal/query"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid config")

type Bot struct {
	Basename string `yaml:"basename" validate:"required,printascii,excludesall=^ "`
	Password string `yaml:"password" validate:"required"`
}

type Server struct {
	Name          string `yaml:"name" validate:"required,max=64,excludesall=/\\ "`
	Address       string `yaml:"address" validate:"required,ip|hostname"`
	Port          int    `yaml:"port" validate:"min=1,max=65535"`
	QueryPort     int    `yaml:"queryPort,omitempty" validate:"omitempty,min=1,max=65535"`
	Mod           string `yaml:"mod" validate:"required"`
	Slots         int    `yaml:"slots" validate:"min=0"`
	ReservedSlots int    `yaml:"reservedSlots" validate:"min=0"`
	Autobalance   *bool  `yaml:"autobalance,omitempty"`
	QueryDirectly bool   `yaml:"queryDirectly,omitempty"`
	Bots          []Bot  `yaml:"bots" validate:"required,min=1,dive"`
}

// AutobalanceEnabled defaults to true when the key is absent.
func (s Server) AutobalanceEnabled() bool {
	return s.Autobalance == nil || *s.Autobalance
}

// ValidationError lists every violation found in the fleet file.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d violations: %s", len(e.Violations), strings.Join(e.Violations, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// LoadServers reads and validates the fleet file.
func LoadServers(path string) ([]Server, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return ParseServers(raw)
}

func ParseServers(raw []byte) ([]Server, error) {
	var servers []Server
	if err := yaml.Unmarshal(raw, &servers); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := Validate(servers); err != nil {
		return nil, err
	}

	return servers, nil
}

// Validate checks field rules and cross-field rules and reports all
// violations at once.
func Validate(servers []Server) error {
	v := validator.New()
	var violations []string

	if len(servers) == 0 {
		violations = append(violations, "no servers configured")
	}

	names := make(map[string]struct{}, len(servers))
	for i, s := range servers {
		prefix := fmt.Sprintf("servers[%d]", i)
		if err := v.Struct(s); err != nil {
			var fieldErrs validator.ValidationErrors
			if !errors.As(err, &fieldErrs) {
				return fmt.Errorf("validate %s: %w", prefix, err)
			}
			for _, fe := range fieldErrs {
				violations = append(violations, fmt.Sprintf("%s.%s: failed on %q", prefix, strings.TrimPrefix(fe.Namespace(), "Server."), fe.Tag()))
			}
		}

		if _, ok := names[s.Name]; ok {
			violations = append(violations, fmt.Sprintf("%s.name: duplicate server name %q", prefix, s.Name))
		}
		names[s.Name] = struct{}{}

		if s.Slots%2 != 0 {
			violations = append(violations, fmt.Sprintf("%s.slots: must be even, got %d", prefix, s.Slots))
		}

		if s.QueryPort == 0 && query.ShouldQueryDirectly(s.Address, s.QueryDirectly) {
			violations = append(violations, fmt.Sprintf("%s.queryPort: required when querying the server directly", prefix))
		}

		basenames := make(map[string]struct{}, len(s.Bots))
		for j, b := range s.Bots {
			if _, ok := basenames[b.Basename]; ok {
				violations = append(violations, fmt.Sprintf("%s.bots[%d].basename: duplicate basename %q", prefix, j, b.Basename))
			}
			basenames[b.Basename] = struct{}{}
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}

	return nil
}

// Marshal renders servers as a fleet file.
func Marshal(servers []Server) ([]byte, error) {
	raw, err := yaml.Marshal(servers)
	if err != nil {
		return nil, fmt.Errorf("marshal servers: %w", err)
	}

	return raw, nil
}
