package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/valyala/fastrand"
)

var ErrNamesExhausted = errors.New("no unused bot names left")

const (
	maxBasenameLen = 16
	passwordLen    = 10
	passwordChars  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	nameAdjectives = []string{
		"Angry", "Brave", "Cold", "Dark", "Eager", "Fast", "Grim", "Happy", "Iron", "Jolly",
		"Keen", "Lazy", "Mad", "Noble", "Odd", "Proud", "Quick", "Rusty", "Silent", "Tough",
		"Ugly", "Vivid", "Wild", "Young", "Zany",
	}
	nameNouns = []string{
		"Badger", "Cobra", "Dingo", "Eagle", "Falcon", "Gecko", "Hawk", "Ibex", "Jackal", "Kite",
		"Lynx", "Mole", "Newt", "Otter", "Panda", "Quail", "Raven", "Shark", "Tiger", "Viper",
		"Walrus", "Yak", "Zebra",
	}
)

// ServerOptions describes a server entry to generate.
type ServerOptions struct {
	Name               string
	Address            string
	Port               int
	QueryPort          int
	Mod                string
	Slots              int
	ReservedSlots      int
	OverpopulateFactor int
	NoAutobalance      bool
	QueryDirectly      bool
}

// GenerateServer creates a server entry with slots*overpopulateFactor bots.
// Basenames are unique across existing and new servers.
func GenerateServer(opts ServerOptions, existing []Server) (Server, error) {
	s := Server{
		Name:          opts.Name,
		Address:       opts.Address,
		Port:          opts.Port,
		QueryPort:     opts.QueryPort,
		Mod:           "mods/" + strings.TrimPrefix(opts.Mod, "mods/"),
		Slots:         opts.Slots,
		ReservedSlots: opts.ReservedSlots,
		QueryDirectly: opts.QueryDirectly,
	}
	if opts.NoAutobalance {
		autobalance := false
		s.Autobalance = &autobalance
	}

	taken := make(map[string]struct{})
	for _, e := range existing {
		for _, b := range e.Bots {
			taken[b.Basename] = struct{}{}
		}
	}

	n := opts.Slots * opts.OverpopulateFactor
	for len(s.Bots) < n {
		name, err := generateBasename(taken)
		if err != nil {
			return Server{}, err
		}
		taken[name] = struct{}{}
		s.Bots = append(s.Bots, Bot{Basename: name, Password: generatePassword()})
	}

	if err := Validate(append(append([]Server(nil), existing...), s)); err != nil {
		return Server{}, err
	}

	return s, nil
}

func generateBasename(taken map[string]struct{}) (string, error) {
	total := len(nameAdjectives) * len(nameNouns)
	start := int(fastrand.Uint32n(uint32(total)))
	for i := 0; i < total; i++ {
		idx := (start + i) % total
		name := nameAdjectives[idx/len(nameNouns)] + nameNouns[idx%len(nameNouns)]
		if len(name) > maxBasenameLen {
			continue
		}
		if _, ok := taken[name]; !ok {
			return name, nil
		}
	}

	return "", ErrNamesExhausted
}

func generatePassword() string {
	b := make([]byte, passwordLen)
	for i := range b {
		b[i] = passwordChars[fastrand.Uint32n(uint32(len(passwordChars)))]
	}

	return string(b)
}

// AppendServer adds s to the fleet file at path, creating the file when missing.
func AppendServer(path string, s Server) error {
	var servers []Server
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if servers, err = ParseServers(raw); err != nil {
			return err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("read config file: %w", err)
	}

	servers = append(servers, s)
	if err := Validate(servers); err != nil {
		return err
	}

	out, err := Marshal(servers)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}
