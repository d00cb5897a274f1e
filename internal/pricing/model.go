package pricing

import (
	"fmt"
	"sort"
	"strings"
)

// Model is anything that can value a call and a put from the same Params.
type Model interface {
	Name() string
	Call(p Params) (float64, error)
	Put(p Params) (float64, error)
}

// Price dispatches to m.Call or m.Put.
func Price(m Model, p Params, optType OptionType) (float64, error) {
	switch optType {
	case Call:
		return m.Call(p)
	case Put:
		return m.Put(p)
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOptionType, optType)
}

var models = map[string]func(strict bool) Model{
	"binomial":      func(strict bool) Model { return Binomial{Strict: strict} },
	"crr":           func(strict bool) Model { return Binomial{Strict: strict} },
	"black-scholes": func(bool) Model { return BlackScholes{} },
	"bs":            func(bool) Model { return BlackScholes{} },
}

// Lookup returns the model registered under name. An empty name selects the
// binomial model. strict only affects the binomial model.
func Lookup(name string, strict bool) (Model, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "binomial"
	}
	newModel, ok := models[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownModel, name, strings.Join(ModelNames(), ", "))
	}
	return newModel(strict), nil
}

// ModelNames lists the registered names in sorted order.
func ModelNames() []string {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
