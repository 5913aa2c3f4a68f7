package cmd

import (
	"fmt"
	"strings"

	"github.com/goosewin/kotoba/internal/adapter"
	"github.com/goosewin/kotoba/internal/catalog"
	"github.com/goosewin/kotoba/internal/config"
	"github.com/goosewin/kotoba/internal/core"
	"github.com/goosewin/kotoba/internal/lang"
	"github.com/goosewin/kotoba/internal/logger"
)

// modelFlags are shared by every command that builds a translator.
type modelFlags struct {
	model   string
	weights string
	kind    string
}

// selection is a resolved model choice.
type selection struct {
	Kind    adapter.Kind
	Weights string
	Model   *catalog.Model
}

// selectionInputs decides where the model choice comes from. Flags win as a
// group: when any model flag is set, config model.* keys are ignored. The
// built-in model.name default only applies when config sets neither
// model.weights nor model.kind.
func selectionInputs(flags modelFlags) modelFlags {
	in := modelFlags{
		model:   strings.TrimSpace(flags.model),
		weights: strings.TrimSpace(flags.weights),
		kind:    strings.TrimSpace(flags.kind),
	}
	if in.model != "" || in.weights != "" || in.kind != "" {
		return in
	}

	in.weights, _ = config.Explicit("model.weights")
	in.kind, _ = config.Explicit("model.kind")
	if name, ok := config.Explicit("model.name"); ok {
		in.model = name
	} else if in.weights == "" && in.kind == "" {
		in.model = config.String("model.name", "")
	}
	return in
}

// resolveSelection turns the chosen inputs into a kind and weights path. A
// weights path outside the catalog needs an explicit kind; there is no
// fallback grammar.
func resolveSelection(flags modelFlags) (selection, error) {
	cat, err := catalog.Load(config.CatalogPath())
	if err != nil {
		return selection{}, err
	}

	in := selectionInputs(flags)
	weights := config.ExpandHome(in.weights)

	var sel selection
	if in.model != "" {
		model, err := cat.Get(in.model)
		switch {
		case err == nil:
			sel.Model = &model
			sel.Kind = model.Kind
			sel.Weights = model.WeightsPath(config.ModelsDir())
		case weights == "" || in.kind == "":
			return selection{}, err
		}
	}

	if in.kind != "" {
		kind, err := adapter.ParseKind(in.kind)
		if err != nil {
			return selection{}, err
		}
		sel.Kind = kind
	}
	if weights != "" {
		sel.Weights = weights
	}

	if sel.Kind == "" {
		return selection{}, fmt.Errorf("no model selected: pass --model <name> or --weights <path> --kind <%s>", kindList())
	}
	if sel.Weights == "" {
		return selection{}, fmt.Errorf("no weights for kind %s: pass --weights <path> or --model <name>", sel.Kind)
	}
	return sel, nil
}

func configuredPair() (lang.Pair, error) {
	return lang.NewPair(config.String("languages.local", "ja"), config.String("languages.foreign", "en"))
}

func newTranslator(flags modelFlags) (*core.Translator, selection, error) {
	sel, err := resolveSelection(flags)
	if err != nil {
		return nil, selection{}, err
	}
	pair, err := configuredPair()
	if err != nil {
		return nil, selection{}, err
	}

	translator, err := core.New(core.Options{
		Kind:    sel.Kind,
		Pair:    pair,
		Weights: sel.Weights,
		Config:  config.RunnerSettings(),
		Logger:  logger.L(),
	})
	if err != nil {
		return nil, selection{}, err
	}
	return translator, sel, nil
}

func kindList() string {
	names := make([]string, 0, len(adapter.Kinds()))
	for _, kind := range adapter.Kinds() {
		names = append(names, kind.String())
	}
	return strings.Join(names, "|")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
