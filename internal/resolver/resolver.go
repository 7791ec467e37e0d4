package resolver

import (
	"fmt"
	"strings"

	"github.com/eugenenazirov/hubble/internal/environment"
	"github.com/eugenenazirov/hubble/internal/keyring"
	"github.com/eugenenazirov/hubble/internal/storage"
)

type sectionResolver struct {
	store   *storage.Store
	secrets keyring.Store
}

// New creates a Resolver over store. secrets may be nil.
func New(store *storage.Store, secrets keyring.Store) Resolver {
	return &sectionResolver{store: store, secrets: secrets}
}

func (r *sectionResolver) Resolve(choice string, options map[string]string) ([]*environment.Env, error) {
	if !r.store.HasSection(choice) || isReserved(choice) {
		return nil, r.noSuchEnvironment(choice)
	}

	chosen, err := r.store.Items(choice)
	if err != nil {
		return nil, err
	}
	scratch := storage.ToMap(r.store.Defaults())
	for _, item := range chosen {
		scratch[item.Key] = item.Value
	}

	targets := []string{choice}
	if meta, ok := scratch[MetaKey]; ok {
		targets, err = storage.ParseList(meta)
		if err != nil {
			return nil, fmt.Errorf("meta attribute of [%s]: %w", choice, err)
		}
	}

	opts := make(map[string]string, len(options))
	for name, value := range options {
		opts[OptionPrefix+name] = value
	}

	envs := make([]*environment.Env, 0, len(targets))
	for _, target := range targets {
		items, err := r.store.Items(target)
		if err != nil {
			return nil, fmt.Errorf("meta section [%s]: %w", choice, r.noSuchEnvironment(target))
		}

		env := environment.New(r.secrets)
		env.Add(map[string]string{environment.SectionKey: target}, target)
		env.Add(scratch, choice)
		env.Add(storage.ToMap(items), target)
		env.Add(opts, target)
		if isEmpty(options[OptionsKey]) {
			for _, key := range OptCmdKeys {
				env.Set(key, "", target, true)
			}
		}

		if err := env.Eval(); err != nil {
			return nil, fmt.Errorf("environment [%s]: %w", target, err)
		}
		envs = append(envs, env)
	}
	return envs, nil
}

func (r *sectionResolver) noSuchEnvironment(name string) error {
	return fmt.Errorf("%w [%s]; environments configured: %s",
		ErrNoSuchEnvironment, name, strings.Join(r.store.Sections(), ", "))
}

func isEmpty(value string) bool {
	return strings.TrimSpace(value) == ""
}

func isReserved(name string) bool {
	return name == storage.CommandsSection
}
