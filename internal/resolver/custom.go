package resolver

import (
	"context"
	"fmt"
	"slices"

	"github.com/dpshade/prompt-manager/internal/models"
	"github.com/dpshade/prompt-manager/internal/placeholder"
	"github.com/dpshade/prompt-manager/internal/validation"
)

// resolveUser runs the user pass over vars in declaration order. It returns
// the substituted content, the values chosen per name, and errAborted when
// the collection was abandoned.
func (r *Resolver) resolveUser(ctx context.Context, content string, vars []models.Variable) (string, map[string]string, int, error) {
	values := make(map[string]string, len(vars))
	substituted := 0

	for i, v := range vars {
		if v.Type.IsSystem() {
			continue
		}
		if shadowed(vars, i) {
			r.logger.Debug().Str("variable", v.Name).Msg("Skipping shadowed declaration")
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", nil, 0, errAborted
		}

		value, err := r.resolveOne(ctx, v)
		if err != nil {
			return "", nil, 0, err
		}
		values[v.Name] = value

		if placeholder.Contains(content, v.Name) {
			content = placeholder.Replace(content, v.Name, value)
			substituted++
		}
	}

	return content, values, substituted, nil
}

// shadowed reports whether a later declaration reuses the name at i.
func shadowed(vars []models.Variable, i int) bool {
	for _, later := range vars[i+1:] {
		if later.Name == vars[i].Name {
			return true
		}
	}
	return false
}

// resolveOne always yields a string for v unless the whole collection is
// aborted.
func (r *Resolver) resolveOne(ctx context.Context, v models.Variable) (string, error) {
	fallback := r.defaultFor(v)

	if v.Type == models.VariableSelect && len(v.Options) == 0 {
		r.logger.Debug().Str("variable", v.Name).Msg("Select has no options, using default")
		return fallback, nil
	}

	req := Request{
		Name:        v.Name,
		Type:        v.Type,
		Description: v.Description,
		Placeholder: v.Placeholder,
		Default:     fallback,
		Required:    v.Required,
		Options:     slices.Clone(v.Options),
	}

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		req.Attempt = attempt

		out, err := r.collectSafely(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return "", errAborted
			}
			r.notifier.Error(fmt.Sprintf("Failed to read value for %q: %v", v.Name, err))
			return r.fallback(v, fallback), nil
		}

		switch out.Kind {
		case Aborted:
			return "", errAborted
		case Skipped:
			return r.fallback(v, fallback), nil
		}

		if out.Value == "" {
			return r.fallback(v, fallback), nil
		}
		problem := checkValue(v, out.Value)
		if problem == "" {
			return out.Value, nil
		}
		r.notifier.Warn(problem)
		req.Problem = problem
	}

	r.notifier.Warn(fmt.Sprintf("Too many invalid values for %q", v.Name))
	return r.fallback(v, fallback), nil
}

// collectSafely turns a collector panic into an error so one broken field
// cannot take down the rest of the pass.
func (r *Resolver) collectSafely(ctx context.Context, req Request) (out Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Interface("panic", rec).Str("variable", req.Name).Msg("Collector panicked")
			out, err = Outcome{}, fmt.Errorf("collector panic: %v", rec)
		}
	}()
	return r.collector.Collect(ctx, req)
}

func (r *Resolver) fallback(v models.Variable, def string) string {
	if v.Required {
		r.notifier.Warn(fmt.Sprintf("%q is required; using the default value", v.Name))
	}
	return def
}

func (r *Resolver) defaultFor(v models.Variable) string {
	if v.DefaultValue != "" {
		return v.DefaultValue
	}
	if v.Type == models.VariableDate {
		return r.now().Format(validation.DateLayout)
	}
	return ""
}

func checkValue(v models.Variable, value string) string {
	if err := validation.ValidateInput(v.Type, value); err != nil {
		return fmt.Sprintf("Invalid value for %q: %v", v.Name, err)
	}
	if v.Type == models.VariableSelect && !slices.Contains(v.Options, value) {
		return fmt.Sprintf("Invalid value for %q: %q is not one of the options", v.Name, value)
	}
	return ""
}
