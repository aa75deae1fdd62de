package chart

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// ComposedValues builds the chart's defaults document: the root values.yaml
// with each sub-chart's values.yaml nested under its alias prefix, the way
// the template engine composes them. Sub-chart global keys merge into the
// root's global section; on conflict the value closer to the root wins.
//
// When there is nothing to compose, the root file's raw bytes are returned
// unchanged so key comments survive for description extraction.
func ComposedValues(charts []*Chart, includeSubcharts bool) ([]byte, error) {
	if len(charts) == 0 {
		return nil, ErrNoChart
	}

	rootBytes, err := readValuesFile(charts[0].Dir)
	if err != nil {
		return nil, err
	}

	subs := subchartsWithValues(charts, includeSubcharts)
	if len(subs) == 0 {
		return rootBytes, nil
	}

	doc := map[string]any{}

	if len(rootBytes) > 0 {
		if err := yaml.Unmarshal(rootBytes, &doc); err != nil {
			return nil, fmt.Errorf("parse values.yaml: %w", err)
		}
	}

	for _, c := range subs {
		data, err := readValuesFile(c.Dir)
		if err != nil {
			return nil, err
		}

		sub := map[string]any{}
		if err := yaml.Unmarshal(data, &sub); err != nil {
			return nil, fmt.Errorf("parse sub-chart values.yaml (%s): %w", c.Dir, err)
		}

		if global, ok := sub["global"].(map[string]any); ok {
			mergeAt(doc, []string{"global"}, global)
			delete(sub, "global")
		}

		mergeAt(doc, c.ValuesPrefix, sub)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("serialize composed values: %w", err)
	}

	return out, nil
}

func subchartsWithValues(charts []*Chart, includeSubcharts bool) []*Chart {
	if !includeSubcharts {
		return nil
	}

	var out []*Chart

	for _, c := range charts {
		if len(c.ValuesPrefix) == 0 {
			continue
		}

		if _, err := os.Stat(filepath.Join(c.Dir, "values.yaml")); err == nil {
			out = append(out, c)
		}
	}

	return out
}

func readValuesFile(dir string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, "values.yaml")) //nolint:gosec // Chart dir comes from discovery.
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("read values.yaml: %w", err)
	}

	return data, nil
}

// mergeAt deep-merges src into doc under the given prefix, existing values
// winning over merged ones.
func mergeAt(doc map[string]any, prefix []string, src map[string]any) {
	target := doc

	for _, seg := range prefix {
		next, ok := target[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			target[seg] = next
		}

		target = next
	}

	for k, v := range src {
		target[k] = mergePreferLeft(target[k], v)
	}
}

func mergePreferLeft(left, right any) any {
	if left == nil {
		return right
	}

	lm, lok := left.(map[string]any)
	rm, rok := right.(map[string]any)

	if lok && rok {
		for k, rv := range rm {
			lm[k] = mergePreferLeft(lm[k], rv)
		}

		return lm
	}

	return left
}
