package properties_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poltergeist/phasebuild/pkg/conditions"
	"github.com/poltergeist/phasebuild/pkg/document"
	"github.com/poltergeist/phasebuild/pkg/properties"
)

func parseObject(t *testing.T, data string) *document.Object {
	t.Helper()
	obj, err := document.ParseObject([]byte(data))
	require.NoError(t, err)
	return obj
}

func unixResolver(t *testing.T) *properties.Resolver {
	t.Helper()
	registry := conditions.NewRegistry()
	require.NoError(t, registry.Register("os", "platform", conditions.Platform("linux")))
	require.NoError(t, registry.Register("os", "arch", conditions.Arch("amd64")))
	return properties.NewResolver(registry)
}

func TestResolveConditional(t *testing.T) {
	r := unixResolver(t)

	value, err := r.ResolveConditional("plain", "value")
	require.NoError(t, err)
	assert.Equal(t, "value", value)

	cond := parseObject(t, `{"?os.platform=windows": "C:\\sdk", "?os.platform=unix": "/opt/sdk"}`)
	value, err = r.ResolveConditional("sdk", cond)
	require.NoError(t, err)
	assert.Equal(t, "/opt/sdk", value)

	first := parseObject(t, `{"?os.arch=amd64": "first", "?os.platform=unix": "second"}`)
	value, err = r.ResolveConditional("both", first)
	require.NoError(t, err)
	assert.Equal(t, "first", value)

	none := parseObject(t, `{"?os.platform=windows": "C:\\sdk"}`)
	_, err = r.ResolveConditional("sdk", none)
	assert.True(t, errors.Is(err, properties.ErrNoConditionMet))
	assert.Contains(t, err.Error(), `"sdk"`)

	unknown := parseObject(t, `{"?env.name=ci": "x"}`)
	_, err = r.ResolveConditional("ci", unknown)
	assert.True(t, errors.Is(err, conditions.ErrUnknownPrefix))

	_, err = r.ResolveConditional("number", float64(3))
	assert.True(t, errors.Is(err, properties.ErrWrongType))
}

func TestValidateProperty(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		wantErr error
	}{
		{"string", "x", nil},
		{"empty string", "", properties.ErrEmptyString},
		{"number", float64(1), properties.ErrWrongType},
		{"array", []any{"x"}, properties.ErrWrongType},
		{"empty object", document.NewObject(), properties.ErrEmptyObject},
		{"conditional", parseObject(t, `{"?os.platform=unix": "1"}`), nil},
		{"bad key", parseObject(t, `{"os.platform=unix": "1"}`), properties.ErrConditionFormat},
		{"bad value", parseObject(t, `{"?os.platform=unix": 1}`), properties.ErrConditionValueType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := properties.ValidateProperty("prop", tt.value)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestValidatePropertyReportsEveryCondition(t *testing.T) {
	value := parseObject(t, `{"bad": "1", "?os.platform=unix": 2}`)
	err := properties.ValidateProperty("prop", value)
	require.Error(t, err)
	assert.True(t, errors.Is(err, properties.ErrConditionFormat))
	assert.True(t, errors.Is(err, properties.ErrConditionValueType))
}

func TestValidateProperties(t *testing.T) {
	assert.True(t, errors.Is(properties.ValidateProperties([]any{}), properties.ErrWrongListType))
	assert.True(t, errors.Is(properties.ValidateProperties(document.NewObject()), properties.ErrEmptyList))
	assert.True(t, errors.Is(properties.ValidateProperties(parseObject(t, `{"a": "x", "b": ""}`)), properties.ErrEmptyString))
	assert.NoError(t, properties.ValidateProperties(parseObject(t, `{"a": "x"}`)))
}

func TestParseExpandsTokens(t *testing.T) {
	r := unixResolver(t)
	props := parseObject(t, `{
		"out": "$(root)/build",
		"root": "$(sdk)/project",
		"sdk": {"?os.platform=unix": "/opt", "?os.platform=windows": "C:"},
		"name": "app"
	}`)

	parsed, err := r.Parse(props)
	require.NoError(t, err)

	assert.Equal(t, []string{"out", "root", "sdk", "name"}, document.Keys(parsed))
	assert.Equal(t, map[string]string{
		"out":  "/opt/project/build",
		"root": "/opt/project",
		"sdk":  "/opt",
		"name": "app",
	}, properties.Values(parsed))

	original, _ := props.Get("out")
	assert.Equal(t, "$(root)/build", original, "input must not be modified")
}

func TestParseIsIdempotent(t *testing.T) {
	r := unixResolver(t)
	props := parseObject(t, `{"a": "one", "b": {"?os.platform=unix": "two"}}`)

	once, err := r.Parse(props)
	require.NoError(t, err)
	twice, err := r.Parse(once)
	require.NoError(t, err)

	assert.True(t, document.Equal(once, twice))
}

func TestParseCircularDependency(t *testing.T) {
	r := unixResolver(t)

	_, err := r.Parse(parseObject(t, `{"a": "$(b)", "b": "$(a)"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, properties.ErrCircularDependency))
	assert.Contains(t, err.Error(), `"a"`)
	assert.Contains(t, err.Error(), `"b"`)

	_, err = r.Parse(parseObject(t, `{"a": "x$(a)"}`))
	assert.True(t, errors.Is(err, properties.ErrCircularDependency))

	_, err = r.Parse(parseObject(t, `{"a": "$(b)", "b": "$(c)", "c": "$(a)", "d": "ok"}`))
	assert.True(t, errors.Is(err, properties.ErrCircularDependency))
}

func TestParseMissingToken(t *testing.T) {
	r := unixResolver(t)

	_, err := r.Parse(parseObject(t, `{"a": "$(missing.value)"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, properties.ErrMissingToken))
	assert.Contains(t, err.Error(), "missing.value")
}

func TestParseConditionalResolvedToEmpty(t *testing.T) {
	r := unixResolver(t)

	_, err := r.Parse(parseObject(t, `{"a": {"?os.platform=unix": ""}}`))
	assert.True(t, errors.Is(err, properties.ErrEmptyString))
}

func TestSubstitute(t *testing.T) {
	props := map[string]string{"src": "lib", "out": "dist"}
	value := parseObject(t, `{"files": ["$(src)/a.js", "$(src)/b.js"], "target": {"path": "$(out)/all.js"}, "level": 3}`)

	substituted, err := properties.Substitute(value, props)
	require.NoError(t, err)

	expected := parseObject(t, `{"files": ["lib/a.js", "lib/b.js"], "target": {"path": "dist/all.js"}, "level": 3}`)
	assert.True(t, document.Equal(expected, substituted))

	files, _ := value.Get("files")
	assert.Equal(t, "$(src)/a.js", files.([]any)[0], "input must not be modified")

	_, err = properties.Substitute([]any{"$(nope)"}, props)
	assert.True(t, errors.Is(err, properties.ErrMissingToken))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"a", "b.c", "d_e"}, properties.Tokens("$(a)/$(b.c)-$(d_e)"))
	assert.Empty(t, properties.Tokens("$(not valid) and $()"))
}

func TestApply(t *testing.T) {
	props := parseObject(t, `{"root": "/srv", "count": 3}`)

	out, err := properties.ApplyString("$(root)/tasks", props)
	require.NoError(t, err)
	assert.Equal(t, "/srv/tasks", out)

	_, err = properties.ApplyString("$(count)", props)
	assert.True(t, errors.Is(err, properties.ErrMissingToken))
}
