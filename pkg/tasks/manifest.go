package tasks

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"text/template/parse"

	"github.com/Masterminds/sprig/v3"
	"github.com/google/shlex"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/poltergeist/phasebuild/pkg/types"
)

// ManifestSuffix is the file name suffix of external task manifests.
const ManifestSuffix = ".task.yaml"

// OptionTypes accepts either a single type name or a list of them.
type OptionTypes []types.OptionType

// UnmarshalYAML implements yaml.Unmarshaler
func (o *OptionTypes) UnmarshalYAML(node *yaml.Node) error {
	var names []string
	switch node.Kind {
	case yaml.ScalarNode:
		names = []string{node.Value}
	case yaml.SequenceNode:
		if err := node.Decode(&names); err != nil {
			return err
		}
	default:
		return fmt.Errorf("line %d: option type should be a name or a list of names", node.Line)
	}

	parsed := make(OptionTypes, 0, len(names))
	for _, name := range names {
		t, ok := types.ParseOptionType(name)
		if !ok {
			return fmt.Errorf("line %d: unknown option type %q", node.Line, name)
		}
		parsed = append(parsed, t)
	}
	*o = parsed
	return nil
}

// Manifest is the on-disk description of an external task.
type Manifest struct {
	Description     string                 `yaml:"description"`
	Mode            string                 `yaml:"mode"`
	RequiredOptions map[string]OptionTypes `yaml:"requiredOptions"`
	OptionalOptions map[string]OptionTypes `yaml:"optionalOptions"`
	Run             ManifestRun            `yaml:"run"`
}

// ManifestRun is the command a manifest task executes.
type ManifestRun struct {
	Command string            `yaml:"command"`
	Env     map[string]string `yaml:"env"`
}

// commandData is what run.command templates are rendered against
type commandData struct {
	Options Options
	BaseDir string
}

// TaskName derives the task name from a manifest path.
func TaskName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ManifestSuffix)
}

// LoadManifest reads a manifest file and builds the task it describes.
func LoadManifest(fs afero.Fs, path string) (*Task, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, path, err)
	}
	return ParseManifest(TaskName(path), data)
}

// ParseManifest decodes manifest data into a task called name.
func ParseManifest(name string, data []byte) (*Task, error) {
	var manifest Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&manifest); err != nil {
		return nil, fmt.Errorf("%w: task %q: %v", ErrInvalidManifest, name, err)
	}

	mode, err := ParseMode(manifest.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: task %q: %v", ErrInvalidManifest, name, err)
	}

	if strings.TrimSpace(manifest.Run.Command) == "" {
		return nil, fmt.Errorf("%w: task %q has no run.command", ErrRunMissing, name)
	}

	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		Parse(manifest.Run.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: task %q: %v", ErrInvalidManifest, name, err)
	}
	if !referencesOptions(tmpl) {
		return nil, fmt.Errorf("%w: task %q", ErrRunWithoutParameters, name)
	}

	task := &Task{
		Name:            name,
		Description:     manifest.Description,
		RequiredOptions: toSpec(manifest.RequiredOptions),
		OptionalOptions: toSpec(manifest.OptionalOptions),
		Mode:            mode,
	}

	run := func(tc Context, options Options) {
		argv, err := renderCommand(tmpl, tc, options)
		if err != nil {
			tc.Error(err.Error())
			return
		}
		if err := RunCommand(tc, argv, manifest.Run.Env); err != nil {
			tc.Error(err.Error())
		}
	}

	if mode == Async {
		task.RunAsync = func(tc Context, options Options, done func()) {
			go func() {
				defer done()
				run(tc, options)
			}()
		}
	} else {
		task.Run = run
	}

	return task, nil
}

func renderCommand(tmpl *template.Template, tc Context, options Options) ([]string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, commandData{Options: options, BaseDir: tc.BaseDir()}); err != nil {
		return nil, fmt.Errorf("cannot render command: %w", err)
	}
	argv, err := shlex.Split(buf.String())
	if err != nil {
		return nil, fmt.Errorf("cannot parse command %q: %w", buf.String(), err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("command rendered empty")
	}
	return argv, nil
}

func toSpec(in map[string]OptionTypes) types.OptionSpec {
	if len(in) == 0 {
		return nil
	}
	spec := make(types.OptionSpec, len(in))
	for name, accepted := range in {
		spec[name] = []types.OptionType(accepted)
	}
	return spec
}

// referencesOptions reports whether any tree of tmpl reads the Options field.
func referencesOptions(tmpl *template.Template) bool {
	for _, t := range tmpl.Templates() {
		if t.Tree != nil && nodeReferencesOptions(t.Tree.Root) {
			return true
		}
	}
	return false
}

func nodeReferencesOptions(node parse.Node) bool {
	switch n := node.(type) {
	case nil:
		return false
	case *parse.ListNode:
		if n == nil {
			return false
		}
		for _, child := range n.Nodes {
			if nodeReferencesOptions(child) {
				return true
			}
		}
	case *parse.ActionNode:
		return nodeReferencesOptions(n.Pipe)
	case *parse.PipeNode:
		if n == nil {
			return false
		}
		for _, cmd := range n.Cmds {
			if nodeReferencesOptions(cmd) {
				return true
			}
		}
	case *parse.CommandNode:
		for _, arg := range n.Args {
			if nodeReferencesOptions(arg) {
				return true
			}
		}
	case *parse.FieldNode:
		return len(n.Ident) > 0 && n.Ident[0] == "Options"
	case *parse.VariableNode:
		return len(n.Ident) > 1 && n.Ident[0] == "$" && n.Ident[1] == "Options"
	case *parse.ChainNode:
		return nodeReferencesOptions(n.Node)
	case *parse.IfNode:
		return branchReferencesOptions(&n.BranchNode)
	case *parse.RangeNode:
		return branchReferencesOptions(&n.BranchNode)
	case *parse.WithNode:
		return branchReferencesOptions(&n.BranchNode)
	case *parse.TemplateNode:
		return nodeReferencesOptions(n.Pipe)
	}
	return false
}

func branchReferencesOptions(b *parse.BranchNode) bool {
	return nodeReferencesOptions(b.Pipe) ||
		nodeReferencesOptions(b.List) ||
		nodeReferencesOptions(b.ElseList)
}
