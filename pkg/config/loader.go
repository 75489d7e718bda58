// Package config loads, merges and decodes layered build configurations
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/poltergeist/phasebuild/pkg/document"
	"github.com/poltergeist/phasebuild/pkg/logger"
	"github.com/poltergeist/phasebuild/pkg/properties"
	"github.com/poltergeist/phasebuild/pkg/types"
	"github.com/poltergeist/phasebuild/pkg/utils"
	"github.com/poltergeist/phasebuild/pkg/validation"
)

// Loader reads a configuration file and the chain of parents it inherits from.
type Loader struct {
	fs       *utils.FileSystemUtils
	resolver *properties.Resolver
	sdkRoot  string
	log      logger.Logger
}

// Option configures a Loader
type Option func(*Loader)

// WithFs sets the filesystem configuration files are read from
func WithFs(fs afero.Fs) Option {
	return func(l *Loader) { l.fs = utils.NewFileSystemUtils(fs) }
}

// WithResolver sets the resolver used for conditional properties
func WithResolver(r *properties.Resolver) Option {
	return func(l *Loader) { l.resolver = r }
}

// WithSDKRoot sets the value of the pathToSdk property
func WithSDKRoot(root string) Option {
	return func(l *Loader) { l.sdkRoot = root }
}

// WithLogger sets the diagnostics logger
func WithLogger(log logger.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// NewLoader creates a loader reading from the host filesystem unless configured otherwise
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		fs:       utils.NewFileSystemUtils(nil),
		resolver: properties.NewResolver(nil),
		sdkRoot:  DefaultSDKRoot(),
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.WithTarget("loader")
	return l
}

// DefaultSDKRoot returns the directory holding the running executable,
// falling back to the working directory.
func DefaultSDKRoot() string {
	if exe, err := os.Executable(); err == nil {
		return filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// Loaded is the result of a successful Load.
type Loaded struct {
	// Path is the absolute path of the located configuration file.
	Path string
	// BaseDir is the directory of Path. Relative task paths resolve against it.
	BaseDir string
	// Raw is the merged, validated and property-resolved document.
	Raw    *document.Object
	Config *types.Configuration
	// Files lists every file of the inheritance chain in load order.
	Files []string
}

// loadState is shared by every file of one Load call
type loadState struct {
	stack  map[string]bool
	files  []string
	loaded map[string]bool
}

// Locate finds fileName in dir or the closest ancestor holding it.
func (l *Loader) Locate(fileName, dir string) (string, error) {
	if strings.TrimSpace(fileName) == "" {
		return "", ErrEmptyFilePath
	}
	if filepath.IsAbs(fileName) {
		if !l.fs.IsFile(fileName) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, fileName)
		}
		return fileName, nil
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}
	path, ok := l.fs.FindUp(fileName, abs)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, fileName)
	}
	return path, nil
}

// Load locates fileName starting at dir, loads it together with its parents,
// validates the merged result and applies its properties everywhere.
func (l *Loader) Load(fileName, dir string) (*Loaded, error) {
	path, err := l.Locate(fileName, dir)
	if err != nil {
		return nil, err
	}

	seed := document.NewObject()
	seed.Set(types.PropertyPathToSDK, l.sdkRoot)
	state := &loadState{
		stack:  make(map[string]bool),
		loaded: make(map[string]bool),
	}

	merged, err := l.load(path, state, seed)
	if err != nil {
		return nil, err
	}

	if err := validation.ValidateConfiguration(merged); err != nil {
		return nil, err
	}

	props, _ := merged.Get(types.FieldProperties)
	propsObj, _ := props.(*document.Object)
	applied, err := properties.Apply(merged, propsObj)
	if err != nil {
		return nil, err
	}
	raw := applied.(*document.Object)

	cfg, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	l.log.Debug("Configuration loaded",
		logger.WithField("path", path),
		logger.WithField("files", len(state.files)))

	return &Loaded{
		Path:    path,
		BaseDir: filepath.Dir(path),
		Raw:     raw,
		Config:  cfg,
		Files:   state.files,
	}, nil
}

// load reads file and its parents. inherited holds the properties of the
// files that led here; they win over the file's own. Every parent branch
// starts from the same snapshot, so sibling parents never see each other's
// properties and the later parent wins once the branches are merged.
func (l *Loader) load(file string, state *loadState, inherited *document.Object) (*document.Object, error) {
	if state.stack[file] {
		return nil, fmt.Errorf("%w in %s", ErrParentCircularReference, file)
	}
	state.stack[file] = true
	defer delete(state.stack, file)

	cfg, err := l.read(file)
	if err != nil {
		return nil, err
	}
	if !state.loaded[file] {
		state.loaded[file] = true
		state.files = append(state.files, file)
	}
	l.log.Debug("Reading configuration", logger.WithField("path", file))

	accumulated, err := accumulateProperties(cfg, inherited)
	if err != nil {
		return nil, err
	}
	parsed, err := l.resolver.Parse(accumulated)
	if err != nil {
		return nil, err
	}
	cfg.Set(types.FieldProperties, parsed)

	dir := filepath.Dir(file)

	if value, present := cfg.Get(types.FieldExternalTasks); present {
		locations, err := resolveTaskLocations(value, dir, parsed)
		if err != nil {
			return nil, err
		}
		cfg.Set(types.FieldExternalTasks, locations)
	}

	value, present := cfg.Get(types.FieldParents)
	if !present {
		return cfg, nil
	}
	if err := validation.ValidateParents(value); err != nil {
		return nil, err
	}

	parents := document.NewObject()
	for _, item := range document.Arrayify(value) {
		name, err := properties.ApplyString(item.(string), parsed)
		if err != nil {
			return nil, err
		}
		parent := utils.ResolvePath(dir, name)
		if !l.fs.IsFile(parent) {
			return nil, fmt.Errorf("%w: %s", ErrParentNotFound, parent)
		}

		parentCfg, err := l.load(parent, state, accumulated)
		if err != nil {
			return nil, err
		}
		parents = Merge(parentCfg, parents)
	}

	cfg.Delete(types.FieldParents)
	return Merge(cfg, parents), nil
}

// read loads one file and requires a JSON object
func (l *Loader) read(file string) (*document.Object, error) {
	data, err := l.fs.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrUnreadable, file, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, file)
	}

	value, err := document.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w %s", ErrInvalidJSON, file)
	}
	cfg, ok := value.(*document.Object)
	if !ok {
		return nil, fmt.Errorf("%w: %s", validation.ErrConfigWrongType, file)
	}
	return cfg, nil
}

// accumulateProperties returns the file's own properties under inherited.
// inherited is not modified.
func accumulateProperties(cfg *document.Object, inherited *document.Object) (*document.Object, error) {
	own, present := cfg.Get(types.FieldProperties)
	if !present {
		return document.CloneObject(inherited), nil
	}
	if _, ok := own.(*document.Object); !ok {
		return nil, properties.ErrWrongListType
	}
	return MergeProperties(inherited, own).(*document.Object), nil
}

// resolveTaskLocations makes every external task directory absolute and
// checks it stays inside dir
func resolveTaskLocations(value any, dir string, props *document.Object) ([]any, error) {
	if err := validation.ValidateExternalTasks(value); err != nil {
		return nil, err
	}

	var locations []any
	for _, item := range document.Arrayify(value) {
		location, err := properties.ApplyString(item.(string), props)
		if err != nil {
			return nil, err
		}
		location = utils.ResolvePath(dir, location)
		if !utils.IsWithin(dir, location) {
			return nil, fmt.Errorf("%w: %s is not under %s", ErrExternalTasksWrongLocation, location, dir)
		}
		locations = append(locations, location)
	}
	return locations, nil
}
