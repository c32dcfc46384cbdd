package editor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/srpmproc/pkg/fault"
	"github.com/walteh/srpmproc/pkg/lookaside"
	"github.com/walteh/srpmproc/pkg/rpmspec"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// 📋 Config is a loaded and fully validated patch config
type Config struct {
	// Source is the file the config was read from
	Source string

	dir   string
	doc   map[string]any
	queue *ActionQueue
	opts  options
}

type options struct {
	name      string
	now       func() time.Time
	parser    rpmspec.Parser
	lookaside lookaside.Store
}

// Option customizes how a Config runs.
type Option func(*options)

// WithClock sets the clock used for changelog dates.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithPackageName overrides the package name, which otherwise is the base
// name of the package directory.
func WithPackageName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithParser sets the spec macro parser used to read the EVR.
func WithParser(p rpmspec.Parser) Option {
	return func(o *options) { o.parser = p }
}

// WithLookaside sets the store used by upload: true actions.
func WithLookaside(s lookaside.Store) Option {
	return func(o *options) { o.lookaside = s }
}

// Load reads and validates the patch config at path. Payloads are looked up
// next to it, in files/ and scripts/.
func Load(ctx context.Context, path string, opts ...Option) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fault.New(fault.NotFound, "opening patch config", fault.WithTarget(path), fault.WithCause(err))
	}
	defer f.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Errorf("resolving %s: %w", path, err)
	}
	cfg, err := LoadReader(ctx, f, filepath.Dir(abs), opts...)
	if err != nil {
		return nil, err
	}
	cfg.Source = path
	return cfg, nil
}

// LoadReader is Load for an already open document; dir is where files/ and
// scripts/ are expected.
func LoadReader(ctx context.Context, r io.Reader, dir string, opts ...Option) (*Config, error) {
	logger := zerolog.Ctx(ctx)

	var raw any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fault.New(fault.ConfigType, "invalid config: not a YAML document", fault.WithCause(err))
	}
	logger.Info().Msg("configuration successfully loaded")

	doc, _ := raw.(map[string]any)
	if raw != nil && doc == nil {
		return nil, fault.New(fault.ConfigType, "invalid config: top level must be a mapping", fault.WithTarget(typeName(raw)))
	}

	cfg := &Config{Source: "<reader>", dir: dir, doc: doc}
	for _, opt := range opts {
		opt(&cfg.opts)
	}

	logger.Info().Msg("validating configuration")
	queue, err := cfg.build()
	if err != nil {
		return nil, err
	}
	cfg.queue = queue
	logger.Info().Int("actions", queue.Len()).Msg("patch actions queued")
	return cfg, nil
}

// Validate checks the loaded document again. It never changes the document
// and returns the same result every time.
func (c *Config) Validate() error {
	_, err := c.build()
	return err
}

// validateShape checks the document layout before any action is looked at.
func (c *Config) validateShape() ([]any, error) {
	if len(c.doc) == 0 {
		return nil, fault.New(fault.ConfigValue, "invalid config: missing patch configuration or configuration is empty", fault.WithTarget("patch"))
	}
	patch, ok := c.doc["patch"]
	if !ok {
		return nil, fault.New(fault.ConfigValue, "invalid config: missing patch configuration or configuration is empty", fault.WithTarget("patch"))
	}
	if patch == nil {
		return nil, fault.New(fault.ConfigValue, "invalid config: actions section cannot be null", fault.WithTarget("patch"))
	}
	entries, ok := patch.([]any)
	if !ok {
		return nil, fault.New(fault.ConfigType, "invalid config: patch data is not a list of mappings", fault.WithTarget(typeName(patch)))
	}

	for i, entry := range entries {
		where := fmt.Sprintf("patch[%d]", i)
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fault.New(fault.ConfigType, "wrong format: entry is not a mapping", fault.WithTarget(where))
		}
		if len(m) != 1 {
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return nil, fault.New(fault.ConfigValue,
				"wrong format: entry must name exactly one action, got "+strings.Join(keys, ", "),
				fault.WithTarget(where))
		}
		for name, list := range m {
			if !IsKind(name) {
				return nil, fault.New(fault.ConfigValue, "unknown action: "+name+" is not a valid action", fault.WithTarget(where))
			}
			items, ok := list.([]any)
			if !ok {
				return nil, fault.New(fault.ConfigType, "wrong format: "+name+" is not a list", fault.WithTarget(where))
			}
			for j, item := range items {
				if _, ok := item.(map[string]any); !ok {
					return nil, fault.New(fault.ConfigType,
						"wrong format: "+name+" parameters must be mappings",
						fault.WithTarget(fmt.Sprintf("%s.%s[%d]", where, name, j)))
				}
			}
		}
	}
	return entries, nil
}

// build validates the whole document and constructs every action. Nothing
// is built unless every entry is valid.
func (c *Config) build() (*ActionQueue, error) {
	entries, err := c.validateShape()
	if err != nil {
		return nil, err
	}

	queue := NewActionQueue()
	for i, entry := range entries {
		for name, list := range entry.(map[string]any) {
			for j, item := range list.([]any) {
				a, err := NewAction(Kind(name), item.(map[string]any))
				if err != nil {
					return nil, errors.Errorf("patch[%d].%s[%d]: %w", i, name, j, err)
				}
				queue.Add(a)
			}
		}
	}
	return queue, nil
}

// Document returns the parsed YAML as loaded.
func (c *Config) Document() map[string]any {
	return c.doc
}

// Dir is the directory holding files/ and scripts/ for this config.
func (c *Config) Dir() string {
	return c.dir
}

// Actions returns the queued actions in declaration order without running
// them.
func (c *Config) Actions() []Action {
	return c.queue.Actions()
}

// Queue exposes the action queue.
func (c *Config) Queue() *ActionQueue {
	return c.queue
}

// Run applies every action to the package rooted at pkgDir.
func (c *Config) Run(ctx context.Context, pkgDir string) error {
	zerolog.Ctx(ctx).Info().Str("config", c.Source).Str("package", pkgDir).Msg("attempting to patch package")

	pkg := &Package{
		Dir:       pkgDir,
		Name:      c.opts.name,
		ConfigDir: c.dir,
		Parser:    c.opts.parser,
		Lookaside: c.opts.lookaside,
		Now:       c.opts.now,
	}
	if err := c.queue.ExecuteAll(ctx, pkg); err != nil {
		return errors.Errorf("applying %s: %w", c.Source, err)
	}
	return nil
}
