package flow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/option"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"github.com/viant/signoff/model"
	"gopkg.in/yaml.v3"
)

// Loader reads flow definitions from YAML assets on any afs supported
// storage (file://, mem://, embed://, s3://...).
type Loader struct {
	fs      afs.Service
	options []storage.Option
}

// definition is the YAML form of a flow; active defaults to true.
type definition struct {
	ID         string              `yaml:"id"`
	Name       string              `yaml:"name"`
	ActionType string              `yaml:"actionType"`
	Tenant     string              `yaml:"tenant"`
	Active     *bool               `yaml:"active"`
	Condition  *model.ConditionRef `yaml:"condition"`
	Steps      []*model.Step       `yaml:"steps"`
}

func (d *definition) flow() *model.Flow {
	ret := &model.Flow{
		ID:         d.ID,
		Name:       d.Name,
		ActionType: d.ActionType,
		Tenant:     d.Tenant,
		Active:     d.Active == nil || *d.Active,
		Condition:  d.Condition,
		Steps:      d.Steps,
	}
	if ret.Name == "" {
		ret.Name = ret.ID
	}
	for _, step := range ret.Steps {
		if step == nil {
			continue
		}
		if strategy, err := model.ParseStrategy(string(step.Strategy)); err == nil {
			step.Strategy = strategy
		}
	}
	return ret
}

// document is either a single flow or a list under flows.
type document struct {
	Single definition    `yaml:",inline"`
	Flows  []*definition `yaml:"flows"`
}

// NewLoader creates a loader; a nil fs uses afs.New(). Options are passed
// to every storage call, for example an *embed.FS for embed:// URLs.
func NewLoader(fs afs.Service, options ...storage.Option) *Loader {
	if fs == nil {
		fs = afs.New()
	}
	return &Loader{fs: fs, options: options}
}

// Load reads a YAML file, or every .yaml/.yml file under a folder, and
// returns validated flows.
func (l *Loader) Load(ctx context.Context, URL string) ([]*model.Flow, error) {
	object, err := l.fs.Object(ctx, URL, l.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to locate flows %v: %w", URL, err)
	}
	if !object.IsDir() {
		return l.loadAsset(ctx, URL)
	}
	objects, err := l.fs.List(ctx, URL, append([]storage.Option{option.NewRecursive(true)}, l.options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows %v: %w", URL, err)
	}
	var ret []*model.Flow
	for _, candidate := range objects {
		if candidate.IsDir() || !isYAML(candidate.Name()) {
			continue
		}
		flows, err := l.loadAsset(ctx, candidate.URL())
		if err != nil {
			return nil, err
		}
		ret = append(ret, flows...)
	}
	return ret, nil
}

func (l *Loader) loadAsset(ctx context.Context, URL string) ([]*model.Flow, error) {
	data, err := l.fs.DownloadWithURL(ctx, URL, l.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to download flows %v: %w", URL, err)
	}
	flows, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("invalid flows %v: %w", url.Path(URL), err)
	}
	return flows, nil
}

// Decode parses one or more YAML documents into validated flows.
func Decode(data []byte) ([]*model.Flow, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	var ret []*model.Flow
	for {
		doc := &document{}
		err := decoder.Decode(doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		definitions := doc.Flows
		if doc.Single.ID != "" || doc.Single.ActionType != "" {
			definitions = append([]*definition{&doc.Single}, definitions...)
		}
		for _, def := range definitions {
			if def == nil {
				continue
			}
			flow := def.flow()
			if err := flow.Validate(); err != nil {
				return nil, err
			}
			ret = append(ret, flow)
		}
	}
	return ret, nil
}

func isYAML(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
