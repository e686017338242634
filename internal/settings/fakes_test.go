package settings

import (
	"bytes"
	"errors"
	"reflect"

	"github.com/sirupsen/logrus"
)

// fakeRecord is an in-memory ConfigRecord.
type fakeRecord struct {
	key   string
	value any
	typ   reflect.Type
	attrs Attributes
}

func newFakeRecord(key string, value any, attrs Attributes) *fakeRecord {
	return &fakeRecord{key: key, value: value, typ: reflect.TypeOf(value), attrs: attrs}
}

func (r *fakeRecord) Key() string            { return r.key }
func (r *fakeRecord) Type() reflect.Type     { return r.typ }
func (r *fakeRecord) Value() any             { return r.value }
func (r *fakeRecord) Attributes() Attributes { return r.attrs }
func (r *fakeRecord) SetValue(v any) error {
	r.value = v
	return nil
}

// annotated attaches attributes to a looked-up property.
type annotated struct {
	Property
	attrs Attributes
}

func (a annotated) Attributes() Attributes { return a.attrs }

// fakeInstance mimics a plugin host with a run toggle.
type fakeInstance struct {
	enabled bool
	stale   bool
}

func (i *fakeInstance) Enabled() bool { return i.enabled }
func (i *fakeInstance) SetEnabled(b bool) error {
	i.enabled = b
	return nil
}
func (i *fakeInstance) Stale() bool { return i.stale }

type fakePlugin struct {
	name       string
	attrs      Attributes
	records    []ConfigRecord
	methods    []string
	instance   any
	attrsErr   error
	configErr  error
	panicOnCfg bool
}

func (p *fakePlugin) Info() PluginInfo { return PluginInfo{ID: "test." + p.name, Name: p.name, Version: "1.0.0"} }
func (p *fakePlugin) Attributes() (Attributes, error) {
	return p.attrs, p.attrsErr
}
func (p *fakePlugin) Config() ([]ConfigRecord, error) {
	if p.panicOnCfg {
		panic("malformed plugin")
	}
	return p.records, p.configErr
}
func (p *fakePlugin) Methods() ([]string, error) { return p.methods, nil }
func (p *fakePlugin) Instance() any {
	if p.instance == nil {
		p.instance = &fakeInstance{enabled: true}
	}
	return p.instance
}

type fakeHost struct {
	core      []ConfigRecord
	coreErr   error
	corePanic bool
	plugins   []Plugin
}

func (h *fakeHost) CoreInfo() PluginInfo {
	return PluginInfo{ID: "confman", Name: "confman", Version: "dev"}
}
func (h *fakeHost) CoreConfig() ([]ConfigRecord, error) {
	if h.corePanic {
		panic("core config unavailable")
	}
	return h.core, h.coreErr
}
func (h *fakeHost) Plugins() ([]Plugin, error) { return h.plugins, nil }

var errBoom = errors.New("boom")

// testLogger returns a logger writing into a buffer.
func testLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetLevel(logrus.DebugLevel)
	return log, &buf
}
