// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metric provides primitives for collecting metrics and exporting
// them in the Prometheus text exposition format.
package metric

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

var (
	// ErrNameInUse indicates that another metric is already defined for
	// the given name.
	ErrNameInUse = errors.New("metric name already in use")

	// ErrInvalidName indicates that a metric or field name is not a valid
	// Prometheus name.
	ErrInvalidName = errors.New("metric name is invalid")

	// ErrFieldValueNotAllowed indicates that a field value is not one of the
	// field's allowed values.
	ErrFieldValueNotAllowed = errors.New("metric field value is not allowed")

	// ErrTooManyFields indicates that more than one field was given.
	ErrTooManyFields = errors.New("metric supports at most one field")
)

var nameRE = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)

// Field contains the field name and allowed values for a metric with a
// field. A Field with no allowed values accepts any value.
type Field struct {
	name          string
	allowedValues []string
}

// NewField defines a new Field that can be used to break down a metric.
func NewField(name string, allowedValues ...string) Field {
	return Field{
		name:          name,
		allowedValues: allowedValues,
	}
}

func (f Field) allows(value string) bool {
	if len(f.allowedValues) == 0 {
		return true
	}
	for _, v := range f.allowedValues {
		if v == value {
			return true
		}
	}
	return false
}

// Uint64Metric encapsulates a cumulative uint64 counter, optionally broken
// down by the values of one field.
type Uint64Metric struct {
	name        string
	description string
	field       *Field

	// values maps field values to *atomic.Uint64. A metric without a field
	// stores its value under the empty key.
	values sync.Map
}

// Value returns the current value of the metric for the given field value.
func (m *Uint64Metric) Value(fieldValues ...string) uint64 {
	v, ok := m.values.Load(m.key(fieldValues))
	if !ok {
		return 0
	}
	return v.(*atomic.Uint64).Load()
}

// Increment increments the metric by 1.
func (m *Uint64Metric) Increment(fieldValues ...string) {
	m.IncrementBy(1, fieldValues...)
}

// IncrementBy increments the metric by v.
//
// IncrementBy panics if the field value is not allowed, as that is always a
// programming error.
func (m *Uint64Metric) IncrementBy(v uint64, fieldValues ...string) {
	key := m.key(fieldValues)
	if m.field != nil && !m.field.allows(key) {
		panic(fmt.Sprintf("%v: %q for field %q of metric %q", ErrFieldValueNotAllowed, key, m.field.name, m.name))
	}
	c, ok := m.values.Load(key)
	if !ok {
		c, _ = m.values.LoadOrStore(key, new(atomic.Uint64))
	}
	c.(*atomic.Uint64).Add(v)
}

func (m *Uint64Metric) key(fieldValues []string) string {
	if m.field == nil || len(fieldValues) == 0 {
		return ""
	}
	return fieldValues[0]
}

// family returns the metric as a Prometheus metric family.
func (m *Uint64Metric) family() *dto.MetricFamily {
	mf := &dto.MetricFamily{
		Name: proto.String(m.name),
		Help: proto.String(m.description),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	var keys []string
	m.values.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	if m.field != nil {
		// Allowed values are always exported, even at zero.
		for _, v := range m.field.allowedValues {
			if _, ok := m.values.Load(v); !ok {
				keys = append(keys, v)
			}
		}
	} else if len(keys) == 0 {
		keys = []string{""}
	}
	sort.Strings(keys)
	for _, k := range keys {
		metric := &dto.Metric{
			Counter: &dto.Counter{Value: proto.Float64(float64(m.Value(k)))},
		}
		if m.field != nil {
			metric.Label = []*dto.LabelPair{{
				Name:  proto.String(m.field.name),
				Value: proto.String(k),
			}}
		}
		mf.Metric = append(mf.Metric, metric)
	}
	return mf
}

// Registry is a set of metrics.
type Registry struct {
	mu      sync.Mutex
	metrics map[string]*Uint64Metric
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]*Uint64Metric)}
}

// NewUint64Metric creates and registers a new cumulative counter.
func (r *Registry) NewUint64Metric(name, description string, fields ...Field) (*Uint64Metric, error) {
	if !nameRE.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if len(fields) > 1 {
		return nil, ErrTooManyFields
	}
	m := &Uint64Metric{name: name, description: description}
	if len(fields) == 1 {
		if !nameRE.MatchString(fields[0].name) {
			return nil, fmt.Errorf("%w: field %q", ErrInvalidName, fields[0].name)
		}
		f := fields[0]
		m.field = &f
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.metrics[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrNameInUse, name)
	}
	r.metrics[name] = m
	return m, nil
}

// MustCreateNewUint64Metric calls NewUint64Metric and panics if it returns
// an error.
func (r *Registry) MustCreateNewUint64Metric(name, description string, fields ...Field) *Uint64Metric {
	m, err := r.NewUint64Metric(name, description, fields...)
	if err != nil {
		panic(fmt.Sprintf("Unable to create metric %q: %s", name, err))
	}
	return m
}

// WriteText writes every metric in the Prometheus text exposition format, in
// name order.
func (r *Registry) WriteText(w io.Writer) error {
	r.mu.Lock()
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	r.mu.Unlock()
	sort.Strings(names)
	for _, name := range names {
		r.mu.Lock()
		m := r.metrics[name]
		r.mu.Unlock()
		if _, err := expfmt.MetricFamilyToText(w, m.family()); err != nil {
			return fmt.Errorf("error writing metric %q: %w", name, err)
		}
	}
	return nil
}
