package model

// ObjectTypeState is the object type of a plain state object.
const ObjectTypeState = "state"

// Object is a snapshot of an object definition in the external store.
type Object struct {
	// ID uniquely identifies the object and the state it describes.
	ID string `json:"_id" yaml:"id"`

	// Type is the object kind (usually "state").
	Type string `json:"type" yaml:"type"`

	// Common holds the generic object attributes.
	Common Common `json:"common" yaml:"common"`
}

// Common holds the attributes shared by all object kinds.
type Common struct {
	// Name is a human-readable label.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Type is the value type tag (boolean, number, string, ...).
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// Custom maps an adapter namespace to its per-object settings.
	Custom map[string]map[string]any `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// CustomFor returns the settings block for namespace, or nil if there is none.
func (o *Object) CustomFor(namespace string) map[string]any {
	if o == nil || o.Common.Custom == nil {
		return nil
	}
	return o.Common.Custom[namespace]
}

// EnabledFor reports whether the object carries an enabled settings block
// for namespace.
func (o *Object) EnabledFor(namespace string) bool {
	enabled, _ := o.CustomFor(namespace)["enabled"].(bool)
	return enabled
}

// Clone returns a deep copy of the object's custom settings and a shallow
// copy of everything else. Raw setting values are not copied.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := *o
	if o.Common.Custom != nil {
		c.Common.Custom = make(map[string]map[string]any, len(o.Common.Custom))
		for ns, block := range o.Common.Custom {
			cb := make(map[string]any, len(block))
			for k, v := range block {
				cb[k] = v
			}
			c.Common.Custom[ns] = cb
		}
	}
	return &c
}
