package umlsm

import (
	"encoding/json"
	"sync"

	"gopkg.in/yaml.v3"
)

// Variables is a ready-made context value for machines that do not need a
// dedicated type. It is safe for concurrent use, so do-activities may read
// and write it while the executor runs, and it survives snapshot encoding
// through JSON and YAML.
//
//	vars := umlsm.NewVariables()
//	e := umlsm.NewExecutor(m, vars)
type Variables struct {
	data  map[string]any
	mutex sync.RWMutex
}

// NewVariables creates an empty variable set
func NewVariables() *Variables {
	return &Variables{data: make(map[string]any)}
}

// Get retrieves a value
func (v *Variables) Get(key string) (any, bool) {
	v.mutex.RLock()
	defer v.mutex.RUnlock()
	value, exists := v.data[key]
	return value, exists
}

// GetString returns the value of key when it holds a string
func (v *Variables) GetString(key string) (string, bool) {
	value, ok := v.Get(key)
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

// GetInt returns the value of key when it holds a number. Decoded snapshots
// carry float64 or int values depending on the codec; both are accepted.
func (v *Variables) GetInt(key string) (int, bool) {
	value, ok := v.Get(key)
	if !ok {
		return 0, false
	}
	switch n := value.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// GetBool returns the value of key when it holds a bool
func (v *Variables) GetBool(key string) (bool, bool) {
	value, ok := v.Get(key)
	if !ok {
		return false, false
	}
	b, ok := value.(bool)
	return b, ok
}

// Set stores a value
func (v *Variables) Set(key string, value any) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if v.data == nil {
		v.data = make(map[string]any)
	}
	v.data[key] = value
}

// Add increments the number stored at key and returns the new value
func (v *Variables) Add(key string, delta int) int {
	current, _ := v.GetInt(key)
	v.Set(key, current+delta)
	return current + delta
}

// Delete removes a value
func (v *Variables) Delete(key string) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	delete(v.data, key)
}

// GetAll returns a copy of every value
func (v *Variables) GetAll() map[string]any {
	v.mutex.RLock()
	defer v.mutex.RUnlock()
	result := make(map[string]any, len(v.data))
	for k, value := range v.data {
		result[k] = value
	}
	return result
}

// Fork returns an independent copy. Values are copied shallowly.
func (v *Variables) Fork() *Variables {
	return &Variables{data: v.GetAll()}
}

// MarshalJSON encodes the variables as a JSON object
func (v *Variables) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.GetAll())
}

// UnmarshalJSON replaces the variables with the decoded object
func (v *Variables) UnmarshalJSON(data []byte) error {
	decoded := make(map[string]any)
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.data = decoded
	return nil
}

// MarshalYAML encodes the variables as a YAML mapping
func (v *Variables) MarshalYAML() (any, error) {
	return v.GetAll(), nil
}

// UnmarshalYAML replaces the variables with the decoded mapping
func (v *Variables) UnmarshalYAML(node *yaml.Node) error {
	decoded := make(map[string]any)
	if err := node.Decode(&decoded); err != nil {
		return err
	}
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.data = decoded
	return nil
}
