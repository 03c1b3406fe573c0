package model

// DataType describes the value domain of an actuator or configuration item.
type DataType string

const (
	DataTypeBoolean DataType = "BOOLEAN"
	DataTypeNumeric DataType = "NUMERIC"
	DataTypeString  DataType = "STRING"
)

// SensorTemplate describes one sensor capability of a subdevice.
type SensorTemplate struct {
	Name        string
	Reference   string
	ReadingType string
	Unit        string
	Description string
	Minimum     float64
	Maximum     float64
}

// ActuatorTemplate describes one actuator capability of a subdevice.
// Minimum and Maximum are only meaningful for NUMERIC actuators and may be nil.
type ActuatorTemplate struct {
	Name        string
	Reference   string
	DataType    DataType
	Description string
	Minimum     *float64
	Maximum     *float64
}

// AlarmTemplate describes one alarm capability of a subdevice.
type AlarmTemplate struct {
	Name        string
	Reference   string
	Description string
}

// ConfigurationTemplate describes one configuration item of a subdevice.
// Labels is non-empty for multi-value configuration items; each label names
// one slot of the value vector.
type ConfigurationTemplate struct {
	Name         string
	Reference    string
	DataType     DataType
	Description  string
	DefaultValue string
	Labels       []string
	Minimum      *float64
	Maximum      *float64
}

// DeviceTemplate is the full capability description of a subdevice: four
// collections of templates, each keyed by reference (unique within its kind).
type DeviceTemplate struct {
	Sensors        []SensorTemplate
	Actuators      []ActuatorTemplate
	Alarms         []AlarmTemplate
	Configurations []ConfigurationTemplate
}

// Subdevice is a logical device proxied onto the gateway bus. Key is the
// unique identity used on every wire channel and is immutable once registered.
type Subdevice struct {
	Name     string
	Key      string
	Template DeviceTemplate
}

// SensorByReference returns the sensor template with the given reference,
// or false when the device defines no such sensor.
func (t DeviceTemplate) SensorByReference(reference string) (SensorTemplate, bool) {
	for _, s := range t.Sensors {
		if s.Reference == reference {
			return s, true
		}
	}
	return SensorTemplate{}, false
}

// ActuatorByReference returns the actuator template with the given reference.
func (t DeviceTemplate) ActuatorByReference(reference string) (ActuatorTemplate, bool) {
	for _, a := range t.Actuators {
		if a.Reference == reference {
			return a, true
		}
	}
	return ActuatorTemplate{}, false
}

// AlarmByReference returns the alarm template with the given reference.
func (t DeviceTemplate) AlarmByReference(reference string) (AlarmTemplate, bool) {
	for _, a := range t.Alarms {
		if a.Reference == reference {
			return a, true
		}
	}
	return AlarmTemplate{}, false
}

// ConfigurationByReference returns the configuration template with the given reference.
func (t DeviceTemplate) ConfigurationByReference(reference string) (ConfigurationTemplate, bool) {
	for _, c := range t.Configurations {
		if c.Reference == reference {
			return c, true
		}
	}
	return ConfigurationTemplate{}, false
}

// ActuatorReferences returns the references of all actuators in declaration order.
func (t DeviceTemplate) ActuatorReferences() []string {
	refs := make([]string, 0, len(t.Actuators))
	for _, a := range t.Actuators {
		refs = append(refs, a.Reference)
	}
	return refs
}
