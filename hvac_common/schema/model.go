package schema

import "fmt"

// Model names the four supported device firmware families, matching the
// --device_type choices of the source implementation.
type Model string

const (
	ModelAC         Model = "ac"
	ModelHumidifier Model = "humidifier"
	ModelFgl        Model = "fgl"
	ModelFglB       Model = "fgl_b"
)

// TableFor resolves a configured model name to its property table. An
// unrecognized model is a startup error.
func TableFor(model Model) (*Table, error) {
	switch model {
	case ModelAC:
		return AC, nil
	case ModelHumidifier:
		return Humidifier, nil
	case ModelFgl:
		return Fgl, nil
	case ModelFglB:
		return FglB, nil
	}
	return nil, fmt.Errorf("schema: unknown device model %q", model)
}
