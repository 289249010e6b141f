package light

import (
	"context"
	"github.com/shimmeringbee/cda/service"
	"math"
)

var _ service.Service = (*Implementation)(nil)

var switchStates = map[string]bool{"on": true, "off": false}

const (
	minMired = 140
	maxMired = 500
)

// NewLight builds a light from a switch plus any of level, colour and colour
// temperature capabilities. Hue is exposed in degrees, the remote uses percent.
func NewLight(env service.Env) *Implementation {
	i := &Implementation{}
	i.Base = service.NewBase(i, service.TypeLight, env)

	i.AddCharacteristic(service.On, i.getOn, i.setOn)
	i.OnEvent("switch", "switch", service.On, service.Map(switchStates))

	if i.HasCapability("switchLevel") {
		i.AddCharacteristic(service.Brightness, i.getBrightness, i.setBrightness)
		i.OnEvent("switchLevel", "level", service.Brightness, service.Numeric)
	}

	if i.HasCapability("colorControl") {
		i.AddCharacteristic(service.Hue, i.getHue, i.setHue)
		i.AddCharacteristic(service.Saturation, i.getSaturation, i.setSaturation)
		i.OnEvent("colorControl", "hue", service.Hue, percentToDegrees)
		i.OnEvent("colorControl", "saturation", service.Saturation, service.Numeric)
	}

	if i.HasCapability("colorTemperature") {
		i.AddCharacteristic(service.ColorTemperature, i.getColorTemperature, i.setColorTemperature)
		i.OnEvent("colorTemperature", "colorTemperature", service.ColorTemperature, kelvinToMired)
	}

	i.Poll(service.On, env.PollInterval, "")

	return i
}

type Implementation struct {
	*service.Base
}

func (i *Implementation) getOn(ctx context.Context) (any, error) {
	s, err := i.String(ctx, "switch", "switch")
	if err != nil {
		return nil, err
	}

	return s == "on", nil
}

func (i *Implementation) setOn(ctx context.Context, v any) error {
	on, ok := service.Bool(v)
	if !ok {
		return service.ErrInvalidValue
	}

	if on {
		return i.Command(ctx, "switch", "on")
	}

	return i.Command(ctx, "switch", "off")
}

func (i *Implementation) getBrightness(ctx context.Context) (any, error) {
	return i.Float(ctx, "switchLevel", "level")
}

func (i *Implementation) setBrightness(ctx context.Context, v any) error {
	f, ok := service.Float(v)
	if !ok {
		return service.ErrInvalidValue
	}

	return i.Command(ctx, "switchLevel", "setLevel", math.Round(service.Clamp(f, 0, 100)))
}

func (i *Implementation) getHue(ctx context.Context) (any, error) {
	f, err := i.Float(ctx, "colorControl", "hue")
	if err != nil {
		return nil, err
	}

	return math.Round(f * 3.6), nil
}

func (i *Implementation) setHue(ctx context.Context, v any) error {
	f, ok := service.Float(v)
	if !ok {
		return service.ErrInvalidValue
	}

	return i.Command(ctx, "colorControl", "setHue", math.Round(service.Clamp(f, 0, 360)/3.6))
}

func (i *Implementation) getSaturation(ctx context.Context) (any, error) {
	return i.Float(ctx, "colorControl", "saturation")
}

func (i *Implementation) setSaturation(ctx context.Context, v any) error {
	f, ok := service.Float(v)
	if !ok {
		return service.ErrInvalidValue
	}

	return i.Command(ctx, "colorControl", "setSaturation", math.Round(service.Clamp(f, 0, 100)))
}

func (i *Implementation) getColorTemperature(ctx context.Context) (any, error) {
	f, err := i.Float(ctx, "colorTemperature", "colorTemperature")
	if err != nil {
		return nil, err
	}

	m, _ := kelvinToMired(f)
	return m, nil
}

func (i *Implementation) setColorTemperature(ctx context.Context, v any) error {
	f, ok := service.Float(v)
	if !ok || f <= 0 {
		return service.ErrInvalidValue
	}

	kelvin := math.Round(1000000 / service.Clamp(f, minMired, maxMired))
	return i.Command(ctx, "colorTemperature", "setColorTemperature", kelvin)
}

func percentToDegrees(v any) (any, bool) {
	f, ok := service.Float(v)
	if !ok {
		return nil, false
	}

	return math.Round(f * 3.6), true
}

func kelvinToMired(v any) (any, bool) {
	f, ok := service.Float(v)
	if !ok || f <= 0 {
		return nil, false
	}

	return service.Clamp(math.Round(1000000/f), minMired, maxMired), true
}
