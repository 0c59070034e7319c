package display

import "math"

// KelvinToRGB converts a color temperature to per-channel multipliers in
// [0, 1] using Tanner Helland's approximation. 6500K is close to (1, 1, 1).
func KelvinToRGB(kelvin int) (r, g, b float64) {
	temp := float64(kelvin) / 100.0

	if temp <= 66 {
		r = 1.0
		g = (99.4708025861*math.Log(temp) - 161.1195681661) / 255.0
	} else {
		r = 329.698727446 * math.Pow(temp-60, -0.1332047592) / 255.0
		g = 288.1221695283 * math.Pow(temp-60, -0.0755148492) / 255.0
	}

	switch {
	case temp >= 66:
		b = 1.0
	case temp <= 19:
		b = 0.0
	default:
		b = (138.5177312231*math.Log(temp-10) - 305.0447927307) / 255.0
	}

	return unit(r), unit(g), unit(b)
}

// Ramp fills three gamma ramps of equal length for a brightness and
// temperature step pair.
func Ramp(r, g, b []uint16, brightness, temperature int) {
	n := len(r)
	if n == 0 {
		return
	}

	factor := float64(Clamp(brightness, 0, MaxBrightnessStep)) / MaxBrightnessStep
	kr, kg, kb := KelvinToRGB(StepToKelvin(temperature))

	for i := 0; i < n; i++ {
		v := 65535.0 * factor
		if n > 1 {
			v *= float64(i) / float64(n-1)
		}
		r[i] = uint16(v * kr)
		g[i] = uint16(v * kg)
		b[i] = uint16(v * kb)
	}
}

func unit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
