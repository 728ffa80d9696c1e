package render

import "github.com/chewxy/math32"

func cos(a float32) float32 { return math32.Cos(a) }
func sin(a float32) float32 { return math32.Sin(a) }

const pi = math32.Pi
