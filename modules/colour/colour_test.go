package colour

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ruediste/micro-blocks/bytecode"
	"github.com/ruediste/micro-blocks/image"
	"github.com/ruediste/micro-blocks/machine"
	"github.com/ruediste/micro-blocks/testbed"
)

const fnCapture = testbed.CaptureID

func near(a, b float64) bool { return math.Abs(a-b) < 1e-3 }

func pushRGB(b *bytecode.Builder, r, g, bl float32) *bytecode.Builder {
	return b.PushFloat(r).PushFloat(g).PushFloat(bl)
}

func run(t *testing.T, n int, code *bytecode.Builder) []float32 {
	t.Helper()
	bed := testbed.New(t, machine.Config{}, New())
	out := bed.Capture(t, fnCapture, n*4)
	bed.Load(t, code.Call(fnCapture))
	bed.NoFault(t, 0)
	vals := make([]float32, n)
	for i := range vals {
		vals[i] = testbed.F32((*out)[i*4:])
	}
	return vals
}

func TestGetChannel(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b float32
		ch      uint8
		want    float64
	}{
		{"red", 0.2, 0.4, 0.6, Red, 0.2},
		{"green", 0.2, 0.4, 0.6, Green, 0.4},
		{"blue", 0.2, 0.4, 0.6, Blue, 0.6},
		{"hue of red", 1, 0, 0, Hue, 0},
		{"hue of green", 0, 1, 0, Hue, 120},
		{"hue of blue", 0, 0, 1, Hue, 240},
		{"hue of magenta", 1, 0, 1, Hue, 300},
		{"saturation", 1, 0.5, 0.5, Saturation, 0.5},
		{"saturation of black", 0, 0, 0, Saturation, 0},
		{"value", 0.3, 0.8, 0.1, Value, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := run(t, 1, pushRGB(bytecode.NewBuilder(), tt.r, tt.g, tt.b).PushU8(tt.ch).Call(GetChannel))
			if !near(float64(got[0]), tt.want) {
				t.Errorf("got %v, want %v", got[0], tt.want)
			}
		})
	}
}

func TestInvalidChannel(t *testing.T) {
	bed := testbed.New(t, machine.Config{}, New())
	bed.Load(t, pushRGB(bytecode.NewBuilder(), 0, 0, 0).PushU8(6).Call(GetChannel))
	if bed.State(0) != machine.StateHalted {
		t.Fatalf("state = %s", bed.State(0))
	}
}

func TestSetVar(t *testing.T) {
	bed := testbed.New(t, machine.Config{}, New())
	if err := bed.M.Register(fnCapture, "end", (*machine.Thread).End); err != nil {
		t.Fatal(err)
	}
	code := pushRGB(bytecode.NewBuilder().PushU16(4), 0.25, 0.5, 1).Call(SetVar).Call(fnCapture)
	bed.LoadImage(t, testbed.ImageWith(t, image.NewBuilder(1).Globals(16), 64, code))
	bed.NoFault(t, 0)

	mem, _ := bed.M.Memory().Read(4, 12)
	for i, want := range []float32{0.25, 0.5, 1} {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(mem[i*4:])); got != want {
			t.Errorf("channel %d = %v, want %v", i, got, want)
		}
	}
}

func TestBlend(t *testing.T) {
	tests := []struct {
		name  string
		ratio float32
		want  [3]float64
	}{
		{"start", 0, [3]float64{1, 0, 0}},
		{"end", 1, [3]float64{0, 0, 1}},
		{"middle", 0.5, [3]float64{math.Pow(0.5, 1/Gamma), 0, math.Pow(0.5, 1/Gamma)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := pushRGB(bytecode.NewBuilder(), 1, 0, 0)
			b = pushRGB(b, 0, 0, 1).PushFloat(tt.ratio).Call(Blend)
			got := run(t, 3, b)
			for i := range got {
				if !near(float64(got[i]), tt.want[i]) {
					t.Errorf("channel %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFromHSV(t *testing.T) {
	tests := []struct {
		h, s, v float32
		want    [3]float64
	}{
		{0, 1, 1, [3]float64{1, 0, 0}},
		{120, 1, 1, [3]float64{0, 1, 0}},
		{240, 1, 0.5, [3]float64{0, 0, 0.5}},
		{360, 1, 1, [3]float64{1, 0, 0}},
		{-120, 1, 1, [3]float64{0, 0, 1}},
		{90, 0, 0.7, [3]float64{0.7, 0.7, 0.7}},
	}
	for _, tt := range tests {
		got := run(t, 3, bytecode.NewBuilder().PushFloat(tt.h).PushFloat(tt.s).PushFloat(tt.v).Call(FromHSV))
		for i := range got {
			if !near(float64(got[i]), tt.want[i]) {
				t.Errorf("hsv(%v,%v,%v) channel %d = %v, want %v", tt.h, tt.s, tt.v, i, got[i], tt.want[i])
			}
		}
	}
}

func TestHSVRoundTrip(t *testing.T) {
	for _, c := range []colorful.Color{{R: 0.2, G: 0.4, B: 0.6}, {R: 0.9, G: 0.1, B: 0.3}, {R: 0.5, G: 0.5, B: 0}} {
		h, s, v := c.Hsv()
		got := HSV(h, s, v)
		if !near(got.R, c.R) || !near(got.G, c.G) || !near(got.B, c.B) {
			t.Errorf("round trip %v -> %v", c, got)
		}
	}
}
