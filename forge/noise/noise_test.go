package noise

import (
	"bytes"
	"testing"

	"github.com/soypat/geometry/ms2"

	"github.com/soypat/gsg"
	"github.com/soypat/gsg/glbuild"
	"github.com/soypat/gsg/gleval"
	"github.com/soypat/gsg/graphio"
)

func TestValueNoiseRange(t *testing.T) {
	var bld gsg.Builder
	uv := bld.UV()
	n := ValueNoise(&bld, uv, nil)
	root := bld.Output(n, nil)
	if err := root.Err(); err != nil {
		t.Fatal(err)
	}
	shader, err := gleval.NewCPUShader(root)
	if err != nil {
		t.Fatal(err)
	}
	const side = 16
	var pos []ms2.Vec
	for i := 0; i < side; i++ {
		for j := 0; j < side; j++ {
			pos = append(pos, ms2.Vec{X: float32(i) / side, Y: float32(j) / side})
		}
	}
	rgba := make([]float32, 4*len(pos))
	err = shader.Evaluate(pos, 0, rgba, nil)
	if err != nil {
		t.Fatal(err)
	}
	first := rgba[0]
	varies := false
	for i := 0; i < len(rgba); i += 4 {
		v := rgba[i]
		if v < 0 || v >= 1 {
			t.Fatalf("noise value %f at sample %d outside [0,1)", v, i/4)
		}
		if v != first {
			varies = true
		}
	}
	if !varies {
		t.Error("noise is constant over the sample grid")
	}
}

func TestFBMSingleOctave(t *testing.T) {
	// One octave of fbm is half a value noise sample at the same scale.
	for _, p := range []ms2.Vec{{X: 0.1, Y: 0.9}, {X: 0.5, Y: 0.25}, {X: 3, Y: -2}} {
		want := 0.5 * valueNoise(p.X, p.Y, 4)
		got := fbm(p.X, p.Y, 4, 1)
		if got != want {
			t.Errorf("fbm(%v, 1 octave)=%f, want %f", p, got, want)
		}
	}
}

func TestFBMOctaveBounds(t *testing.T) {
	for _, octaves := range []float32{0, -1, 11} {
		_, err := gsg.NewOp("fbm", gsg.OpSpec{Value: []float32{octaves}})
		if err == nil {
			t.Errorf("fbm with %v octaves constructed, want error", octaves)
		}
	}
	op, err := gsg.NewOp("fbm", gsg.OpSpec{})
	if err != nil {
		t.Fatal(err)
	}
	if got := op.(gsg.SpecOp).OpSpec().Value[0]; got != 4 {
		t.Errorf("default octaves = %v, want 4", got)
	}
}

func TestNoiseEmission(t *testing.T) {
	var bld gsg.Builder
	uv := bld.UV()
	vn := ValueNoise(&bld, uv, nil)
	layered := FBM(&bld, uv, nil, 5)
	root := bld.Output(bld.Mul(vn, layered), nil)
	if err := root.Err(); err != nil {
		t.Fatal(err)
	}
	var src bytes.Buffer
	_, _, err := glbuild.NewDefaultProgrammer().WriteFragment(&src, root)
	if err != nil {
		t.Fatal(err)
	}
	glsl := src.String()
	if n := bytes.Count(src.Bytes(), []byte("float gsgNoiseHash(")); n != 1 {
		t.Errorf("hash function emitted %d times, want 1:\n%s", n, glsl)
	}
	if !bytes.Contains(src.Bytes(), []byte(",5);")) {
		t.Errorf("fbm octave count not inlined in call:\n%s", glsl)
	}
}

func TestNoiseDocumentRoundTrip(t *testing.T) {
	var bld gsg.Builder
	root := bld.Output(FBM(&bld, bld.UV(), bld.Value(2), 7), nil)
	if err := root.Err(); err != nil {
		t.Fatal(err)
	}
	var doc bytes.Buffer
	err := graphio.Save(&doc, "noisy", bld.Graph(), root)
	if err != nil {
		t.Fatal(err)
	}
	_, root2, err := graphio.Load(&doc)
	if err != nil {
		t.Fatal(err)
	}
	var want, got bytes.Buffer
	_, _, err = glbuild.NewDefaultProgrammer().WriteFragment(&want, root)
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = glbuild.NewDefaultProgrammer().WriteFragment(&got, root2)
	if err != nil {
		t.Fatal(err)
	}
	if want.String() != got.String() {
		t.Errorf("document round trip changed generated source:\nbefore:\n%s\nafter:\n%s", want.String(), got.String())
	}
}
