package gsg_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gsg"
	"github.com/soypat/gsg/glbuild"
)

func mustAddOp(t *testing.T, g *gsg.Graph, opname string, spec gsg.OpSpec) *gsg.Node {
	t.Helper()
	op, err := gsg.NewOp(opname, spec)
	if err != nil {
		t.Fatal(err)
	}
	n, err := g.Add(op)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func outKind(t *testing.T, n *gsg.Node) glbuild.Kind {
	t.Helper()
	k, err := n.OutputKind("out")
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func TestStaticKinds(t *testing.T) {
	var bld gsg.Builder
	cases := []struct {
		n    *gsg.Node
		want glbuild.Kind
	}{
		{bld.Value(1.5), glbuild.KindFloat},
		{bld.Value2(ms2.Vec{X: 1, Y: 2}), glbuild.KindVec2},
		{bld.Value3(ms3.Vec{X: 1}), glbuild.KindVec3},
		{bld.Value4(1, 2, 3, 4), glbuild.KindVec4},
		{bld.Mat2(ms2.RotationMat2(0)), glbuild.KindMat2},
		{bld.Mat3(ms3.Mat3{}), glbuild.KindMat3},
		{bld.Mat4(ms3.RotationMat4(0.5, ms3.Vec{Z: 1})), glbuild.KindMat4},
		{bld.UV(), glbuild.KindVec2},
	}
	for _, tc := range cases {
		if tc.n.Failing() {
			t.Errorf("%s failing: %v", tc.n.Name(), tc.n.Err())
		}
		got := tc.n.Kinds()
		if got[len(got)-1] != tc.want {
			t.Errorf("%s output kind %s, want %s", tc.n.Name(), got[len(got)-1].String(), tc.want.String())
		}
	}
	tn := bld.Time()
	if k, err := tn.OutputKind("t"); err != nil || k != glbuild.KindFloat {
		t.Errorf("time output kind %s, %v", k.String(), err)
	}
}

func TestUnconnectedOutputDefaults(t *testing.T) {
	// An output node with nothing wired resolves on its declared kinds and
	// does not fail: color falls back to its default black.
	var bld gsg.Builder
	out := bld.Output(nil, nil)
	if out.Failing() {
		t.Fatalf("unconnected output failing: %v", out.Err())
	}
	if k, _ := out.InputKind("color"); k != glbuild.KindVec3 {
		t.Errorf("color kind %s, want vec3", k.String())
	}
	if k, _ := out.InputKind("alpha"); k != glbuild.KindFloat {
		t.Errorf("alpha kind %s, want float", k.String())
	}
	if k, _ := out.OutputKind("rgba"); k != glbuild.KindVec4 {
		t.Errorf("rgba kind %s, want vec4", k.String())
	}
}

func TestStaticSlotConversions(t *testing.T) {
	// Connections into statically kinded slots accept scalar broadcast and
	// truncation, and refuse widening.
	var bld gsg.Builder
	out := bld.Output(bld.Value(0.5), nil) // float broadcasts to the vec3 color.
	if out.Failing() {
		t.Errorf("float into vec3 color failing: %v", out.Err())
	}
	out2 := bld.Output(bld.Value4(1, 0, 0, 1), nil) // vec4 truncates to vec3.
	if out2.Failing() {
		t.Errorf("vec4 into vec3 color failing: %v", out2.Err())
	}
	cmb := bld.Combine(bld.Value2(ms2.Vec{X: 7}), bld.Value(0), bld.Value(0), bld.Value(1))
	if cmb.Failing() { // vec2 truncates to the float x channel.
		t.Errorf("vec2 into float slot failing: %v", cmb.Err())
	}
	bad := bld.Output(bld.Value2(ms2.Vec{X: 1}), nil) // vec2 cannot widen to vec3.
	if !bad.Failing() {
		t.Fatal("vec2 into vec3 color did not fail")
	}
	err := bad.Err()
	if !errors.Is(err, gsg.ErrNoConversion) {
		t.Errorf("err = %v, want ErrNoConversion", err)
	}
	if !strings.Contains(err.Error(), `input "color"`) {
		t.Errorf("err %v does not name the failing input", err)
	}
}

func TestDynamicUnification(t *testing.T) {
	mkF := func(bld *gsg.Builder) *gsg.Node { return bld.Value(1) }
	mkV2 := func(bld *gsg.Builder) *gsg.Node { return bld.Value2(ms2.Vec{X: 1}) }
	mkV3 := func(bld *gsg.Builder) *gsg.Node { return bld.Value3(ms3.Vec{X: 1}) }
	mkM2 := func(bld *gsg.Builder) *gsg.Node { return bld.Mat2(ms2.RotationMat2(0)) }
	cases := []struct {
		name string
		a, b func(*gsg.Builder) *gsg.Node
		want glbuild.Kind
	}{
		{name: "no contributions default float", want: glbuild.KindFloat},
		{name: "lone vec2 wins", a: mkV2, want: glbuild.KindVec2},
		{name: "scalar broadcasts to vec2", a: mkV2, b: mkF, want: glbuild.KindVec2},
		{name: "narrower vec2 wins over vec3", a: mkV2, b: mkV3, want: glbuild.KindVec2},
		{name: "matrix truncates to vec3", a: mkM2, b: mkV3, want: glbuild.KindVec3},
		{name: "matching matrices keep kind", a: mkM2, b: mkM2, want: glbuild.KindMat2},
	}
	for _, tc := range cases {
		bld := gsg.Builder{NoBuildPanic: true}
		var a, b *gsg.Node
		if tc.a != nil {
			a = tc.a(&bld)
		}
		if tc.b != nil {
			b = tc.b(&bld)
		}
		n := bld.Wire("add", gsg.OpSpec{}, a, b)
		if err := bld.Err(); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got := outKind(t, n); got != tc.want {
			t.Errorf("%s: unified to %s, want %s", tc.name, got.String(), tc.want.String())
		}
	}

	// The unconnected operand slot follows the unified kind.
	bld := gsg.Builder{NoBuildPanic: true}
	n := bld.Wire("add", gsg.OpSpec{}, bld.Value3(ms3.Vec{}), nil)
	if k, _ := n.InputKind("b"); k != glbuild.KindVec3 {
		t.Errorf("unconnected dynamic slot kind %s, want vec3", k.String())
	}
}

func TestMatrixOperandValidation(t *testing.T) {
	// add and mul accept matrices, the componentwise-only ops refuse them.
	var bld gsg.Builder
	m := bld.Mat2(ms2.RotationMat2(0))
	if n := bld.Add(m, m); n.Failing() {
		t.Errorf("add of matrices failing: %v", n.Err())
	}
	if n := bld.Min(m, m); !n.Failing() || !strings.Contains(n.Err().Error(), "matrix operands") {
		t.Errorf("min of matrices err = %v, want matrix operand rejection", n.Err())
	}
	if n := bld.Sin(m); !n.Failing() {
		t.Error("sin of matrix did not fail")
	}
	// matmul conversely refuses non-matrix operands.
	v := bld.Value2(ms2.Vec{X: 1})
	if n := bld.MatMul(v, v); !n.Failing() || !strings.Contains(n.Err().Error(), "matrix operands") {
		t.Errorf("matmul of vectors err = %v, want matrix operand requirement", n.Err())
	}
}

func TestUpstreamErrorPropagation(t *testing.T) {
	bld := gsg.Builder{NoBuildPanic: true}
	bad := bld.Wire("cross", gsg.OpSpec{}, bld.Value2(ms2.Vec{X: 1}), nil) // vec2 cannot widen to vec3.
	if err := bld.Err(); err != nil {
		t.Fatal(err)
	}
	if !bad.Failing() || !errors.Is(bad.Err(), gsg.ErrNoConversion) {
		t.Fatalf("cross err = %v, want ErrNoConversion", bad.Err())
	}
	mid := bld.Sin(bad)
	leaf := bld.Output(mid, nil)
	for _, n := range []*gsg.Node{mid, leaf} {
		if !n.Failing() {
			t.Fatalf("%s not failing despite failing upstream", n.Name())
		}
		if err := n.Err(); !errors.Is(err, gsg.ErrUpstream) {
			t.Errorf("%s err = %v, want ErrUpstream", n.Name(), err)
		}
		for _, k := range n.Kinds() {
			if k != glbuild.KindError {
				t.Errorf("%s has kind %s, want all KindError", n.Name(), k.String())
			}
		}
	}
	// The node with its own diagnostic reports it rather than ErrUpstream.
	if errors.Is(bad.Err(), gsg.ErrUpstream) {
		t.Error("originating node reports ErrUpstream")
	}
}

func TestOnErrorChanged(t *testing.T) {
	type transition struct {
		name    string
		failing bool
	}
	var got []transition
	var bld gsg.Builder
	g := bld.Graph()
	g.OnErrorChanged = func(n *gsg.Node, failing bool) {
		got = append(got, transition{n.Name(), failing})
	}
	v := bld.Value2(ms2.Vec{X: 1})
	cross := bld.Wire("cross", gsg.OpSpec{}, v, nil)
	if !cross.Failing() {
		t.Fatal("vec2 into vec3 slot did not fail")
	}
	cross.Err() // Cached resolve, no further transitions.
	cross.Kinds()
	if len(got) != 1 || got[0] != (transition{cross.Name(), true}) {
		t.Fatalf("transitions after failure: %+v", got)
	}
	if err := g.Disconnect(cross, "a"); err != nil {
		t.Fatal(err)
	}
	if cross.Failing() {
		t.Fatalf("disconnected cross still failing: %v", cross.Err())
	}
	if len(got) != 2 || got[1] != (transition{cross.Name(), false}) {
		t.Fatalf("transitions after recovery: %+v", got)
	}
}

func TestConnectCycleRefused(t *testing.T) {
	g := gsg.NewGraph()
	a := mustAddOp(t, g, "add", gsg.OpSpec{})
	b := mustAddOp(t, g, "add", gsg.OpSpec{})
	if err := g.Connect(a, "out", b, "a"); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect(b, "out", a, "a"); !errors.Is(err, gsg.ErrCycle) {
		t.Errorf("back edge err = %v, want ErrCycle", err)
	}
	if err := g.Connect(a, "out", a, "b"); !errors.Is(err, gsg.ErrCycle) {
		t.Errorf("self edge err = %v, want ErrCycle", err)
	}
	// Diamonds are not cycles.
	c := mustAddOp(t, g, "add", gsg.OpSpec{})
	if err := g.Connect(c, "out", a, "a"); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect(c, "out", b, "b"); err != nil {
		t.Fatal(err)
	}
}

func TestConnectErrors(t *testing.T) {
	g := gsg.NewGraph()
	a := mustAddOp(t, g, "sin", gsg.OpSpec{})
	if err := g.Connect(a, "nope", a, "a"); err == nil || !strings.Contains(err.Error(), "no output slot") {
		t.Errorf("bad output slot err = %v", err)
	}
	if err := g.Connect(a, "out", a, "nope"); err == nil || !strings.Contains(err.Error(), "no input slot") {
		t.Errorf("bad input slot err = %v", err)
	}
	other := gsg.NewGraph()
	b := mustAddOp(t, other, "sin", gsg.OpSpec{})
	if err := g.Connect(b, "out", a, "a"); err == nil {
		t.Error("cross graph connect succeeded")
	}
	if err := g.Connect(nil, "out", a, "a"); err == nil {
		t.Error("nil node connect succeeded")
	}
}

func TestConnectReplacesAndDisconnectReverts(t *testing.T) {
	var bld gsg.Builder
	g := bld.Graph()
	f := bld.Value(1)
	v3 := bld.Value3(ms3.Vec{X: 1})
	sin := bld.Sin(f)
	if k := outKind(t, sin); k != glbuild.KindFloat {
		t.Fatalf("sin kind %s, want float", k.String())
	}
	// Reconnecting the same input replaces the previous edge.
	if err := g.Connect(v3, "out", sin, "a"); err != nil {
		t.Fatal(err)
	}
	if src, _, _ := sin.Input("a"); src != v3 {
		t.Fatal("input a not replaced by new connection")
	}
	if k := outKind(t, sin); k != glbuild.KindVec3 {
		t.Fatalf("sin kind after replace %s, want vec3", k.String())
	}
	if err := g.Disconnect(sin, "a"); err != nil {
		t.Fatal(err)
	}
	if k := outKind(t, sin); k != glbuild.KindFloat {
		t.Fatalf("sin kind after disconnect %s, want float default", k.String())
	}
	// Disconnecting an unconnected input is a no-op.
	if err := g.Disconnect(sin, "a"); err != nil {
		t.Fatal(err)
	}
}

func TestInvalidationCascades(t *testing.T) {
	var bld gsg.Builder
	g := bld.Graph()
	v2 := bld.Value2(ms2.Vec{X: 1})
	v3 := bld.Value3(ms3.Vec{X: 1})
	mid := bld.Add(v2, v2)
	leaf := bld.Fract(bld.Sin(mid))
	if k := outKind(t, leaf); k != glbuild.KindVec2 {
		t.Fatalf("leaf kind %s, want vec2", k.String())
	}
	// Rewiring upstream must propagate through the cached chain.
	if err := g.Connect(v3, "out", mid, "a"); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect(v3, "out", mid, "b"); err != nil {
		t.Fatal(err)
	}
	if k := outKind(t, leaf); k != glbuild.KindVec3 {
		t.Fatalf("leaf kind after rewire %s, want vec3", k.String())
	}
}

func TestSplitComponents(t *testing.T) {
	var bld gsg.Builder
	sp := bld.Split(bld.Value2(ms2.Vec{X: 3, Y: 4}))
	if sp.Failing() {
		t.Fatal(sp.Err())
	}
	for _, slot := range []string{"x", "y", "z", "w"} {
		if k, err := sp.OutputKind(slot); err != nil || k != glbuild.KindFloat {
			t.Errorf("split %s kind %s, %v", slot, k.String(), err)
		}
	}
	// Components beyond the input's channels read zero.
	stmts := string(sp.AppendShaderStmts(nil))
	want := "float split2_x=(value1).x;\nfloat split2_y=(value1).y;\nfloat split2_z=0.0;\nfloat split2_w=0.0;\n"
	if stmts != want {
		t.Errorf("split statements:\n%s\nwant:\n%s", stmts, want)
	}
	// Splitting a float repeats it on x and zeroes the rest.
	var bld2 gsg.Builder
	spf := bld2.Split(bld2.Value(7))
	stmts = string(spf.AppendShaderStmts(nil))
	want = "float split2_x=value1;\nfloat split2_y=0.0;\nfloat split2_z=0.0;\nfloat split2_w=0.0;\n"
	if stmts != want {
		t.Errorf("float split statements:\n%s\nwant:\n%s", stmts, want)
	}
	// Splitting a matrix is refused.
	var bld3 gsg.Builder
	spm := bld3.Split(bld3.Mat2(ms2.RotationMat2(0)))
	if !spm.Failing() {
		t.Error("split of matrix did not fail")
	}
}

func TestSwizzle(t *testing.T) {
	var bld gsg.Builder
	v2 := bld.Value2(ms2.Vec{X: 1, Y: 2})
	v4 := bld.Value4(1, 2, 3, 4)
	if n := bld.Swizzle(v2, "yx"); n.Failing() || outKind(t, n) != glbuild.KindVec2 {
		t.Errorf("yx of vec2: kind %v err %v", n.Kinds(), n.Err())
	}
	if n := bld.Swizzle(v4, "wzyx"); n.Failing() || outKind(t, n) != glbuild.KindVec4 {
		t.Errorf("wzyx of vec4: kind %v err %v", n.Kinds(), n.Err())
	}
	if n := bld.Swizzle(v2, "x"); outKind(t, n) != glbuild.KindFloat {
		t.Error("single component mask must yield float")
	}
	if n := bld.Swizzle(v2, "xxx"); n.Failing() || outKind(t, n) != glbuild.KindVec3 {
		t.Errorf("repeating mask: kind %v err %v", n.Kinds(), n.Err())
	}
	cases := []struct {
		src     *gsg.Node
		mask    string
		errPart string
	}{
		{v2, "z", "out of range"},
		{v2, "q", `outside "xyzw"`},
		{v2, "", "1 to 4 components"},
		{v2, "xyzxy", "1 to 4 components"},
		{bld.Value(1), "x", "vector input"},
	}
	for _, tc := range cases {
		n := bld.Swizzle(tc.src, tc.mask)
		if !n.Failing() || !strings.Contains(n.Err().Error(), tc.errPart) {
			t.Errorf("swizzle %q err = %v, want %q", tc.mask, n.Err(), tc.errPart)
		}
	}
	// A failing input surfaces as upstream failure, not a swizzle diagnostic.
	bld2 := gsg.Builder{NoBuildPanic: true}
	bad := bld2.Wire("cross", gsg.OpSpec{}, bld2.Value2(ms2.Vec{X: 1}), nil)
	sw := bld2.Swizzle(bad, "x")
	if err := sw.Err(); !errors.Is(err, gsg.ErrUpstream) {
		t.Errorf("swizzle of failing input err = %v, want ErrUpstream", err)
	}
}

func TestLightModels(t *testing.T) {
	models := gsg.LightModels()
	for _, want := range []string{"blinnphong", "halflambert", "lambert"} {
		found := false
		for _, m := range models {
			found = found || m == want
		}
		if !found {
			t.Errorf("light model %q not registered, have %v", want, models)
		}
	}
	var bld gsg.Builder
	lit := bld.Light("lambert", nil, nil, nil, bld.Value3(ms3.Vec{X: 1}), nil)
	if lit.Failing() {
		t.Fatal(lit.Err())
	}
	if k, _ := lit.OutputKind("color"); k != glbuild.KindVec3 {
		t.Errorf("light output kind %s, want vec3", k.String())
	}
	unknown := bld.Light("gouraud", nil, nil, nil, nil, nil)
	if !unknown.Failing() || !strings.Contains(unknown.Err().Error(), "unknown lighting model") {
		t.Errorf("unknown model err = %v", unknown.Err())
	}
}

func TestFuncOp(t *testing.T) {
	var bld gsg.Builder
	f := bld.Func("float dbl(float x)\n{\nreturn x*2.0;\n}", bld.Value(3))
	if f.Failing() {
		t.Fatal(f.Err())
	}
	if k, _ := f.OutputKind("out"); k != glbuild.KindFloat {
		t.Errorf("func output kind %s, want float", k.String())
	}
	stmts := string(f.AppendShaderStmts(nil))
	if !strings.Contains(stmts, "=dbl(") {
		t.Errorf("func statement does not call dbl: %s", stmts)
	}
	// Unparsable source keeps the node alive but failing.
	broken := bld.Func("not a glsl function")
	if !broken.Failing() {
		t.Fatal("unparsable func source did not fail")
	}
	if bld.Err() != nil {
		t.Errorf("parse failure leaked into builder errors: %v", bld.Err())
	}
}

func TestBuilderErrorAccumulation(t *testing.T) {
	bld := gsg.Builder{NoBuildPanic: true}
	n := bld.Wire("warp", gsg.OpSpec{})
	if n == nil || n.Op().OpName() != "value" {
		t.Fatal("unknown op did not fall back to a value placeholder")
	}
	bld.Wire("sin", gsg.OpSpec{}, bld.Value(1), bld.Value(2))
	err := bld.Err()
	if err == nil {
		t.Fatal("builder accumulated no errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, `unknown op "warp"`) || !strings.Contains(msg, "takes 1 inputs, got 2") {
		t.Errorf("unexpected accumulated errors: %v", msg)
	}
	if bld.ClearErrors().Err() != nil {
		t.Error("ClearErrors left errors behind")
	}
}

func TestBuilderPanics(t *testing.T) {
	mustPanic := func(name string, fn func()) {
		defer func() {
			if recover() == nil {
				t.Errorf("%s did not panic", name)
			}
		}()
		fn()
	}
	var bld gsg.Builder // Zero value panics on build errors.
	mustPanic("unknown op", func() { bld.Wire("warp", gsg.OpSpec{}) })
	// Nil arguments to the expression constructors are programmer error and
	// panic regardless of NoBuildPanic.
	accum := gsg.Builder{NoBuildPanic: true}
	mustPanic("nil node", func() { accum.Sin(nil) })
}

func TestValueSpecValidation(t *testing.T) {
	if _, err := gsg.NewOp("value", gsg.OpSpec{Kind: glbuild.KindVec2, Value: []float32{1}}); err == nil {
		t.Error("channel count mismatch accepted")
	}
	if _, err := gsg.NewOp("value", gsg.OpSpec{Kind: glbuild.KindDynamic, Value: []float32{1}}); err == nil {
		t.Error("dynamic value kind accepted")
	}
	if _, err := gsg.NewOp("matvalue", gsg.OpSpec{Kind: glbuild.KindVec3, Value: []float32{1, 2, 3}}); err == nil {
		t.Error("matvalue accepted a vector kind")
	}
	if _, err := gsg.NewOp("matvalue", gsg.OpSpec{Kind: glbuild.KindMat2, Value: []float32{1, 0, 0, 1}}); err != nil {
		t.Errorf("mat2 matvalue refused: %v", err)
	}
}

func TestOpSpecRoundTrip(t *testing.T) {
	cases := []struct {
		opname string
		spec   gsg.OpSpec
	}{
		{"value", gsg.OpSpec{Kind: glbuild.KindVec3, Value: []float32{1, 2, 3}}},
		{"param", gsg.OpSpec{Kind: glbuild.KindFloat, Name: "gain", Value: []float32{2}}},
		{"swizzle", gsg.OpSpec{Mask: "xy"}},
		{"light", gsg.OpSpec{Model: "lambert"}},
	}
	for _, tc := range cases {
		op, err := gsg.NewOp(tc.opname, tc.spec)
		if err != nil {
			t.Fatalf("%s: %v", tc.opname, err)
		}
		so, ok := op.(gsg.SpecOp)
		if !ok {
			t.Fatalf("%s is not a SpecOp", tc.opname)
		}
		got := so.OpSpec()
		if got.Kind != tc.spec.Kind || got.Name != tc.spec.Name || got.Mask != tc.spec.Mask || got.Model != tc.spec.Model {
			t.Errorf("%s spec round trip got %+v, want %+v", tc.opname, got, tc.spec)
		}
		if len(got.Value) != len(tc.spec.Value) {
			t.Errorf("%s value round trip got %v, want %v", tc.opname, got.Value, tc.spec.Value)
			continue
		}
		for i := range got.Value {
			if got.Value[i] != tc.spec.Value[i] {
				t.Errorf("%s value round trip got %v, want %v", tc.opname, got.Value, tc.spec.Value)
				break
			}
		}
	}
}

func TestRegisteredOps(t *testing.T) {
	names := gsg.RegisteredOps()
	if !sortedStrings(names) {
		t.Error("RegisteredOps not sorted")
	}
	for _, want := range []string{
		"add", "combine", "cos", "dot", "func", "light", "matmul", "matvalue",
		"mix", "output", "param", "rotate2d", "split", "swizzle", "time",
		"transformpt", "uv", "value",
	} {
		found := false
		for _, n := range names {
			found = found || n == want
		}
		if !found {
			t.Errorf("op %q not registered", want)
		}
	}
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] < s[i-1] {
			return false
		}
	}
	return true
}

func TestNodeLabelsAndNames(t *testing.T) {
	var bld gsg.Builder
	a := bld.Value(1)
	b := bld.Value(2)
	if a.Name() == b.Name() {
		t.Errorf("node names collide: %s", a.Name())
	}
	a.Label = "brightness"
	if a.Name() != "value1" {
		t.Errorf("label changed generated name to %s", a.Name())
	}
	nodes := bld.Graph().Nodes()
	if len(nodes) != 2 || nodes[0] != a || nodes[1] != b {
		t.Error("Nodes does not report insertion order")
	}
}

func TestTransformAndRotate(t *testing.T) {
	var bld gsg.Builder
	pt := bld.TransformPoint(bld.Mat4(ms3.RotationMat4(1.2, ms3.Vec{Z: 1})), bld.Value3(ms3.Vec{X: 1}))
	if pt.Failing() {
		t.Fatal(pt.Err())
	}
	if k := outKind(t, pt); k != glbuild.KindVec3 {
		t.Errorf("transformpt kind %s, want vec3", k.String())
	}
	rot := bld.Rotate2D(bld.Value(1.5708))
	if k := outKind(t, rot); k != glbuild.KindMat2 {
		t.Errorf("rotate2d kind %s, want mat2", k.String())
	}
	// A matrix feeding a dynamic op alongside a vector unifies down to the
	// vector kind, truncating the matrix rather than multiplying by it.
	mixed := bld.Mul(rot, bld.UV())
	if mixed.Failing() {
		t.Fatal(mixed.Err())
	}
	if k := outKind(t, mixed); k != glbuild.KindVec2 {
		t.Errorf("mat2 mixed with vec2 unified to %s, want vec2", k.String())
	}
}
